package platform

// Filter types understood by the search endpoint
const (
	FilterEquals    = "equals"
	FilterEqualsAny = "equalsAny"
	FilterContains  = "contains"
	FilterRange     = "range"
)

// Filter is a single search condition
type Filter struct {
	Type       string         `json:"type"`
	Field      string         `json:"field"`
	Value      any            `json:"value,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Equals matches field == value
func Equals(field string, value any) Filter {
	return Filter{Type: FilterEquals, Field: field, Value: value}
}

// EqualsAny matches any of values
func EqualsAny(field string, values ...string) Filter {
	return Filter{Type: FilterEqualsAny, Field: field, Value: values}
}

// GreaterThanOrEqual matches field >= value
func GreaterThanOrEqual(field string, value any) Filter {
	return Filter{Type: FilterRange, Field: field, Parameters: map[string]any{"gte": value}}
}

// Sort orders search hits
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// Criteria describes a search request
type Criteria struct {
	IDs          []string            `json:"ids,omitempty"`
	Filters      []Filter            `json:"filter,omitempty"`
	Sort         []Sort              `json:"sort,omitempty"`
	Associations map[string]Criteria `json:"associations,omitempty"`
	Limit        int                 `json:"limit,omitempty"`
	Page         int                 `json:"page,omitempty"`
	TotalCount   int                 `json:"total-count-mode,omitempty"`
}

// NewCriteria creates criteria matching all filters
func NewCriteria(filters ...Filter) *Criteria {
	return &Criteria{Filters: filters}
}

// ByID creates criteria for a single id
func ByID(id string) *Criteria {
	return &Criteria{IDs: []string{id}, Limit: 1}
}

// WithAssociation loads an association with the hits
func (c *Criteria) WithAssociation(name string) *Criteria {
	if c.Associations == nil {
		c.Associations = make(map[string]Criteria)
	}
	c.Associations[name] = Criteria{}
	return c
}

// WithLimit sets the page size
func (c *Criteria) WithLimit(limit int) *Criteria {
	c.Limit = limit
	return c
}

// WithPage selects a page, starting at 1
func (c *Criteria) WithPage(page int) *Criteria {
	c.Page = page
	return c
}

// WithSort appends an ascending sort on field
func (c *Criteria) WithSort(field string) *Criteria {
	c.Sort = append(c.Sort, Sort{Field: field, Order: "ASC"})
	return c
}
