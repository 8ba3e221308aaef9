package erp

import (
	"fmt"
	"os"

	"github.com/erp/bridge/internal/domain/erp"
	"gopkg.in/yaml.v3"
)

// Fixture is a snapshot of ERP tables used by the in-memory driver
type Fixture struct {
	Tables map[string]*Table `yaml:"tables"`
}

// Table describes one ERP table: field types, optional numbering and rows
type Table struct {
	Fields        map[string]erp.FieldType `yaml:"fields"`
	AutoIncrement *AutoIncrement           `yaml:"autoincrement,omitempty"`
	Rows          []Row                    `yaml:"rows"`
}

// Row holds the raw field values of one record
type Row map[string]any

// AutoIncrement numbers appended records. Numbers are unique within Scope,
// the fields the new record shares with its siblings.
type AutoIncrement struct {
	Field string   `yaml:"field"`
	Start int64    `yaml:"start"`
	Scope []string `yaml:"scope,omitempty"`
}

// LoadFixture reads a YAML fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read erp fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and adds the tables of the default
// schema it does not define. Default tables declared without fields inherit
// the default fields and auto-increment.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse erp fixture: %w", err)
	}
	if f.Tables == nil {
		f.Tables = map[string]*Table{}
	}
	for name, def := range DefaultSchema().Tables {
		t, ok := f.Tables[name]
		if !ok || t == nil {
			f.Tables[name] = def
			continue
		}
		if t.Fields == nil {
			t.Fields = def.Fields
		}
		if t.AutoIncrement == nil {
			t.AutoIncrement = def.AutoIncrement
		}
	}
	for name, t := range f.Tables {
		if t.Fields == nil {
			return nil, fmt.Errorf("parse erp fixture: table %s has no fields", name)
		}
		for i, row := range t.Rows {
			for field := range row {
				if _, ok := t.Fields[field]; !ok {
					return nil, fmt.Errorf("parse erp fixture: %s row %d: %w: %s", name, i, erp.ErrUnknownField, field)
				}
			}
		}
	}
	return &f, nil
}

// Save writes the fixture as YAML
func (f *Fixture) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode erp fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write erp fixture: %w", err)
	}
	return nil
}

// clone deep-copies the rows so a transaction can be rolled back
func (f *Fixture) clone() map[string][]Row {
	out := make(map[string][]Row, len(f.Tables))
	for name, t := range f.Tables {
		rows := make([]Row, len(t.Rows))
		for i, row := range t.Rows {
			rows[i] = row.clone()
		}
		out[name] = rows
	}
	return out
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DefaultSchema returns empty tables with the fields the bridge reads and writes
func DefaultSchema() *Fixture {
	return &Fixture{Tables: map[string]*Table{
		erp.TableArticles: {Fields: map[string]erp.FieldType{
			erp.ArtNr:          erp.FieldString,
			erp.ArtName:        erp.FieldString,
			erp.ArtDescription: erp.FieldBlob,
			erp.ArtStock:       erp.FieldFloat,
			erp.ArtUnit:        erp.FieldString,
			erp.ArtMinPurchase: erp.FieldFloat,
			erp.ArtBundleCost:  erp.FieldFloat,
			erp.ArtBundleSize:  erp.FieldInteger,
			erp.ArtWebActive:   erp.FieldBoolean,
			erp.ArtPriceFactor: erp.FieldFloat,
			erp.ArtTaxKey:      erp.FieldString,
			erp.ArtGroups:      erp.FieldString,
			erp.ArtImages:      erp.FieldBlob,
			erp.ArtPrice:       erp.FieldFloat,
			erp.ArtRebateQty:   erp.FieldInteger,
			erp.ArtRebatePrice: erp.FieldFloat,
			erp.ArtSpecial:     erp.FieldFloat,
			erp.ArtSpecialFrom: erp.FieldDate,
			erp.ArtSpecialTo:   erp.FieldDate,
			erp.ArtModifiedAt:  erp.FieldDate,
		}},
		erp.TableGroups: {Fields: map[string]erp.FieldType{
			erp.WgrNr:          erp.FieldString,
			erp.WgrName:        erp.FieldString,
			erp.WgrDescription: erp.FieldBlob,
			erp.WgrParentNr:    erp.FieldString,
			erp.WgrImage:       erp.FieldString,
			erp.WgrModifiedAt:  erp.FieldDate,
		}},
		erp.TableTaxes: {Fields: map[string]erp.FieldType{
			erp.TaxNr:          erp.FieldString,
			erp.TaxDescription: erp.FieldString,
			erp.TaxRate:        erp.FieldFloat,
		}},
		erp.TableAddresses: {
			Fields: map[string]erp.FieldType{
				erp.AdrNr:         erp.FieldString,
				erp.AdrEmail:      erp.FieldString,
				erp.AdrVatID:      erp.FieldString,
				erp.AdrName:       erp.FieldString,
				erp.AdrModifiedAt: erp.FieldDate,
			},
			AutoIncrement: &AutoIncrement{Field: erp.AdrNr, Start: 10000},
		},
		erp.TableAnschrift: {
			Fields: map[string]erp.FieldType{
				erp.AnsAdrNr:        erp.FieldString,
				erp.AnsNr:           erp.FieldInteger,
				erp.AnsCompany:      erp.FieldString,
				erp.AnsName:         erp.FieldString,
				erp.AnsAdditional:   erp.FieldString,
				erp.AnsStreet:       erp.FieldString,
				erp.AnsZip:          erp.FieldString,
				erp.AnsCity:         erp.FieldString,
				erp.AnsCountry:      erp.FieldString,
				erp.AnsPhone:        erp.FieldString,
				erp.AnsEmail:        erp.FieldString,
				erp.AnsStdBilling:   erp.FieldBoolean,
				erp.AnsStdShipping:  erp.FieldBoolean,
				erp.AnsPlatformID:   erp.FieldString,
				erp.AnsDescription:  erp.FieldString,
				erp.AnsBillingKind:  erp.FieldBoolean,
				erp.AnsShippingKind: erp.FieldBoolean,
			},
			AutoIncrement: &AutoIncrement{Field: erp.AnsNr, Start: 1, Scope: []string{erp.AnsAdrNr}},
		},
		erp.TableContacts: {
			Fields: map[string]erp.FieldType{
				erp.AspAdrNr:      erp.FieldString,
				erp.AspAnsNr:      erp.FieldInteger,
				erp.AspNr:         erp.FieldInteger,
				erp.AspSalutation: erp.FieldString,
				erp.AspTitle:      erp.FieldString,
				erp.AspFirstName:  erp.FieldString,
				erp.AspLastName:   erp.FieldString,
				erp.AspPhone:      erp.FieldString,
				erp.AspEmail:      erp.FieldString,
				erp.AspDepartment: erp.FieldString,
			},
			AutoIncrement: &AutoIncrement{Field: erp.AspNr, Start: 1, Scope: []string{erp.AspAdrNr, erp.AspAnsNr}},
		},
	}}
}
