package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer is a buyer known to the platform, the ERP or both
type Customer struct {
	shared.BaseEntity
	ErpNr              string
	Email              string
	VatID              string
	Addresses          []*CustomerAddress
	StandardBillingID  *uuid.UUID
	StandardShippingID *uuid.UUID
	Marketplaces       []CustomerMarketplace
}

// CustomerMarketplace links a customer to a marketplace with the customer id
// the platform assigned there.
type CustomerMarketplace struct {
	MarketplaceID      uuid.UUID
	PlatformCustomerID string
}

// NewCustomer creates a customer identified by e-mail
func NewCustomer(email string) (*Customer, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmptyEmail
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
	}, nil
}

// NormalizeEmail trims and lowercases an address for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Update copies the mapped fields of candidate onto c. An empty candidate ERP
// number keeps the current one.
func (c *Customer) Update(candidate *Customer) {
	if candidate.ErpNr != "" {
		c.ErpNr = candidate.ErpNr
	}
	if candidate.VatID != "" {
		c.VatID = candidate.VatID
	}
	c.Touch()
}

// Address returns an owned address by id
func (c *Customer) Address(id uuid.UUID) (*CustomerAddress, bool) {
	for _, a := range c.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// StandardBilling returns the designated billing address
func (c *Customer) StandardBilling() (*CustomerAddress, bool) {
	if c.StandardBillingID == nil {
		return nil, false
	}
	return c.Address(*c.StandardBillingID)
}

// StandardShipping returns the designated shipping address
func (c *Customer) StandardShipping() (*CustomerAddress, bool) {
	if c.StandardShippingID == nil {
		return nil, false
	}
	return c.Address(*c.StandardShippingID)
}

// AddressByPlatformID finds an address by its platform id
func (c *Customer) AddressByPlatformID(platformID string) (*CustomerAddress, error) {
	var found *CustomerAddress
	for _, a := range c.Addresses {
		if platformID != "" && a.PlatformID == platformID {
			if found != nil {
				return nil, fmt.Errorf("%w: address platform id %s", ErrAmbiguousMatch, platformID)
			}
			found = a
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// AddressByCombinedID finds the address whose billing or shipping combined id
// matches every part of id.
func (c *Customer) AddressByCombinedID(id CombinedID) (*CustomerAddress, error) {
	if id.SubAddress.IsNone() {
		return nil, ErrNotFound
	}
	var found *CustomerAddress
	for _, a := range c.Addresses {
		if !a.MatchesCombinedID(id) {
			continue
		}
		if found != nil && found != a {
			return nil, fmt.Errorf("%w: address combined id %s", ErrAmbiguousMatch, id)
		}
		found = a
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// AddAddress appends an address unless it is already owned
func (c *Customer) AddAddress(a *CustomerAddress) bool {
	if _, ok := c.Address(a.ID); ok {
		return false
	}
	a.CustomerID = c.ID
	c.Addresses = append(c.Addresses, a)
	return true
}

// SetStandardBilling designates an owned address as standard billing address
func (c *Customer) SetStandardBilling(addressID uuid.UUID) error {
	if _, ok := c.Address(addressID); !ok {
		return ErrAddressNotOwned
	}
	id := addressID
	c.StandardBillingID = &id
	return nil
}

// SetStandardShipping designates an owned address as standard shipping address
func (c *Customer) SetStandardShipping(addressID uuid.UUID) error {
	if _, ok := c.Address(addressID); !ok {
		return ErrAddressNotOwned
	}
	id := addressID
	c.StandardShippingID = &id
	return nil
}

// Marketplace returns the link to a marketplace
func (c *Customer) Marketplace(marketplaceID uuid.UUID) (CustomerMarketplace, bool) {
	for _, m := range c.Marketplaces {
		if m.MarketplaceID == marketplaceID {
			return m, true
		}
	}
	return CustomerMarketplace{}, false
}

// LinkMarketplace creates or updates the link to a marketplace. It returns
// false when the link already existed.
func (c *Customer) LinkMarketplace(marketplaceID uuid.UUID, platformCustomerID string) bool {
	for i := range c.Marketplaces {
		if c.Marketplaces[i].MarketplaceID == marketplaceID {
			if platformCustomerID != "" {
				c.Marketplaces[i].PlatformCustomerID = platformCustomerID
			}
			return false
		}
	}
	c.Marketplaces = append(c.Marketplaces, CustomerMarketplace{
		MarketplaceID:      marketplaceID,
		PlatformCustomerID: platformCustomerID,
	})
	return true
}

// ErpNrState classifies a customer ERP number against the configured range
type ErpNrState int

const (
	// ErpNrUnassigned means the customer does not exist in the ERP yet
	ErpNrUnassigned ErpNrState = iota
	// ErpNrAssigned means the customer exists in the ERP under this number
	ErpNrAssigned
)

// ErpNumberRange is the range of customer numbers owned by the ERP. Numbers
// above Max are provisional numbers handed out by the platform.
type ErpNumberRange struct {
	Min int
	Max int
}

// Classify decides whether erpNr refers to an existing ERP customer
func (r ErpNumberRange) Classify(erpNr string) (ErpNrState, error) {
	erpNr = strings.TrimSpace(erpNr)
	if erpNr == "" {
		return ErpNrUnassigned, nil
	}
	n, err := strconv.Atoi(erpNr)
	if err != nil {
		return 0, shared.NewDomainError("INVALID_ERP_NUMBER", fmt.Sprintf("customer number %q is not numeric", erpNr))
	}
	switch {
	case n > r.Max:
		return ErpNrUnassigned, nil
	case n >= r.Min:
		return ErpNrAssigned, nil
	default:
		return 0, shared.NewDomainError("INVALID_ERP_NUMBER", fmt.Sprintf("customer number %d is below %d", n, r.Min))
	}
}

// CustomerAddress is a postal address with the ERP records it is mirrored to
type CustomerAddress struct {
	shared.BaseEntity
	CustomerID         uuid.UUID
	CombinedID         string
	ShippingCombinedID string
	ErpNr              shared.Optional[int]
	ErpAnsNr           shared.Optional[int]
	ErpAspNr           shared.Optional[int]
	PlatformID         string
	Company            string
	Department         string
	Salutation         string
	Title              string
	FirstName          string
	LastName           string
	Street             string
	AdditionalLine     string
	Zip                string
	City               string
	CountryCode        string
	Phone              string
	Email              string
}

// NewCustomerAddress creates an address without ERP records
func NewCustomerAddress() *CustomerAddress {
	return &CustomerAddress{
		BaseEntity:         shared.NewBaseEntity(),
		CombinedID:         EmptyCombinedID,
		ShippingCombinedID: EmptyCombinedID,
		PlatformID:         shared.NewPlatformID(),
	}
}

// Combined returns the parsed billing combined id
func (a *CustomerAddress) Combined() CombinedID {
	c, err := ParseCombinedID(a.CombinedID)
	if err != nil {
		return CombinedID{}
	}
	return c
}

// ShippingCombined returns the parsed combined id of the shipping copy
func (a *CustomerAddress) ShippingCombined() CombinedID {
	c, err := ParseCombinedID(a.ShippingCombinedID)
	if err != nil {
		return CombinedID{}
	}
	return c
}

// SetCombinedID rewrites the combined id and the cached part numbers
func (a *CustomerAddress) SetCombinedID(c CombinedID) {
	a.CombinedID = c.String()
	a.ErpNr = c.Address
	a.ErpAnsNr = c.SubAddress
	a.ErpAspNr = c.Contact
	a.Touch()
}

// SetShippingCombinedID rewrites the combined id of the shipping copy
func (a *CustomerAddress) SetShippingCombinedID(c CombinedID) {
	a.ShippingCombinedID = c.String()
	a.Touch()
}

// MatchesCombinedID reports whether the billing or shipping combined id equals id
func (a *CustomerAddress) MatchesCombinedID(id CombinedID) bool {
	return a.Combined() == id || (a.ShippingCombinedID != "" && a.ShippingCombined() == id)
}

// FullName joins first and last name
func (a *CustomerAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Update copies the postal and contact fields of candidate onto a. Combined
// ids and the platform id are kept.
func (a *CustomerAddress) Update(candidate *CustomerAddress) {
	a.Company = candidate.Company
	a.Department = candidate.Department
	a.Salutation = candidate.Salutation
	a.Title = candidate.Title
	a.FirstName = candidate.FirstName
	a.LastName = candidate.LastName
	a.Street = candidate.Street
	a.AdditionalLine = candidate.AdditionalLine
	a.Zip = candidate.Zip
	a.City = candidate.City
	a.CountryCode = candidate.CountryCode
	a.Phone = candidate.Phone
	a.Email = candidate.Email
	if a.PlatformID == "" {
		a.PlatformID = candidate.PlatformID
	}
	if a.PlatformID == "" {
		a.PlatformID = shared.NewPlatformID()
	}
	a.Touch()
}
