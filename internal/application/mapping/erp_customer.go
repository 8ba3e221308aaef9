package mapping

import (
	"strconv"
	"strings"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/shared"
)

// AnschriftFlags are the standard address markers of an ERP sub-address
type AnschriftFlags struct {
	StandardBilling  bool
	StandardShipping bool
}

// CustomerFromERP maps the current Adressen record to a candidate customer
func CustomerFromERP(rec *erp.Record) (*bridge.Customer, error) {
	nr := strings.TrimSpace(rec.String(erp.AdrNr))
	email := rec.String(erp.AdrEmail)
	vatID := strings.TrimSpace(rec.String(erp.AdrVatID))
	if err := rec.Err(); err != nil {
		return nil, err
	}
	if nr == "" {
		return nil, missing(erp.AdrNr)
	}
	if bridge.NormalizeEmail(email) == "" {
		return nil, missing(erp.AdrEmail)
	}

	c, err := bridge.NewCustomer(email)
	if err != nil {
		return nil, err
	}
	c.ErpNr = nr
	c.VatID = vatID
	return c, nil
}

// AddressFromAnschrift maps the current Anschriften record. The combined id
// carries the address and sub-address numbers; the contact part is absent
// until ApplyContact is called.
func AddressFromAnschrift(rec *erp.Record) (*bridge.CustomerAddress, AnschriftFlags, error) {
	adrNr := strings.TrimSpace(rec.String(erp.AnsAdrNr))
	ansNr := rec.Int(erp.AnsNr)
	company := strings.TrimSpace(rec.String(erp.AnsCompany))
	name := strings.TrimSpace(rec.String(erp.AnsName))
	additional := strings.TrimSpace(rec.String(erp.AnsAdditional))
	street := strings.TrimSpace(rec.String(erp.AnsStreet))
	zip := strings.TrimSpace(rec.String(erp.AnsZip))
	city := strings.TrimSpace(rec.String(erp.AnsCity))
	country := strings.ToUpper(strings.TrimSpace(rec.String(erp.AnsCountry)))
	phone := strings.TrimSpace(rec.String(erp.AnsPhone))
	email := strings.TrimSpace(rec.String(erp.AnsEmail))
	platformID := strings.TrimSpace(rec.String(erp.AnsPlatformID))
	flags := AnschriftFlags{
		StandardBilling:  rec.Bool(erp.AnsStdBilling),
		StandardShipping: rec.Bool(erp.AnsStdShipping),
	}
	if err := rec.Err(); err != nil {
		return nil, flags, err
	}
	adr, err := erpNumber(erp.AnsAdrNr, adrNr)
	if err != nil {
		return nil, flags, err
	}
	if ansNr <= 0 {
		return nil, flags, missing(erp.AnsNr)
	}

	a := bridge.NewCustomerAddress()
	if platformID != "" {
		a.PlatformID = platformID
	}
	a.SetCombinedID(bridge.CombinedID{
		Address:    shared.Some(adr),
		SubAddress: shared.Some(ansNr),
		Contact:    shared.None[int](),
	})
	a.Company = company
	a.FirstName, a.LastName = splitName(name)
	a.AdditionalLine = additional
	a.Street = street
	a.Zip = zip
	a.City = city
	a.CountryCode = country
	a.Phone = phone
	a.Email = email
	return a, flags, nil
}

// ApplyContact copies the person fields of the current Ansprechpartner record
// onto a and completes its combined id.
func ApplyContact(a *bridge.CustomerAddress, rec *erp.Record) error {
	aspNr := rec.Int(erp.AspNr)
	salutation := strings.TrimSpace(rec.String(erp.AspSalutation))
	title := strings.TrimSpace(rec.String(erp.AspTitle))
	first := strings.TrimSpace(rec.String(erp.AspFirstName))
	last := strings.TrimSpace(rec.String(erp.AspLastName))
	phone := strings.TrimSpace(rec.String(erp.AspPhone))
	email := strings.TrimSpace(rec.String(erp.AspEmail))
	department := strings.TrimSpace(rec.String(erp.AspDepartment))
	if err := rec.Err(); err != nil {
		return err
	}
	if aspNr <= 0 {
		return missing(erp.AspNr)
	}

	combined := a.Combined()
	combined.Contact = shared.Some(aspNr)
	a.SetCombinedID(combined)
	a.Salutation = salutation
	a.Title = title
	if first != "" || last != "" {
		a.FirstName, a.LastName = first, last
	}
	if phone != "" {
		a.Phone = phone
	}
	if email != "" {
		a.Email = email
	}
	a.Department = department
	return nil
}

// AdresseValues are the Adressen fields written for a customer
func AdresseValues(c *bridge.Customer, billing *bridge.CustomerAddress) []erp.FieldValue {
	name := c.Email
	if billing != nil {
		name = firstNonEmpty(billing.Company, billing.FullName(), c.Email)
	}
	return []erp.FieldValue{
		{Field: erp.AdrEmail, Value: c.Email},
		{Field: erp.AdrVatID, Value: c.VatID},
		{Field: erp.AdrName, Value: name},
	}
}

// AnschriftValues are the Anschriften fields written for an address in its
// billing or shipping role. Standard flags are written by the cleanup pass.
func AnschriftValues(a *bridge.CustomerAddress, billing bool) []erp.FieldValue {
	return []erp.FieldValue{
		{Field: erp.AnsCompany, Value: a.Company},
		{Field: erp.AnsName, Value: a.FullName()},
		{Field: erp.AnsAdditional, Value: a.AdditionalLine},
		{Field: erp.AnsStreet, Value: a.Street},
		{Field: erp.AnsZip, Value: a.Zip},
		{Field: erp.AnsCity, Value: a.City},
		{Field: erp.AnsCountry, Value: a.CountryCode},
		{Field: erp.AnsPhone, Value: a.Phone},
		{Field: erp.AnsEmail, Value: a.Email},
		{Field: erp.AnsPlatformID, Value: a.PlatformID},
		{Field: erp.AnsBillingKind, Value: billing},
		{Field: erp.AnsShippingKind, Value: !billing},
	}
}

// ContactValues are the Ansprechpartner fields written for an address
func ContactValues(a *bridge.CustomerAddress) []erp.FieldValue {
	return []erp.FieldValue{
		{Field: erp.AspSalutation, Value: a.Salutation},
		{Field: erp.AspTitle, Value: a.Title},
		{Field: erp.AspFirstName, Value: a.FirstName},
		{Field: erp.AspLastName, Value: a.LastName},
		{Field: erp.AspPhone, Value: a.Phone},
		{Field: erp.AspEmail, Value: a.Email},
		{Field: erp.AspDepartment, Value: a.Department},
	}
}

func erpNumber(field, s string) (int, error) {
	if s == "" {
		return 0, missing(field)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, invalid(field, s)
	}
	return n, nil
}

// splitName splits "First Middle Last" into "First Middle" and "Last"
func splitName(name string) (string, string) {
	name = strings.Join(strings.Fields(name), " ")
	i := strings.LastIndexByte(name, ' ')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
