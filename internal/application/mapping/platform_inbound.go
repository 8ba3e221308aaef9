package mapping

import (
	"strings"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
)

// CustomerRefs are the relations of a platform customer
type CustomerRefs struct {
	PlatformCustomerID string
	SalesChannelID     string
	Addresses          []*bridge.CustomerAddress
	DefaultBillingID   string
	DefaultShippingID  string
}

// OrderRefs are the relations of a platform order
type OrderRefs struct {
	SalesChannelID     string
	PlatformCustomerID string
	CustomerNumber     string
	CustomerEmail      string
	Lines              []*bridge.OrderLine
}

// MarketplaceFromPlatform maps a sales channel
func MarketplaceFromPlatform(rec platform.Record) (*bridge.Marketplace, error) {
	id := rec.ID()
	if id == "" {
		return nil, missing("id")
	}
	m, err := bridge.NewMarketplace(id)
	if err != nil {
		return nil, err
	}
	m.Name = firstNonEmpty(rec.String("translated.name"), rec.String("name"))
	m.URL = rec.String("domains[0].url")
	m.APIClientID = rec.String("accessKey")
	m.CurrencyCode = rec.String("currency.isoCode")
	return m, nil
}

// CustomerFromPlatform maps a platform customer with its addresses
func CustomerFromPlatform(rec platform.Record) (*bridge.Customer, CustomerRefs, error) {
	id := rec.ID()
	if id == "" {
		return nil, CustomerRefs{}, missing("id")
	}
	email := rec.String("email")
	if bridge.NormalizeEmail(email) == "" {
		return nil, CustomerRefs{}, missing("email")
	}

	c, err := bridge.NewCustomer(email)
	if err != nil {
		return nil, CustomerRefs{}, err
	}
	c.ErpNr = strings.TrimSpace(rec.String("customerNumber"))
	c.VatID = firstNonEmpty(rec.String("vatIds[0]"), rec.String("defaultBillingAddress.vatId"))

	refs := CustomerRefs{
		PlatformCustomerID: id,
		SalesChannelID:     rec.String("salesChannelId"),
		DefaultBillingID:   rec.String("defaultBillingAddressId"),
		DefaultShippingID:  rec.String("defaultShippingAddressId"),
	}
	for _, addr := range rec.Records("addresses") {
		a, err := AddressFromPlatform(addr)
		if err != nil {
			return nil, CustomerRefs{}, err
		}
		refs.Addresses = append(refs.Addresses, a)
	}
	return c, refs, nil
}

// AddressFromPlatform maps a platform customer address
func AddressFromPlatform(rec platform.Record) (*bridge.CustomerAddress, error) {
	id := rec.ID()
	if id == "" {
		return nil, missing("address.id")
	}
	a := bridge.NewCustomerAddress()
	a.PlatformID = id
	a.Company = rec.String("company")
	a.Department = rec.String("department")
	a.Salutation = rec.String("salutation.salutationKey")
	a.Title = rec.String("title")
	a.FirstName = rec.String("firstName")
	a.LastName = rec.String("lastName")
	a.Street = rec.String("street")
	a.AdditionalLine = rec.String("additionalAddressLine1")
	a.Zip = rec.String("zipcode")
	a.City = rec.String("city")
	a.CountryCode = strings.ToUpper(firstNonEmpty(rec.String("country.iso"), rec.String("countryIso")))
	a.Phone = rec.String("phoneNumber")
	return a, nil
}

// OrderFromPlatform maps a platform order with its line items
func OrderFromPlatform(rec platform.Record) (*bridge.Order, OrderRefs, error) {
	id := rec.ID()
	if id == "" {
		return nil, OrderRefs{}, missing("id")
	}
	o, err := bridge.NewOrder(id)
	if err != nil {
		return nil, OrderRefs{}, err
	}
	o.OrderNumber = rec.String("orderNumber")
	o.OrderedAt = rec.Time("orderDateTime")
	o.AmountTotal = rec.Decimal("amountTotal")
	o.AmountNet = rec.Decimal("amountNet")
	o.ShippingTotal = rec.Decimal("shippingTotal")
	o.OrderState = rec.String("stateMachineState.technicalName")
	o.ShippingState = rec.String("deliveries[0].stateMachineState.technicalName")
	o.PaymentState = rec.String("transactions[0].stateMachineState.technicalName")

	refs := OrderRefs{
		SalesChannelID:     rec.String("salesChannelId"),
		PlatformCustomerID: rec.String("orderCustomer.customerId"),
		CustomerNumber:     strings.TrimSpace(rec.String("orderCustomer.customerNumber")),
		CustomerEmail:      rec.String("orderCustomer.email"),
	}
	for _, item := range rec.Records("lineItems") {
		line, err := OrderLineFromPlatform(item, id)
		if err != nil {
			return nil, OrderRefs{}, err
		}
		refs.Lines = append(refs.Lines, line)
	}
	return o, refs, nil
}

// OrderLineFromPlatform maps an order line item
func OrderLineFromPlatform(rec platform.Record, orderPlatformID string) (*bridge.OrderLine, error) {
	l, err := bridge.NewOrderLine(rec.ID(), orderPlatformID)
	if err != nil {
		return nil, err
	}
	qty := rec.Int("quantity")
	if qty < 0 {
		return nil, invalid("quantity", qty)
	}
	l.ErpProductNr = strings.TrimSpace(firstNonEmpty(rec.String("payload.productNumber"), rec.String("referencedId")))
	l.Label = rec.String("label")
	l.UnitPrice = rec.Decimal("unitPrice")
	l.TotalPrice = rec.Decimal("totalPrice")
	l.Quantity = qty
	l.TaxAmount = rec.Decimal("price.calculatedTaxes[0].tax")
	return l, nil
}
