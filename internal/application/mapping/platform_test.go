package mapping

import (
	"testing"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketplaceFromPlatform(t *testing.T) {
	m, err := MarketplaceFromPlatform(platform.Record{
		"id":         "sc1",
		"name":       "Storefront",
		"translated": map[string]any{"name": "Shop DE"},
		"accessKey":  "SWSC123",
		"domains":    []any{map[string]any{"url": "https://shop.example.com"}},
		"currency":   map[string]any{"isoCode": "EUR"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sc1", m.PlatformID)
	assert.Equal(t, "Shop DE", m.Name)
	assert.Equal(t, "https://shop.example.com", m.URL)
	assert.Equal(t, "SWSC123", m.APIClientID)
	assert.Equal(t, "EUR", m.CurrencyCode)

	_, err = MarketplaceFromPlatform(platform.Record{"name": "no id"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestCustomerFromPlatform(t *testing.T) {
	rec := platform.Record{
		"id":                       "cust1",
		"email":                    "Erika@Example.com",
		"customerNumber":           "70001",
		"salesChannelId":           "sc1",
		"vatIds":                   []any{"DE123"},
		"defaultBillingAddressId":  "addr1",
		"defaultShippingAddressId": "addr2",
		"addresses": []any{
			map[string]any{"id": "addr1", "firstName": "Erika", "lastName": "Muster", "street": "Hauptstr. 1", "zipcode": "10115", "city": "Berlin", "country": map[string]any{"iso": "de"}},
			map[string]any{"id": "addr2", "company": "Lager", "countryIso": "AT"},
		},
	}

	c, refs, err := CustomerFromPlatform(rec)
	require.NoError(t, err)
	assert.Equal(t, "erika@example.com", c.Email)
	assert.Equal(t, "70001", c.ErpNr)
	assert.Equal(t, "DE123", c.VatID)
	assert.Equal(t, "cust1", refs.PlatformCustomerID)
	assert.Equal(t, "sc1", refs.SalesChannelID)
	assert.Equal(t, "addr1", refs.DefaultBillingID)
	require.Len(t, refs.Addresses, 2)
	assert.Equal(t, "addr1", refs.Addresses[0].PlatformID)
	assert.Equal(t, "DE", refs.Addresses[0].CountryCode)
	assert.Equal(t, bridge.EmptyCombinedID, refs.Addresses[0].CombinedID)
	assert.Equal(t, "AT", refs.Addresses[1].CountryCode)

	_, _, err = CustomerFromPlatform(platform.Record{"id": "x"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestOrderFromPlatform(t *testing.T) {
	rec := platform.Record{
		"id":                "ord1",
		"orderNumber":       "10042",
		"orderDateTime":     "2024-05-01T10:00:00+00:00",
		"amountTotal":       59.97,
		"amountNet":         "50.39",
		"shippingTotal":     4.9,
		"salesChannelId":    "sc1",
		"stateMachineState": map[string]any{"technicalName": "open"},
		"deliveries":        []any{map[string]any{"stateMachineState": map[string]any{"technicalName": "shipped"}}},
		"transactions":      []any{map[string]any{"stateMachineState": map[string]any{"technicalName": "paid"}}},
		"orderCustomer":     map[string]any{"customerId": "cust1", "customerNumber": "10001", "email": "erika@example.com"},
		"lineItems": []any{
			map[string]any{
				"id":         "li1",
				"label":      "Schraube M4",
				"quantity":   3.0,
				"unitPrice":  19.99,
				"totalPrice": 59.97,
				"payload":    map[string]any{"productNumber": "204116"},
				"price":      map[string]any{"calculatedTaxes": []any{map[string]any{"tax": 9.58}}},
			},
		},
	}

	o, refs, err := OrderFromPlatform(rec)
	require.NoError(t, err)
	assert.Equal(t, "10042", o.OrderNumber)
	assert.Equal(t, 2024, o.OrderedAt.Year())
	assert.True(t, o.AmountTotal.Equal(decimal.RequireFromString("59.97")))
	assert.True(t, o.AmountNet.Equal(decimal.RequireFromString("50.39")))
	assert.Equal(t, "open", o.OrderState)
	assert.Equal(t, "shipped", o.ShippingState)
	assert.Equal(t, "paid", o.PaymentState)
	assert.Equal(t, "sc1", refs.SalesChannelID)
	assert.Equal(t, "10001", refs.CustomerNumber)
	assert.Equal(t, "cust1", refs.PlatformCustomerID)

	require.Len(t, refs.Lines, 1)
	line := refs.Lines[0]
	assert.Equal(t, "li1", line.PlatformID)
	assert.Equal(t, "ord1", line.PlatformOrderID)
	assert.Equal(t, "204116", line.ErpProductNr)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.TaxAmount.Equal(decimal.RequireFromString("9.58")))
}

func newPricedProduct(t *testing.T, value string) *bridge.Product {
	t.Helper()
	p, err := bridge.NewProduct("204116")
	require.NoError(t, err)
	p.Price = bridge.NewPrice(decimal.RequireFromString(value))
	p.Translations = p.Translations.Set(bridge.Translation{Language: "de-DE", Name: "Schraube M4"})
	return p
}

func TestPricePayloads(t *testing.T) {
	opts := DefaultOptions()
	opts.CurrencyID = "eur"
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	market, err := bridge.NewMarketplace("sc1")
	require.NoError(t, err)
	require.NoError(t, market.SetPriceFactor(decimal.RequireFromString("1.15")))
	market.PriceRuleID = "rule1"

	t.Run("applies factor and rounds up to 0.05", func(t *testing.T) {
		for value, expected := range map[string]float64{"19.99": 23.00, "20.01": 23.05} {
			p := newPricedProduct(t, value)
			assoc, _ := p.EnsureMarketplacePrice(market.ID)

			rows := PricePayloads(p, MarketplaceRef{Marketplace: market, Price: assoc}, decimal.NewFromInt(19), now, opts)
			require.Len(t, rows, 1)
			assert.Equal(t, assoc.PlatformPriceID, rows[0]["id"])
			assert.Equal(t, "rule1", rows[0]["ruleId"])
			prices := rows[0]["price"].([]map[string]any)
			assert.Equal(t, expected, prices[0]["gross"], value)
			assert.Equal(t, "eur", prices[0]["currencyId"])
		}
	})

	t.Run("rebate adds a second row", func(t *testing.T) {
		p := newPricedProduct(t, "19.99")
		qty := 10
		rebate := decimal.RequireFromString("17.5")
		p.Price.RebateQuantity = &qty
		p.Price.RebatePrice = &rebate
		assoc, _ := p.EnsureMarketplacePrice(market.ID)

		rows := PricePayloads(p, MarketplaceRef{Marketplace: market, Price: assoc}, decimal.NewFromInt(19), now, opts)
		require.Len(t, rows, 2)
		assert.Equal(t, 9, rows[0]["quantityEnd"])
		assert.Equal(t, assoc.PlatformRebatePriceID, rows[1]["id"])
		assert.Equal(t, 10, rows[1]["quantityStart"])
		prices := rows[1]["price"].([]map[string]any)
		assert.Equal(t, 20.15, prices[0]["gross"])
	})

	t.Run("fixed price ignores the factor", func(t *testing.T) {
		p := newPricedProduct(t, "19.99")
		assoc, _ := p.EnsureMarketplacePrice(market.ID)
		assoc.UseFixedPrice = true
		assoc.Price = bridge.NewPrice(decimal.RequireFromString("21.50"))

		rows := PricePayloads(p, MarketplaceRef{Marketplace: market, Price: assoc}, decimal.NewFromInt(19), now, opts)
		require.Len(t, rows, 1)
		prices := rows[0]["price"].([]map[string]any)
		assert.Equal(t, 21.5, prices[0]["gross"])
	})

	t.Run("marketplace without price rule yields nothing", func(t *testing.T) {
		other, err := bridge.NewMarketplace("sc2")
		require.NoError(t, err)
		p := newPricedProduct(t, "19.99")
		assoc, _ := p.EnsureMarketplacePrice(other.ID)
		assert.Empty(t, PricePayloads(p, MarketplaceRef{Marketplace: other, Price: assoc}, decimal.NewFromInt(19), now, opts))
	})
}

func TestProductPayload(t *testing.T) {
	opts := DefaultOptions()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p := newPricedProduct(t, "19.99")
	special := decimal.RequireFromString("15")
	p.Price.SpecialPrice = &special

	tax, err := bridge.NewTax("1")
	require.NoError(t, err)
	tax.Rate = decimal.NewFromInt(19)
	cat, err := bridge.NewCategory("10")
	require.NoError(t, err)
	cover, err := bridge.NewMedia("204116.png")
	require.NoError(t, err)
	second, err := bridge.NewMedia("204116-2.png")
	require.NoError(t, err)
	p.AttachMedia(second.ID, 2)
	p.AttachMedia(cover.ID, 1)
	market, err := bridge.NewMarketplace("sc1")
	require.NoError(t, err)
	assoc, _ := p.EnsureMarketplacePrice(market.ID)

	payload := ProductPayload(p, ProductLinks{
		Tax:          tax,
		Categories:   []*bridge.Category{cat},
		Media:        []MediaRef{{Media: second, SortOrder: 2}, {Media: cover, SortOrder: 1}},
		Marketplaces: []MarketplaceRef{{Marketplace: market, Price: assoc}},
	}, now, opts)

	assert.Equal(t, p.PlatformID, payload["id"])
	assert.Equal(t, "204116", payload["productNumber"])
	assert.Equal(t, "Schraube M4", payload["name"])
	assert.Equal(t, tax.PlatformID, payload["taxId"])
	assert.Equal(t, p.PlatformMediaGroupID, payload["coverId"])

	prices := payload["price"].([]map[string]any)
	assert.Equal(t, 15.0, prices[0]["gross"], "active special price is published")
	assert.Equal(t, 12.61, prices[0]["net"])

	media := payload["media"].([]map[string]any)
	require.Len(t, media, 2)
	assert.Equal(t, DerivedID(p.PlatformID, second.PlatformID), media[0]["id"])
	assert.Equal(t, p.PlatformMediaGroupID, media[1]["id"])

	visibilities := payload["visibilities"].([]map[string]any)
	require.Len(t, visibilities, 1)
	assert.Equal(t, assoc.PlatformVisibilityID, visibilities[0]["id"])
	assert.Equal(t, "sc1", visibilities[0]["salesChannelId"])
}

func TestCustomerPayload(t *testing.T) {
	c, err := bridge.NewCustomer("erika@example.com")
	require.NoError(t, err)
	c.ErpNr = "10001"
	billing := bridge.NewCustomerAddress()
	billing.FirstName, billing.LastName = "Erika", "Muster"
	c.AddAddress(billing)
	require.NoError(t, c.SetStandardBilling(billing.ID))
	require.NoError(t, c.SetStandardShipping(billing.ID))
	market, err := bridge.NewMarketplace("sc1")
	require.NoError(t, err)

	payload := CustomerPayload(c, bridge.CustomerMarketplace{MarketplaceID: market.ID, PlatformCustomerID: "cust1"}, market)
	assert.Equal(t, "cust1", payload["id"])
	assert.Equal(t, "10001", payload["customerNumber"])
	assert.Equal(t, billing.PlatformID, payload["defaultBillingAddressId"])
	assert.Equal(t, billing.PlatformID, payload["defaultShippingAddressId"])
	assert.Equal(t, "Erika", payload["firstName"])
	addresses := payload["addresses"].([]map[string]any)
	require.Len(t, addresses, 1)
	assert.Equal(t, "cust1", addresses[0]["customerId"])
}

func TestDerivedID(t *testing.T) {
	a := DerivedID("p1", "m1")
	assert.Len(t, a, 32)
	assert.Equal(t, a, DerivedID("p1", "m1"))
	assert.NotEqual(t, a, DerivedID("p1", "m2"))
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
