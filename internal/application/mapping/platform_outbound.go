package mapping

import (
	"strings"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// visibilityAll makes a product visible in listings and search
const visibilityAll = 30

// MediaRef is a media file linked to a product or category, with its platform id
type MediaRef struct {
	Media     *bridge.Media
	SortOrder int
}

// MarketplaceRef is a marketplace with the product's price association there
type MarketplaceRef struct {
	Marketplace *bridge.Marketplace
	Price       *bridge.ProductMarketplacePrice
}

// ProductLinks are the resolved relations of a product
type ProductLinks struct {
	Tax          *bridge.Tax
	Categories   []*bridge.Category
	Media        []MediaRef
	Marketplaces []MarketplaceRef
}

// TaxRate returns the rate of the linked tax or the default rate
func (l ProductLinks) TaxRate(opts Options) decimal.Decimal {
	if l.Tax != nil {
		return l.Tax.Rate
	}
	return opts.DefaultTaxRate
}

// TaxPayload builds the platform tax entity
func TaxPayload(t *bridge.Tax) platform.Payload {
	name := t.Description
	if name == "" {
		name = "Tax " + t.ErpNr
	}
	return platform.Payload{
		"id":      t.PlatformID,
		"name":    name,
		"taxRate": t.Rate.InexactFloat64(),
	}
}

// MediaPayload builds the platform media entity. Content is uploaded separately.
func MediaPayload(m *bridge.Media, opts Options) platform.Payload {
	p := platform.Payload{
		"id":    m.PlatformID,
		"title": m.FileName,
		"alt":   baseName(m.FileName),
	}
	if opts.MediaFolderID != "" {
		p["mediaFolderId"] = opts.MediaFolderID
	}
	return p
}

// CategoryPayload builds the platform category. parent is nil for roots.
func CategoryPayload(c *bridge.Category, parent *bridge.Category, cover *bridge.Media, opts Options) platform.Payload {
	tr := c.Translations.Get(opts.Language)
	p := platform.Payload{
		"id":     c.PlatformID,
		"active": true,
		"customFields": map[string]any{
			"erp_nr": c.ErpNr,
		},
	}
	if parent != nil {
		p["parentId"] = parent.PlatformID
	} else {
		p["parentId"] = nil
	}
	if cover != nil {
		p["mediaId"] = cover.PlatformID
	}
	setTranslation(p, tr, opts)
	return p
}

// ProductPayload builds the platform product with its associations
func ProductPayload(prod *bridge.Product, links ProductLinks, now time.Time, opts Options) platform.Payload {
	tr := prod.Translations.Get(opts.Language)
	p := platform.Payload{
		"id":            prod.PlatformID,
		"productNumber": prod.ErpNr,
		"stock":         prod.Stock,
		"active":        prod.Active,
		"minPurchase":   max(prod.MinPurchase, 1),
		"packUnit":      prod.Unit,
		"customFields": map[string]any{
			"erp_shipping_bundle_cost": prod.ShippingBundleCost.InexactFloat64(),
			"erp_shipping_bundle_size": prod.ShippingBundleSize,
			"erp_price_factor":         prod.PriceFactor.InexactFloat64(),
		},
	}
	setTranslation(p, tr, opts)

	if links.Tax != nil {
		p["taxId"] = links.Tax.PlatformID
	}
	if gross, ok := CurrentGross(prod.Price, now); ok {
		p["price"] = []map[string]any{priceEntry(gross, links.TaxRate(opts), opts)}
	}

	categories := make([]map[string]any, 0, len(links.Categories))
	for _, c := range links.Categories {
		categories = append(categories, map[string]any{"id": c.PlatformID})
	}
	p["categories"] = categories

	media := make([]map[string]any, 0, len(links.Media))
	coverMediaID, hasCover := prod.CoverMediaID()
	for _, ref := range links.Media {
		id := DerivedID(prod.PlatformID, ref.Media.PlatformID)
		if hasCover && ref.Media.ID == coverMediaID {
			id = prod.PlatformMediaGroupID
			p["coverId"] = id
		}
		media = append(media, map[string]any{
			"id":       id,
			"mediaId":  ref.Media.PlatformID,
			"position": ref.SortOrder,
		})
	}
	p["media"] = media

	visibilities := make([]map[string]any, 0, len(links.Marketplaces))
	for _, ref := range links.Marketplaces {
		visibilities = append(visibilities, map[string]any{
			"id":             ref.Price.PlatformVisibilityID,
			"salesChannelId": ref.Marketplace.PlatformID,
			"visibility":     visibilityAll,
		})
	}
	p["visibilities"] = visibilities
	return p
}

// PricePayloads builds the advanced price rows of a product in one
// marketplace: the base row and, with a quantity rebate, the rebate row.
// Nothing is returned when the marketplace has no price rule or the product
// no price.
func PricePayloads(prod *bridge.Product, ref MarketplaceRef, taxRate decimal.Decimal, now time.Time, opts Options) []platform.Payload {
	if ref.Marketplace.PriceRuleID == "" {
		return nil
	}
	factor := ref.Marketplace.PriceFactor.Mul(prod.PriceFactor)
	price := ref.Price.EffectivePrice(prod.Price, factor)
	gross, ok := CurrentGross(price, now)
	if !ok {
		return nil
	}

	base := platform.Payload{
		"id":            ref.Price.PlatformPriceID,
		"productId":     prod.PlatformID,
		"ruleId":        ref.Marketplace.PriceRuleID,
		"quantityStart": 1,
		"price":         []map[string]any{priceEntry(gross, taxRate, opts)},
	}
	if !price.HasRebate() {
		base["quantityEnd"] = nil
		return []platform.Payload{base}
	}

	qty := *price.RebateQuantity
	base["quantityEnd"] = max(qty-1, 1)
	rebate := platform.Payload{
		"id":            ref.Price.PlatformRebatePriceID,
		"productId":     prod.PlatformID,
		"ruleId":        ref.Marketplace.PriceRuleID,
		"quantityStart": max(qty, 2),
		"quantityEnd":   nil,
		"price":         []map[string]any{priceEntry(*price.RebatePrice, taxRate, opts)},
	}
	return []platform.Payload{base, rebate}
}

// CurrentGross returns the special price while it is active, else the base value
func CurrentGross(price *bridge.Price, now time.Time) (decimal.Decimal, bool) {
	if price == nil {
		return decimal.Zero, false
	}
	if price.SpecialActive(now) {
		return *price.SpecialPrice, true
	}
	return price.Value, true
}

// CustomerPayload builds a platform customer for one marketplace link
func CustomerPayload(c *bridge.Customer, link bridge.CustomerMarketplace, marketplace *bridge.Marketplace) platform.Payload {
	p := platform.Payload{
		"id":             link.PlatformCustomerID,
		"email":          c.Email,
		"customerNumber": c.ErpNr,
		"salesChannelId": marketplace.PlatformID,
	}
	if c.VatID != "" {
		p["vatIds"] = []string{c.VatID}
	}
	if billing, ok := c.StandardBilling(); ok {
		p["firstName"] = billing.FirstName
		p["lastName"] = billing.LastName
		p["company"] = billing.Company
		p["defaultBillingAddressId"] = billing.PlatformID
	}
	if shipping, ok := c.StandardShipping(); ok {
		p["defaultShippingAddressId"] = shipping.PlatformID
	}
	addresses := make([]map[string]any, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, AddressPayload(a, link.PlatformCustomerID))
	}
	p["addresses"] = addresses
	return p
}

// AddressPayload builds a platform customer address
func AddressPayload(a *bridge.CustomerAddress, customerPlatformID string) platform.Payload {
	return platform.Payload{
		"id":                     a.PlatformID,
		"customerId":             customerPlatformID,
		"company":                a.Company,
		"department":             a.Department,
		"title":                  a.Title,
		"firstName":              a.FirstName,
		"lastName":               a.LastName,
		"street":                 a.Street,
		"additionalAddressLine1": a.AdditionalLine,
		"zipcode":                a.Zip,
		"city":                   a.City,
		"countryIso":             a.CountryCode,
		"phoneNumber":            a.Phone,
	}
}

// DerivedID returns a stable platform id for an association identified by parts
func DerivedID(parts ...string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "/")))
	return strings.ReplaceAll(id.String(), "-", "")
}

func priceEntry(gross, taxRate decimal.Decimal, opts Options) map[string]any {
	return map[string]any{
		"currencyId": opts.CurrencyID,
		"gross":      gross.InexactFloat64(),
		"net":        bridge.NetFromGross(gross, taxRate).InexactFloat64(),
		"linked":     true,
	}
}

func setTranslation(p platform.Payload, tr bridge.Translation, opts Options) {
	if opts.LanguageID == "" {
		p["name"] = tr.Name
		p["description"] = tr.Description
		return
	}
	p["translations"] = map[string]any{
		opts.LanguageID: map[string]any{
			"name":        tr.Name,
			"description": tr.Description,
		},
	}
}

func baseName(fileName string) string {
	if i := strings.LastIndexByte(fileName, '/'); i >= 0 {
		fileName = fileName[i+1:]
	}
	if i := strings.LastIndexByte(fileName, '.'); i > 0 {
		fileName = fileName[:i]
	}
	return fileName
}
