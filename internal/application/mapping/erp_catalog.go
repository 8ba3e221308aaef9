package mapping

import (
	"strings"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/shopspring/decimal"
)

// ProductRefs are the relations of an ERP article, by ERP key
type ProductRefs struct {
	TaxNr       string
	CategoryNrs []string
	Images      []string
}

// CategoryRefs are the relations of an ERP product group
type CategoryRefs struct {
	Images []string
}

// ProductFromERP maps the current article record to a candidate product
func ProductFromERP(rec *erp.Record, opts Options) (*bridge.Product, ProductRefs, error) {
	nr := strings.TrimSpace(rec.String(erp.ArtNr))
	name := strings.TrimSpace(rec.String(erp.ArtName))
	description := rec.String(erp.ArtDescription)
	stock := rec.Float(erp.ArtStock)
	unit := strings.TrimSpace(rec.String(erp.ArtUnit))
	minPurchase := rec.Float(erp.ArtMinPurchase)
	bundleCost := rec.Decimal(erp.ArtBundleCost)
	bundleSize := rec.Int(erp.ArtBundleSize)
	active := rec.Bool(erp.ArtWebActive)
	factor := rec.Decimal(erp.ArtPriceFactor)
	taxNr := strings.TrimSpace(rec.String(erp.ArtTaxKey))
	groups := rec.String(erp.ArtGroups)
	images := rec.String(erp.ArtImages)
	price := priceFromERP(rec)
	modified := rec.Time(erp.ArtModifiedAt)
	if err := rec.Err(); err != nil {
		return nil, ProductRefs{}, err
	}
	if nr == "" {
		return nil, ProductRefs{}, missing(erp.ArtNr)
	}
	if price.Value.IsNegative() {
		return nil, ProductRefs{}, invalid(erp.ArtPrice, price.Value)
	}

	p, err := bridge.NewProduct(nr)
	if err != nil {
		return nil, ProductRefs{}, err
	}
	p.SetStock(int(stock))
	p.Unit = unit
	p.MinPurchase = max(int(minPurchase), 1)
	p.ShippingBundleCost = bundleCost
	p.ShippingBundleSize = bundleSize
	p.Active = active
	p.PriceFactor = factor
	if !factor.IsPositive() {
		p.PriceFactor = opts.DefaultPriceFactor
	}
	p.Price = price
	p.Translations = p.Translations.Set(bridge.Translation{
		Language:    opts.Language,
		Name:        name,
		Description: strings.TrimSpace(description),
	})
	if !modified.IsZero() {
		p.ErpModifiedAt = &modified
	}

	return p, ProductRefs{
		TaxNr:       taxNr,
		CategoryNrs: splitList(groups, erp.ListSeparator),
		Images:      splitList(images, erp.ImageListSeparator),
	}, nil
}

func priceFromERP(rec *erp.Record) *bridge.Price {
	price := bridge.NewPrice(rec.Decimal(erp.ArtPrice))

	qty := rec.Int(erp.ArtRebateQty)
	rebate := rec.Decimal(erp.ArtRebatePrice)
	if qty > 0 && rebate.IsPositive() {
		price.RebateQuantity = &qty
		price.RebatePrice = &rebate
	}

	special := rec.Decimal(erp.ArtSpecial)
	if special.IsPositive() {
		price.SpecialPrice = &special
		price.SpecialStart = optionalTime(rec.Time(erp.ArtSpecialFrom))
		price.SpecialEnd = optionalTime(rec.Time(erp.ArtSpecialTo))
	}
	return price
}

// CategoryFromERP maps the current product group record. parentOf maps every
// known group number to its parent number and is used to build the tree path.
func CategoryFromERP(rec *erp.Record, parentOf map[string]string, opts Options) (*bridge.Category, CategoryRefs, error) {
	nr := strings.TrimSpace(rec.String(erp.WgrNr))
	name := strings.TrimSpace(rec.String(erp.WgrName))
	description := rec.String(erp.WgrDescription)
	parent := strings.TrimSpace(rec.String(erp.WgrParentNr))
	image := strings.TrimSpace(rec.String(erp.WgrImage))
	if err := rec.Err(); err != nil {
		return nil, CategoryRefs{}, err
	}
	if nr == "" {
		return nil, CategoryRefs{}, missing(erp.WgrNr)
	}
	if name == "" {
		return nil, CategoryRefs{}, missing(erp.WgrName)
	}
	if parent == nr || parent == "0" {
		parent = ""
	}

	c, err := bridge.NewCategory(nr)
	if err != nil {
		return nil, CategoryRefs{}, err
	}
	c.ErpParentNr = parent
	if parentOf == nil {
		parentOf = map[string]string{}
	}
	if _, ok := parentOf[nr]; !ok {
		parentOf = withParent(parentOf, nr, parent)
	}
	c.TreePath = bridge.BuildTreePath(nr, parentOf)
	c.Translations = c.Translations.Set(bridge.Translation{
		Language:    opts.Language,
		Name:        name,
		Description: strings.TrimSpace(description),
	})

	var refs CategoryRefs
	if image != "" {
		refs.Images = []string{image}
	}
	return c, refs, nil
}

// TaxFromERP maps the current tax record
func TaxFromERP(rec *erp.Record) (*bridge.Tax, error) {
	nr := strings.TrimSpace(rec.String(erp.TaxNr))
	description := strings.TrimSpace(rec.String(erp.TaxDescription))
	rate := rec.Decimal(erp.TaxRate)
	if err := rec.Err(); err != nil {
		return nil, err
	}
	if nr == "" {
		return nil, missing(erp.TaxNr)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, invalid(erp.TaxRate, rate)
	}

	t, err := bridge.NewTax(nr)
	if err != nil {
		return nil, err
	}
	t.Description = description
	t.Rate = rate
	return t, nil
}

func withParent(parentOf map[string]string, nr, parent string) map[string]string {
	out := make(map[string]string, len(parentOf)+1)
	for k, v := range parentOf {
		out[k] = v
	}
	out[nr] = parent
	return out
}

func splitList(s, sep string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
