package bridge

import (
	"time"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MediaLink attaches a media file to a product or category at a sort position
type MediaLink struct {
	MediaID   uuid.UUID
	SortOrder int
}

// Product is a sellable article mirrored from the ERP
type Product struct {
	shared.BaseEntity
	ErpNr                string
	Stock                int
	Unit                 string
	MinPurchase          int
	ShippingBundleCost   decimal.Decimal
	ShippingBundleSize   int
	Active               bool
	PriceFactor          decimal.Decimal
	PlatformID           string
	PlatformMediaGroupID string
	Translations         Translations
	TaxID                *uuid.UUID
	CategoryIDs          []uuid.UUID
	Media                []MediaLink
	Price                *Price
	MarketplacePrices    []*ProductMarketplacePrice
	ErpModifiedAt        *time.Time
}

// NewProduct creates a product with generated platform ids
func NewProduct(erpNr string) (*Product, error) {
	if erpNr == "" {
		return nil, ErrEmptyErpNr
	}
	return &Product{
		BaseEntity:           shared.NewBaseEntity(),
		ErpNr:                erpNr,
		Active:               true,
		PriceFactor:          decimal.NewFromInt(1),
		PlatformID:           shared.NewPlatformID(),
		PlatformMediaGroupID: shared.NewPlatformID(),
	}, nil
}

// SetStock sets the stock level, clamping negative ERP values to zero
func (p *Product) SetStock(stock int) {
	if stock < 0 {
		stock = 0
	}
	p.Stock = stock
}

// Update copies the mapped fields of candidate onto p. Ids and relations are kept.
func (p *Product) Update(candidate *Product) {
	p.SetStock(candidate.Stock)
	p.Unit = candidate.Unit
	p.MinPurchase = candidate.MinPurchase
	p.ShippingBundleCost = candidate.ShippingBundleCost
	p.ShippingBundleSize = candidate.ShippingBundleSize
	p.Active = candidate.Active
	p.PriceFactor = candidate.PriceFactor
	p.Translations = p.Translations.Merge(candidate.Translations)
	p.ErpModifiedAt = candidate.ErpModifiedAt
	if candidate.Price != nil {
		if p.Price == nil {
			p.Price = &Price{}
		}
		p.Price.Update(candidate.Price)
	}
	if p.PlatformID == "" {
		p.PlatformID = shared.NewPlatformID()
	}
	if p.PlatformMediaGroupID == "" {
		p.PlatformMediaGroupID = shared.NewPlatformID()
	}
	p.Touch()
}

// SetTax links the product to a tax class
func (p *Product) SetTax(taxID uuid.UUID) {
	id := taxID
	p.TaxID = &id
}

// AttachCategory adds a category link. It returns false when already linked.
func (p *Product) AttachCategory(categoryID uuid.UUID) bool {
	for _, id := range p.CategoryIDs {
		if id == categoryID {
			return false
		}
	}
	p.CategoryIDs = append(p.CategoryIDs, categoryID)
	return true
}

// HasCategory reports whether the product is linked to a category
func (p *Product) HasCategory(categoryID uuid.UUID) bool {
	for _, id := range p.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// AttachMedia links a media file or updates its sort order. It returns false
// when the link already existed.
func (p *Product) AttachMedia(mediaID uuid.UUID, sortOrder int) bool {
	links, added := attachMedia(p.Media, mediaID, sortOrder)
	p.Media = links
	return added
}

// CoverMediaID returns the media with the lowest sort order
func (p *Product) CoverMediaID() (uuid.UUID, bool) {
	return coverMedia(p.Media)
}

// MarketplacePrice returns the price association for a marketplace
func (p *Product) MarketplacePrice(marketplaceID uuid.UUID) (*ProductMarketplacePrice, bool) {
	for _, mp := range p.MarketplacePrices {
		if mp.MarketplaceID == marketplaceID {
			return mp, true
		}
	}
	return nil, false
}

// EnsureMarketplacePrice returns the association for a marketplace, creating it
// with generated platform ids when missing.
func (p *Product) EnsureMarketplacePrice(marketplaceID uuid.UUID) (*ProductMarketplacePrice, bool) {
	if mp, ok := p.MarketplacePrice(marketplaceID); ok {
		return mp, false
	}
	mp := NewProductMarketplacePrice(p.ID, marketplaceID)
	p.MarketplacePrices = append(p.MarketplacePrices, mp)
	return mp, true
}

// ProductMarketplacePrice associates a product with a marketplace and the
// platform records that publish its price there.
type ProductMarketplacePrice struct {
	ProductID             uuid.UUID
	MarketplaceID         uuid.UUID
	UseFixedPrice         bool
	Price                 *Price
	PlatformPriceID       string
	PlatformRebatePriceID string
	PlatformVisibilityID  string
}

// NewProductMarketplacePrice creates an association with generated platform ids
func NewProductMarketplacePrice(productID, marketplaceID uuid.UUID) *ProductMarketplacePrice {
	return &ProductMarketplacePrice{
		ProductID:             productID,
		MarketplaceID:         marketplaceID,
		PlatformPriceID:       shared.NewPlatformID(),
		PlatformRebatePriceID: shared.NewPlatformID(),
		PlatformVisibilityID:  shared.NewPlatformID(),
	}
}

// EffectivePrice returns the gross price to publish for the marketplace
func (mp *ProductMarketplacePrice) EffectivePrice(base *Price, factor decimal.Decimal) *Price {
	if mp.UseFixedPrice && mp.Price != nil {
		fixed := *mp.Price
		return &fixed
	}
	if base == nil {
		return nil
	}
	out := *base
	out.Value = ApplyFactor(base.Value, factor)
	if base.RebatePrice != nil {
		v := ApplyFactor(*base.RebatePrice, factor)
		out.RebatePrice = &v
	}
	if base.SpecialPrice != nil {
		v := ApplyFactor(*base.SpecialPrice, factor)
		out.SpecialPrice = &v
	}
	return &out
}

func attachMedia(links []MediaLink, mediaID uuid.UUID, sortOrder int) ([]MediaLink, bool) {
	for i := range links {
		if links[i].MediaID == mediaID {
			links[i].SortOrder = sortOrder
			return links, false
		}
	}
	return append(links, MediaLink{MediaID: mediaID, SortOrder: sortOrder}), true
}

func coverMedia(links []MediaLink) (uuid.UUID, bool) {
	if len(links) == 0 {
		return uuid.Nil, false
	}
	cover := links[0]
	for _, l := range links[1:] {
		if l.SortOrder < cover.SortOrder {
			cover = l
		}
	}
	return cover.MediaID, true
}
