package models

import (
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for bridge.Product
type ProductModel struct {
	BaseModel
	ErpNr                string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Stock                int             `gorm:"not null;default:0"`
	Unit                 string          `gorm:"type:varchar(20)"`
	MinPurchase          int             `gorm:"not null;default:0"`
	ShippingBundleCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingBundleSize   int             `gorm:"not null;default:0"`
	Active               bool            `gorm:"not null;default:true"`
	PriceFactor          decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1"`
	PlatformID           string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	PlatformMediaGroupID string          `gorm:"type:varchar(32)"`
	TaxID                *uuid.UUID      `gorm:"type:uuid;index"`
	Price                PriceColumns    `gorm:"embedded;embeddedPrefix:price_"`
	ErpModifiedAt        *time.Time

	Translations      []ProductTranslationModel      `gorm:"foreignKey:ProductID"`
	Categories        []ProductCategoryModel         `gorm:"foreignKey:ProductID"`
	Media             []ProductMediaModel            `gorm:"foreignKey:ProductID"`
	MarketplacePrices []ProductMarketplacePriceModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model and its loaded associations to a bridge.Product
func (m *ProductModel) ToDomain() *bridge.Product {
	p := &bridge.Product{
		BaseEntity:           m.BaseModel.ToDomain(),
		ErpNr:                m.ErpNr,
		Stock:                m.Stock,
		Unit:                 m.Unit,
		MinPurchase:          m.MinPurchase,
		ShippingBundleCost:   m.ShippingBundleCost,
		ShippingBundleSize:   m.ShippingBundleSize,
		Active:               m.Active,
		PriceFactor:          m.PriceFactor,
		PlatformID:           m.PlatformID,
		PlatformMediaGroupID: m.PlatformMediaGroupID,
		TaxID:                uuidPtr(m.TaxID),
		Price:                m.Price.ToDomain(),
		ErpModifiedAt:        m.ErpModifiedAt,
	}
	for _, t := range m.Translations {
		p.Translations = append(p.Translations, bridge.Translation{
			Language:    t.Language,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	for _, c := range m.Categories {
		p.CategoryIDs = append(p.CategoryIDs, c.CategoryID)
	}
	for _, media := range m.Media {
		p.Media = append(p.Media, bridge.MediaLink{MediaID: media.MediaID, SortOrder: media.SortOrder})
	}
	for i := range m.MarketplacePrices {
		p.MarketplacePrices = append(p.MarketplacePrices, m.MarketplacePrices[i].ToDomain())
	}
	return p
}

// ProductModelFromDomain creates a model with all association rows from a bridge.Product
func ProductModelFromDomain(p *bridge.Product) *ProductModel {
	m := &ProductModel{
		ErpNr:                p.ErpNr,
		Stock:                p.Stock,
		Unit:                 p.Unit,
		MinPurchase:          p.MinPurchase,
		ShippingBundleCost:   p.ShippingBundleCost,
		ShippingBundleSize:   p.ShippingBundleSize,
		Active:               p.Active,
		PriceFactor:          p.PriceFactor,
		PlatformID:           p.PlatformID,
		PlatformMediaGroupID: p.PlatformMediaGroupID,
		TaxID:                uuidPtr(p.TaxID),
		Price:                PriceColumnsFromDomain(p.Price),
		ErpModifiedAt:        p.ErpModifiedAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	for _, t := range p.Translations {
		m.Translations = append(m.Translations, ProductTranslationModel{
			ProductID:   p.ID,
			Language:    t.Language,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	for _, id := range p.CategoryIDs {
		m.Categories = append(m.Categories, ProductCategoryModel{ProductID: p.ID, CategoryID: id})
	}
	for _, link := range p.Media {
		m.Media = append(m.Media, ProductMediaModel{ProductID: p.ID, MediaID: link.MediaID, SortOrder: link.SortOrder})
	}
	for _, mp := range p.MarketplacePrices {
		m.MarketplacePrices = append(m.MarketplacePrices, *ProductMarketplacePriceModelFromDomain(p.ID, mp))
	}
	return m
}

// ProductTranslationModel stores one language of a product
type ProductTranslationModel struct {
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Language    string    `gorm:"type:varchar(10);primaryKey"`
	Name        string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ProductTranslationModel) TableName() string {
	return "product_translations"
}

// ProductCategoryModel links a product to a category
type ProductCategoryModel struct {
	ProductID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// ProductMediaModel links a product to a media file
type ProductMediaModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	MediaID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	SortOrder int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductMediaModel) TableName() string {
	return "product_media"
}

// ProductMarketplacePriceModel is the persistence model for bridge.ProductMarketplacePrice
type ProductMarketplacePriceModel struct {
	ProductID             uuid.UUID    `gorm:"type:uuid;primaryKey"`
	MarketplaceID         uuid.UUID    `gorm:"type:uuid;primaryKey;index"`
	UseFixedPrice         bool         `gorm:"not null;default:false"`
	Price                 PriceColumns `gorm:"embedded;embeddedPrefix:fixed_"`
	PlatformPriceID       string       `gorm:"type:varchar(32)"`
	PlatformRebatePriceID string       `gorm:"type:varchar(32)"`
	PlatformVisibilityID  string       `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (ProductMarketplacePriceModel) TableName() string {
	return "product_marketplace_prices"
}

// ToDomain converts the model to a bridge.ProductMarketplacePrice
func (m *ProductMarketplacePriceModel) ToDomain() *bridge.ProductMarketplacePrice {
	return &bridge.ProductMarketplacePrice{
		ProductID:             m.ProductID,
		MarketplaceID:         m.MarketplaceID,
		UseFixedPrice:         m.UseFixedPrice,
		Price:                 m.Price.ToDomain(),
		PlatformPriceID:       m.PlatformPriceID,
		PlatformRebatePriceID: m.PlatformRebatePriceID,
		PlatformVisibilityID:  m.PlatformVisibilityID,
	}
}

// ProductMarketplacePriceModelFromDomain creates a model for a product's association
func ProductMarketplacePriceModelFromDomain(productID uuid.UUID, mp *bridge.ProductMarketplacePrice) *ProductMarketplacePriceModel {
	return &ProductMarketplacePriceModel{
		ProductID:             productID,
		MarketplaceID:         mp.MarketplaceID,
		UseFixedPrice:         mp.UseFixedPrice,
		Price:                 PriceColumnsFromDomain(mp.Price),
		PlatformPriceID:       mp.PlatformPriceID,
		PlatformRebatePriceID: mp.PlatformRebatePriceID,
		PlatformVisibilityID:  mp.PlatformVisibilityID,
	}
}
