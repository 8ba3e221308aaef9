package models

import (
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceColumns stores a bridge.Price inline in its owning table
type PriceColumns struct {
	Value          *decimal.Decimal `gorm:"type:decimal(18,4)"`
	RebateQuantity *int
	RebatePrice    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SpecialPrice   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SpecialStart   *time.Time
	SpecialEnd     *time.Time
}

// ToDomain converts the columns to a price, or nil when no value is stored
func (c PriceColumns) ToDomain() *bridge.Price {
	if c.Value == nil {
		return nil
	}
	return &bridge.Price{
		Value:          *c.Value,
		RebateQuantity: c.RebateQuantity,
		RebatePrice:    c.RebatePrice,
		SpecialPrice:   c.SpecialPrice,
		SpecialStart:   c.SpecialStart,
		SpecialEnd:     c.SpecialEnd,
	}
}

// PriceColumnsFromDomain converts a price to its columns
func PriceColumnsFromDomain(p *bridge.Price) PriceColumns {
	if p == nil {
		return PriceColumns{}
	}
	value := p.Value
	return PriceColumns{
		Value:          &value,
		RebateQuantity: p.RebateQuantity,
		RebatePrice:    p.RebatePrice,
		SpecialPrice:   p.SpecialPrice,
		SpecialStart:   p.SpecialStart,
		SpecialEnd:     p.SpecialEnd,
	}
}

// TaxModel is the persistence model for bridge.Tax
type TaxModel struct {
	BaseModel
	ErpNr       string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	Description string          `gorm:"type:varchar(255)"`
	Rate        decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	PlatformID  string          `gorm:"type:varchar(32);index"`
}

// TableName returns the table name for GORM
func (TaxModel) TableName() string {
	return "taxes"
}

// ToDomain converts the model to a bridge.Tax
func (m *TaxModel) ToDomain() *bridge.Tax {
	return &bridge.Tax{
		BaseEntity:  m.BaseModel.ToDomain(),
		ErpNr:       m.ErpNr,
		Description: m.Description,
		Rate:        m.Rate,
		PlatformID:  m.PlatformID,
	}
}

// TaxModelFromDomain creates a model from a bridge.Tax
func TaxModelFromDomain(t *bridge.Tax) *TaxModel {
	m := &TaxModel{
		ErpNr:       t.ErpNr,
		Description: t.Description,
		Rate:        t.Rate,
		PlatformID:  t.PlatformID,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// MediaModel is the persistence model for bridge.Media
type MediaModel struct {
	BaseModel
	FileName   string `gorm:"type:varchar(255);not null;uniqueIndex"`
	FileType   string `gorm:"type:varchar(100)"`
	FileSize   *int64
	PlatformID string `gorm:"type:varchar(32);index"`
}

// TableName returns the table name for GORM
func (MediaModel) TableName() string {
	return "media"
}

// ToDomain converts the model to a bridge.Media
func (m *MediaModel) ToDomain() *bridge.Media {
	return &bridge.Media{
		BaseEntity: m.BaseModel.ToDomain(),
		FileName:   m.FileName,
		FileType:   m.FileType,
		FileSize:   m.FileSize,
		PlatformID: m.PlatformID,
	}
}

// MediaModelFromDomain creates a model from a bridge.Media
func MediaModelFromDomain(media *bridge.Media) *MediaModel {
	m := &MediaModel{
		FileName:   media.FileName,
		FileType:   media.FileType,
		FileSize:   media.FileSize,
		PlatformID: media.PlatformID,
	}
	m.FromDomainBaseEntity(media.BaseEntity)
	return m
}

// MarketplaceModel is the persistence model for bridge.Marketplace
type MarketplaceModel struct {
	BaseModel
	PlatformID   string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(255)"`
	URL          string          `gorm:"type:varchar(500)"`
	APIClientID  string          `gorm:"type:varchar(255)"`
	APISecret    string          `gorm:"type:varchar(255)"`
	PriceFactor  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1"`
	PriceRuleID  string          `gorm:"type:varchar(32)"`
	CurrencyCode string          `gorm:"type:varchar(3)"`
}

// TableName returns the table name for GORM
func (MarketplaceModel) TableName() string {
	return "marketplaces"
}

// ToDomain converts the model to a bridge.Marketplace
func (m *MarketplaceModel) ToDomain() *bridge.Marketplace {
	return &bridge.Marketplace{
		BaseEntity:   m.BaseModel.ToDomain(),
		PlatformID:   m.PlatformID,
		Name:         m.Name,
		URL:          m.URL,
		APIClientID:  m.APIClientID,
		APISecret:    m.APISecret,
		PriceFactor:  m.PriceFactor,
		PriceRuleID:  m.PriceRuleID,
		CurrencyCode: m.CurrencyCode,
	}
}

// MarketplaceModelFromDomain creates a model from a bridge.Marketplace
func MarketplaceModelFromDomain(mp *bridge.Marketplace) *MarketplaceModel {
	m := &MarketplaceModel{
		PlatformID:   mp.PlatformID,
		Name:         mp.Name,
		URL:          mp.URL,
		APIClientID:  mp.APIClientID,
		APISecret:    mp.APISecret,
		PriceFactor:  mp.PriceFactor,
		PriceRuleID:  mp.PriceRuleID,
		CurrencyCode: mp.CurrencyCode,
	}
	m.FromDomainBaseEntity(mp.BaseEntity)
	return m
}

// SyncMarkerModel is the persistence model for bridge.SyncMarker
type SyncMarkerModel struct {
	Kind      string    `gorm:"type:varchar(30);primaryKey"`
	Direction string    `gorm:"type:varchar(10);primaryKey"`
	SyncedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncMarkerModel) TableName() string {
	return "sync_markers"
}

// ToDomain converts the model to a bridge.SyncMarker
func (m *SyncMarkerModel) ToDomain() *bridge.SyncMarker {
	return &bridge.SyncMarker{Kind: m.Kind, Direction: m.Direction, SyncedAt: m.SyncedAt}
}

// uuidPtr copies a nullable id
func uuidPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
