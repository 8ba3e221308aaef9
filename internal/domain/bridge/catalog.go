package bridge

import (
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tax is an ERP tax class
type Tax struct {
	shared.BaseEntity
	ErpNr       string
	Description string
	Rate        decimal.Decimal
	PlatformID  string
}

// NewTax creates a tax class with a generated platform id
func NewTax(erpNr string) (*Tax, error) {
	if erpNr == "" {
		return nil, ErrEmptyErpNr
	}
	return &Tax{
		BaseEntity: shared.NewBaseEntity(),
		ErpNr:      erpNr,
		PlatformID: shared.NewPlatformID(),
	}, nil
}

// Update copies description and rate from candidate
func (t *Tax) Update(candidate *Tax) {
	t.Description = candidate.Description
	t.Rate = candidate.Rate
	if t.PlatformID == "" {
		t.PlatformID = shared.NewPlatformID()
	}
	t.Touch()
}

// Media is an image or document file shared by products and categories
type Media struct {
	shared.BaseEntity
	FileName   string
	FileType   string
	FileSize   *int64
	PlatformID string
}

// NewMedia creates a media record with a generated platform id
func NewMedia(fileName string) (*Media, error) {
	if fileName == "" {
		return nil, ErrEmptyFileName
	}
	return &Media{
		BaseEntity: shared.NewBaseEntity(),
		FileName:   fileName,
		PlatformID: shared.NewPlatformID(),
	}, nil
}

// Update copies the resolved file metadata from candidate
func (m *Media) Update(candidate *Media) {
	m.FileType = candidate.FileType
	m.FileSize = candidate.FileSize
	if m.PlatformID == "" {
		m.PlatformID = shared.NewPlatformID()
	}
	m.Touch()
}

// Marketplace is a storefront (sales channel) on the platform
type Marketplace struct {
	shared.BaseEntity
	PlatformID   string
	Name         string
	URL          string
	APIClientID  string
	APISecret    string
	PriceFactor  decimal.Decimal
	PriceRuleID  string
	CurrencyCode string
}

// NewMarketplace creates a marketplace for a platform sales channel id
func NewMarketplace(platformID string) (*Marketplace, error) {
	if platformID == "" {
		return nil, ErrEmptyPlatformID
	}
	return &Marketplace{
		BaseEntity:  shared.NewBaseEntity(),
		PlatformID:  platformID,
		PriceFactor: decimal.NewFromInt(1),
	}, nil
}

// Update copies the platform-owned fields from candidate. Locally configured
// credentials, factor and price rule are only replaced when candidate sets them.
func (m *Marketplace) Update(candidate *Marketplace) {
	m.Name = candidate.Name
	m.URL = candidate.URL
	if candidate.CurrencyCode != "" {
		m.CurrencyCode = candidate.CurrencyCode
	}
	if candidate.APIClientID != "" {
		m.APIClientID = candidate.APIClientID
		m.APISecret = candidate.APISecret
	}
	if candidate.PriceRuleID != "" {
		m.PriceRuleID = candidate.PriceRuleID
	}
	if candidate.PriceFactor.IsPositive() && !candidate.PriceFactor.Equal(decimal.NewFromInt(1)) {
		m.PriceFactor = candidate.PriceFactor
	}
	m.Touch()
}

// SetPriceFactor validates and sets the marketplace price factor
func (m *Marketplace) SetPriceFactor(factor decimal.Decimal) error {
	if !factor.IsPositive() {
		return ErrInvalidPriceFactor
	}
	m.PriceFactor = factor
	m.Touch()
	return nil
}
