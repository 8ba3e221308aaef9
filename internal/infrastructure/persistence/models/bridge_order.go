package models

import (
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for bridge.Order
type OrderModel struct {
	BaseModel
	PlatformID    string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	OrderNumber   string          `gorm:"type:varchar(50);index"`
	OrderedAt     time.Time       `gorm:"not null"`
	AmountTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountNet     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OrderState    string          `gorm:"type:varchar(50)"`
	ShippingState string          `gorm:"type:varchar(50)"`
	PaymentState  string          `gorm:"type:varchar(50)"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index"`
	MarketplaceID *uuid.UUID      `gorm:"type:uuid;index"`

	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model and its lines to a bridge.Order
func (m *OrderModel) ToDomain() *bridge.Order {
	o := &bridge.Order{
		BaseEntity:    m.BaseModel.ToDomain(),
		PlatformID:    m.PlatformID,
		OrderNumber:   m.OrderNumber,
		OrderedAt:     m.OrderedAt,
		AmountTotal:   m.AmountTotal,
		AmountNet:     m.AmountNet,
		ShippingTotal: m.ShippingTotal,
		OrderState:    m.OrderState,
		ShippingState: m.ShippingState,
		PaymentState:  m.PaymentState,
		CustomerID:    uuidPtr(m.CustomerID),
		MarketplaceID: uuidPtr(m.MarketplaceID),
	}
	for i := range m.Lines {
		o.Lines = append(o.Lines, m.Lines[i].ToDomain())
	}
	return o
}

// OrderModelFromDomain creates a model with lines from a bridge.Order
func OrderModelFromDomain(o *bridge.Order) *OrderModel {
	m := &OrderModel{
		PlatformID:    o.PlatformID,
		OrderNumber:   o.OrderNumber,
		OrderedAt:     o.OrderedAt,
		AmountTotal:   o.AmountTotal,
		AmountNet:     o.AmountNet,
		ShippingTotal: o.ShippingTotal,
		OrderState:    o.OrderState,
		ShippingState: o.ShippingState,
		PaymentState:  o.PaymentState,
		CustomerID:    uuidPtr(o.CustomerID),
		MarketplaceID: uuidPtr(o.MarketplaceID),
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	for _, l := range o.Lines {
		l.OrderID = o.ID
		m.Lines = append(m.Lines, *OrderLineModelFromDomain(l))
	}
	return m
}

// OrderLineModel is the persistence model for bridge.OrderLine
type OrderLineModel struct {
	BaseModel
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	PlatformID      string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	PlatformOrderID string          `gorm:"type:varchar(32);not null;index"`
	ErpProductNr    string          `gorm:"type:varchar(50);index"`
	ProductID       *uuid.UUID      `gorm:"type:uuid;index"`
	Label           string          `gorm:"type:varchar(255)"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Quantity        int             `gorm:"not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the model to a bridge.OrderLine
func (m *OrderLineModel) ToDomain() *bridge.OrderLine {
	return &bridge.OrderLine{
		BaseEntity:      m.BaseModel.ToDomain(),
		OrderID:         m.OrderID,
		PlatformID:      m.PlatformID,
		PlatformOrderID: m.PlatformOrderID,
		ErpProductNr:    m.ErpProductNr,
		ProductID:       uuidPtr(m.ProductID),
		Label:           m.Label,
		UnitPrice:       m.UnitPrice,
		TotalPrice:      m.TotalPrice,
		Quantity:        m.Quantity,
		TaxAmount:       m.TaxAmount,
	}
}

// OrderLineModelFromDomain creates a model from a bridge.OrderLine
func OrderLineModelFromDomain(l *bridge.OrderLine) *OrderLineModel {
	m := &OrderLineModel{
		OrderID:         l.OrderID,
		PlatformID:      l.PlatformID,
		PlatformOrderID: l.PlatformOrderID,
		ErpProductNr:    l.ErpProductNr,
		ProductID:       uuidPtr(l.ProductID),
		Label:           l.Label,
		UnitPrice:       l.UnitPrice,
		TotalPrice:      l.TotalPrice,
		Quantity:        l.Quantity,
		TaxAmount:       l.TaxAmount,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// AllModels lists every bridge model in dependency order for AutoMigrate
func AllModels() []any {
	return []any{
		&TaxModel{},
		&MediaModel{},
		&MarketplaceModel{},
		&CategoryModel{},
		&CategoryTranslationModel{},
		&CategoryMediaModel{},
		&ProductModel{},
		&ProductTranslationModel{},
		&ProductCategoryModel{},
		&ProductMediaModel{},
		&ProductMarketplacePriceModel{},
		&CustomerModel{},
		&CustomerAddressModel{},
		&CustomerMarketplaceModel{},
		&OrderModel{},
		&OrderLineModel{},
		&SyncMarkerModel{},
	}
}
