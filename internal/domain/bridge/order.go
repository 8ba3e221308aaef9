package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a platform order. States are the platform's technical state names.
type Order struct {
	shared.BaseEntity
	PlatformID    string
	OrderNumber   string
	OrderedAt     time.Time
	AmountTotal   decimal.Decimal
	AmountNet     decimal.Decimal
	ShippingTotal decimal.Decimal
	OrderState    string
	ShippingState string
	PaymentState  string
	CustomerID    *uuid.UUID
	MarketplaceID *uuid.UUID
	Lines         []*OrderLine
}

// NewOrder creates an order for a platform order id
func NewOrder(platformID string) (*Order, error) {
	if platformID == "" {
		return nil, ErrEmptyPlatformID
	}
	return &Order{
		BaseEntity: shared.NewBaseEntity(),
		PlatformID: platformID,
	}, nil
}

// Update copies totals, states and number from candidate
func (o *Order) Update(candidate *Order) {
	o.OrderNumber = candidate.OrderNumber
	o.OrderedAt = candidate.OrderedAt
	o.AmountTotal = candidate.AmountTotal
	o.AmountNet = candidate.AmountNet
	o.ShippingTotal = candidate.ShippingTotal
	o.OrderState = candidate.OrderState
	o.ShippingState = candidate.ShippingState
	o.PaymentState = candidate.PaymentState
	o.Touch()
}

// SetCustomer links the order to a customer
func (o *Order) SetCustomer(customerID uuid.UUID) {
	id := customerID
	o.CustomerID = &id
}

// SetMarketplace links the order to the marketplace it was placed in
func (o *Order) SetMarketplace(marketplaceID uuid.UUID) {
	id := marketplaceID
	o.MarketplaceID = &id
}

// LineByPlatformID finds a line by its platform line id
func (o *Order) LineByPlatformID(platformID string) (*OrderLine, error) {
	var found *OrderLine
	for _, l := range o.Lines {
		if l.PlatformID == platformID {
			if found != nil {
				return nil, fmt.Errorf("%w: order line %s", ErrAmbiguousMatch, platformID)
			}
			found = l
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// UpsertLine merges candidate into the line with the same platform id or
// appends it. The returned line is owned by the order.
func (o *Order) UpsertLine(candidate *OrderLine) (*OrderLine, error) {
	existing, err := o.LineByPlatformID(candidate.PlatformID)
	switch {
	case err == nil:
		existing.Update(candidate)
		return existing, nil
	case errors.Is(err, ErrNotFound):
		candidate.OrderID = o.ID
		candidate.PlatformOrderID = o.PlatformID
		o.Lines = append(o.Lines, candidate)
		return candidate, nil
	default:
		return nil, err
	}
}

// OrderLine is a single position of an order
type OrderLine struct {
	shared.BaseEntity
	OrderID         uuid.UUID
	PlatformID      string
	PlatformOrderID string
	ErpProductNr    string
	ProductID       *uuid.UUID
	Label           string
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	Quantity        int
	TaxAmount       decimal.Decimal
}

// NewOrderLine creates a line for a platform line id
func NewOrderLine(platformID, platformOrderID string) (*OrderLine, error) {
	if platformID == "" {
		return nil, ErrEmptyPlatformID
	}
	return &OrderLine{
		BaseEntity:      shared.NewBaseEntity(),
		PlatformID:      platformID,
		PlatformOrderID: platformOrderID,
	}, nil
}

// Update copies the priced fields of candidate onto l
func (l *OrderLine) Update(candidate *OrderLine) {
	l.ErpProductNr = candidate.ErpProductNr
	l.Label = candidate.Label
	l.UnitPrice = candidate.UnitPrice
	l.TotalPrice = candidate.TotalPrice
	l.Quantity = candidate.Quantity
	l.TaxAmount = candidate.TaxAmount
	l.Touch()
}

// SetProduct links the line to a bridge product
func (l *OrderLine) SetProduct(productID uuid.UUID) {
	id := productID
	l.ProductID = &id
}
