package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lookups by natural key return ErrNotFound when nothing matches and
// ErrAmbiguousMatch when more than one row matches.

// ProductRepository persists products with their category, media and
// marketplace price links.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByErpNr(ctx context.Context, erpNr string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]*Product, error)
	Save(ctx context.Context, product *Product) error
	Purge(ctx context.Context) (int64, error)
}

// CategoryRepository persists categories with their media links
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindByErpNr(ctx context.Context, erpNr string) (*Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Category, error)
	// FindAll returns categories ordered parents first
	FindAll(ctx context.Context) ([]*Category, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]*Category, error)
	Save(ctx context.Context, category *Category) error
	Purge(ctx context.Context) (int64, error)
}

// TaxRepository persists tax classes
type TaxRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tax, error)
	FindByErpNr(ctx context.Context, erpNr string) (*Tax, error)
	FindAll(ctx context.Context) ([]*Tax, error)
	Save(ctx context.Context, tax *Tax) error
	Purge(ctx context.Context) (int64, error)
}

// MediaRepository persists media files
type MediaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Media, error)
	FindByFileName(ctx context.Context, fileName string) (*Media, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Media, error)
	FindAll(ctx context.Context) ([]*Media, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]*Media, error)
	Save(ctx context.Context, media *Media) error
	Purge(ctx context.Context) (int64, error)
}

// MarketplaceRepository persists marketplaces
type MarketplaceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Marketplace, error)
	FindByPlatformID(ctx context.Context, platformID string) (*Marketplace, error)
	FindAll(ctx context.Context) ([]*Marketplace, error)
	Save(ctx context.Context, marketplace *Marketplace) error
}

// CustomerRepository persists customers with their addresses and marketplace links
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	FindByErpNr(ctx context.Context, erpNr string) (*Customer, error)
	FindByPlatformCustomerID(ctx context.Context, platformCustomerID string) (*Customer, error)
	FindAll(ctx context.Context) ([]*Customer, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]*Customer, error)
	Save(ctx context.Context, customer *Customer) error
	Purge(ctx context.Context) (int64, error)
}

// OrderRepository persists orders with their lines
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByPlatformID(ctx context.Context, platformID string) (*Order, error)
	FindAll(ctx context.Context) ([]*Order, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]*Order, error)
	Save(ctx context.Context, order *Order) error
	Purge(ctx context.Context) (int64, error)
}

// SyncMarkerRepository stores the last successful sync per kind and direction
type SyncMarkerRepository interface {
	Get(ctx context.Context, kind, direction string) (*SyncMarker, error)
	Save(ctx context.Context, marker *SyncMarker) error
}
