package persistence

import (
	"context"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/bridge"
	"gorm.io/gorm"
)

// GormTransactionScope implements syncer.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos syncer.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// GormRepositories provides every bridge repository on one *gorm.DB, which
// may be a transaction.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories creates repositories bound to db
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

// Products returns the product repository
func (r *GormRepositories) Products() bridge.ProductRepository {
	return NewGormProductRepository(r.db)
}

// Categories returns the category repository
func (r *GormRepositories) Categories() bridge.CategoryRepository {
	return NewGormCategoryRepository(r.db)
}

// Taxes returns the tax repository
func (r *GormRepositories) Taxes() bridge.TaxRepository {
	return NewGormTaxRepository(r.db)
}

// Media returns the media repository
func (r *GormRepositories) Media() bridge.MediaRepository {
	return NewGormMediaRepository(r.db)
}

// Marketplaces returns the marketplace repository
func (r *GormRepositories) Marketplaces() bridge.MarketplaceRepository {
	return NewGormMarketplaceRepository(r.db)
}

// Customers returns the customer repository
func (r *GormRepositories) Customers() bridge.CustomerRepository {
	return NewGormCustomerRepository(r.db)
}

// Orders returns the order repository
func (r *GormRepositories) Orders() bridge.OrderRepository {
	return NewGormOrderRepository(r.db)
}

// SyncMarkers returns the sync marker repository
func (r *GormRepositories) SyncMarkers() bridge.SyncMarkerRepository {
	return NewGormSyncMarkerRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ syncer.TransactionScope = (*GormTransactionScope)(nil)

// Ensure GormRepositories implements Repositories
var _ syncer.Repositories = (*GormRepositories)(nil)
