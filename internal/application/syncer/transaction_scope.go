package syncer

import (
	"context"

	"github.com/erp/bridge/internal/domain/bridge"
)

// TransactionScope provides transactional access to the bridge repositories.
// All repository operations inside Execute share one database transaction and
// are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every bridge repository. Inside a
// TransactionScope they share the scope's transaction.
type Repositories interface {
	Products() bridge.ProductRepository
	Categories() bridge.CategoryRepository
	Taxes() bridge.TaxRepository
	Media() bridge.MediaRepository
	Marketplaces() bridge.MarketplaceRepository
	Customers() bridge.CustomerRepository
	Orders() bridge.OrderRepository
	SyncMarkers() bridge.SyncMarkerRepository
}

// NoOpTransactionScope runs functions against fixed repositories without a
// transaction. It is used in tests.
type NoOpTransactionScope struct {
	Repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{Repos: repos}
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}

// Ensure NoOpTransactionScope implements TransactionScope
var _ TransactionScope = (*NoOpTransactionScope)(nil)
