package syncer

import (
	"context"

	"github.com/erp/bridge/internal/domain/bridge"
)

// Identity resolution: every kind is matched by its natural key, never by
// surrogate id. A natural key matching more than one row surfaces as
// bridge.ErrAmbiguousMatch and aborts the record.

func taxByErpNr(erpNr string) func(context.Context, Repositories) (*bridge.Tax, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Tax, error) {
		return repos.Taxes().FindByErpNr(ctx, erpNr)
	}
}

func mediaByFileName(fileName string) func(context.Context, Repositories) (*bridge.Media, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Media, error) {
		return repos.Media().FindByFileName(ctx, fileName)
	}
}

func marketplaceByPlatformID(platformID string) func(context.Context, Repositories) (*bridge.Marketplace, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Marketplace, error) {
		return repos.Marketplaces().FindByPlatformID(ctx, platformID)
	}
}

func categoryByErpNr(erpNr string) func(context.Context, Repositories) (*bridge.Category, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Category, error) {
		return repos.Categories().FindByErpNr(ctx, erpNr)
	}
}

func productByErpNr(erpNr string) func(context.Context, Repositories) (*bridge.Product, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Product, error) {
		return repos.Products().FindByErpNr(ctx, erpNr)
	}
}

// customerByEmail matches customers by e-mail only: web customers have no
// ERP number until they are written to the ERP.
func customerByEmail(email string) func(context.Context, Repositories) (*bridge.Customer, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Customer, error) {
		return repos.Customers().FindByEmail(ctx, bridge.NormalizeEmail(email))
	}
}

func orderByPlatformID(platformID string) func(context.Context, Repositories) (*bridge.Order, error) {
	return func(ctx context.Context, repos Repositories) (*bridge.Order, error) {
		return repos.Orders().FindByPlatformID(ctx, platformID)
	}
}

func saveTax(ctx context.Context, repos Repositories, t *bridge.Tax) error {
	return repos.Taxes().Save(ctx, t)
}

func saveMedia(ctx context.Context, repos Repositories, m *bridge.Media) error {
	return repos.Media().Save(ctx, m)
}

func saveMarketplace(ctx context.Context, repos Repositories, m *bridge.Marketplace) error {
	return repos.Marketplaces().Save(ctx, m)
}

func saveCategory(ctx context.Context, repos Repositories, c *bridge.Category) error {
	return repos.Categories().Save(ctx, c)
}

func saveProduct(ctx context.Context, repos Repositories, p *bridge.Product) error {
	return repos.Products().Save(ctx, p)
}

func saveCustomer(ctx context.Context, repos Repositories, c *bridge.Customer) error {
	return repos.Customers().Save(ctx, c)
}

func saveOrder(ctx context.Context, repos Repositories, o *bridge.Order) error {
	return repos.Orders().Save(ctx, o)
}
