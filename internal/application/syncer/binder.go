package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// binder attaches relations to a persisted row. Related rows are looked up
// by natural key and linked only when not linked yet, so binding twice never
// duplicates an association. Missing relations are logged and omitted.
type binder struct {
	deps Dependencies
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// bindProduct links tax, categories, media and marketplace prices. A tax
// class unknown to the bridge is read from the ERP through conn.
func (b *binder) bindProduct(ctx context.Context, repos Repositories, conn erp.Connection, p *bridge.Product, refs mapping.ProductRefs, log *zap.Logger) error {
	if refs.TaxNr != "" {
		tax, err := b.ensureTax(ctx, repos, conn, refs.TaxNr)
		switch {
		case err == nil:
			p.SetTax(tax.ID)
		case errors.Is(err, bridge.ErrNotFound), errors.Is(err, erp.ErrRecordNotFound), errors.Is(err, mapping.ErrMissingField), errors.Is(err, mapping.ErrInvalidValue):
			log.Warn("Tax class not found, product keeps its previous tax", zap.String("tax_nr", refs.TaxNr), zap.Error(err))
		default:
			return err
		}
	}

	for _, nr := range refs.CategoryNrs {
		c, err := repos.Categories().FindByErpNr(ctx, nr)
		found, err := resolved(err)
		if err != nil {
			return fmt.Errorf("category %s: %w", nr, err)
		}
		if !found {
			log.Warn("Category not in bridge, link skipped", zap.String("category_nr", nr))
			continue
		}
		p.AttachCategory(c.ID)
	}

	if err := b.bindMedia(ctx, repos, refs.Images, p.AttachMedia, log); err != nil {
		return err
	}

	marketplaces, err := repos.Marketplaces().FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load marketplaces: %w", err)
	}
	for _, m := range marketplaces {
		p.EnsureMarketplacePrice(m.ID)
	}
	return nil
}

// ensureTax returns the bridge tax class with erpNr, creating it from the
// ERP tax table when the bridge does not know it yet.
func (b *binder) ensureTax(ctx context.Context, repos Repositories, conn erp.Connection, erpNr string) (*bridge.Tax, error) {
	tax, err := repos.Taxes().FindByErpNr(ctx, erpNr)
	found, err := resolved(err)
	if err != nil || found {
		return tax, err
	}
	if conn == nil {
		return nil, bridge.ErrNotFound
	}

	err = erp.WithDataset(ctx, conn, erp.TableTaxes, func(ds erp.Dataset) error {
		rec, err := erp.Locate(ds, erp.IndexNr, erpNr)
		if err != nil {
			return err
		}
		tax, err = mapping.TaxFromERP(rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := repos.Taxes().Save(ctx, tax); err != nil {
		return nil, fmt.Errorf("failed to save tax %s: %w", erpNr, err)
	}
	return tax, nil
}

// bindCategory links the category image
func (b *binder) bindCategory(ctx context.Context, repos Repositories, c *bridge.Category, refs mapping.CategoryRefs, log *zap.Logger) error {
	return b.bindMedia(ctx, repos, refs.Images, c.AttachMedia, log)
}

// bindMedia attaches media rows found by file name, numbering them in list order
func (b *binder) bindMedia(ctx context.Context, repos Repositories, fileNames []string, attach func(mediaID uuid.UUID, sortOrder int) bool, log *zap.Logger) error {
	for i, name := range fileNames {
		m, err := repos.Media().FindByFileName(ctx, name)
		found, err := resolved(err)
		if err != nil {
			return fmt.Errorf("media %s: %w", name, err)
		}
		if !found {
			log.Warn("Media not in bridge, link skipped", zap.String("file_name", name))
			continue
		}
		attach(m.ID, i+1)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// bindAnschriften ranges over the Anschriften of ERP address adrNr and their
// first Ansprechpartner, resolving each against the customer's addresses by
// combined id. Standard flags of the ERP set the standard addresses.
func (b *binder) bindAnschriften(ctx context.Context, conn erp.Connection, c *bridge.Customer, adrNr string, log *zap.Logger) error {
	return erp.WithDataset(ctx, conn, erp.TableAnschrift, func(ds erp.Dataset) error {
		if err := ds.SetRange(erp.IndexAnschrift, []any{adrNr}, []any{adrNr}); err != nil {
			return err
		}
		return erp.ForEach(ds, func(rec *erp.Record) error {
			candidate, flags, err := mapping.AddressFromAnschrift(rec)
			if err != nil {
				log.Warn("Anschrift skipped", zap.Error(err))
				return nil
			}
			ansNr := candidate.ErpAnsNr.OrZero()
			if err := b.applyFirstContact(ctx, conn, candidate, adrNr, ansNr); err != nil {
				log.Warn("Ansprechpartner skipped", zap.Int("ans_nr", ansNr), zap.Error(err))
			}

			address, err := b.resolveAnschrift(c, candidate)
			if err != nil {
				return err
			}
			if flags.StandardBilling {
				if err := c.SetStandardBilling(address.ID); err != nil {
					return err
				}
			}
			if flags.StandardShipping {
				if err := c.SetStandardShipping(address.ID); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// applyFirstContact completes candidate with the first contact below the Anschrift
func (b *binder) applyFirstContact(ctx context.Context, conn erp.Connection, candidate *bridge.CustomerAddress, adrNr string, ansNr int) error {
	return erp.WithDataset(ctx, conn, erp.TableContacts, func(ds erp.Dataset) error {
		key := []any{adrNr, ansNr}
		if err := ds.SetRange(erp.IndexContact, key, key); err != nil {
			return err
		}
		if ds.EOF() {
			return nil
		}
		return mapping.ApplyContact(candidate, erp.NewRecord(ds))
	})
}

// resolveAnschrift updates the address matching candidate's combined id in
// place or appends candidate. The platform id written to the ERP is the
// fallback key for rows whose combined id was never stored.
func (b *binder) resolveAnschrift(c *bridge.Customer, candidate *bridge.CustomerAddress) (*bridge.CustomerAddress, error) {
	existing, err := c.AddressByCombinedID(candidate.Combined())
	found, err := resolved(err)
	if err != nil {
		return nil, err
	}
	if found {
		existing.Update(candidate)
		return existing, nil
	}

	existing, err = c.AddressByPlatformID(candidate.PlatformID)
	found, err = resolved(err)
	if err != nil {
		return nil, err
	}
	if found {
		existing.Update(candidate)
		existing.SetCombinedID(candidate.Combined())
		return existing, nil
	}

	c.AddAddress(candidate)
	return candidate, nil
}

// bindPlatformCustomer merges the platform addresses by platform id, sets the
// default addresses and links the customer's marketplace.
func (b *binder) bindPlatformCustomer(ctx context.Context, repos Repositories, c *bridge.Customer, refs mapping.CustomerRefs, log *zap.Logger) error {
	for _, candidate := range refs.Addresses {
		existing, err := c.AddressByPlatformID(candidate.PlatformID)
		found, err := resolved(err)
		if err != nil {
			return err
		}
		if found {
			existing.Update(candidate)
			continue
		}
		c.AddAddress(candidate)
	}

	if err := setDefault(c, refs.DefaultBillingID, c.SetStandardBilling); err != nil {
		log.Warn("Default billing address not found", zap.String("address_id", refs.DefaultBillingID), zap.Error(err))
	}
	if err := setDefault(c, refs.DefaultShippingID, c.SetStandardShipping); err != nil {
		log.Warn("Default shipping address not found", zap.String("address_id", refs.DefaultShippingID), zap.Error(err))
	}

	if refs.SalesChannelID == "" {
		return nil
	}
	m, err := b.ensureMarketplace(ctx, repos, refs.SalesChannelID, log)
	if err != nil || m == nil {
		return err
	}
	c.LinkMarketplace(m.ID, refs.PlatformCustomerID)
	return nil
}

func setDefault(c *bridge.Customer, platformID string, set func(addressID uuid.UUID) error) error {
	if platformID == "" {
		return nil
	}
	a, err := c.AddressByPlatformID(platformID)
	if err != nil {
		return err
	}
	return set(a.ID)
}

// ensureMarketplace returns the marketplace of a sales channel, creating it
// from the platform when the bridge does not know it. It returns nil when the
// sales channel cannot be read.
func (b *binder) ensureMarketplace(ctx context.Context, repos Repositories, salesChannelID string, log *zap.Logger) (*bridge.Marketplace, error) {
	m, err := repos.Marketplaces().FindByPlatformID(ctx, salesChannelID)
	found, err := resolved(err)
	if err != nil || found {
		return m, err
	}

	if b.deps.Platform == nil {
		log.Warn("Marketplace unknown and platform not configured", zap.String("sales_channel_id", salesChannelID))
		return nil, nil
	}
	rec, err := b.deps.Platform.Get(ctx, platform.EntitySalesChannel, salesChannelID)
	if err != nil {
		log.Warn("Failed to read sales channel, marketplace link skipped", zap.String("sales_channel_id", salesChannelID), zap.Error(err))
		return nil, nil
	}
	m, err = mapping.MarketplaceFromPlatform(rec)
	if err != nil {
		log.Warn("Sales channel could not be mapped", zap.String("sales_channel_id", salesChannelID), zap.Error(err))
		return nil, nil
	}
	if err := repos.Marketplaces().Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save marketplace %s: %w", salesChannelID, err)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// bindOrder links marketplace, lines and customer of an order
func (b *binder) bindOrder(ctx context.Context, repos Repositories, o *bridge.Order, refs mapping.OrderRefs, log *zap.Logger) error {
	if refs.SalesChannelID != "" {
		m, err := b.ensureMarketplace(ctx, repos, refs.SalesChannelID, log)
		if err != nil {
			return err
		}
		if m != nil {
			o.SetMarketplace(m.ID)
		}
	}

	for _, candidate := range refs.Lines {
		line, err := o.UpsertLine(candidate)
		if err != nil {
			return err
		}
		if err := b.bindOrderLine(ctx, repos, line, log); err != nil {
			return err
		}
	}

	c, err := b.resolveOrderCustomer(ctx, repos, refs, log)
	if err != nil {
		return err
	}
	if c != nil {
		o.SetCustomer(c.ID)
	}
	return nil
}

// bindOrderLine links the product by the line's ERP product number
func (b *binder) bindOrderLine(ctx context.Context, repos Repositories, line *bridge.OrderLine, log *zap.Logger) error {
	if line.ErpProductNr == "" {
		return nil
	}
	p, err := repos.Products().FindByErpNr(ctx, line.ErpProductNr)
	found, err := resolved(err)
	if err != nil {
		return fmt.Errorf("order line %s: %w", line.PlatformID, err)
	}
	if !found {
		log.Warn("Ordered product not in bridge", zap.String("line_id", line.PlatformID), zap.String("product_nr", line.ErpProductNr))
		return nil
	}
	line.SetProduct(p.ID)
	return nil
}

// resolveOrderCustomer finds the ordering customer by ERP number, platform
// customer id or e-mail, in that order, and upserts it from the platform
// when none matches.
func (b *binder) resolveOrderCustomer(ctx context.Context, repos Repositories, refs mapping.OrderRefs, log *zap.Logger) (*bridge.Customer, error) {
	customers := repos.Customers()
	if refs.CustomerNumber != "" {
		if state, err := b.deps.Numbers.Classify(refs.CustomerNumber); err == nil && state == bridge.ErpNrAssigned {
			c, err := customers.FindByErpNr(ctx, refs.CustomerNumber)
			if found, err := resolved(err); err != nil || found {
				return c, err
			}
		}
	}
	if refs.PlatformCustomerID != "" {
		c, err := customers.FindByPlatformCustomerID(ctx, refs.PlatformCustomerID)
		if found, err := resolved(err); err != nil || found {
			return c, err
		}
	}
	if refs.CustomerEmail != "" {
		c, err := customers.FindByEmail(ctx, bridge.NormalizeEmail(refs.CustomerEmail))
		if found, err := resolved(err); err != nil || found {
			return c, err
		}
	}
	if refs.PlatformCustomerID == "" || b.deps.Platform == nil {
		log.Warn("Order customer unknown", zap.String("customer_number", refs.CustomerNumber))
		return nil, nil
	}

	rec, err := fetchPlatformCustomer(ctx, b.deps.Platform, refs.PlatformCustomerID)
	if err != nil {
		log.Warn("Failed to read order customer from platform", zap.String("customer_id", refs.PlatformCustomerID), zap.Error(err))
		return nil, nil
	}
	c, customerRefs, err := mapping.CustomerFromPlatform(rec)
	if err != nil {
		log.Warn("Order customer could not be mapped", zap.String("customer_id", refs.PlatformCustomerID), zap.Error(err))
		return nil, nil
	}
	if err := customers.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save order customer: %w", err)
	}
	if err := b.bindPlatformCustomer(ctx, repos, c, customerRefs, log); err != nil {
		return nil, err
	}
	if err := customers.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save order customer: %w", err)
	}
	return c, nil
}

// customerCriteria loads a platform customer with its addresses
func customerCriteria(c *platform.Criteria) *platform.Criteria {
	return c.WithAssociation("addresses").WithAssociation("salutation").WithAssociation("addresses.country")
}

func fetchPlatformCustomer(ctx context.Context, client platform.Client, id string) (platform.Record, error) {
	res, err := client.Search(ctx, platform.EntityCustomer, customerCriteria(platform.ByID(id)))
	if err != nil {
		return nil, err
	}
	rec, ok := res.First()
	if !ok {
		return nil, platform.ErrNotFound
	}
	return rec, nil
}
