package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/shared"
)

// erpCustomerWriter writes a bridge customer with its standard addresses
// into the ERP address tables. Callers run it inside an ERP transaction.
type erpCustomerWriter struct {
	conn erp.Connection
	now  time.Time
}

// roleWrite is the outcome of writing one address role
type roleWrite struct {
	address  *bridge.CustomerAddress
	shipping bool
	combined bridge.CombinedID
}

// write creates or updates the Adressen record, then the billing and
// shipping Anschriften with their contacts, and finally resets the standard
// flags. It returns the ERP address number and the rewritten combined ids.
func (w *erpCustomerWriter) write(ctx context.Context, c *bridge.Customer, state bridge.ErpNrState) (string, []roleWrite, error) {
	billing, hasBilling := c.StandardBilling()
	shipping, hasShipping := c.StandardShipping()

	adrNr, err := w.writeAdresse(ctx, c, billing, state)
	if err != nil {
		return "", nil, err
	}
	adr, err := strconv.Atoi(adrNr)
	if err != nil {
		return "", nil, fmt.Errorf("erp address number %q: %w", adrNr, err)
	}

	var writes []roleWrite
	var billingAns, shippingAns int
	if hasBilling {
		combined, err := w.writeAnschrift(ctx, adr, billing, billing.Combined(), true)
		if err != nil {
			return "", nil, fmt.Errorf("billing address: %w", err)
		}
		billingAns = combined.SubAddress.OrZero()
		writes = append(writes, roleWrite{address: billing, combined: combined})
	}
	if hasShipping {
		sameRow := hasBilling && shipping.ID == billing.ID
		current := shipping.Combined()
		if sameRow {
			current = shipping.ShippingCombined()
		}
		combined, err := w.writeAnschrift(ctx, adr, shipping, current, false)
		if err != nil {
			return "", nil, fmt.Errorf("shipping address: %w", err)
		}
		shippingAns = combined.SubAddress.OrZero()
		writes = append(writes, roleWrite{address: shipping, shipping: sameRow, combined: combined})
	}

	if err := w.resetStandardFlags(ctx, adrNr, billingAns, shippingAns); err != nil {
		return "", nil, fmt.Errorf("standard address flags: %w", err)
	}
	return adrNr, writes, nil
}

// writeAdresse appends a new Adressen record for unassigned numbers and
// edits the existing one otherwise. A missing record for an assigned number
// is an error.
func (w *erpCustomerWriter) writeAdresse(ctx context.Context, c *bridge.Customer, billing *bridge.CustomerAddress, state bridge.ErpNrState) (string, error) {
	var adrNr string
	err := erp.WithDataset(ctx, w.conn, erp.TableAddresses, func(ds erp.Dataset) error {
		if state == bridge.ErpNrAssigned {
			if _, err := erp.Locate(ds, erp.IndexNr, c.ErpNr); err != nil {
				return fmt.Errorf("customer %s: %w", c.ErpNr, err)
			}
			if err := ds.Edit(); err != nil {
				return err
			}
		} else if err := ds.Append(); err != nil {
			return err
		}

		rec := erp.NewRecord(ds)
		values := append(mapping.AdresseValues(c, billing), erp.FieldValue{Field: erp.AdrModifiedAt, Value: w.now})
		if err := rec.SetAll(values); err != nil {
			return errors.Join(err, ds.Cancel())
		}
		if err := ds.Post(); err != nil {
			return err
		}
		adrNr = strings.TrimSpace(erp.NewRecord(ds).String(erp.AdrNr))
		return nil
	})
	if err != nil {
		return "", err
	}
	if adrNr == "" {
		return "", fmt.Errorf("erp assigned no number to customer %s", c.Email)
	}
	return adrNr, nil
}

// writeAnschrift downserts the Anschrift named by current and its contact.
// The existing rows are edited only when current points below adr; anything
// else, including the empty id "0;0;0", appends new rows.
func (w *erpCustomerWriter) writeAnschrift(ctx context.Context, adr int, a *bridge.CustomerAddress, current bridge.CombinedID, billing bool) (bridge.CombinedID, error) {
	adrNr := strconv.Itoa(adr)
	owned := current.Address == shared.Some(adr) && current.SubAddress.IsSome()

	var ansNr int
	appended := true
	err := erp.WithDataset(ctx, w.conn, erp.TableAnschrift, func(ds erp.Dataset) error {
		var err error
		appended, err = locateOrAppend(ds, owned, erp.IndexAnschrift, adrNr, current.SubAddress.OrZero())
		if err != nil {
			return err
		}
		rec := erp.NewRecord(ds)
		values := mapping.AnschriftValues(a, billing)
		if appended {
			values = append(values, erp.FieldValue{Field: erp.AnsAdrNr, Value: adrNr})
		}
		if err := rec.SetAll(values); err != nil {
			return errors.Join(err, ds.Cancel())
		}
		if err := ds.Post(); err != nil {
			return err
		}
		ansNr = erp.NewRecord(ds).Int(erp.AnsNr)
		return nil
	})
	if err != nil {
		return bridge.CombinedID{}, err
	}

	contactOwned := owned && !appended && current.Contact.IsSome()
	aspNr, err := w.writeContact(ctx, adrNr, ansNr, a, contactOwned, current.Contact.OrZero())
	if err != nil {
		return bridge.CombinedID{}, err
	}
	return bridge.CombinedID{
		Address:    shared.Some(adr),
		SubAddress: shared.Some(ansNr),
		Contact:    shared.Some(aspNr),
	}, nil
}

// writeContact downserts the Ansprechpartner below an Anschrift
func (w *erpCustomerWriter) writeContact(ctx context.Context, adrNr string, ansNr int, a *bridge.CustomerAddress, owned bool, aspNr int) (int, error) {
	err := erp.WithDataset(ctx, w.conn, erp.TableContacts, func(ds erp.Dataset) error {
		appended, err := locateOrAppend(ds, owned, erp.IndexContact, adrNr, ansNr, aspNr)
		if err != nil {
			return err
		}
		rec := erp.NewRecord(ds)
		values := mapping.ContactValues(a)
		if appended {
			values = append(values,
				erp.FieldValue{Field: erp.AspAdrNr, Value: adrNr},
				erp.FieldValue{Field: erp.AspAnsNr, Value: ansNr})
		}
		if err := rec.SetAll(values); err != nil {
			return errors.Join(err, ds.Cancel())
		}
		if err := ds.Post(); err != nil {
			return err
		}
		aspNr = erp.NewRecord(ds).Int(erp.AspNr)
		return nil
	})
	return aspNr, err
}

// resetStandardFlags marks exactly the given Anschriften as standard billing
// and shipping address. Zero clears a flag on every Anschrift.
func (w *erpCustomerWriter) resetStandardFlags(ctx context.Context, adrNr string, billingAns, shippingAns int) error {
	return erp.WithDataset(ctx, w.conn, erp.TableAnschrift, func(ds erp.Dataset) error {
		if err := ds.SetRange(erp.IndexAnschrift, []any{adrNr}, []any{adrNr}); err != nil {
			return err
		}
		return erp.ForEach(ds, func(rec *erp.Record) error {
			ansNr := rec.Int(erp.AnsNr)
			billing := rec.Bool(erp.AnsStdBilling)
			shipping := rec.Bool(erp.AnsStdShipping)
			if err := rec.Err(); err != nil {
				return err
			}
			wantBilling, wantShipping := ansNr == billingAns, ansNr == shippingAns
			if billing == wantBilling && shipping == wantShipping {
				return nil
			}
			if err := ds.Edit(); err != nil {
				return err
			}
			err := rec.SetAll([]erp.FieldValue{
				{Field: erp.AnsStdBilling, Value: wantBilling},
				{Field: erp.AnsStdShipping, Value: wantShipping},
			})
			if err != nil {
				return errors.Join(err, ds.Cancel())
			}
			return ds.Post()
		})
	})
}

// locateOrAppend positions ds on the record with key when owned and it
// exists, else puts ds in append mode. It reports whether it appended.
func locateOrAppend(ds erp.Dataset, owned bool, index string, key ...any) (bool, error) {
	if owned {
		_, err := erp.Locate(ds, index, key...)
		switch {
		case err == nil:
			return false, ds.Edit()
		case !errors.Is(err, erp.ErrRecordNotFound):
			return false, err
		}
	}
	return true, ds.Append()
}
