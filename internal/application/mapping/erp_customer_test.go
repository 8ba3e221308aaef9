package mapping

import (
	"context"
	"testing"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	erpinfra "github.com/erp/bridge/internal/infrastructure/erp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerFixture = `
tables:
  Adr:
    rows:
      - {Nr: "10001", EMail: " Erika@Example.com ", UStIdNr: "DE123", Na1: "Muster GmbH"}
      - {Nr: "10002", EMail: ""}
  Ans:
    rows:
      - {AdrNr: "10001", AnsNr: 1, Na1: "Muster GmbH", Na2: "Erika  Maria Muster", Str: "Hauptstr. 1", PLZ: "10115", Ort: "Berlin", Land: "de", StdReKz: "J", StdLiKz: "N", WebID: "addr1"}
      - {AdrNr: "10001", AnsNr: 2, Na2: "Lager", StdLiKz: "J"}
  Asp:
    rows:
      - {AdrNr: "10001", AnsNr: 1, AspNr: 1, Anr: "Frau", VNa: "Erika", NNa: "Muster", EMail: "einkauf@example.com", Abt: "Einkauf"}
`

func openCustomerFixture(t *testing.T) *erpinfra.MemoryConnection {
	t.Helper()
	f, err := erpinfra.ParseFixture([]byte(customerFixture))
	require.NoError(t, err)
	return erpinfra.NewMemoryConnection(f)
}

func locateIn(t *testing.T, conn erp.Connection, table, index string, key ...any) *erp.Record {
	t.Helper()
	ds, err := conn.Dataset(context.Background(), table)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	rec, err := erp.Locate(ds, index, key...)
	require.NoError(t, err)
	return rec
}

func TestCustomerFromERP(t *testing.T) {
	conn := openCustomerFixture(t)

	c, err := CustomerFromERP(locateIn(t, conn, erp.TableAddresses, erp.IndexNr, "10001"))
	require.NoError(t, err)
	assert.Equal(t, "erika@example.com", c.Email)
	assert.Equal(t, "10001", c.ErpNr)
	assert.Equal(t, "DE123", c.VatID)

	_, err = CustomerFromERP(locateIn(t, conn, erp.TableAddresses, erp.IndexNr, "10002"))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAddressFromAnschrift(t *testing.T) {
	conn := openCustomerFixture(t)

	a, flags, err := AddressFromAnschrift(locateIn(t, conn, erp.TableAnschrift, erp.IndexAnschrift, "10001", 1))
	require.NoError(t, err)
	assert.Equal(t, "10001;1;0", a.CombinedID)
	assert.Equal(t, 10001, a.ErpNr.OrZero())
	assert.Equal(t, 1, a.ErpAnsNr.OrZero())
	assert.True(t, a.ErpAspNr.IsNone())
	assert.Equal(t, "Erika Maria", a.FirstName)
	assert.Equal(t, "Muster", a.LastName)
	assert.Equal(t, "DE", a.CountryCode)
	assert.Equal(t, "addr1", a.PlatformID)
	assert.True(t, flags.StandardBilling)
	assert.False(t, flags.StandardShipping)

	t.Run("apply contact completes the combined id", func(t *testing.T) {
		require.NoError(t, ApplyContact(a, locateIn(t, conn, erp.TableContacts, erp.IndexContact, "10001", 1, 1)))
		assert.Equal(t, "10001;1;1", a.CombinedID)
		assert.Equal(t, "Erika", a.FirstName)
		assert.Equal(t, "Frau", a.Salutation)
		assert.Equal(t, "einkauf@example.com", a.Email)
		assert.Equal(t, "Einkauf", a.Department)

		found, err := (&bridge.Customer{Addresses: []*bridge.CustomerAddress{a}}).
			AddressByCombinedID(bridge.NewCombinedID(10001, 1, 1))
		require.NoError(t, err)
		assert.Same(t, a, found)
	})
}

func TestERPValues(t *testing.T) {
	a := bridge.NewCustomerAddress()
	a.Company = "Muster GmbH"
	a.FirstName = "Erika"
	a.LastName = "Muster"

	c, err := bridge.NewCustomer("erika@example.com")
	require.NoError(t, err)

	values := AdresseValues(c, a)
	assert.Contains(t, values, erp.FieldValue{Field: erp.AdrName, Value: "Muster GmbH"})
	assert.Contains(t, values, erp.FieldValue{Field: erp.AdrEmail, Value: "erika@example.com"})

	ans := AnschriftValues(a, false)
	assert.Contains(t, ans, erp.FieldValue{Field: erp.AnsName, Value: "Erika Muster"})
	assert.Contains(t, ans, erp.FieldValue{Field: erp.AnsShippingKind, Value: true})
	assert.Contains(t, ans, erp.FieldValue{Field: erp.AnsBillingKind, Value: false})

	asp := ContactValues(a)
	assert.Contains(t, asp, erp.FieldValue{Field: erp.AspLastName, Value: "Muster"})
}
