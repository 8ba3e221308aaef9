package erp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/erp/bridge/internal/domain/erp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFixture = `
tables:
  Art:
    fields:
      ArtNr: string
      Bez: string
      Bestand: float
      WebAktiv: boolean
    rows:
      - {ArtNr: "204116", Bez: "Schraube M4", Bestand: 12, WebAktiv: "J"}
      - {ArtNr: "100001", Bez: "Mutter M4", Bestand: -3, WebAktiv: "N"}
      - {ArtNr: "300500", Bez: "Scheibe", Bestand: "7,5", WebAktiv: "J"}
  Ans:
    fields:
      AdrNr: string
      AnsNr: integer
      Na2: string
    autoincrement: {field: AnsNr, start: 1, scope: [AdrNr]}
    rows:
      - {AdrNr: "10001", AnsNr: 1, Na2: "Erika Muster"}
      - {AdrNr: "10001", AnsNr: 2, Na2: "Lager"}
      - {AdrNr: "10002", AnsNr: 1, Na2: "Max Muster"}
`

func newTestConnection(t *testing.T) *MemoryConnection {
	t.Helper()
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	return NewMemoryConnection(f)
}

func openDataset(t *testing.T, conn *MemoryConnection, table string) erp.Dataset {
	t.Helper()
	ds, err := conn.Dataset(context.Background(), table)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestParseFixture(t *testing.T) {
	t.Run("adds default schema tables", func(t *testing.T) {
		f, err := ParseFixture([]byte(testFixture))
		require.NoError(t, err)
		assert.Contains(t, f.Tables, erp.TableAddresses)
		assert.Len(t, f.Tables[erp.TableArticles].Rows, 3)
		assert.Equal(t, erp.FieldFloat, f.Tables[erp.TableArticles].Fields["Bestand"])
	})

	t.Run("rejects unknown field in row", func(t *testing.T) {
		_, err := ParseFixture([]byte("tables:\n  T:\n    fields: {A: string}\n    rows:\n      - {B: x}\n"))
		assert.ErrorIs(t, err, erp.ErrUnknownField)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := ParseFixture([]byte("tables:\n  T:\n    fields: {A: money}\n"))
		assert.Error(t, err)
	})
}

func TestMemoryDataset_FindKey(t *testing.T) {
	conn := newTestConnection(t)
	ds := openDataset(t, conn, erp.TableArticles)

	rec, err := erp.Locate(ds, erp.IndexArtNr, "204116")
	require.NoError(t, err)
	assert.Equal(t, "Schraube M4", rec.String("Bez"))
	assert.InDelta(t, 12.0, rec.Float("Bestand"), 0.001)
	assert.True(t, rec.Bool("WebAktiv"))
	require.NoError(t, rec.Err())

	_, err = erp.Locate(ds, erp.IndexArtNr, "999999")
	assert.ErrorIs(t, err, erp.ErrRecordNotFound)

	_, err = ds.FindKey("Missing", "x")
	assert.ErrorIs(t, err, erp.ErrUnknownIndex)
}

func TestMemoryDataset_IndexOrder(t *testing.T) {
	conn := newTestConnection(t)
	ds := openDataset(t, conn, erp.TableArticles)

	_, err := ds.FindKey(erp.IndexArtNr, "100001")
	require.NoError(t, err)
	require.NoError(t, ds.First())

	var nrs []string
	require.NoError(t, erp.ForEach(ds, func(r *erp.Record) error {
		nrs = append(nrs, r.String("ArtNr"))
		return r.Err()
	}))
	assert.Equal(t, []string{"100001", "204116", "300500"}, nrs)
}

func TestMemoryDataset_SetRange(t *testing.T) {
	conn := newTestConnection(t)
	ds := openDataset(t, conn, erp.TableAnschrift)

	require.NoError(t, ds.SetRange(erp.IndexAnschrift, []any{"10001"}, []any{"10001"}))

	var names []string
	require.NoError(t, erp.ForEach(ds, func(r *erp.Record) error {
		names = append(names, r.String("Na2"))
		return nil
	}))
	assert.Equal(t, []string{"Erika Muster", "Lager"}, names)

	require.NoError(t, ds.CancelRange())
	count := 0
	require.NoError(t, erp.ForEach(ds, func(*erp.Record) error { count++; return nil }))
	assert.Equal(t, 3, count)
}

func TestMemoryDataset_EditAppend(t *testing.T) {
	t.Run("edit writes back on post", func(t *testing.T) {
		conn := newTestConnection(t)
		ds := openDataset(t, conn, erp.TableArticles)

		rec, err := erp.Locate(ds, erp.IndexArtNr, "204116")
		require.NoError(t, err)
		require.NoError(t, ds.Edit())
		require.NoError(t, rec.Set("Bestand", "20"))
		assert.InDelta(t, 20.0, rec.Float("Bestand"), 0.001)
		require.NoError(t, ds.Post())

		assert.Equal(t, 20.0, conn.Fixture().Tables[erp.TableArticles].Rows[0]["Bestand"])
	})

	t.Run("cancel discards changes", func(t *testing.T) {
		conn := newTestConnection(t)
		ds := openDataset(t, conn, erp.TableArticles)

		rec, err := erp.Locate(ds, erp.IndexArtNr, "204116")
		require.NoError(t, err)
		require.NoError(t, ds.Edit())
		require.NoError(t, rec.Set("Bez", "changed"))
		require.NoError(t, ds.Cancel())
		assert.Equal(t, "Schraube M4", rec.String("Bez"))
	})

	t.Run("set outside edit mode fails", func(t *testing.T) {
		conn := newTestConnection(t)
		ds := openDataset(t, conn, erp.TableArticles)
		require.NoError(t, ds.First())
		assert.ErrorIs(t, ds.SetValue("Bez", "x"), erp.ErrNotEditing)
	})

	t.Run("append numbers within scope", func(t *testing.T) {
		conn := newTestConnection(t)
		ds := openDataset(t, conn, erp.TableAnschrift)

		require.NoError(t, ds.Append())
		rec := erp.NewRecord(ds)
		require.NoError(t, rec.Set(erp.AnsAdrNr, "10001"))
		require.NoError(t, rec.Set(erp.AnsName, "Filiale"))
		require.NoError(t, ds.Post())

		assert.Equal(t, 3, rec.Int(erp.AnsNr))
		assert.Equal(t, "Filiale", rec.String(erp.AnsName))

		require.NoError(t, ds.Append())
		require.NoError(t, rec.Set(erp.AnsAdrNr, "10003"))
		require.NoError(t, ds.Post())
		assert.Equal(t, 1, rec.Int(erp.AnsNr))
	})
}

func TestMemoryConnection_Transaction(t *testing.T) {
	conn := newTestConnection(t)
	ctx := context.Background()

	assert.ErrorIs(t, conn.Commit(ctx), erp.ErrNoTransaction)
	require.NoError(t, conn.StartTransaction(ctx))
	assert.ErrorIs(t, conn.StartTransaction(ctx), erp.ErrInTransaction)

	ds := openDataset(t, conn, erp.TableArticles)
	require.NoError(t, ds.Append())
	require.NoError(t, erp.NewRecord(ds).Set("ArtNr", "555555"))
	require.NoError(t, ds.Post())
	assert.Len(t, conn.Fixture().Tables[erp.TableArticles].Rows, 4)

	require.NoError(t, conn.Rollback(ctx))
	assert.Len(t, conn.Fixture().Tables[erp.TableArticles].Rows, 3)

	found, err := ds.FindKey(erp.IndexArtNr, "555555")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryConnection_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erp.yaml")
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	conn := NewMemoryConnection(f, WithPersistPath(path))
	ctx := context.Background()

	require.NoError(t, conn.StartTransaction(ctx))
	ds := openDataset(t, conn, erp.TableArticles)
	rec, err := erp.Locate(ds, erp.IndexArtNr, "100001")
	require.NoError(t, err)
	require.NoError(t, ds.Edit())
	require.NoError(t, rec.Set("Bez", "Mutter M5"))
	require.NoError(t, ds.Post())
	require.NoError(t, conn.Commit(ctx))

	reloaded, err := LoadFixture(path)
	require.NoError(t, err)
	reconn := NewMemoryConnection(reloaded)
	rds := openDataset(t, reconn, erp.TableArticles)
	rec, err = erp.Locate(rds, erp.IndexArtNr, "100001")
	require.NoError(t, err)
	assert.Equal(t, "Mutter M5", rec.String("Bez"))
}

func TestMemoryConnection_Closed(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.Close())
	_, err := conn.Dataset(context.Background(), erp.TableArticles)
	assert.ErrorIs(t, err, erp.ErrNotConnected)

	_, err = newTestConnection(t).Dataset(context.Background(), "Nope")
	assert.ErrorIs(t, err, erp.ErrUnknownTable)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues("9", "10"))
	assert.Equal(t, 0, compareValues("10001", 10001))
	assert.Equal(t, 1, compareValues("b", "a"))
	assert.Equal(t, -1, compareValues(nil, "a"))
	assert.Equal(t, 0, compareValues("abc  ", "abc"))
}
