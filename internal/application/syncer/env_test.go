package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	infraerp "github.com/erp/bridge/internal/infrastructure/erp"
	"github.com/erp/bridge/internal/infrastructure/persistence"
	"github.com/erp/bridge/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const erpFixture = `
tables:
  Steuer:
    rows:
      - {Nr: "1", Bez: "Normal", Satz: 19}
      - {Nr: "2", Bez: "Ermaessigt", Satz: 7}
      - {Nr: "3", Bez: "Kaputt", Satz: 150}
  Wgr:
    rows:
      - {Nr: "10", Bez: "Werkzeug", VNr: "", GeaendertAm: "2024-01-10"}
      - {Nr: "50", Bez: "Schrauben", VNr: "10", Bild: "schrauben.jpg", GeaendertAm: "2024-01-10"}
  Art:
    rows:
      - {ArtNr: "204116", Bez: "Schraube M4", Bestand: 10, StSchl: "1", Wgr: "50", Bilder: "204116.jpg", VkPreis: 19.99, WebAktiv: "J", GeaendertAm: "2024-02-01"}
      - {ArtNr: "100001", Bez: "Mutter M4", Bestand: 3, StSchl: "9", Wgr: "99", VkPreis: 1.5, WebAktiv: "J", GeaendertAm: "2024-02-01"}
  Adr:
    rows:
      - {Nr: "10001", EMail: "Erika@Example.com", UStIdNr: "DE123456789", Na1: "Muster GmbH", GeaendertAm: "2024-03-01"}
  Ans:
    rows:
      - {AdrNr: "10001", AnsNr: 1, Na1: "Muster GmbH", Na2: "Erika Muster", Str: "Hauptstr. 1", PLZ: "10115", Ort: "Berlin", Land: "de", StdReKz: "J", StdLiKz: "J"}
  Asp:
    rows:
      - {AdrNr: "10001", AnsNr: 1, AspNr: 1, Anr: "Frau", VNa: "Erika", NNa: "Muster"}
`

// testEnv wires synchronizers to an in-memory ERP, a sqlite bridge database
// and a fake platform.
type testEnv struct {
	ctx      context.Context
	db       *gorm.DB
	scope    syncer.TransactionScope
	repos    syncer.Repositories
	conn     *infraerp.MemoryConnection
	platform *fakePlatform
	media    *fakeMediaStore
	deps     syncer.Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	fixture, err := infraerp.ParseFixture([]byte(erpFixture))
	require.NoError(t, err)
	conn := infraerp.NewMemoryConnection(fixture)
	session := infraerp.NewSession(func(context.Context) (erp.Connection, error) {
		return conn, nil
	}, nil)

	opts := mapping.DefaultOptions()
	opts.CurrencyID = "currency-eur"
	opts.MediaFolderID = "folder-products"

	env := &testEnv{
		ctx:      context.Background(),
		db:       db,
		scope:    persistence.NewGormTransactionScope(db),
		repos:    persistence.NewGormRepositories(db),
		conn:     conn,
		platform: newFakePlatform(),
		media: &fakeMediaStore{files: map[string]fakeFile{
			"204116.jpg": {content: "jpeg-bytes", contentType: "image/jpeg", modifiedAt: time.Now()},
			"archiv.png": {content: "png", contentType: "image/png", modifiedAt: time.Now().AddDate(-1, 0, 0)},
		}},
	}
	env.deps = syncer.Dependencies{
		Scope:    env.scope,
		ERP:      session,
		Platform: env.platform,
		Media:    env.media,
		Options:  opts,
		Numbers:  bridge.ErpNumberRange{Min: 10000, Max: 69999},
		PageSize: 2,
	}
	return env
}

// saveMarketplace stores a marketplace with a price rule and factor
func (e *testEnv) saveMarketplace(t *testing.T, platformID, ruleID, factor string) *bridge.Marketplace {
	t.Helper()
	m, err := bridge.NewMarketplace(platformID)
	require.NoError(t, err)
	m.Name = "Shop " + platformID
	m.PriceRuleID = ruleID
	m.PriceFactor = decimal.RequireFromString(factor)
	require.NoError(t, e.repos.Marketplaces().Save(e.ctx, m))
	return m
}

// erpRows returns the given fields of every row of table within key range
func (e *testEnv) erpRows(t *testing.T, table, index string, key []any, fields ...string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	err := erp.WithDataset(e.ctx, e.conn, table, func(ds erp.Dataset) error {
		if err := ds.SetRange(index, key, key); err != nil {
			return err
		}
		return erp.ForEach(ds, func(rec *erp.Record) error {
			row := make(map[string]any, len(fields))
			for _, f := range fields {
				v, err := rec.Get(f)
				if err != nil {
					return err
				}
				row[f] = v
			}
			rows = append(rows, row)
			return nil
		})
	})
	require.NoError(t, err)
	return rows
}
