package syncer_test

import (
	"testing"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxSynchronizer_ToBridge(t *testing.T) {
	env := newTestEnv(t)
	s := syncer.NewTaxSynchronizer(env.deps)

	t.Run("syncs all and skips unmappable rows", func(t *testing.T) {
		report, err := s.SyncAllToBridge(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, syncer.StatusSuccess, report.Status)
		assert.Equal(t, 3, report.Total)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 1, report.Skipped)

		tax, err := env.repos.Taxes().FindByErpNr(env.ctx, "1")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(19).Equal(tax.Rate))
		assert.Equal(t, "Normal", tax.Description)
	})

	t.Run("sync one is idempotent and keeps ids", func(t *testing.T) {
		before, err := env.repos.Taxes().FindByErpNr(env.ctx, "2")
		require.NoError(t, err)

		res, err := s.SyncOneToBridge(env.ctx, "2")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, res.Created)
		assert.Equal(t, before.ID, res.ID)

		after, err := env.repos.Taxes().FindByErpNr(env.ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, before.PlatformID, after.PlatformID)
	})

	t.Run("unknown number fails without error", func(t *testing.T) {
		res, err := s.SyncOneToBridge(env.ctx, "77")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.False(t, res.Skipped)
		assert.Equal(t, "77", res.Key)
	})

	t.Run("to-bridge changed syncs everything", func(t *testing.T) {
		report, err := s.SyncChangedToBridge(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Total)
	})
}

func TestTaxSynchronizer_FromBridge(t *testing.T) {
	env := newTestEnv(t)
	s := syncer.NewTaxSynchronizer(env.deps)
	_, err := s.SyncAllToBridge(env.ctx)
	require.NoError(t, err)
	tax, err := env.repos.Taxes().FindByErpNr(env.ctx, "1")
	require.NoError(t, err)

	t.Run("creates missing platform taxes", func(t *testing.T) {
		report, err := s.SyncAllFromBridge(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, syncer.StatusSuccess, report.Status)
		assert.Equal(t, 2, report.Succeeded)

		rec, ok := env.platform.get(platform.EntityTax, tax.PlatformID)
		require.True(t, ok)
		assert.Equal(t, "Normal", rec.String("name"))
		assert.True(t, decimal.NewFromInt(19).Equal(rec.Decimal("taxRate")))
	})

	t.Run("updates existing platform tax", func(t *testing.T) {
		res, err := s.SyncOneFromBridge(env.ctx, "1")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, res.Created)
		assert.Contains(t, env.platform.callsOf("update tax"), "update tax "+tax.PlatformID)
	})

	t.Run("unknown bridge key fails", func(t *testing.T) {
		res, err := s.SyncOneFromBridge(env.ctx, "99")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("platform write failure fails the record", func(t *testing.T) {
		env.platform.failOn("update", platform.EntityTax, platform.ErrUnavailable)
		res, err := s.SyncOneFromBridge(env.ctx, "1")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "cross-system write failed")
	})

	t.Run("changed run advances the marker", func(t *testing.T) {
		env.platform.failOn("update", platform.EntityTax, nil)
		report, err := s.SyncChangedFromBridge(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, syncer.StatusSuccess, report.Status)

		marker, err := env.repos.SyncMarkers().Get(env.ctx, "tax", "from")
		require.NoError(t, err)
		assert.False(t, marker.SyncedAt.IsZero())
	})
}

func TestTaxSynchronizer_PlatformNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Platform = nil
	s := syncer.NewTaxSynchronizer(env.deps)
	_, err := s.SyncAllToBridge(env.ctx)
	require.NoError(t, err)

	report, err := s.SyncAllFromBridge(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.StatusFailed, report.Status)
	assert.Equal(t, 2, report.Failed)
}
