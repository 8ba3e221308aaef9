package erp

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ConnectsLazilyOnce(t *testing.T) {
	connects := 0
	s := NewSession(func(context.Context) (erp.Connection, error) {
		connects++
		return newTestConnection(t), nil
	}, nil)

	assert.Equal(t, 0, connects)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Do(context.Background(), func(erp.Connection) error { return nil }))
	}
	assert.Equal(t, 1, connects)

	require.NoError(t, s.Close())
	require.NoError(t, s.Do(context.Background(), func(erp.Connection) error { return nil }))
	assert.Equal(t, 2, connects)
}

func TestSession_ConnectFailure(t *testing.T) {
	s := NewSession(func(context.Context) (erp.Connection, error) {
		return nil, errors.New("license server unreachable")
	}, nil)

	err := s.Do(context.Background(), func(erp.Connection) error { return nil })
	assert.ErrorIs(t, err, erp.ErrNotConnected)
}

func TestSession_Transaction(t *testing.T) {
	conn := newTestConnection(t)
	s := NewSession(func(context.Context) (erp.Connection, error) { return conn, nil }, nil)
	ctx := context.Background()

	appendArticle := func(c erp.Connection, nr string) error {
		return erp.WithDataset(ctx, c, erp.TableArticles, func(ds erp.Dataset) error {
			if err := ds.Append(); err != nil {
				return err
			}
			if err := erp.NewRecord(ds).Set(erp.ArtNr, nr); err != nil {
				return err
			}
			return ds.Post()
		})
	}

	t.Run("rolls back on error", func(t *testing.T) {
		err := s.Transaction(ctx, func(c erp.Connection) error {
			require.NoError(t, appendArticle(c, "777777"))
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Len(t, conn.Fixture().Tables[erp.TableArticles].Rows, 3)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := s.Transaction(ctx, func(c erp.Connection) error {
			return appendArticle(c, "777777")
		})
		require.NoError(t, err)
		assert.Len(t, conn.Fixture().Tables[erp.TableArticles].Rows, 4)
	})
}

func TestNewSessionFromConfig(t *testing.T) {
	s, err := NewSessionFromConfig(&config.ERPConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	err = s.Do(context.Background(), func(c erp.Connection) error {
		return erp.WithDataset(context.Background(), c, erp.TableAddresses, func(ds erp.Dataset) error {
			require.NoError(t, ds.First())
			assert.True(t, ds.EOF())
			return nil
		})
	})
	require.NoError(t, err)

	_, err = NewSessionFromConfig(&config.ERPConfig{Driver: "ole"}, nil)
	assert.Error(t, err)
}
