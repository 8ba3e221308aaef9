// Package erp provides the process-wide ERP session and the in-memory ERP driver.
package erp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Connector opens a new ERP connection
type Connector func(ctx context.Context) (erp.Connection, error)

// Session owns the single ERP connection of the process. The ERP automation
// interface is not safe for concurrent use, so every caller goes through Do,
// which serializes access and connects on first use.
type Session struct {
	mu      sync.Mutex
	connect Connector
	conn    erp.Connection
	logger  *zap.Logger
}

// NewSession creates a session that connects lazily through connect
func NewSession(connect Connector, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{connect: connect, logger: logger.Named("erp")}
}

// NewSessionFromConfig builds a session for the configured driver
func NewSessionFromConfig(cfg *config.ERPConfig, logger *zap.Logger) (*Session, error) {
	switch cfg.Driver {
	case "", "memory":
		var opts []MemoryOption
		if cfg.PersistFixture && cfg.FixturePath != "" {
			opts = append(opts, WithPersistPath(cfg.FixturePath))
		}
		path := cfg.FixturePath
		return NewSession(func(ctx context.Context) (erp.Connection, error) {
			if path == "" {
				return NewMemoryConnection(nil, opts...), nil
			}
			f, err := LoadFixture(path)
			if err != nil {
				return nil, err
			}
			return NewMemoryConnection(f, opts...), nil
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported erp driver %q", cfg.Driver)
	}
}

// Do runs fn with exclusive use of the connection
func (s *Session) Do(ctx context.Context, fn func(conn erp.Connection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.conn == nil {
		conn, err := s.connect(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", erp.ErrNotConnected, err)
		}
		s.conn = conn
		s.logger.Info("ERP connection opened")
	}
	return fn(s.conn)
}

// Transaction runs fn inside an ERP transaction. Any error from fn rolls the
// transaction back.
func (s *Session) Transaction(ctx context.Context, fn func(conn erp.Connection) error) error {
	return s.Do(ctx, func(conn erp.Connection) error {
		if err := conn.StartTransaction(ctx); err != nil {
			return err
		}
		if err := fn(conn); err != nil {
			if rbErr := conn.Rollback(ctx); rbErr != nil {
				s.logger.Error("ERP rollback failed", zap.Error(rbErr))
				return errors.Join(err, rbErr)
			}
			return err
		}
		return conn.Commit(ctx)
	})
}

// Close releases the connection. The session reconnects on the next Do.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.logger.Info("ERP connection closed")
	return err
}
