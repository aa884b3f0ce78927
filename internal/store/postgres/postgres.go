// Package postgres is the pgx-backed implementation of store.Store: a
// pgxpool.Pool, a context-bounded Ping on startup, and an idempotent
// forward-only migration runner over a versioned migration list.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bedecarroll/unet-sub002/internal/store"
)

var _ store.Store = (*Store)(nil)

// Config configures the pool.
type Config struct {
	Logger *slog.Logger

	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.MinConns <= 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return nil
}

// Store implements store.Store against a single Postgres database.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// Open connects, pings, and runs pending migrations, returning a ready
// store.Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("postgres: invalid config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	// The database is often still coming up when the daemon starts; retry
	// the ping with exponential backoff until the connect timeout expires.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	if _, err := backoff.Retry(connectCtx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(connectCtx)
	}, backoff.WithBackOff(bo)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{log: cfg.Logger, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

// queryer is the subset of pgxpool.Pool/pgx.Tx that row-level CRUD code
// needs; it lets every Get/List/Create method run unmodified whether or not
// the caller passed a *store.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q resolves the queryer to use: the transaction's underlying pgx.Tx when
// tx is non-nil, else the pool itself (auto-commit per statement).
func (s *Store) q(tx *store.Tx) queryer {
	if tx != nil {
		if u := tx.Unwrap(); u != nil {
			if pt, ok := u.(pgx.Tx); ok {
				return pt
			}
		}
	}
	return s.pool
}
