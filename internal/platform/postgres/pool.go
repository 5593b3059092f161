package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"inventoryledger/internal/inventory"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool limits
const (
	MaxConns        = 25
	MinConns        = 2
	MaxConnLifetime = time.Hour
	MaxConnIdleTime = 30 * time.Minute
	PingTimeout     = 5 * time.Second
)

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = MaxConns
	cfg.MinConns = MinConns
	cfg.MaxConnLifetime = MaxConnLifetime
	cfg.MaxConnIdleTime = MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", unavailable(err))
	}
	return pool, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id TEXT PRIMARY KEY,
		quantity BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (order_id, position)
	)`,
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", unavailable(err))
		}
	}
	return nil
}

// unavailable tags connection-level failures with inventory.ErrStorageUnavailable
// and passes every other error through.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", inventory.ErrStorageUnavailable, err)
	}
	return err
}
