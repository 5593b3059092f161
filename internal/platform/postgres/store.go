package postgres

import (
	"context"
	"errors"
	"fmt"

	"inventoryledger/internal/fulfillment"
	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/observability"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// The no-op DO UPDATE waits for a concurrent insert of the same product
	// and always returns a row, unlike DO NOTHING plus a separate SELECT.
	getOrInitSQL = `
		INSERT INTO inventory (product_id, quantity, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (product_id) DO UPDATE
		SET product_id = EXCLUDED.product_id
		RETURNING quantity`

	getSQL = `SELECT product_id, quantity, updated_at FROM inventory WHERE product_id = $1`

	// The upsert row-locks the product, so concurrent adjustments serialize
	// and each one sees the previous one's result.
	adjustSQL = `
		INSERT INTO inventory (product_id, quantity, updated_at)
		VALUES ($1, $2::BIGINT, NOW())
		ON CONFLICT (product_id) DO UPDATE
		SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING quantity - $2::BIGINT, quantity`

	lineItemsSQL = `SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY position`

	insertLineItemSQL = `
		INSERT INTO order_items (order_id, position, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, position) DO UPDATE
		SET product_id = EXCLUDED.product_id, quantity = EXCLUDED.quantity`
)

const numericValueOutOfRange = "22003"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres inventory.Store and fulfillment.LineItemSource.
type Store struct {
	pool   *pgxpool.Pool
	tracer observability.Tracer
	ledger
}

var (
	_ inventory.Store            = (*Store)(nil)
	_ fulfillment.LineItemSource = (*Store)(nil)
)

// NewStore creates a Store over an open pool.
func NewStore(pool *pgxpool.Pool, tracer observability.Tracer) *Store {
	return &Store{
		pool:   pool,
		tracer: tracer,
		ledger: ledger{q: pool, tracer: tracer},
	}
}

// WithinTx runs fn inside a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Ledger) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, ledger{q: tx, tracer: s.tracer})
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// LineItems reads an order's items in placement order.
func (s *Store) LineItems(ctx context.Context, orderID string) ([]fulfillment.LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.order_items.select")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("order.id", orderID))

	rows, err := s.pool.Query(ctx, lineItemsSQL, orderID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, unavailable(err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fulfillment.LineItem, error) {
		var item fulfillment.LineItem
		err := row.Scan(&item.ProductID, &item.Quantity)
		return item, err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, unavailable(err)
	}
	return items, nil
}

// PutLineItems stores an order's items. Order management owns this table;
// the ledger only writes it for local seeding and tests.
func (s *Store) PutLineItems(ctx context.Context, orderID string, items ...fulfillment.LineItem) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i, item := range items {
			if _, err := tx.Exec(ctx, insertLineItemSQL, orderID, i, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("insert line item %d of order %s: %w", i, orderID, unavailable(err))
			}
		}
		return nil
	})
}

// ledger runs the quantity statements against a pool or a transaction.
type ledger struct {
	q      querier
	tracer observability.Tracer
}

func (l ledger) GetOrInit(ctx context.Context, productID string) (int64, error) {
	var qty int64
	if err := l.q.QueryRow(ctx, getOrInitSQL, productID).Scan(&qty); err != nil {
		return 0, fmt.Errorf("get or init %s: %w", productID, unavailable(err))
	}
	return qty, nil
}

func (l ledger) Get(ctx context.Context, productID string) (inventory.Record, error) {
	var rec inventory.Record
	err := l.q.QueryRow(ctx, getSQL, productID).Scan(&rec.ProductID, &rec.Quantity, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, fmt.Errorf("%w: %s", inventory.ErrProductNotRegistered, productID)
	}
	if err != nil {
		return inventory.Record{}, fmt.Errorf("get %s: %w", productID, unavailable(err))
	}
	return rec, nil
}

func (l ledger) Adjust(ctx context.Context, productID string, delta int64) (int64, int64, error) {
	ctx, span := l.tracer.Start(ctx, "postgres.inventory.adjust")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("product.id", productID),
		attribute.Int64("inventory.delta", delta),
	)

	var prev, cur int64
	if err := l.q.QueryRow(ctx, adjustSQL, productID, delta).Scan(&prev, &cur); err != nil {
		span.SetStatus(codes.Error, err.Error())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == numericValueOutOfRange {
			return 0, 0, fmt.Errorf("%w: %s by %d: %w", inventory.ErrQuantityOutOfRange, productID, delta, err)
		}
		return 0, 0, fmt.Errorf("adjust %s by %d: %w", productID, delta, unavailable(err))
	}
	return prev, cur, nil
}
