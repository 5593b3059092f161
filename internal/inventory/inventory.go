package inventory

import (
	"context"
	"time"
)

// Kind identifies why a stock adjustment was applied.
type Kind string

const (
	KindProductionCompleted Kind = "production_completed"
	KindCancellationRestock Kind = "cancellation_restock"
)

// Record is the quantity-on-hand of one product. Quantity may be negative,
// which means more units are committed than are on hand.
type Record struct {
	ProductID string    `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockAdjustment describes one applied change to a product's quantity.
type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
	Delta     int64  `json:"delta"`
	Kind      Kind   `json:"kind"`
}

// Ledger is the set of quantity operations. Every write goes through Adjust.
type Ledger interface {
	// GetOrInit returns the current quantity, creating the record at 0 if absent.
	GetOrInit(ctx context.Context, productID string) (int64, error)
	// Get returns the record or ErrProductNotRegistered.
	Get(ctx context.Context, productID string) (Record, error)
	// Adjust adds delta in one atomic read-modify-write and returns the
	// quantities before and after.
	Adjust(ctx context.Context, productID string, delta int64) (previous, current int64, err error)
}

// Store is a Ledger that can group adjustments into one transaction.
type Store interface {
	Ledger
	// WithinTx runs fn against a transaction-scoped Ledger. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Ledger) error) error
}
