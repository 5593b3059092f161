// Package memstore keeps inventory and order line items in process memory.
// It backs local runs and tests; production deployments use the postgres package.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"inventoryledger/internal/inventory"
)

// Store is an in-memory inventory.Store. A single mutex serializes every
// operation, and WithinTx holds it for the whole transaction.
type Store struct {
	mu      sync.Mutex
	records map[string]*inventory.Record
	now     func() time.Time
}

var _ inventory.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*inventory.Record),
		now:     time.Now,
	}
}

// Set overwrites the quantity of a product, creating it if needed.
func (s *Store) Set(productID string, quantity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[productID] = &inventory.Record{ProductID: productID, Quantity: quantity, UpdatedAt: s.now()}
}

// Len returns the number of product records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) GetOrInit(ctx context.Context, productID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrInitLocked(productID).Quantity, nil
}

func (s *Store) Get(ctx context.Context, productID string) (inventory.Record, error) {
	if err := ctx.Err(); err != nil {
		return inventory.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(productID)
}

func (s *Store) Adjust(ctx context.Context, productID string, delta int64) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(productID, delta)
}

// WithinTx runs fn with the store locked. On error every record touched by
// fn is restored, and records fn created are removed.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txLedger{store: s, undo: make(map[string]*inventory.Record)}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) getLocked(productID string) (inventory.Record, error) {
	rec, ok := s.records[productID]
	if !ok {
		return inventory.Record{}, fmt.Errorf("%w: %s", inventory.ErrProductNotRegistered, productID)
	}
	return *rec, nil
}

func (s *Store) getOrInitLocked(productID string) *inventory.Record {
	rec, ok := s.records[productID]
	if !ok {
		rec = &inventory.Record{ProductID: productID, UpdatedAt: s.now()}
		s.records[productID] = rec
	}
	return rec
}

// adjustLocked fails instead of wrapping around, matching BIGINT in postgres.
func (s *Store) adjustLocked(productID string, delta int64) (int64, int64, error) {
	rec := s.getOrInitLocked(productID)
	prev := rec.Quantity
	if (delta > 0 && prev > math.MaxInt64-delta) || (delta < 0 && prev < math.MinInt64-delta) {
		return 0, 0, fmt.Errorf("%w: %s at %d by %d", inventory.ErrQuantityOutOfRange, productID, prev, delta)
	}
	rec.Quantity += delta
	rec.UpdatedAt = s.now()
	return prev, rec.Quantity, nil
}

// txLedger runs against a Store whose mutex is already held.
type txLedger struct {
	store *Store
	// undo holds the pre-transaction copy of each touched record; nil marks
	// a record created inside the transaction.
	undo map[string]*inventory.Record
}

func (tx *txLedger) remember(productID string) {
	if _, seen := tx.undo[productID]; seen {
		return
	}
	if rec, ok := tx.store.records[productID]; ok {
		snapshot := *rec
		tx.undo[productID] = &snapshot
		return
	}
	tx.undo[productID] = nil
}

func (tx *txLedger) rollback() {
	for productID, snapshot := range tx.undo {
		if snapshot == nil {
			delete(tx.store.records, productID)
			continue
		}
		tx.store.records[productID] = snapshot
	}
}

func (tx *txLedger) GetOrInit(ctx context.Context, productID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tx.remember(productID)
	return tx.store.getOrInitLocked(productID).Quantity, nil
}

func (tx *txLedger) Get(ctx context.Context, productID string) (inventory.Record, error) {
	if err := ctx.Err(); err != nil {
		return inventory.Record{}, err
	}
	return tx.store.getLocked(productID)
}

func (tx *txLedger) Adjust(ctx context.Context, productID string, delta int64) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	tx.remember(productID)
	return tx.store.adjustLocked(productID, delta)
}
