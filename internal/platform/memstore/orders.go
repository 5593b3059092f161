package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"inventoryledger/internal/fulfillment"
)

// Orders is an in-memory fulfillment.LineItemSource.
type Orders struct {
	mu    sync.RWMutex
	items map[string][]fulfillment.LineItem
}

var _ fulfillment.LineItemSource = (*Orders)(nil)

func NewOrders() *Orders {
	return &Orders{items: make(map[string][]fulfillment.LineItem)}
}

// Put replaces the line items of an order.
func (o *Orders) Put(orderID string, items ...fulfillment.LineItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[orderID] = slices.Clone(items)
}

// LineItems returns a copy of the order's items; unknown orders have none.
func (o *Orders) LineItems(ctx context.Context, orderID string) ([]fulfillment.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.items[orderID]), nil
}

// Seed is the JSON document accepted by LoadSeed.
type Seed struct {
	Inventory map[string]int64                   `json:"inventory"`
	Orders    map[string][]fulfillment.LineItem `json:"orders"`
}

// LoadSeed builds a Store and Orders from a JSON seed document.
func LoadSeed(r io.Reader) (*Store, *Orders, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, nil, fmt.Errorf("decode seed: %w", err)
	}

	store := New()
	for productID, qty := range seed.Inventory {
		store.Set(productID, qty)
	}
	orders := NewOrders()
	for orderID, items := range seed.Orders {
		for _, item := range items {
			if item.Quantity <= 0 {
				return nil, nil, fmt.Errorf("order %s: product %s has non-positive quantity %d", orderID, item.ProductID, item.Quantity)
			}
		}
		orders.Put(orderID, items...)
	}
	return store, orders, nil
}
