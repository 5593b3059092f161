package fulfillment

import (
	"errors"
	"fmt"

	"inventoryledger/internal/inventory"
)

var (
	// ErrOrderNotFound is returned when an order has no line items.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPartialStockUpdateFailed matches every *PartialStockUpdateError.
	ErrPartialStockUpdateFailed = errors.New("partial stock update failed")
	// ErrMalformedMessage marks events that can never be applied, however often
	// they are redelivered.
	ErrMalformedMessage = errors.New("malformed order status event")
)

// PartialStockUpdateError reports an adjustment that failed mid-transition.
// The transaction was rolled back, so Applied lists adjustments that were
// made before the failure but are not committed.
type PartialStockUpdateError struct {
	OrderID   string
	ProductID string
	Applied   []inventory.StockAdjustment
	Err       error
}

func (e *PartialStockUpdateError) Error() string {
	return fmt.Sprintf("stock update for order %s failed at product %s after %d adjustments: %v",
		e.OrderID, e.ProductID, len(e.Applied), e.Err)
}

func (e *PartialStockUpdateError) Unwrap() []error {
	return []error{ErrPartialStockUpdateFailed, e.Err}
}
