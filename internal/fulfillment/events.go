package fulfillment

import (
	"time"

	"inventoryledger/internal/inventory"
)

// OrderStatusChangedEvent is published by order management when an order's
// status is updated.
type OrderStatusChangedEvent struct {
	EventID            string `json:"event_id,omitempty"`
	OrderID            string `json:"order_id"`
	From               string `json:"from"`
	To                 string `json:"to"`
	ProductionQuantity int64  `json:"production_quantity,omitempty"`
	FulfilledFromStock bool   `json:"fulfilled_from_stock,omitempty"`
}

// StockAdjustedEvent is published after a transition commits at least one adjustment.
type StockAdjustedEvent struct {
	EventID     string                      `json:"event_id"`
	OrderID     string                      `json:"order_id"`
	From        Status                      `json:"from"`
	To          Status                      `json:"to"`
	Adjustments []inventory.StockAdjustment `json:"adjustments"`
	OccurredAt  time.Time                   `json:"occurred_at"`
}

// Transition parses the event's status codes.
func (e OrderStatusChangedEvent) Transition() (Transition, error) {
	from, err := ParseStatus(e.From)
	if err != nil {
		return Transition{}, err
	}
	to, err := ParseStatus(e.To)
	if err != nil {
		return Transition{}, err
	}
	return Transition{
		OrderID:            e.OrderID,
		From:               from,
		To:                 to,
		ProductionQuantity: e.ProductionQuantity,
		FulfilledFromStock: e.FulfilledFromStock,
	}, nil
}
