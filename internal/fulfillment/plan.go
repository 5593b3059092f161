package fulfillment

import "inventoryledger/internal/inventory"

// Transition is one order status change reported by order management.
type Transition struct {
	OrderID string
	From    Status
	To      Status
	// ProductionQuantity, when positive, replaces every line item's quantity
	// on producing -> produced.
	ProductionQuantity int64
	// FulfilledFromStock marks orders served from existing inventory rather
	// than new production.
	FulfilledFromStock bool
}

// LineItem is one (product, quantity) entry of an order as placed.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type action int

const (
	actionNone action = iota
	actionProduce
	actionRestock
)

func (a action) String() string {
	switch a {
	case actionProduce:
		return "produce"
	case actionRestock:
		return "restock"
	default:
		return "none"
	}
}

// classify is the transition table. pending_approval -> producing is
// recognized but moves no stock, as does producing -> produced for orders
// fulfilled from stock.
func classify(t Transition) action {
	if _, ok := statuses[t.From]; !ok {
		return actionNone
	}
	switch {
	case t.To == StatusCancelled && !t.From.Terminal():
		return actionRestock
	case t.From == StatusProducing && t.To == StatusProduced && !t.FulfilledFromStock:
		return actionProduce
	default:
		return actionNone
	}
}

type plannedAdjustment struct {
	productID string
	delta     int64
	kind      inventory.Kind
}

// plan expands a classified transition into one adjustment per line item,
// in line-item order.
func plan(a action, t Transition, items []LineItem) []plannedAdjustment {
	if a == actionNone {
		return nil
	}
	out := make([]plannedAdjustment, 0, len(items))
	for _, item := range items {
		switch a {
		case actionProduce:
			qty := item.Quantity
			if t.ProductionQuantity > 0 {
				qty = t.ProductionQuantity
			}
			out = append(out, plannedAdjustment{productID: item.ProductID, delta: qty, kind: inventory.KindProductionCompleted})
		case actionRestock:
			out = append(out, plannedAdjustment{productID: item.ProductID, delta: item.Quantity, kind: inventory.KindCancellationRestock})
		}
	}
	return out
}

func distinctProducts(items []LineItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item.ProductID] = struct{}{}
	}
	return len(seen)
}
