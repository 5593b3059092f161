package fulfillment

import (
	"testing"

	"inventoryledger/internal/inventory"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		t    Transition
		want action
	}{
		{"production completes", Transition{From: StatusProducing, To: StatusProduced}, actionProduce},
		{"production from stock", Transition{From: StatusProducing, To: StatusProduced, FulfilledFromStock: true}, actionNone},
		{"approval", Transition{From: StatusPendingApproval, To: StatusProducing}, actionNone},
		{"approval from stock", Transition{From: StatusPendingApproval, To: StatusProducing, FulfilledFromStock: true}, actionNone},
		{"cancel pending", Transition{From: StatusPendingApproval, To: StatusCancelled}, actionRestock},
		{"cancel ready", Transition{From: StatusReady, To: StatusCancelled, FulfilledFromStock: true}, actionRestock},
		{"cancel cancelled", Transition{From: StatusCancelled, To: StatusCancelled}, actionNone},
		{"preparing", Transition{From: StatusProduced, To: StatusPreparing}, actionNone},
		{"unknown from", Transition{From: "shipped", To: StatusCancelled}, actionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.t))
		})
	}
}

func TestPlanKeepsLineItemOrder(t *testing.T) {
	items := []LineItem{{ProductID: "B", Quantity: 2}, {ProductID: "A", Quantity: 3}, {ProductID: "B", Quantity: 1}}

	got := plan(actionRestock, Transition{}, items)
	assert.Equal(t, []plannedAdjustment{
		{productID: "B", delta: 2, kind: inventory.KindCancellationRestock},
		{productID: "A", delta: 3, kind: inventory.KindCancellationRestock},
		{productID: "B", delta: 1, kind: inventory.KindCancellationRestock},
	}, got)
	assert.Equal(t, 2, distinctProducts(items))
}

func TestPlanProductionQuantity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "items")
		items := make([]LineItem, n)
		for i := range items {
			items[i] = LineItem{
				ProductID: rapid.StringMatching(`P[0-9]`).Draw(t, "product"),
				Quantity:  rapid.Int64Range(1, 1000).Draw(t, "quantity"),
			}
		}
		override := rapid.Int64Range(0, 1000).Draw(t, "production_quantity")

		got := plan(actionProduce, Transition{ProductionQuantity: override}, items)
		if len(got) != len(items) {
			t.Fatalf("planned %d adjustments for %d items", len(got), len(items))
		}
		for i, adj := range got {
			want := items[i].Quantity
			if override > 0 {
				want = override
			}
			if adj.productID != items[i].ProductID || adj.delta != want || adj.kind != inventory.KindProductionCompleted {
				t.Fatalf("item %d: got %+v, want %s +%d", i, adj, items[i].ProductID, want)
			}
		}
	})
}

func TestPlanNone(t *testing.T) {
	assert.Empty(t, plan(actionNone, Transition{}, []LineItem{{ProductID: "P", Quantity: 1}}))
}
