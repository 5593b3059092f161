package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LineItemSource reads the line items of an order as placed.
type LineItemSource interface {
	LineItems(ctx context.Context, orderID string) ([]LineItem, error)
}

// Applier is what callers of the coordinator depend on.
type Applier interface {
	ApplyTransition(ctx context.Context, t Transition) ([]inventory.StockAdjustment, error)
}

const (
	outcomeNoop    = "noop"
	outcomeApplied = "applied"
	outcomeFailed  = "failed"
)

// Coordinator turns order status transitions into inventory adjustments.
// It is the only component that decides which transitions move stock.
type Coordinator struct {
	store       inventory.Store
	orders      LineItemSource
	logger      observability.Logger
	tracer      observability.Tracer
	transitions metric.Int64Counter
	adjustments metric.Int64Counter
}

// NewCoordinator creates a Coordinator with explicit dependencies.
func NewCoordinator(store inventory.Store, orders LineItemSource, logger observability.Logger,
	tracer observability.Tracer, meter observability.Meter) (*Coordinator, error) {
	transitions, err := meter.Int64Counter("fulfillment.transitions",
		metric.WithDescription("Order status transitions handled, by action and outcome"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}
	adjustments, err := meter.Int64Counter("inventory.adjustments",
		metric.WithDescription("Committed inventory adjustments, by kind"),
		metric.WithUnit("{adjustment}"))
	if err != nil {
		return nil, fmt.Errorf("create adjustments counter: %w", err)
	}

	return &Coordinator{
		store:       store,
		orders:      orders,
		logger:      logger,
		tracer:      tracer,
		transitions: transitions,
		adjustments: adjustments,
	}, nil
}

// ApplyTransition applies the inventory side effects of t as one unit and
// returns one result per adjusted line item, in line-item order. Transitions
// that move no stock return an empty list without touching storage.
//
// Calling it twice for the same order and transition applies the adjustments
// twice; callers must make sure a transition fires at most once.
func (c *Coordinator) ApplyTransition(ctx context.Context, t Transition) ([]inventory.StockAdjustment, error) {
	ctx, span := c.tracer.Start(ctx, "fulfillment.apply_transition")
	defer span.End()

	act := classify(t)
	span.SetAttributes(
		attribute.String("order.id", t.OrderID),
		attribute.String("order.status.from", t.From.String()),
		attribute.String("order.status.to", t.To.String()),
		attribute.Int64("fulfillment.production_quantity", t.ProductionQuantity),
		attribute.Bool("fulfillment.from_stock", t.FulfilledFromStock),
		attribute.String("fulfillment.action", act.String()),
	)
	log := c.logger.With(
		zap.String("order_id", t.OrderID),
		zap.Stringer("from", t.From),
		zap.Stringer("to", t.To),
	)

	if act == actionNone {
		log.Debug("Transition moves no stock")
		c.countTransition(ctx, act, outcomeNoop)
		span.SetStatus(codes.Ok, "no inventory change")
		return []inventory.StockAdjustment{}, nil
	}

	items, err := c.orders.LineItems(ctx, t.OrderID)
	if err != nil {
		return nil, c.fail(ctx, span, act, fmt.Errorf("load line items for order %s: %w", t.OrderID, err))
	}
	if len(items) == 0 {
		return nil, c.fail(ctx, span, act, fmt.Errorf("%w: %s", ErrOrderNotFound, t.OrderID))
	}

	// TODO: confirm with the product owner whether a production quantity
	// should be split across distinct products instead of repeated.
	if act == actionProduce && t.ProductionQuantity > 0 && distinctProducts(items) > 1 {
		log.Warn("Production quantity applied to every product of a multi-product order",
			zap.Int64("production_quantity", t.ProductionQuantity),
			zap.Int("line_items", len(items)),
		)
	}

	planned := plan(act, t, items)
	var results []inventory.StockAdjustment
	err = c.store.WithinTx(ctx, func(ctx context.Context, tx inventory.Ledger) error {
		results = make([]inventory.StockAdjustment, 0, len(planned))
		for _, p := range planned {
			before, after, err := tx.Adjust(ctx, p.productID, p.delta)
			if err != nil {
				return &PartialStockUpdateError{
					OrderID:   t.OrderID,
					ProductID: p.productID,
					Applied:   slices.Clone(results),
					Err:       err,
				}
			}
			results = append(results, inventory.StockAdjustment{
				ProductID: p.productID,
				Before:    before,
				After:     after,
				Delta:     p.delta,
				Kind:      p.kind,
			})
		}
		return nil
	})
	if err != nil {
		var partial *PartialStockUpdateError
		if errors.As(err, &partial) {
			log.Error("Stock update rolled back",
				zap.String("failed_product_id", partial.ProductID),
				zap.Int("applied_before_failure", len(partial.Applied)),
				zap.Error(partial.Err),
			)
			return nil, c.fail(ctx, span, act, partial)
		}
		return nil, c.fail(ctx, span, act, fmt.Errorf("apply transition for order %s: %w", t.OrderID, err))
	}

	for _, r := range results {
		c.adjustments.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(r.Kind))))
		log.Info("Inventory adjusted",
			zap.String("product_id", r.ProductID),
			zap.Int64("before", r.Before),
			zap.Int64("after", r.After),
			zap.Int64("delta", r.Delta),
		)
	}
	c.countTransition(ctx, act, outcomeApplied)
	span.SetAttributes(attribute.Int("fulfillment.adjustments", len(results)))
	span.SetStatus(codes.Ok, "inventory adjusted")
	return results, nil
}

func (c *Coordinator) fail(ctx context.Context, span trace.Span, act action, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.countTransition(ctx, act, outcomeFailed)
	return err
}

func (c *Coordinator) countTransition(ctx context.Context, act action, outcome string) {
	c.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", act.String()),
		attribute.String("outcome", outcome),
	))
}
