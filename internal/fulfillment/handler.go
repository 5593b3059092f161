package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventoryledger/internal/platform/guard"
	"inventoryledger/internal/platform/kafka"
	"inventoryledger/internal/platform/observability"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageHandler processes one incoming message.
type MessageHandler interface {
	HandleOrderStatusChanged(ctx context.Context, msg kafkago.Message) error
}

// TransitionGuard makes sure a transition reaches the coordinator at most once.
type TransitionGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// KafkaMessageHandler applies OrderStatusChanged events and publishes the
// resulting StockAdjusted events.
type KafkaMessageHandler struct {
	coordinator Applier
	producer    kafka.Producer
	guard       TransitionGuard
	logger      observability.Logger
	now         func() time.Time
}

// NewMessageHandler creates a MessageHandler with explicit dependencies.
func NewMessageHandler(coordinator Applier, producer kafka.Producer, guard TransitionGuard, logger observability.Logger) *KafkaMessageHandler {
	return &KafkaMessageHandler{
		coordinator: coordinator,
		producer:    producer,
		guard:       guard,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleOrderStatusChanged processes one OrderStatusChanged message.
func (h *KafkaMessageHandler) HandleOrderStatusChanged(ctx context.Context, msg kafkago.Message) error {
	msgCtx := h.extractTraceContext(ctx, msg.Headers)

	h.logger.Debug("Raw Kafka message received",
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var event OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Invalid JSON in OrderStatusChanged event",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return fmt.Errorf("%w: decode OrderStatusChanged: %w", ErrMalformedMessage, err)
	}

	t, err := event.Transition()
	if err != nil {
		h.logger.Error("Rejected OrderStatusChanged event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	key := guard.Key(t.OrderID, t.From.String(), t.To.String())
	claimed, err := h.guard.Claim(msgCtx, key)
	if err != nil {
		h.logger.Error("Failed to claim transition", zap.Error(err), zap.String("key", key))
		return err
	}
	if !claimed {
		h.logger.Info("Transition already applied, skipping",
			zap.String("order_id", t.OrderID),
			zap.String("event_id", event.EventID),
		)
		return nil
	}

	results, err := h.coordinator.ApplyTransition(msgCtx, t)
	if err != nil {
		h.logger.Error("Failed to apply transition", zap.Error(err), zap.String("order_id", t.OrderID))
		if relErr := h.guard.Release(msgCtx, key); relErr != nil {
			h.logger.Error("Failed to release transition claim", zap.Error(relErr), zap.String("key", key))
		}
		return err
	}
	if len(results) == 0 {
		return nil
	}

	return h.publishStockAdjusted(msgCtx, &StockAdjustedEvent{
		EventID:     uuid.NewString(),
		OrderID:     t.OrderID,
		From:        t.From,
		To:          t.To,
		Adjustments: results,
		OccurredAt:  h.now().UTC(),
	})
}

// extractTraceContext links the handler's spans to the producer's trace.
func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (h *KafkaMessageHandler) publishStockAdjusted(ctx context.Context, event *StockAdjustedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize StockAdjusted event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	}
	if err := h.producer.WriteMessage(ctx, msg); err != nil {
		h.logger.Error("Failed to publish StockAdjusted event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return err
	}

	h.logger.Info("Sent StockAdjusted event",
		zap.String("order_id", event.OrderID),
		zap.String("event_id", event.EventID),
		zap.Int("adjustments", len(event.Adjustments)),
	)
	return nil
}
