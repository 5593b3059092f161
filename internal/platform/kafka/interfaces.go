package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes StockAdjusted events.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer reads OrderStatusChanged events. Offsets advance only through
// CommitMessages, after a message has been handled.
type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
