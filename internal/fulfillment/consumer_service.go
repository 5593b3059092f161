package fulfillment

import (
	"context"
	"errors"
	"time"

	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/kafka"
	"inventoryledger/internal/platform/observability"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultRetryInitialInterval = 200 * time.Millisecond
	DefaultRetryMaxInterval     = 30 * time.Second
)

type ConsumerService interface {
	Start(ctx context.Context) error
}

// ConsumerOption configures a KafkaConsumerService.
type ConsumerOption func(*KafkaConsumerService)

// WithRetryBackOff sets the wait policy between attempts at a failing message.
func WithRetryBackOff(newBackOff func() backoff.BackOff) ConsumerOption {
	return func(c *KafkaConsumerService) {
		c.newBackOff = newBackOff
	}
}

// KafkaConsumerService feeds OrderStatusChanged messages to a MessageHandler
// until its context ends. A message's offset is committed only once it has
// been applied or found unusable; any other failure retries the same message,
// so the partition does not move past a transition that never took effect.
type KafkaConsumerService struct {
	consumer       kafka.Consumer
	messageHandler MessageHandler
	logger         observability.Logger
	newBackOff     func() backoff.BackOff
}

func NewConsumerService(consumer kafka.Consumer, messageHandler MessageHandler, logger observability.Logger, opts ...ConsumerOption) *KafkaConsumerService {
	c := &KafkaConsumerService{
		consumer:       consumer,
		messageHandler: messageHandler,
		logger:         logger,
		newBackOff:     defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultRetryInitialInterval
	b.MaxInterval = DefaultRetryMaxInterval
	b.MaxElapsedTime = 0
	return b
}

func (c *KafkaConsumerService) Start(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for order status changes...")

	for {
		msg, err := c.consumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("Error reading from Kafka", zap.Error(err))
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Only a finished context stops the retries; the offset stays
			// uncommitted and the message is redelivered after restart.
			c.logger.Info("Context done while retrying message, leaving offset uncommitted",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			break
		}

		if err := c.consumer.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("Failed to commit offset", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}

	c.logger.Info("Consumer service finished.")
	return nil
}

// handle runs the handler until it succeeds or fails permanently.
func (c *KafkaConsumerService) handle(ctx context.Context, msg kafkago.Message) error {
	attempt := func() error {
		err := c.messageHandler.HandleOrderStatusChanged(ctx, msg)
		if err == nil {
			return nil
		}
		if permanent(err) {
			c.logger.Warn("Skipping message that cannot be applied",
				zap.Error(err),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying message",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.Duration("wait", wait),
		)
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(c.newBackOff(), ctx), notify)
}

func permanent(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, inventory.ErrQuantityOutOfRange)
}
