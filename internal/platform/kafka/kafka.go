package kafka

import (
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ReaderConfig describes the consumer side.
type ReaderConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

// WriterConfig describes the producer side.
type WriterConfig struct {
	Broker       string
	Topic        string
	ClientID     string
	BatchTimeout time.Duration
	BatchSize    int
}

// NewConsumer creates a consumer-group reader with explicit commits. Trace
// context travels in the message headers and is restored by the handler.
func NewConsumer(cfg ReaderConfig) (Consumer, error) {
	if cfg.Broker == "" || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka reader needs broker, topic and group id")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Broker},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	}), nil
}

// NewProducer creates a writer that injects trace context into message headers.
func NewProducer(cfg WriterConfig, tp trace.TracerProvider) (Producer, error) {
	baseWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		BatchSize:    cfg.BatchSize,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(cfg.Topic),
				attribute.String("messaging.kafka.client_id", cfg.ClientID),
			},
		),
	)
	if err != nil {
		_ = baseWriter.Close()
		return nil, err
	}
	return writer, nil
}
