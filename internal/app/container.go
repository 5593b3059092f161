package app

import (
	"context"
	"fmt"
	"os"

	"inventoryledger/internal/config"
	"inventoryledger/internal/fulfillment"
	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/guard"
	"inventoryledger/internal/platform/kafka"
	"inventoryledger/internal/platform/memstore"
	"inventoryledger/internal/platform/observability"
	"inventoryledger/internal/platform/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type transitionGuard interface {
	fulfillment.TransitionGuard
	Close() error
}

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config            *config.Config
	logger            *zap.Logger
	tracer            observability.Tracer
	meter             observability.Meter
	tracerProvider    trace.TracerProvider
	pool              *pgxpool.Pool
	store             inventory.Store
	orders            fulfillment.LineItemSource
	guard             transitionGuard
	messageConsumer   kafka.Consumer
	messageProducer   kafka.Producer
	telemetryShutdown observability.ShutdownFunc
}

// NewContainer creates and initializes all infrastructure components
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	c := &Container{config: cfg}

	if err := c.setupLogger(); err != nil {
		return nil, err
	}
	c.setupObservability(ctx)

	steps := []func(context.Context) error{
		c.setupStore,
		c.setupGuard,
		c.setupKafka,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.Shutdown(context.Background())
			return nil, err
		}
	}
	return c, nil
}

// setupLogger starts with a plain production logger until telemetry is ready.
func (c *Container) setupLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// setupObservability installs OTLP providers when an endpoint is configured.
// Failures are logged and the service keeps running with no-op providers.
func (c *Container) setupObservability(ctx context.Context) {
	if c.config.TelemetryEnabled() {
		logShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
		if err != nil {
			c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
		}
		_, traceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
		if err != nil {
			c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
		}
		metricShutdown, err := observability.SetupMetricsSDK(ctx, c.config)
		if err != nil {
			c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
		}
		c.telemetryShutdown = observability.JoinShutdown(traceShutdown, metricShutdown, logShutdown)
	} else {
		c.logger.Info("OTEL_ENDPOINT not set, telemetry export disabled")
	}

	c.logger = observability.NewLogger(global.GetLoggerProvider(), os.Stdout, zapcore.InfoLevel)
	c.tracerProvider = otel.GetTracerProvider()
	c.tracer = otel.Tracer(config.ServiceName)
	c.meter = otel.Meter(config.ServiceName)
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge")
}

func (c *Container) setupStore(ctx context.Context) error {
	switch c.config.StoreBackend {
	case config.BackendMemory:
		return c.setupMemoryStore()
	default:
		pool, err := postgres.NewPool(ctx, c.config.DatabaseURL)
		if err != nil {
			return err
		}
		c.pool = pool
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		store := postgres.NewStore(pool, c.tracer)
		c.store = store
		c.orders = store
		c.logger.Info("Using postgres inventory store")
		return nil
	}
}

func (c *Container) setupMemoryStore() error {
	if c.config.SeedFile == "" {
		c.store = memstore.New()
		c.orders = memstore.NewOrders()
		c.logger.Warn("Using empty in-memory inventory store")
		return nil
	}

	f, err := os.Open(c.config.SeedFile)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	store, orders, err := memstore.LoadSeed(f)
	if err != nil {
		return err
	}
	c.store = store
	c.orders = orders
	c.logger.Info("Using seeded in-memory inventory store", zap.String("seed_file", c.config.SeedFile))
	return nil
}

func (c *Container) setupGuard(ctx context.Context) error {
	if c.config.RedisURL == "" {
		c.guard = guard.Noop{}
		c.logger.Warn("REDIS_URL not set, redelivered transitions are not deduplicated")
		return nil
	}
	g, err := guard.NewRedisGuard(ctx, c.config.RedisURL, c.config.TransitionGuardTTL)
	if err != nil {
		return err
	}
	c.guard = g
	return nil
}

func (c *Container) setupKafka(context.Context) error {
	c.logger.Info("Connecting to Kafka",
		zap.String("broker", c.config.KafkaBroker),
		zap.String("consumer_topic", config.OrderStatusTopic),
		zap.String("producer_topic", config.StockAdjustedTopic),
	)

	consumer, err := kafka.NewConsumer(kafka.ReaderConfig{
		Broker:  c.config.KafkaBroker,
		Topic:   config.OrderStatusTopic,
		GroupID: config.GroupID,
	})
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	c.messageConsumer = consumer

	producer, err := kafka.NewProducer(kafka.WriterConfig{
		Broker:       c.config.KafkaBroker,
		Topic:        config.StockAdjustedTopic,
		ClientID:     config.ServiceName,
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}, c.tracerProvider)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	c.messageProducer = producer
	return nil
}

// Shutdown releases resources in reverse order of creation
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.messageConsumer != nil {
		if err := c.messageConsumer.Close(); err != nil {
			c.logger.Error("Failed to close message consumer", zap.Error(err))
		}
	}
	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}
	if c.guard != nil {
		if err := c.guard.Close(); err != nil {
			c.logger.Error("Failed to close transition guard", zap.Error(err))
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}
	if c.telemetryShutdown != nil {
		if err := c.telemetryShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")
	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

func (c *Container) Config() *config.Config                  { return c.config }
func (c *Container) Logger() observability.Logger            { return c.logger }
func (c *Container) Tracer() observability.Tracer            { return c.tracer }
func (c *Container) Meter() observability.Meter              { return c.meter }
func (c *Container) Store() inventory.Store                  { return c.store }
func (c *Container) Orders() fulfillment.LineItemSource      { return c.orders }
func (c *Container) Guard() fulfillment.TransitionGuard      { return c.guard }
func (c *Container) MessageConsumer() kafka.Consumer         { return c.messageConsumer }
func (c *Container) MessageProducer() kafka.Producer         { return c.messageProducer }
