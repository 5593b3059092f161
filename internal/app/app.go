package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"inventoryledger/internal/config"
	"inventoryledger/internal/fulfillment"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *Container
	consumer  fulfillment.ConsumerService
	server    *http.Server
}

// NewApplication creates and fully initializes a new Application instance
func NewApplication(ctx context.Context) (*Application, error) {
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	container, err := NewContainer(appCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	factory := NewServiceFactory(container)
	coordinator, err := factory.CreateCoordinator()
	if err != nil {
		container.Shutdown(context.Background())
		cancel()
		return nil, err
	}

	app := &Application{
		ctx:       appCtx,
		cancel:    cancel,
		container: container,
		consumer:  factory.CreateConsumerService(coordinator),
		server:    factory.CreateHTTPServer(coordinator),
	}

	container.Logger().Info("Application initialized successfully")
	return app, nil
}

// Run serves HTTP and consumes Kafka until the context is cancelled or either fails
func (app *Application) Run() error {
	g, ctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		return app.consumer.Start(ctx)
	})

	g.Go(func() error {
		app.container.Logger().Info("HTTP server listening", zap.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	if app.cancel != nil {
		app.cancel()
	}

	if app.container != nil {
		app.container.Shutdown(context.Background())
	}
}
