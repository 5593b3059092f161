package app

import (
	"net/http"

	"inventoryledger/internal/api"
	"inventoryledger/internal/config"
	"inventoryledger/internal/fulfillment"
)

// ServiceFactory creates business logic services with their dependencies
type ServiceFactory struct {
	infra *Container
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(infra *Container) *ServiceFactory {
	return &ServiceFactory{
		infra: infra,
	}
}

// CreateCoordinator creates the order fulfillment coordinator
func (f *ServiceFactory) CreateCoordinator() (*fulfillment.Coordinator, error) {
	return fulfillment.NewCoordinator(f.infra.Store(), f.infra.Orders(), f.infra.Logger(), f.infra.Tracer(), f.infra.Meter())
}

// CreateConsumerService creates the Kafka loop that feeds status changes to the coordinator
func (f *ServiceFactory) CreateConsumerService(coordinator fulfillment.Applier) fulfillment.ConsumerService {
	handler := fulfillment.NewMessageHandler(coordinator, f.infra.MessageProducer(), f.infra.Guard(), f.infra.Logger())
	return fulfillment.NewConsumerService(f.infra.MessageConsumer(), handler, f.infra.Logger())
}

// CreateHTTPServer creates the HTTP server for transitions and inventory lookups
func (f *ServiceFactory) CreateHTTPServer(coordinator fulfillment.Applier) *http.Server {
	handler := api.NewHandler(coordinator, f.infra.Store(), f.infra.Logger())
	return &http.Server{
		Addr:              f.infra.Config().HTTPAddr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
}
