package api

import (
	"net/http"

	"inventoryledger/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter wires the routes behind chi middleware and otelhttp server spans.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Post("/orders/{orderID}/transitions", h.ApplyTransition)
	r.Get("/inventory/{productID}", h.GetInventory)

	return otelhttp.NewHandler(r, config.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}
