package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventoryledger/internal/fulfillment"
	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the coordinator and strict inventory lookups over HTTP.
type Handler struct {
	coordinator fulfillment.Applier
	ledger      inventory.Ledger
	logger      observability.Logger
}

func NewHandler(coordinator fulfillment.Applier, ledger inventory.Ledger, logger observability.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		ledger:      ledger,
		logger:      logger,
	}
}

type ErrorResponse struct {
	Error   string                      `json:"error"`
	Message string                      `json:"message,omitempty"`
	Applied []inventory.StockAdjustment `json:"applied,omitempty"`
}

type TransitionRequest struct {
	From               string `json:"from"`
	To                 string `json:"to"`
	ProductionQuantity int64  `json:"production_quantity"`
	FulfilledFromStock bool   `json:"fulfilled_from_stock"`
}

type TransitionResponse struct {
	OrderID     string                      `json:"order_id"`
	Adjustments []inventory.StockAdjustment `json:"adjustments"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// ApplyTransition handles POST /orders/{orderID}/transitions.
func (h *Handler) ApplyTransition(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.ProductionQuantity < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "production_quantity cannot be negative")
		return
	}

	t, err := fulfillment.OrderStatusChangedEvent{
		OrderID:            orderID,
		From:               req.From,
		To:                 req.To,
		ProductionQuantity: req.ProductionQuantity,
		FulfilledFromStock: req.FulfilledFromStock,
	}.Transition()
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_status", err.Error())
		return
	}

	results, err := h.coordinator.ApplyTransition(r.Context(), t)
	if err != nil {
		h.writeTransitionError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, TransitionResponse{OrderID: orderID, Adjustments: results})
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, orderID string, err error) {
	var partial *fulfillment.PartialStockUpdateError
	switch {
	case errors.As(err, &partial):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "partial_stock_update_failed",
			Message: err.Error(),
			Applied: partial.Applied,
		})
	case errors.Is(err, fulfillment.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, inventory.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Inventory storage is unavailable")
	default:
		h.logger.Error("Transition failed", zap.Error(err), zap.String("order_id", orderID))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to apply transition")
	}
}

// GetInventory handles GET /inventory/{productID}.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	rec, err := h.ledger.Get(r.Context(), productID)
	switch {
	case errors.Is(err, inventory.ErrProductNotRegistered):
		writeError(w, http.StatusNotFound, "product_not_registered", err.Error())
	case errors.Is(err, inventory.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Inventory storage is unavailable")
	case err != nil:
		h.logger.Error("Inventory lookup failed", zap.Error(err), zap.String("product_id", productID))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read inventory")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
