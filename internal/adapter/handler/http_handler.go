package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
)

const idempotencyHeader = "Idempotency-Key"

type HTTPHandler struct {
	inventory *service.InventoryService
}

type EventHTTPRequest struct {
	Kind     string  `json:"kind"`
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

type EventHTTPResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Snapshot    *domain.Snapshot    `json:"snapshot,omitempty"`
}

func NewHTTPHandler(inventory *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{inventory: inventory}
}

// Routes mounts the handler on a chi router. Extra middleware such as
// metrics is applied before any route.
func (h *HTTPHandler) Routes(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw...)

	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/inventory", h.Snapshot)
		r.Post("/events", h.RecordEvent)
		r.Post("/intents", h.RecordIntent)
	})
	return r
}

func (h *HTTPHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req EventHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, EventHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	tx, snap, err := h.inventory.RecordEvent(r.Context(), domain.Kind(req.Kind), req.Item, req.Quantity, req.Unit)
	h.respondEvent(w, tx, snap, err)
}

func (h *HTTPHandler) RecordIntent(w http.ResponseWriter, r *http.Request) {
	var intent domain.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeJSON(w, http.StatusBadRequest, EventHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	tx, snap, err := h.inventory.RecordIntent(r.Context(), r.Header.Get(idempotencyHeader), intent)
	h.respondEvent(w, tx, snap, err)
}

func (h *HTTPHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.inventory.CurrentSnapshot(r.Context())
	if err != nil {
		status, message := statusFor(err)
		writeJSON(w, status, EventHTTPResponse{Success: false, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) respondEvent(w http.ResponseWriter, tx domain.Transaction, snap domain.Snapshot, err error) {
	if err != nil {
		status, message := statusFor(err)
		resp := EventHTTPResponse{Success: false, Message: message}
		// The transaction is durable even if the follow-up read failed
		if tx.ID != "" {
			resp.Transaction = &tx
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, EventHTTPResponse{
		Success:     true,
		Message:     "event recorded",
		Transaction: &tx,
		Snapshot:    &snap,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrParseRejected), errors.Is(err, service.ErrInvalidTransaction):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrUnitConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrPersistence):
		return http.StatusServiceUnavailable, "ledger unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
