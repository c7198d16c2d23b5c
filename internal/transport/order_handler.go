package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bakery-storefront/internal/cart"
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/order"
	"bakery-storefront/internal/pricing"
	"bakery-storefront/internal/repository"
)

// Storefront pages a client is sent to when checkout cannot proceed
const (
	RedirectCart  = "/carrito"
	RedirectLogin = "/login"
)

// ReceiptView is an order with what the receipt page displays
type ReceiptView struct {
	Order      *domain.Order `json:"order"`
	TotalLabel string        `json:"totalLabel"`
	Mailto     string        `json:"mailto"`
}

func newReceiptView(o *domain.Order) ReceiptView {
	return ReceiptView{
		Order:      o,
		TotalLabel: pricing.FormatCurrency(o.Total),
		Mailto:     order.MailtoLink(o),
	}
}

// OrderHandler handles checkout, the receipt and the admin order views
type OrderHandler struct {
	controller *order.Controller
	carts      *cart.Registry
	history    *order.History
	attempts   repository.OrderAttemptRepository
	logger     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(controller *order.Controller, carts *cart.Registry, history *order.History, attempts repository.OrderAttemptRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		controller: controller,
		carts:      carts,
		history:    history,
		attempts:   attempts,
		logger:     logger,
	}
}

// RegisterRoutes registers checkout, receipt and admin order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, adminMiddleware func(http.Handler) http.Handler) {
	r.Post("/api/checkout", h.Checkout)
	r.Get("/api/orders/last", h.LastOrder)

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})

	r.Route("/api/admin/order-attempts", func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Get("/", h.ListAttempts)
		r.Get("/{id}", h.GetAttempt)
	})
}

// Checkout handles POST /api/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var form domain.Customer
	if err := json.NewDecoder(io.LimitReader(r.Body, middleware.MaxBodyBytes)).Decode(&form); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := sessionID(r)
	outcome, err := h.controller.Submit(r.Context(), session, h.carts.Get(session), form)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to check out")
		return
	}

	switch outcome.Kind {
	case order.OutcomeSuccess:
		middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"kind":    outcome.Kind,
			"receipt": newReceiptView(outcome.Order),
		})
	case order.OutcomeFailure:
		middleware.RespondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"kind":  outcome.Kind,
			"order": outcome.Order,
		})
	case order.OutcomeInvalid:
		middleware.RespondWithFieldErrors(w, outcome.Errors)
	case order.OutcomeRedirectCart:
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "cart is empty",
			map[string]interface{}{"redirect": RedirectCart})
	case order.OutcomeLoginRequired:
		middleware.RespondWithErrorDetails(w, http.StatusUnauthorized, "login required",
			map[string]interface{}{"redirect": RedirectLogin})
	default:
		h.logger.Error("Unknown checkout outcome", zap.String("kind", string(outcome.Kind)))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to check out")
	}
}

// LastOrder handles GET /api/orders/last
func (h *OrderHandler) LastOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.controller.Receipt(r.Context(), sessionID(r))
	if err != nil {
		if errors.Is(err, order.ErrNoReceipt) {
			middleware.RespondWithErrorDetails(w, http.StatusNotFound, "no order to show",
				map[string]interface{}{"redirect": RedirectCart})
			return
		}
		respondWithServiceError(w, h.logger, err, "failed to load last order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newReceiptView(o))
}

// ListOrders handles GET /api/admin/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.history.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/admin/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.history.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, o)
}

// CreateOrder handles POST /api/admin/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	payload, ok := rawDocument(w, r)
	if !ok {
		return
	}
	o, err := h.history.Create(r.Context(), payload)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, o)
}

// UpdateOrder handles PUT /api/admin/orders/{id}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	payload, ok := rawDocument(w, r)
	if !ok {
		return
	}
	o, err := h.history.Update(r.Context(), id, payload)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, o)
}

// DeleteOrder handles DELETE /api/admin/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.history.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAttempts handles GET /api/admin/order-attempts?status=&limit=
func (h *OrderHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := domain.OrderStatus(q.Get("status"))
	switch status {
	case "", domain.OrderPending, domain.OrderPaid, domain.OrderFailed:
	default:
		middleware.RespondWithError(w, http.StatusBadRequest, "status must be pending, paid or failed")
		return
	}

	limit := repository.DefaultAttemptPageSize
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	attempts, err := h.attempts.List(r.Context(), status, limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list order attempts")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, attempts)
}

// GetAttempt handles GET /api/admin/order-attempts/{id}
func (h *OrderHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.attempts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get order attempt")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, attempt)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "order id must be a positive integer")
		return 0, false
	}
	return id, true
}

// rawDocument reads an order document to pass through to the storefront API
func rawDocument(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	var payload json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, middleware.MaxBodyBytes)).Decode(&payload); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(payload) == 0 || payload[0] != '{' {
		middleware.RespondWithError(w, http.StatusBadRequest, "order document must be a JSON object")
		return nil, false
	}
	return payload, true
}
