package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bakery-storefront/internal/cart"
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/pricing"
	"bakery-storefront/internal/remote"
)

// AddItemRequest adds one unit of a product to the cart
type AddItemRequest struct {
	Code string `json:"code" validate:"required"`
}

// CartView is the cart as the storefront renders it
type CartView struct {
	Items        []domain.CartLine `json:"items"`
	Total        int64             `json:"total"`
	TotalLabel   string            `json:"totalLabel"`
	Units        int               `json:"units"`
	LimitReached bool              `json:"limitReached,omitempty"`
}

func newCartView(c domain.Cart) CartView {
	units := 0
	for _, line := range c.Lines {
		units += line.Quantity
	}
	items := c.Lines
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartView{
		Items:      items,
		Total:      c.Total,
		TotalLabel: pricing.FormatCurrency(c.Total),
		Units:      units,
	}
}

// ProductFinder resolves a product code for the add-to-cart flow
type ProductFinder interface {
	Get(ctx context.Context, codeOrID string) (*domain.Product, error)
}

// CartHandler handles HTTP requests for the shopper's cart
type CartHandler struct {
	carts    *cart.Registry
	products ProductFinder
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Registry, products ProductFinder, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.With(middleware.RequireSession(h.logger)).Post("/merge", h.MergeCart)
		r.Post("/items", h.AddItem)
		r.Post("/items/{code}/increment", h.Increment)
		r.Post("/items/{code}/decrement", h.Decrement)
		r.Delete("/items/{code}", h.RemoveItem)
	})
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(sessionID(r)).Load(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(c))
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	p, err := h.products.Get(r.Context(), req.Code)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to look up product")
		return
	}
	if p.Status != domain.ProductAvailable {
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "product is not available",
			map[string]interface{}{"code": p.Code, "status": p.Status})
		return
	}

	res, err := h.carts.Get(sessionID(r)).Add(r.Context(), p)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add to cart")
		return
	}

	view := newCartView(res.Cart)
	view.LimitReached = res.LimitReached
	if res.LimitReached {
		h.logger.Debug("Cart line at purchase limit",
			zap.String("session_id", sessionID(r)),
			zap.String("code", p.Code),
			zap.Int("limit", domain.MaxLineQuantity),
		)
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Increment handles POST /api/cart/items/{code}/increment
func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(sessionID(r)).Increment(r.Context(), chi.URLParam(r, "code"))
	h.respondCart(w, c, err, "failed to update cart")
}

// Decrement handles POST /api/cart/items/{code}/decrement
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(sessionID(r)).Decrement(r.Context(), chi.URLParam(r, "code"))
	h.respondCart(w, c, err, "failed to update cart")
}

// RemoveItem handles DELETE /api/cart/items/{code}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(sessionID(r)).Remove(r.Context(), chi.URLParam(r, "code"))
	h.respondCart(w, c, err, "failed to remove from cart")
}

// ClearCart handles DELETE /api/cart?confirm=true. The shopper's
// confirmation is required and carried by the query parameter.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		middleware.RespondWithError(w, http.StatusPreconditionRequired, "clearing the cart requires confirm=true")
		return
	}

	c, err := h.carts.Get(sessionID(r)).Clear(r.Context())
	h.respondCart(w, c, err, "failed to clear cart")
}

// MergeCart handles POST /api/cart/merge. A shopper who signs in sends the
// anonymous X-Session-ID they browsed with alongside the token; that cart is
// folded into the account cart and then emptied.
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := h.carts.Get(sessionID(r))

	anonymous, ok := middleware.GetAnonymousSessionID(ctx)
	if !ok {
		middleware.RespondWithJSON(w, http.StatusOK, newCartView(target.Load(ctx)))
		return
	}

	// the anonymous cart lives only in the local store
	local := remote.WithToken(ctx, "")
	source := h.carts.Get(anonymous)
	lines := source.Peek(local).Lines

	c, err := target.Merge(ctx, lines)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to merge cart")
		return
	}
	if _, err := source.Clear(local); err != nil {
		h.logger.Warn("Failed to empty merged anonymous cart", zap.Error(err))
	}

	h.logger.Info("Anonymous cart merged",
		zap.String("session_id", sessionID(r)),
		zap.String("anonymous_session_id", anonymous),
		zap.Int("lines", len(lines)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(c))
}

func (h *CartHandler) respondCart(w http.ResponseWriter, c domain.Cart, err error, fallback string) {
	if err != nil {
		respondWithServiceError(w, h.logger, err, fallback)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(c))
}
