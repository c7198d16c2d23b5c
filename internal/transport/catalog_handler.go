package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bakery-storefront/internal/catalog"
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/pricing"
)

// DefaultCriticalThreshold is the stock level at or below which a product is critical
const DefaultCriticalThreshold = 3

// ProductRequest represents the admin product payload
type ProductRequest struct {
	Code            string `json:"code" validate:"required,max=32"`
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=2000"`
	BasePrice       int64  `json:"basePrice" validate:"gte=0"`
	DiscountPercent int    `json:"discountPercent" validate:"gte=0,lte=100"`
	Category        string `json:"category" validate:"required"`
	CategoryID      int64  `json:"categoryId" validate:"gte=0"`
	ImagePath       string `json:"imagePath"`
	Stock           int    `json:"stock" validate:"gte=0"`
	Status          string `json:"status" validate:"omitempty,oneof=available soldOut discontinued"`
}

func (req ProductRequest) toDomain() domain.Product {
	status := domain.ProductStatus(req.Status)
	if status == "" {
		status = domain.ParseProductStatus("", req.Stock)
	}
	return domain.Product{
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		BasePrice:       req.BasePrice,
		DiscountPercent: req.DiscountPercent,
		Category:        domain.Category{ID: req.CategoryID, Name: req.Category},
		ImagePath:       req.ImagePath,
		Stock:           req.Stock,
		Status:          status,
	}
}

// StockRequest adjusts stock by a signed delta
type StockRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

// StatusRequest marks a product with a new availability state
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available soldOut discontinued"`
}

// ProductView is a product as the storefront renders it
type ProductView struct {
	domain.Product
	ImageURL       string `json:"imageUrl"`
	OnSale         bool   `json:"onSale"`
	EffectivePrice int64  `json:"effectivePrice"`
	PriceLabel     string `json:"priceLabel"`
}

// CatalogHandler handles HTTP requests for products and offers
type CatalogHandler struct {
	catalog      *catalog.Cache
	assetBaseURL string
	logger       *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(c *catalog.Cache, assetBaseURL string, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:      c,
		assetBaseURL: assetBaseURL,
		logger:       logger,
	}
}

// RegisterRoutes registers the public catalog and the admin product routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/offers", h.ListOffers)
		r.Get("/categories", h.ListCategories)
		r.Get("/{code}", h.GetProduct)
	})

	r.Route("/api/admin/products", func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Post("/", h.CreateProduct)
		r.Get("/critical", h.ListCritical)
		r.Put("/{code}", h.UpdateProduct)
		r.Delete("/{code}", h.DeleteProduct)
		r.Post("/{code}/stock", h.AdjustStock)
		r.Post("/{code}/status", h.SetStatus)
	})
}

func (h *CatalogHandler) view(p domain.Product) ProductView {
	price := catalog.EffectivePrice(&p)
	return ProductView{
		Product:        p,
		ImageURL:       catalog.ResolveImage(p.ImagePath, h.assetBaseURL),
		OnSale:         p.OnSale(),
		EffectivePrice: price,
		PriceLabel:     pricing.FormatCurrency(price),
	}
}

func (h *CatalogHandler) views(products []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, h.view(p))
	}
	return out
}

// ListProducts handles GET /api/products?search=&category=&status=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.catalog.Query(catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   domain.ProductStatus(q.Get("status")),
	})
	middleware.RespondWithJSON(w, http.StatusOK, h.views(products))
}

// ListOffers handles GET /api/products/offers
func (h *CatalogHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers := catalog.Offers(h.catalog.All())
	for i := range offers {
		offers[i].ImagePath = catalog.ResolveImage(offers[i].ImagePath, h.assetBaseURL)
	}
	middleware.RespondWithJSON(w, http.StatusOK, offers)
}

// ListCategories handles GET /api/products/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.catalog.Categories())
}

// GetProduct handles GET /api/products/{code}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, h.view(*p))
}

// ListCritical handles GET /api/admin/products/critical?threshold=&soldOutOnly=&search=
func (h *CatalogHandler) ListCritical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	threshold := DefaultCriticalThreshold
	if raw := q.Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = n
	}
	soldOutOnly, _ := strconv.ParseBool(q.Get("soldOutOnly"))

	products := h.catalog.Critical(threshold, soldOutOnly, q.Get("search"))
	middleware.RespondWithJSON(w, http.StatusOK, h.views(products))
}

// CreateProduct handles POST /api/admin/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	created, err := h.catalog.Create(r.Context(), req.toDomain())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, h.view(*created))
}

// UpdateProduct handles PUT /api/admin/products/{code}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	updated, err := h.catalog.Update(r.Context(), chi.URLParam(r, "code"), req.toDomain())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, h.view(*updated))
}

// DeleteProduct handles DELETE /api/admin/products/{code}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock handles POST /api/admin/products/{code}/stock
func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	updated, err := h.catalog.AdjustStock(r.Context(), chi.URLParam(r, "code"), req.Delta)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to adjust stock")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, h.view(*updated))
}

// SetStatus handles POST /api/admin/products/{code}/status
func (h *CatalogHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	code := chi.URLParam(r, "code")
	current, err := h.catalog.Get(r.Context(), code)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	next := *current
	next.Status = domain.ProductStatus(req.Status)
	updated, err := h.catalog.Update(r.Context(), current.Code, next)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product status")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, h.view(*updated))
}
