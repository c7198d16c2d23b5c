package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/pubsub"
)

var (
	// ErrProductNotFound is returned when no cached product matches a code or id
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateCode is returned when creating a product whose code is taken
	ErrDuplicateCode = errors.New("product code already exists")
)

// AllCategories matches every category in a Query
const AllCategories = "Todas"

// Remote is the part of the storefront API the catalog needs
type Remote interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, p domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Filter narrows a catalog Query. Empty fields match everything.
type Filter struct {
	Search   string
	Category string
	Status   domain.ProductStatus
}

// Cache is the in-memory product catalog. It starts from the default catalog
// and is replaced wholesale by a successful Reload.
type Cache struct {
	mu       sync.RWMutex
	products []domain.Product
	remote   Remote
	updates  *pubsub.Broker[[]domain.Product]
	logger   *zap.Logger
}

// NewCache creates a cache seeded with DefaultProducts
func NewCache(remote Remote, logger *zap.Logger) *Cache {
	return &Cache{
		products: DefaultProducts(),
		remote:   remote,
		updates:  pubsub.NewBroker[[]domain.Product](),
		logger:   logger,
	}
}

// All returns a snapshot of every cached product
func (c *Cache) All() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Product(nil), c.products...)
}

// Reload replaces the cache with the remote catalog. On failure, or when the
// remote has no products, the current contents stay in place.
func (c *Cache) Reload(ctx context.Context) error {
	products, err := c.remote.ListProducts(ctx)
	if err != nil {
		c.logger.Warn("Failed to load remote catalog, keeping cached products", zap.Error(err))
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	if len(products) == 0 {
		c.logger.Info("Remote catalog is empty, keeping cached products")
		return nil
	}

	c.replace(products)
	c.logger.Info("Catalog reloaded", zap.Int("products", len(products)))
	return nil
}

// Get looks a product up by code, then by numeric id. A numeric id that is not
// cached is fetched from the remote.
func (c *Cache) Get(ctx context.Context, codeOrID string) (*domain.Product, error) {
	c.mu.RLock()
	idx := c.indexOf(codeOrID)
	if idx >= 0 {
		p := c.products[idx]
		c.mu.RUnlock()
		return &p, nil
	}
	c.mu.RUnlock()

	id, err := strconv.ParseInt(codeOrID, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrProductNotFound
	}

	p, err := c.remote.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// Query returns the cached products matching f, in catalog order
func (c *Cache) Query(f Filter) []domain.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)
	if category == AllCategories {
		category = ""
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if category != "" && p.Category.Name != category {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the distinct category names, sorted
func (c *Cache) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, p := range c.products {
		if _, ok := seen[p.Category.Name]; ok {
			continue
		}
		seen[p.Category.Name] = struct{}{}
		names = append(names, p.Category.Name)
	}
	sort.Strings(names)
	return names
}

// Critical returns products at or below the stock threshold, or sold out.
// With soldOutOnly only sold-out products are returned.
func (c *Cache) Critical(threshold int, soldOutOnly bool, search string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		soldOut := p.Status == domain.ProductSoldOut
		flagged := soldOut || p.Stock <= threshold
		if soldOutOnly {
			flagged = soldOut
		}
		if flagged {
			out = append(out, p)
		}
	}
	return out
}

// Create stores a new product through the remote and caches the result
func (c *Cache) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.Code != "" {
		c.mu.RLock()
		exists := c.indexOf(p.Code) >= 0
		c.mu.RUnlock()
		if exists {
			return nil, ErrDuplicateCode
		}
	}

	created, err := c.remote.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if created.Code == "" {
		created.Code = p.Code
	}

	c.mu.Lock()
	c.products = append(c.products, *created)
	c.mu.Unlock()
	c.publish()

	c.logger.Info("Product created", zap.String("code", created.Code), zap.Int64("id", created.ID))
	return created, nil
}

// Update replaces a cached product. Products the remote has never assigned an
// id to are updated in the cache only.
func (c *Cache) Update(ctx context.Context, codeOrID string, p domain.Product) (*domain.Product, error) {
	current, err := c.cached(codeOrID)
	if err != nil {
		return nil, err
	}

	p.Code = current.Code
	p.ID = current.ID
	updated := &p
	if current.ID > 0 {
		updated, err = c.remote.UpdateProduct(ctx, current.ID, p)
		if err != nil {
			return nil, fmt.Errorf("failed to update product %s: %w", current.Code, err)
		}
		if updated.Code == "" {
			updated.Code = current.Code
		}
	}

	c.mu.Lock()
	if idx := c.indexOf(current.Code); idx >= 0 {
		c.products[idx] = *updated
	}
	c.mu.Unlock()
	c.publish()

	return updated, nil
}

// AdjustStock adds delta to a product's stock, never going below zero. A sold
// out product with stock again becomes available.
func (c *Cache) AdjustStock(ctx context.Context, codeOrID string, delta int) (*domain.Product, error) {
	current, err := c.cached(codeOrID)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Stock = max(0, current.Stock+delta)
	if next.Stock > 0 && next.Status == domain.ProductSoldOut {
		next.Status = domain.ProductAvailable
	}
	return c.Update(ctx, current.Code, next)
}

// Delete removes a product through the remote and from the cache
func (c *Cache) Delete(ctx context.Context, codeOrID string) error {
	current, err := c.cached(codeOrID)
	if err != nil {
		return err
	}

	if current.ID > 0 {
		if err := c.remote.DeleteProduct(ctx, current.ID); err != nil {
			return fmt.Errorf("failed to delete product %s: %w", current.Code, err)
		}
	}

	c.mu.Lock()
	if idx := c.indexOf(current.Code); idx >= 0 {
		c.products = append(c.products[:idx:idx], c.products[idx+1:]...)
	}
	c.mu.Unlock()
	c.publish()

	c.logger.Info("Product deleted", zap.String("code", current.Code))
	return nil
}

// Subscribe returns a channel receiving the full catalog after every change
func (c *Cache) Subscribe(buffer int) (<-chan []domain.Product, func()) {
	return c.updates.Subscribe(buffer)
}

// Close releases subscribers
func (c *Cache) Close() {
	c.updates.Close()
}

func (c *Cache) replace(products []domain.Product) {
	c.mu.Lock()
	c.products = append([]domain.Product(nil), products...)
	c.mu.Unlock()
	c.publish()
}

func (c *Cache) publish() {
	c.updates.Publish(c.All())
}

func (c *Cache) cached(codeOrID string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.indexOf(codeOrID)
	if idx < 0 {
		return nil, ErrProductNotFound
	}
	p := c.products[idx]
	return &p, nil
}

// indexOf must be called with mu held
func (c *Cache) indexOf(codeOrID string) int {
	if codeOrID == "" {
		return -1
	}
	for i := range c.products {
		if c.products[i].Code == codeOrID {
			return i
		}
	}
	if id, err := strconv.ParseInt(codeOrID, 10, 64); err == nil && id > 0 {
		for i := range c.products {
			if c.products[i].ID == id {
				return i
			}
		}
	}
	return -1
}

func matchesSearch(p domain.Product, search string) bool {
	return strings.Contains(strings.ToLower(p.Name), search) ||
		strings.Contains(strings.ToLower(p.Code), search)
}
