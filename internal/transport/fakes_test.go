package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"bakery-storefront/internal/cart"
	"bakery-storefront/internal/catalog"
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/events"
	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/order"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/repository"
	"bakery-storefront/internal/storage"
	"bakery-storefront/internal/user"
)

// tokenSecret is shared by the storefront API and this service in tests
const tokenSecret = "remote-secret"

// fakeAPI is a map-backed stand-in for the storefront API
type fakeAPI struct {
	mu          sync.Mutex
	nextID      int64
	products    map[int64]domain.Product
	cartLines   []domain.CartLine
	orders      map[int64]remote.Order
	users       map[int64]remote.User
	lastUser    remote.UserPayload
	checkout    *remote.CheckoutResult
	checkoutErr error
	calls       []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:   100,
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]remote.Order),
		users:    make(map[int64]remote.User),
		checkout: &remote.CheckoutResult{ID: 42, Status: "PAGADO"},
	}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return nil, nil
}

func (f *fakeAPI) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &remote.APIError{Status: http.StatusNotFound, Message: "Producto no encontrado"}
	}
	return &p, nil
}

func (f *fakeAPI) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = p
	f.record("create product")
	return &p, nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, id int64, p domain.Product) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = p
	f.record("update product")
	return &p, nil
}

func (f *fakeAPI) DeleteProduct(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	f.record("delete product")
	return nil
}

func (f *fakeAPI) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CloneLines(f.cartLines), nil
}

func (f *fakeAPI) AddToCart(ctx context.Context, productID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add to cart")
	return nil
}

func (f *fakeAPI) RemoveFromCart(ctx context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove from cart")
	return nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cartLines = nil
	f.record("clear cart")
	return nil
}

func (f *fakeAPI) Checkout(ctx context.Context) (*remote.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("checkout")
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	res := *f.checkout
	return &res, nil
}

func (f *fakeAPI) ListOrders(ctx context.Context) ([]remote.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeAPI) GetOrder(ctx context.Context, id int64) (*remote.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, &remote.APIError{Status: http.StatusNotFound, Message: "Orden no encontrada"}
	}
	return &o, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, payload json.RawMessage) (*remote.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o := remote.Order{ID: f.nextID, Raw: payload}
	f.orders[o.ID] = o
	return &o, nil
}

func (f *fakeAPI) UpdateOrder(ctx context.Context, id int64, payload json.RawMessage) (*remote.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := remote.Order{ID: id, Raw: payload}
	f.orders[id] = o
	return &o, nil
}

func (f *fakeAPI) DeleteOrder(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, id)
	return nil
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAPI) GetUser(ctx context.Context, id int64) (*remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, &remote.APIError{Status: http.StatusNotFound, Message: "Usuario no encontrado"}
	}
	return &u, nil
}

func (f *fakeAPI) CreateUser(ctx context.Context, p remote.UserPayload) (*remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.lastUser = p
	u := remote.User{ID: f.nextID, Username: p.Username, Name: p.Name, Email: p.Email, Phone: p.Phone, Role: p.Role, Status: p.Status}
	f.users[u.ID] = u
	f.record("create user")
	return &u, nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, id int64, p remote.UserPayload) (*remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return nil, &remote.APIError{Status: http.StatusNotFound, Message: "Usuario no encontrado"}
	}
	f.lastUser = p
	u := remote.User{ID: id, Username: p.Username, Name: p.Name, Email: p.Email, Phone: p.Phone, Role: p.Role, Status: p.Status}
	f.users[id] = u
	f.record("update user")
	return &u, nil
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	f.record("delete user")
	return nil
}

// testApp wires the handlers the way the server does, on fakes
type testApp struct {
	api      *fakeAPI
	catalog  *catalog.Cache
	attempts repository.OrderAttemptRepository
	router   http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()
	api := newFakeAPI()
	store := storage.NewMemoryStore(0)

	products := catalog.NewCache(api, logger)
	carts := cart.NewRegistry(api, store, products, logger)
	attempts := repository.NewMemoryOrderAttemptRepository()
	controller := order.NewController(api, store, attempts, events.NoopPublisher{}, logger)
	history := order.NewHistory(api, logger)

	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(tokenSecret, logger))
	admin := middleware.RequireAdmin(logger)
	NewCatalogHandler(products, "https://cdn.pasteleria.cl/", logger).RegisterRoutes(r, admin)
	NewCartHandler(carts, products, logger).RegisterRoutes(r)
	NewOrderHandler(controller, carts, history, attempts, logger).RegisterRoutes(r, admin)
	NewUserHandler(user.NewDirectory(api, logger), logger).RegisterRoutes(r, admin)

	t.Cleanup(products.Close)
	return &testApp{api: api, catalog: products, attempts: attempts, router: r}
}

type requestOption func(*http.Request)

func withSession(id string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.SessionHeader, id) }
}

func withToken(t *testing.T, subject, role string) requestOption {
	claims := jwt.MapClaims{"sub": subject}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tokenSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (a *testApp) do(method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, w).Error.Message
}
