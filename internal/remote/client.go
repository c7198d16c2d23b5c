package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/metrics"
)

// DefaultBaseURL is used when API_BASE_URL is not set
const DefaultBaseURL = "http://localhost:8080/api"

const addToCartPath = "/v1/carrito/anadir"

type tokenKey struct{}

// WithToken attaches the shopper's bearer token to ctx. Every remote call made
// with the returned context forwards it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// HasSession reports whether ctx carries an authenticated session
func HasSession(ctx context.Context) bool {
	return TokenFromContext(ctx) != ""
}

// Client is a typed client for the storefront REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new remote API client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// publicRequest is request without the shopper's token
func (c *Client) publicRequest(ctx context.Context, op, method, path string) (json.RawMessage, error) {
	return c.request(WithToken(ctx, ""), op, method, path, nil, nil)
}

// request performs one call and returns the raw JSON body. A 204 or empty body
// returns nil. A non-2xx status returns *APIError.
func (c *Client) request(ctx context.Context, op, method, path string, query url.Values, body any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.do(ctx, method, path, query, body)
	metrics.RecordRemoteCall(op, err == nil, time.Since(start))
	if err != nil {
		c.logger.Debug("Remote call failed",
			zap.String("operation", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return raw, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The client's own timeout is an outage, not a cancellation, so the
		// transport error is flattened to keep context errors out of the chain
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, data)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	if !json.Valid(data) {
		// The add-to-cart endpoint sometimes answers 200 with a non-JSON body
		if method == http.MethodPost && strings.HasPrefix(path, addToCartPath) {
			return json.RawMessage(`{"success":true}`), nil
		}
		return nil, nil
	}

	return json.RawMessage(data), nil
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Body: data}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
		return apiErr
	}

	if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	if apiErr.Message == "" {
		apiErr.Message = "unknown error"
	}
	return apiErr
}

// ListProducts returns the remote catalog
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	raw, err := c.publicRequest(ctx, "list_products", http.MethodGet, "/productos")
	if err != nil {
		return nil, err
	}
	return NormalizeProductList(raw)
}

// GetProduct returns one product by its remote id
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	raw, err := c.publicRequest(ctx, "get_product", http.MethodGet, "/productos/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return NormalizeProduct(raw)
}

// CreateProduct creates a product and returns the stored version
func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	raw, err := c.request(ctx, "create_product", http.MethodPost, "/productos", nil, toProductPayload(p))
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return &p, nil
	}
	return NormalizeProduct(raw)
}

// UpdateProduct replaces a product by its remote id
func (c *Client) UpdateProduct(ctx context.Context, id int64, p domain.Product) (*domain.Product, error) {
	raw, err := c.request(ctx, "update_product", http.MethodPut, "/productos/"+strconv.FormatInt(id, 10), nil, toProductPayload(p))
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		p.ID = id
		return &p, nil
	}
	return NormalizeProduct(raw)
}

// DeleteProduct deletes a product by its remote id
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	_, err := c.request(ctx, "delete_product", http.MethodDelete, "/productos/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}

// GetCart returns the shopper's remote cart
func (c *Client) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	raw, err := c.request(ctx, "get_cart", http.MethodGet, "/v1/carrito", nil, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeCart(raw)
}

// AddToCart adds qty units of a product. A negative qty subtracts.
func (c *Client) AddToCart(ctx context.Context, productID int64, qty int) error {
	query := url.Values{}
	query.Set("productId", strconv.FormatInt(productID, 10))
	query.Set("qty", strconv.Itoa(qty))
	_, err := c.request(ctx, "add_to_cart", http.MethodPost, addToCartPath, query, nil)
	return err
}

// RemoveFromCart removes a product line from the remote cart
func (c *Client) RemoveFromCart(ctx context.Context, productID int64) error {
	query := url.Values{}
	query.Set("productId", strconv.FormatInt(productID, 10))
	_, err := c.request(ctx, "remove_from_cart", http.MethodDelete, "/v1/carrito/remover", query, nil)
	return err
}

// ClearCart empties the remote cart
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.request(ctx, "clear_cart", http.MethodDelete, "/v1/carrito/limpiar", nil, nil)
	return err
}

// CheckoutResult is what the remote returns for a created order. Zero values
// mean the remote did not supply the field.
type CheckoutResult struct {
	ID        int64
	Total     int64
	Status    string
	CreatedAt time.Time
}

// Checkout turns the remote cart into an order
func (c *Client) Checkout(ctx context.Context) (*CheckoutResult, error) {
	raw, err := c.request(ctx, "checkout", http.MethodPost, "/v1/ordenes/checkout", nil, nil)
	if err != nil {
		return nil, err
	}
	o, err := NormalizeOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if o == nil {
		return &CheckoutResult{}, nil
	}
	return &CheckoutResult{
		ID:        o.ID,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}, nil
}

// ListOrders returns the remote order history
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	raw, err := c.request(ctx, "list_orders", http.MethodGet, "/v1/ordenes", nil, nil)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return []Order{}, nil
	}
	return NormalizeOrderList(raw)
}

// GetOrder returns one remote order
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	raw, err := c.request(ctx, "get_order", http.MethodGet, "/v1/ordenes/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeOrder(raw)
}

// CreateOrder posts an arbitrary order document
func (c *Client) CreateOrder(ctx context.Context, payload json.RawMessage) (*Order, error) {
	raw, err := c.request(ctx, "create_order", http.MethodPost, "/v1/ordenes", nil, payload)
	if err != nil {
		return nil, err
	}
	return NormalizeOrder(raw)
}

// UpdateOrder replaces a remote order document
func (c *Client) UpdateOrder(ctx context.Context, id int64, payload json.RawMessage) (*Order, error) {
	raw, err := c.request(ctx, "update_order", http.MethodPut, "/v1/ordenes/"+strconv.FormatInt(id, 10), nil, payload)
	if err != nil {
		return nil, err
	}
	return NormalizeOrder(raw)
}

// DeleteOrder deletes a remote order
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.request(ctx, "delete_order", http.MethodDelete, "/v1/ordenes/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}
