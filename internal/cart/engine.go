package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/metrics"
	"bakery-storefront/internal/pricing"
	"bakery-storefront/internal/pubsub"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/storage"
)

// RemoteCart is the authoritative cart held by the storefront API
type RemoteCart interface {
	GetCart(ctx context.Context) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error
}

// ProductLookup resolves a product code to a catalog entry
type ProductLookup interface {
	Get(ctx context.Context, codeOrID string) (*domain.Product, error)
}

// Result describes the outcome of Add
type Result struct {
	Cart         domain.Cart `json:"cart"`
	LimitReached bool        `json:"limitReached"`
}

// Engine owns one session's cart. Mutations are serialized; each applies the
// pure transition locally, persists it, then mirrors it to the remote cart
// when the session is authenticated. Remote failures never undo local state.
type Engine struct {
	session string
	remote  RemoteCart
	store   storage.Store
	catalog ProductLookup
	logger  *zap.Logger

	mu       sync.Mutex
	lines    []domain.CartLine
	lastUsed time.Time

	loads     singleflight.Group
	observers *pubsub.Broker[domain.Cart]
}

// NewEngine creates the cart engine for one session. catalog may be nil, in
// which case only numeric product codes can be mirrored remotely.
func NewEngine(session string, remoteCart RemoteCart, store storage.Store, catalog ProductLookup, logger *zap.Logger) *Engine {
	return &Engine{
		session:   session,
		remote:    remoteCart,
		store:     store,
		catalog:   catalog,
		logger:    logger.With(zap.String("session_id", session)),
		lines:     []domain.CartLine{},
		lastUsed:  time.Now(),
		observers: pubsub.NewBroker[domain.Cart](),
	}
}

// Load reconciles the cart. An authenticated session adopts a non-empty remote
// cart and mirrors it locally. Otherwise, or when the remote is empty or
// unreachable, the local copy is used. Load never fails; corrupt local data
// reads as an empty cart.
func (e *Engine) Load(ctx context.Context) domain.Cart {
	if lines, ok := e.fetchRemote(ctx); ok && len(lines) > 0 {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.commit(ctx, e.withCatalogCodes(ctx, lines))
		return snapshot(e.lines)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	e.lines = e.readLocal(ctx)
	return snapshot(e.lines)
}

// Add puts one unit of p in the cart
func (e *Engine) Add(ctx context.Context, p *domain.Product) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.readLocal(ctx)
	next, limitReached := AddProduct(current, p)
	if limitReached || p == nil || p.Code == "" {
		metrics.RecordCartMutation("add", metrics.PathNoop)
		e.lines = current
		return Result{Cart: snapshot(current), LimitReached: limitReached}, nil
	}
	e.commit(ctx, next)

	idx := domain.Cart{Lines: next}.Find(p.Code)
	if err := e.mirror(ctx, "add", next[idx], 1); err != nil {
		return Result{Cart: snapshot(e.lines)}, err
	}
	return Result{Cart: snapshot(e.lines)}, nil
}

// Increment raises the quantity of code by one. A line at the limit, or an
// unknown code, is left alone and nothing is sent to the remote.
func (e *Engine) Increment(ctx context.Context, code string) (domain.Cart, error) {
	return e.step(ctx, "increment", code, 1, Increment)
}

// Decrement lowers the quantity of code by one. A line at quantity one is left
// alone; use Remove to drop it.
func (e *Engine) Decrement(ctx context.Context, code string) (domain.Cart, error) {
	return e.step(ctx, "decrement", code, -1, Decrement)
}

func (e *Engine) step(ctx context.Context, op, code string, delta int, transition func([]domain.CartLine, string) []domain.CartLine) (domain.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.readLocal(ctx)
	before, found := lineQuantity(current, code)
	next := transition(current, code)
	after, _ := lineQuantity(next, code)
	if !found || before == after {
		metrics.RecordCartMutation(op, metrics.PathNoop)
		e.lines = current
		return snapshot(current), nil
	}
	e.commit(ctx, next)

	line := next[domain.Cart{Lines: next}.Find(code)]
	if err := e.mirror(ctx, op, line, delta); err != nil {
		return snapshot(e.lines), err
	}
	return snapshot(e.lines), nil
}

// Remove drops the line for code. Removing an absent code is a no-op.
func (e *Engine) Remove(ctx context.Context, code string) (domain.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.readLocal(ctx)
	idx := domain.Cart{Lines: current}.Find(code)
	if idx < 0 {
		metrics.RecordCartMutation("remove", metrics.PathNoop)
		e.lines = current
		return snapshot(current), nil
	}
	removed := current[idx]
	removed.Quantity = 0
	e.commit(ctx, Remove(current, code))

	if err := e.mirror(ctx, "remove", removed, 0); err != nil {
		return snapshot(e.lines), err
	}
	return snapshot(e.lines), nil
}

// Clear empties the cart. Callers confirm with the shopper before calling it.
func (e *Engine) Clear(ctx context.Context) (domain.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commit(ctx, Clear())

	if !remote.HasSession(ctx) {
		metrics.RecordCartMutation("clear", metrics.PathLocal)
		return snapshot(e.lines), nil
	}
	if err := e.remote.ClearCart(ctx); err != nil {
		if ctx.Err() != nil && remote.IsCanceled(err) {
			return snapshot(e.lines), err
		}
		metrics.RecordCartMutation("clear", metrics.PathFallback)
		e.logger.Warn("Failed to clear remote cart, local cart cleared", zap.Error(err))
		return snapshot(e.lines), nil
	}
	metrics.RecordCartMutation("clear", metrics.PathMirrored)
	return snapshot(e.lines), nil
}

// Merge folds lines from another cart into this one, as Merge does for plain
// slices. Every grown line is mirrored like an add of the units it gained.
func (e *Engine) Merge(ctx context.Context, lines []domain.CartLine) (domain.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.readLocal(ctx)
	next, grown := Merge(current, lines)
	if len(grown) == 0 {
		metrics.RecordCartMutation("merge", metrics.PathNoop)
		e.lines = current
		return snapshot(current), nil
	}
	e.commit(ctx, next)

	for _, g := range grown {
		if err := e.mirror(ctx, "merge", g.line, g.delta); err != nil {
			return snapshot(e.lines), err
		}
	}
	return snapshot(e.lines), nil
}

// Peek reads the locally persisted cart without contacting the remote
func (e *Engine) Peek(ctx context.Context) domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = e.readLocal(ctx)
	return snapshot(e.lines)
}

// Snapshot returns the last known cart without touching storage or the remote
func (e *Engine) Snapshot() domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.lines)
}

// Total returns the sum of the last known cart's line subtotals
func (e *Engine) Total() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pricing.CartTotal(e.lines)
}

// Subscribe returns a channel receiving a cart snapshot after every change
func (e *Engine) Subscribe(buffer int) (<-chan domain.Cart, func()) {
	return e.observers.Subscribe(buffer)
}

// Close releases the engine's subscribers
func (e *Engine) Close() {
	e.observers.Close()
}

// IdleSince reports when the engine was last used
func (e *Engine) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// mirror sends one local step to the remote cart and, when the remote accepted
// it, adopts the remote cart. It must be called with mu held. Only a canceled
// context is reported to the caller.
func (e *Engine) mirror(ctx context.Context, op string, line domain.CartLine, delta int) error {
	if !remote.HasSession(ctx) {
		metrics.RecordCartMutation(op, metrics.PathLocal)
		return nil
	}

	productID := e.productID(ctx, line)
	if productID <= 0 {
		metrics.RecordCartMutation(op, metrics.PathLocal)
		e.logger.Debug("Cart line has no remote product id, kept local only",
			zap.String("operation", op),
			zap.String("code", line.ProductCode),
		)
		return nil
	}

	var err error
	if line.Quantity <= 0 {
		err = e.remote.RemoveFromCart(ctx, productID)
	} else {
		err = e.remote.AddToCart(ctx, productID, delta)
	}
	if err != nil {
		if ctx.Err() != nil && remote.IsCanceled(err) {
			return err
		}
		metrics.RecordCartMutation(op, metrics.PathFallback)
		e.logger.Warn("Failed to mirror cart change, keeping local cart",
			zap.String("operation", op),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return nil
	}
	metrics.RecordCartMutation(op, metrics.PathMirrored)

	if lines, ok := e.fetchRemote(ctx); ok && len(lines) > 0 {
		e.commit(ctx, e.withCatalogCodes(ctx, lines))
	}
	return nil
}

// withCatalogCodes gives remote lines, which are keyed by product id, the
// catalog code the shopper added them under. The code comes from the current
// cart first and the catalog second; a line neither knows keeps its id as code.
// It must be called with mu held.
func (e *Engine) withCatalogCodes(ctx context.Context, lines []domain.CartLine) []domain.CartLine {
	known := make(map[int64]string, len(e.lines))
	for _, line := range e.lines {
		if line.ProductID > 0 && line.ProductCode != "" {
			known[line.ProductID] = line.ProductCode
		}
	}

	next := domain.CloneLines(lines)
	for i := range next {
		id := next[i].ProductID
		if id <= 0 || next[i].ProductCode != strconv.FormatInt(id, 10) {
			continue
		}
		if code, ok := known[id]; ok {
			next[i].ProductCode = code
			continue
		}
		if e.catalog == nil {
			continue
		}
		if p, err := e.catalog.Get(ctx, next[i].ProductCode); err == nil && p != nil && p.Code != "" {
			next[i].ProductCode = p.Code
			if next[i].Image == "" {
				next[i].Image = p.ImagePath
			}
		}
	}
	return next
}

// fetchRemote reads the remote cart. Concurrent fetches for the same session
// share one request.
func (e *Engine) fetchRemote(ctx context.Context) ([]domain.CartLine, bool) {
	if !remote.HasSession(ctx) {
		return nil, false
	}

	v, err, _ := e.loads.Do(e.session, func() (any, error) {
		return e.remote.GetCart(ctx)
	})
	if err != nil {
		e.logger.Warn("Failed to load remote cart, using local cart", zap.Error(err))
		return nil, false
	}
	lines, _ := v.([]domain.CartLine)
	return Sanitize(lines), true
}

func (e *Engine) productID(ctx context.Context, line domain.CartLine) int64 {
	if line.ProductID > 0 {
		return line.ProductID
	}
	if id, err := strconv.ParseInt(line.ProductCode, 10, 64); err == nil && id > 0 {
		return id
	}
	if e.catalog == nil {
		return 0
	}
	p, err := e.catalog.Get(ctx, line.ProductCode)
	if err != nil || p == nil {
		return 0
	}
	return p.ID
}

// commit replaces the in-memory cart, persists it and notifies observers. It
// must be called with mu held.
func (e *Engine) commit(ctx context.Context, lines []domain.CartLine) {
	e.touch()
	e.lines = domain.CloneLines(lines)

	data, err := json.Marshal(e.lines)
	if err != nil {
		e.logger.Error("Failed to encode cart", zap.Error(err))
	} else if err := e.store.Set(ctx, e.session, storage.KeyCart, data); err != nil {
		e.logger.Error("Failed to persist cart", zap.Error(err))
	}

	e.observers.Publish(snapshot(e.lines))
}

func (e *Engine) readLocal(ctx context.Context) []domain.CartLine {
	data, err := e.store.Get(ctx, e.session, storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		return []domain.CartLine{}
	}
	if err != nil {
		// An unreadable store must not wipe the cart on the next write
		e.logger.Warn("Failed to read local cart, using last known cart", zap.Error(err))
		return domain.CloneLines(e.lines)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		e.logger.Debug("Discarding corrupt local cart", zap.Error(err))
		return []domain.CartLine{}
	}
	return Sanitize(lines)
}

func (e *Engine) touch() {
	e.lastUsed = time.Now()
}
