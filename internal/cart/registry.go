package cart

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"bakery-storefront/internal/storage"
)

// Registry hands out one Engine per session, creating them on first use
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine

	remote  RemoteCart
	store   storage.Store
	catalog ProductLookup
	logger  *zap.Logger
}

// NewRegistry creates an empty session registry
func NewRegistry(remoteCart RemoteCart, store storage.Store, catalog ProductLookup, logger *zap.Logger) *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
		remote:  remoteCart,
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// Get returns the engine for session
func (r *Registry) Get(session string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[session]; ok {
		return e
	}
	e := NewEngine(session, r.remote, r.store, r.catalog, r.logger)
	r.engines[session] = e
	return e
}

// Drop tears down the engine for session. Its persisted cart is kept.
func (r *Registry) Drop(session string) {
	r.mu.Lock()
	e, ok := r.engines[session]
	delete(r.engines, session)
	r.mu.Unlock()

	if ok {
		e.Close()
	}
}

// Sweep drops engines idle for longer than maxIdle and returns how many went
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []string
	for session, e := range r.engines {
		if e.IdleSince().Before(cutoff) {
			idle = append(idle, session)
		}
	}
	r.mu.Unlock()

	for _, session := range idle {
		r.Drop(session)
	}
	if len(idle) > 0 {
		r.logger.Debug("Dropped idle cart engines", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Len returns the number of live engines
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
