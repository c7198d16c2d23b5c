package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a session has nothing stored under a key
var ErrNotFound = errors.New("key not found")

// Keys used by the storefront
const (
	KeyCart      = "carrito"
	KeyLastOrder = "ultima_orden"
)

// Store is a session-scoped single-slot key/value store. Writes are
// last-writer-wins per (session, key).
type Store interface {
	Get(ctx context.Context, session, key string) ([]byte, error)
	Set(ctx context.Context, session, key string, value []byte) error
	Delete(ctx context.Context, session, key string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates an in-process store. A ttl of zero keeps entries forever.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		data: make(map[string]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *memoryStore) Get(ctx context.Context, session, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.data[compositeKey(session, key)]
	s.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (s *memoryStore) Set(ctx context.Context, session, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.data[compositeKey(session, key)] = entry
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, session, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.data, compositeKey(session, key))
	s.mu.Unlock()
	return nil
}

func compositeKey(session, key string) string {
	return session + ":" + key
}
