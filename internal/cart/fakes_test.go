package cart

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"bakery-storefront/internal/catalog"
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/storage"
)

// fakeRemote is a map-backed remote cart keyed by product id
type fakeRemote struct {
	mu       sync.Mutex
	qty      map[int64]int
	names    map[int64]string
	prices   map[int64]int64
	err      error
	getCalls int
	calls    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		qty:    make(map[int64]int),
		names:  make(map[int64]string),
		prices: make(map[int64]int64),
	}
}

func (f *fakeRemote) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}

	ids := make([]int64, 0, len(f.qty))
	for id := range f.qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]domain.CartLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, domain.CartLine{
			ProductCode: strconv.FormatInt(id, 10),
			ProductID:   id,
			Name:        f.names[id],
			UnitPrice:   f.prices[id],
			Quantity:    f.qty[id],
		})
	}
	return lines, nil
}

func (f *fakeRemote) AddToCart(ctx context.Context, productID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "add "+strconv.FormatInt(productID, 10)+" "+strconv.Itoa(qty))
	if f.err != nil {
		return f.err
	}
	f.qty[productID] += qty
	if f.qty[productID] <= 0 {
		delete(f.qty, productID)
	}
	return nil
}

func (f *fakeRemote) RemoveFromCart(ctx context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove "+strconv.FormatInt(productID, 10))
	if f.err != nil {
		return f.err
	}
	delete(f.qty, productID)
	return nil
}

func (f *fakeRemote) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "clear")
	if f.err != nil {
		return f.err
	}
	f.qty = make(map[int64]int)
	return nil
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeCatalog resolves codes against a fixed product list
type fakeCatalog map[string]domain.Product

func (c fakeCatalog) Get(ctx context.Context, codeOrID string) (*domain.Product, error) {
	if p, ok := c[codeOrID]; ok {
		return &p, nil
	}
	for _, p := range c {
		if p.ID > 0 && strconv.FormatInt(p.ID, 10) == codeOrID {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

// flakyStore fails reads while failing is set
type flakyStore struct {
	storage.Store
	mu      sync.Mutex
	failing bool
}

func (s *flakyStore) fail(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = on
}

func (s *flakyStore) Get(ctx context.Context, session, key string) ([]byte, error) {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return nil, errors.New("connection reset")
	}
	return s.Store.Get(ctx, session, key)
}
