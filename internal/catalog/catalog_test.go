package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"bakery-storefront/internal/domain"
)

// mockRemote is a map-backed stand-in for the storefront API
type mockRemote struct {
	products map[int64]domain.Product
	nextID   int64
	listErr  error
	calls    []string
}

func newMockRemote() *mockRemote {
	return &mockRemote{products: make(map[int64]domain.Product), nextID: 1}
}

func (m *mockRemote) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Product, 0, len(m.products))
	for id := int64(1); id < m.nextID; id++ {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRemote) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.calls = append(m.calls, "get")
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockRemote) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	m.calls = append(m.calls, "create")
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return &p, nil
}

func (m *mockRemote) UpdateProduct(ctx context.Context, id int64, p domain.Product) (*domain.Product, error) {
	m.calls = append(m.calls, "update")
	p.ID = id
	m.products[id] = p
	return &p, nil
}

func (m *mockRemote) DeleteProduct(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "delete")
	delete(m.products, id)
	return nil
}

func genProduct() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Int64Range(0, 100000),
		gen.IntRange(0, 100),
	).Map(func(values []interface{}) domain.Product {
		return domain.Product{
			Code:            values[0].(string),
			BasePrice:       values[1].(int64),
			DiscountPercent: values[2].(int),
		}
	})
}

// Feature: storefront-catalog, Property 1: Offers are exactly the discounted products in order
func TestProperty_OnSaleSubset(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("OnSale keeps only positive discounts and preserves order", prop.ForAll(
		func(products []domain.Product) bool {
			sale := OnSale(products)
			j := 0
			for _, p := range products {
				if p.DiscountPercent > 0 {
					if j >= len(sale) || sale[j].Code != p.Code {
						return false
					}
					j++
				}
			}
			return j == len(sale)
		},
		gen.SliceOf(genProduct()),
	))

	properties.Property("effective price never exceeds base price", prop.ForAll(
		func(p domain.Product) bool {
			price := EffectivePrice(&p)
			return price >= 0 && price <= p.BasePrice
		},
		genProduct(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestOffers_DefaultCatalog(t *testing.T) {
	offers := Offers(DefaultProducts())

	want := map[string]int64{
		"TC001": 36000,
		"TT002": 35700,
		"PI001": 4500,
		"PG001": 3520,
		"TE001": 41250,
	}
	if len(offers) != len(want) {
		t.Fatalf("Expected %d offers, got %d", len(want), len(offers))
	}
	for _, o := range offers {
		if o.EffectivePrice != want[o.Code] {
			t.Errorf("%s: expected effective price %d, got %d", o.Code, want[o.Code], o.EffectivePrice)
		}
		if o.Savings != o.BasePrice-o.EffectivePrice {
			t.Errorf("%s: savings mismatch", o.Code)
		}
	}
	if offers[0].PriceLabel != "$36.000" {
		t.Errorf("Expected label $36.000, got %s", offers[0].PriceLabel)
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		src, base, want string
	}{
		{"", "/static", ""},
		{"img/Pastel_1.png", "/static/", "/static/img/Pastel_1.png"},
		{"/img/a.png", "", "/img/a.png"},
		{"https://cdn.example.com/a.png", "/static", "https://cdn.example.com/a.png"},
		{"data:image/png;base64,xx", "/static", "data:image/png;base64,xx"},
	}
	for _, tt := range tests {
		if got := ResolveImage(tt.src, tt.base); got != tt.want {
			t.Errorf("ResolveImage(%q, %q) = %q, want %q", tt.src, tt.base, got, tt.want)
		}
	}
}

func TestCache_SeededWithDefaults(t *testing.T) {
	c := NewCache(newMockRemote(), zap.NewNop())

	if got := len(c.All()); got != 16 {
		t.Fatalf("Expected 16 seeded products, got %d", got)
	}
	if got := len(c.Categories()); got != 8 {
		t.Errorf("Expected 8 categories, got %d", got)
	}
	p, err := c.Get(context.Background(), "PSA002")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.ImagePath != "img/cheesecake.png" || p.Stock != 10 || p.Status != domain.ProductAvailable {
		t.Errorf("Unexpected seed entry: %+v", p)
	}
}

func TestCache_ReloadFailureKeepsSeed(t *testing.T) {
	remote := newMockRemote()
	remote.listErr = errors.New("connection refused")
	c := NewCache(remote, zap.NewNop())

	if err := c.Reload(context.Background()); err == nil {
		t.Error("Expected reload error")
	}
	if got := len(c.All()); got != 16 {
		t.Errorf("Expected seeded products to remain, got %d", got)
	}
}

func TestCache_ReloadReplacesAndNotifies(t *testing.T) {
	remote := newMockRemote()
	_, _ = remote.CreateProduct(context.Background(), domain.Product{Code: "X1", Name: "Queque", BasePrice: 9000})
	c := NewCache(remote, zap.NewNop())

	updates, cancel := c.Subscribe(1)
	defer cancel()

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	select {
	case products := <-updates:
		if len(products) != 1 || products[0].Code != "X1" {
			t.Errorf("Unexpected update payload: %+v", products)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected catalog update notification")
	}

	if _, err := c.Get(context.Background(), "1"); err != nil {
		t.Errorf("Expected lookup by id to succeed: %v", err)
	}
}

func TestCache_Query(t *testing.T) {
	c := NewCache(newMockRemote(), zap.NewNop())

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"everything", Filter{}, 16},
		{"all categories keyword", Filter{Category: AllCategories}, 16},
		{"category", Filter{Category: "Tortas Especiales"}, 2},
		{"search by name", Filter{Search: "chocolate"}, 3},
		{"search by code", Filter{Search: "pg0"}, 2},
		{"status", Filter{Status: domain.ProductSoldOut}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(c.Query(tt.filter)); got != tt.want {
				t.Errorf("Expected %d products, got %d", tt.want, got)
			}
		})
	}
}

func TestCache_AdminCRUD(t *testing.T) {
	remote := newMockRemote()
	c := NewCache(remote, zap.NewNop())
	ctx := context.Background()

	created, err := c.Create(ctx, domain.Product{Code: "NEW01", Name: "Kuchen", BasePrice: 12000, Stock: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected remote id on created product")
	}

	if _, err := c.Create(ctx, domain.Product{Code: "NEW01"}); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}

	updated, err := c.Update(ctx, "NEW01", domain.Product{Name: "Kuchen de Nuez", BasePrice: 13000, Stock: 1})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Code != "NEW01" || updated.ID != created.ID {
		t.Errorf("Update must keep identity, got %+v", updated)
	}

	if _, err := c.Update(ctx, "MISSING", domain.Product{}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	if err := c.Delete(ctx, "NEW01"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, "NEW01"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound on second delete, got %v", err)
	}
	if _, ok := remote.products[created.ID]; ok {
		t.Error("Expected product to be deleted remotely")
	}
}

func TestCache_SeedEntriesUpdateLocally(t *testing.T) {
	remote := newMockRemote()
	c := NewCache(remote, zap.NewNop())

	if _, err := c.AdjustStock(context.Background(), "TC001", -15); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	p, _ := c.Get(context.Background(), "TC001")
	if p.Stock != 0 {
		t.Errorf("Expected stock clamped to 0, got %d", p.Stock)
	}
	if len(remote.calls) != 0 {
		t.Errorf("Seed entries have no remote id, expected no remote calls, got %v", remote.calls)
	}
}

func TestCache_Critical(t *testing.T) {
	c := NewCache(newMockRemote(), zap.NewNop())
	ctx := context.Background()

	soldOut, _ := c.Get(ctx, "PV002")
	soldOut.Stock = 0
	soldOut.Status = domain.ProductSoldOut
	if _, err := c.Update(ctx, "PV002", *soldOut); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := c.AdjustStock(ctx, "PT001", -8); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}

	if got := c.Critical(5, false, ""); len(got) != 2 {
		t.Errorf("Expected 2 critical products, got %d", len(got))
	}
	if got := c.Critical(5, true, ""); len(got) != 1 || got[0].Code != "PV002" {
		t.Errorf("Expected only PV002 when sold out only, got %+v", got)
	}

	restocked, err := c.AdjustStock(ctx, "PV002", 5)
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if restocked.Status != domain.ProductAvailable {
		t.Errorf("Expected restocked product to become available, got %s", restocked.Status)
	}
}
