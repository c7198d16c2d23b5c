package pricing

import (
	"math"
	"strings"
	"testing"

	"bakery-storefront/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: storefront-pricing, Property 1: Discounted price stays within bounds
func TestProperty_DiscountedPriceWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("0 <= discountedPrice <= basePrice", prop.ForAll(
		func(base int64, discount int) bool {
			p := &domain.Product{BasePrice: base, DiscountPercent: discount}
			price := DiscountedPrice(p)
			if price < 0 || price > base {
				t.Logf("FAIL: base=%d discount=%d price=%d", base, discount, price)
				return false
			}
			return true
		},
		gen.Int64Range(0, 10_000_000),
		gen.IntRange(-20, 150),
	))

	properties.Property("no discount keeps the base price", prop.ForAll(
		func(base int64) bool {
			return DiscountedPrice(&domain.Product{BasePrice: base}) == base
		},
		gen.Int64Range(0, 10_000_000),
	))

	properties.Property("matches round(base * (1 - d/100))", prop.ForAll(
		func(base int64, discount int) bool {
			want := int64(math.Round(float64(base) * float64(100-discount) / 100))
			return DiscountedPrice(&domain.Product{BasePrice: base, DiscountPercent: discount}) == want
		},
		gen.Int64Range(0, 1_000_000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name    string
		product *domain.Product
		want    int64
	}{
		{"nil product", nil, 0},
		{"twenty percent", &domain.Product{BasePrice: 45000, DiscountPercent: 20}, 36000},
		{"fifteen percent", &domain.Product{BasePrice: 42000, DiscountPercent: 15}, 35700},
		{"rounds half up", &domain.Product{BasePrice: 4000, DiscountPercent: 12}, 3520},
		{"rounds fraction", &domain.Product{BasePrice: 5, DiscountPercent: 50}, 3},
		{"full discount", &domain.Product{BasePrice: 5000, DiscountPercent: 100}, 0},
		{"discount over 100 clamps", &domain.Product{BasePrice: 5000, DiscountPercent: 130}, 0},
		{"negative discount ignored", &domain.Product{BasePrice: 5000, DiscountPercent: -5}, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountedPrice(tt.product); got != tt.want {
				t.Errorf("DiscountedPrice() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Feature: storefront-pricing, Property 3: Cart total equals the sum of line subtotals
func TestProperty_CartTotalIsSumOfLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total equals sum of unitPrice*quantity", prop.ForAll(
		func(prices []int64, qty int) bool {
			lines := make([]domain.CartLine, 0, len(prices))
			var want int64
			for _, p := range prices {
				lines = append(lines, domain.CartLine{UnitPrice: p, Quantity: qty})
				want += p * int64(qty)
			}
			return CartTotal(lines) == want
		},
		gen.SliceOf(gen.Int64Range(0, 100_000)),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCartTotal(t *testing.T) {
	lines := []domain.CartLine{
		{UnitPrice: 1000, Quantity: 2},
		{UnitPrice: 500, Quantity: 1},
	}
	if got := CartTotal(lines); got != 2500 {
		t.Errorf("CartTotal() = %d, want 2500", got)
	}
	if got := CartTotal(nil); got != 0 {
		t.Errorf("CartTotal(nil) = %d, want 0", got)
	}
}

func TestLineSubtotal_CoercesInvalidValues(t *testing.T) {
	if got := LineSubtotal(domain.CartLine{UnitPrice: 700, Quantity: 0}); got != 700 {
		t.Errorf("zero quantity should count as 1, got %d", got)
	}
	if got := LineSubtotal(domain.CartLine{UnitPrice: -10, Quantity: 3}); got != 0 {
		t.Errorf("negative price should count as 0, got %d", got)
	}
}

func TestFormatCurrency(t *testing.T) {
	got := FormatCurrency(10000)
	if !strings.Contains(got, "10.000") {
		t.Errorf("FormatCurrency(10000) = %q, want grouped digits 10.000", got)
	}
	if strings.Contains(got, ",") {
		t.Errorf("FormatCurrency(10000) = %q, want no decimal component", got)
	}

	if got := FormatCurrency(1234567); !strings.Contains(got, "1.234.567") {
		t.Errorf("FormatCurrency(1234567) = %q", got)
	}
	if got := FormatCurrency(36000.4); !strings.Contains(got, "36.000") {
		t.Errorf("FormatCurrency(36000.4) = %q", got)
	}

	for _, in := range []any{nil, "abc", math.NaN(), struct{}{}} {
		if got := FormatCurrency(in); got != "$0" {
			t.Errorf("FormatCurrency(%v) = %q, want $0", in, got)
		}
	}
}

// Feature: storefront-pricing, Property 9: Currency output never carries decimals
func TestProperty_FormatCurrencyHasNoDecimals(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("formatted amounts contain only digits, dots and the symbol", prop.ForAll(
		func(n int64) bool {
			out := FormatCurrency(n)
			if !strings.HasPrefix(out, "$") {
				return false
			}
			return !strings.ContainsAny(out, ",")
		},
		gen.Int64Range(0, 1_000_000_000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
