package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"bakery-storefront/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts are whole Chilean pesos; there is no minor unit.
var printer = message.NewPrinter(language.Spanish)

var hundred = decimal.NewFromInt(100)

// FormatCurrency renders n as a zero-decimal CLP amount ("$10.000").
// Anything that is not a finite number renders as "$0".
func FormatCurrency(n any) string {
	v, ok := toInt64(n)
	if !ok {
		v = 0
	}
	if v < 0 {
		return "-$" + printer.Sprintf("%d", -v)
	}
	return "$" + printer.Sprintf("%d", v)
}

// DiscountedPrice returns the effective price of a product after its
// percentage discount, rounded to the nearest peso
func DiscountedPrice(p *domain.Product) int64 {
	if p == nil {
		return 0
	}
	base := p.BasePrice
	if base < 0 {
		base = 0
	}
	d := ClampDiscount(p.DiscountPercent)
	if d == 0 {
		return base
	}
	return decimal.NewFromInt(base).
		Mul(decimal.NewFromInt(int64(100 - d))).
		Div(hundred).
		Round(0).
		IntPart()
}

// ClampDiscount bounds a discount percentage to [0,100]
func ClampDiscount(d int) int {
	if d < 0 {
		return 0
	}
	if d > 100 {
		return 100
	}
	return d
}

// LineSubtotal is unitPrice x quantity with invalid quantities counted as 1
// and invalid prices as 0
func LineSubtotal(line domain.CartLine) int64 {
	price := line.UnitPrice
	if price < 0 {
		price = 0
	}
	qty := line.Quantity
	if qty <= 0 {
		qty = 1
	}
	return price * int64(qty)
}

// CartTotal sums the subtotals of every line
func CartTotal(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += LineSubtotal(line)
	}
	return total
}

func toInt64(n any) (int64, bool) {
	switch v := n.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case decimal.Decimal:
		return v.Round(0).IntPart(), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	default:
		return 0, false
	}
}

func fromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f)), true
}
