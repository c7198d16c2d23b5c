package cart

import (
	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/pricing"
)

// Pure cart transitions. Each returns a fresh slice and never modifies its
// input, so callers may hand out the previous slice as a snapshot.

// AddProduct adds one unit of p. An existing line, found by code or by remote
// product id, gets its unit price refreshed and its quantity incremented; a new
// line is appended at quantity 1. A line already at the limit is left untouched
// and limitReached is true.
func AddProduct(lines []domain.CartLine, p *domain.Product) (next []domain.CartLine, limitReached bool) {
	next = domain.CloneLines(lines)
	if p == nil || p.Code == "" {
		return next, false
	}

	price := pricing.DiscountedPrice(p)
	for i := range next {
		if !holds(next[i], p) {
			continue
		}
		next[i].ProductCode = p.Code
		if next[i].ProductID == 0 {
			next[i].ProductID = p.ID
		}
		qty := quantity(next[i])
		if qty >= domain.MaxLineQuantity {
			return next, true
		}
		next[i].UnitPrice = price
		next[i].Quantity = qty + 1
		return next, false
	}

	return append(next, domain.CartLine{
		ProductCode: p.Code,
		ProductID:   p.ID,
		Name:        p.Name,
		UnitPrice:   price,
		Image:       p.ImagePath,
		Quantity:    domain.MinLineQuantity,
	}), false
}

// Increment raises a line's quantity by one, up to the limit
func Increment(lines []domain.CartLine, code string) []domain.CartLine {
	next := domain.CloneLines(lines)
	for i := range next {
		if next[i].ProductCode == code {
			next[i].Quantity = min(quantity(next[i])+1, domain.MaxLineQuantity)
		}
	}
	return next
}

// Decrement lowers a line's quantity by one, never below one
func Decrement(lines []domain.CartLine, code string) []domain.CartLine {
	next := domain.CloneLines(lines)
	for i := range next {
		if next[i].ProductCode == code {
			next[i].Quantity = max(quantity(next[i])-1, domain.MinLineQuantity)
		}
	}
	return next
}

// Remove drops the line for code. Unknown codes leave the cart unchanged.
func Remove(lines []domain.CartLine, code string) []domain.CartLine {
	next := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ProductCode != code {
			next = append(next, line)
		}
	}
	return next
}

// lineGrowth is one line a merge raised, with the units it gained
type lineGrowth struct {
	line  domain.CartLine
	delta int
}

// Merge folds the lines of another cart into lines. Matching lines, by code or
// remote product id, add their quantities up to the limit; the rest are
// appended. It also returns every line that grew and by how much.
func Merge(lines, from []domain.CartLine) ([]domain.CartLine, []lineGrowth) {
	next := domain.CloneLines(lines)
	var grown []lineGrowth

	for _, src := range Sanitize(from) {
		idx := -1
		for i := range next {
			if next[i].ProductCode == src.ProductCode || (src.ProductID > 0 && next[i].ProductID == src.ProductID) {
				idx = i
				break
			}
		}
		if idx < 0 {
			next = append(next, src)
			grown = append(grown, lineGrowth{line: src, delta: src.Quantity})
			continue
		}

		before := quantity(next[idx])
		after := min(before+src.Quantity, domain.MaxLineQuantity)
		if next[idx].ProductID == 0 {
			next[idx].ProductID = src.ProductID
		}
		if after == before {
			continue
		}
		next[idx].Quantity = after
		grown = append(grown, lineGrowth{line: next[idx], delta: after - before})
	}
	return next, grown
}

// Clear returns an empty cart
func Clear() []domain.CartLine {
	return []domain.CartLine{}
}

// Sanitize drops lines without a product code and clamps quantities into range.
// It is applied to state read back from storage or the remote.
func Sanitize(lines []domain.CartLine) []domain.CartLine {
	next := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ProductCode == "" {
			continue
		}
		line.Quantity = min(max(quantity(line), domain.MinLineQuantity), domain.MaxLineQuantity)
		if line.UnitPrice < 0 {
			line.UnitPrice = 0
		}
		next = append(next, line)
	}
	return next
}

// holds reports whether line is the cart line for p. Lines adopted from the
// remote cart may carry the numeric product id in place of the catalog code.
func holds(line domain.CartLine, p *domain.Product) bool {
	if line.ProductCode == p.Code {
		return true
	}
	return p.ID > 0 && line.ProductID == p.ID
}

func quantity(line domain.CartLine) int {
	if line.Quantity <= 0 {
		return 1
	}
	return line.Quantity
}

func lineQuantity(lines []domain.CartLine, code string) (int, bool) {
	for _, line := range lines {
		if line.ProductCode == code {
			return quantity(line), true
		}
	}
	return 0, false
}

func snapshot(lines []domain.CartLine) domain.Cart {
	cloned := domain.CloneLines(lines)
	return domain.Cart{Lines: cloned, Total: pricing.CartTotal(cloned)}
}
