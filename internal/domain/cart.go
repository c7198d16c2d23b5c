package domain

const (
	// MinLineQuantity is the lowest quantity a present cart line may hold
	MinLineQuantity = 1
	// MaxLineQuantity is the per-product purchase limit
	MaxLineQuantity = 5
)

// CartLine is one product's presence in a cart. UnitPrice is a snapshot of the
// discounted price at the time the product was added.
type CartLine struct {
	ProductCode string `json:"codigo"`
	ProductID   int64  `json:"productId,omitempty"`
	ItemID      int64  `json:"itemId,omitempty"`
	Name        string `json:"nombre"`
	UnitPrice   int64  `json:"precio"`
	Image       string `json:"img,omitempty"`
	Quantity    int    `json:"cantidad"`
}

// Cart is the ordered collection of lines for one session
type Cart struct {
	Lines []CartLine `json:"items"`
	Total int64      `json:"total"`
}

// Find returns the index of the line holding code, or -1
func (c Cart) Find(code string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductCode == code {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart holds no lines
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// CloneLines copies lines so callers never alias engine state
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return []CartLine{}
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
