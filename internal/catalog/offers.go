package catalog

import (
	"regexp"
	"strings"

	"bakery-storefront/internal/domain"
	"bakery-storefront/internal/pricing"
)

// OnSale returns the products with a positive discount, in input order
func OnSale(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for i := range products {
		if products[i].OnSale() {
			out = append(out, products[i])
		}
	}
	return out
}

// EffectivePrice is the price a shopper pays for one unit of p
func EffectivePrice(p *domain.Product) int64 {
	return pricing.DiscountedPrice(p)
}

// Offer is an on-sale product with its computed prices
type Offer struct {
	domain.Product
	EffectivePrice int64  `json:"effectivePrice"`
	Savings        int64  `json:"savings"`
	PriceLabel     string `json:"priceLabel"`
	BaseLabel      string `json:"basePriceLabel"`
}

// Offers builds the offer view of the on-sale subset
func Offers(products []domain.Product) []Offer {
	sale := OnSale(products)
	offers := make([]Offer, 0, len(sale))
	for i := range sale {
		price := EffectivePrice(&sale[i])
		offers = append(offers, Offer{
			Product:        sale[i],
			EffectivePrice: price,
			Savings:        sale[i].BasePrice - price,
			PriceLabel:     pricing.FormatCurrency(price),
			BaseLabel:      pricing.FormatCurrency(sale[i].BasePrice),
		})
	}
	return offers
}

var absoluteImage = regexp.MustCompile(`(?i)^(https?://|data:)`)

// ResolveImage prefixes a relative image path with the asset base URL.
// Absolute URLs and data URIs are returned unchanged.
func ResolveImage(src, baseURL string) string {
	if src == "" {
		return ""
	}
	if absoluteImage.MatchString(src) {
		return src
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(src, "/")
}
