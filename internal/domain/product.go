package domain

import "strings"

// ProductStatus is the availability state of a catalog entry
type ProductStatus string

const (
	ProductAvailable    ProductStatus = "available"
	ProductSoldOut      ProductStatus = "soldOut"
	ProductDiscontinued ProductStatus = "discontinued"
)

// ParseProductStatus maps the remote's status vocabulary onto ProductStatus.
// Unknown values fall back to the stock level.
func ParseProductStatus(raw string, stock int) ProductStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available", "disponible":
		return ProductAvailable
	case "soldout", "sold_out", "agotado":
		return ProductSoldOut
	case "discontinued", "descontinuado":
		return ProductDiscontinued
	}
	if stock > 0 {
		return ProductAvailable
	}
	return ProductSoldOut
}

// Category is the canonical category value resolved at the remote boundary
type Category struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Product represents a product in the catalog
type Product struct {
	ID              int64         `json:"id,omitempty"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	BasePrice       int64         `json:"basePrice"`
	DiscountPercent int           `json:"discountPercent"`
	Category        Category      `json:"category"`
	ImagePath       string        `json:"imagePath"`
	Stock           int           `json:"stock"`
	Status          ProductStatus `json:"status"`
}

// OnSale reports whether the product carries a positive discount
func (p *Product) OnSale() bool {
	return p != nil && p.DiscountPercent > 0
}
