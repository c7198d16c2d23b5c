package remote

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"bakery-storefront/internal/domain"
)

const (
	defaultCategoryName = "Otros"
	unnamedCategory     = "Sin categoría"
	unnamedProduct      = "Sin nombre"
)

// flexNumber accepts a JSON number, a numeric string or null
type flexNumber struct {
	value float64
	valid bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		n.value, n.valid = f, true
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.value, n.valid = f, true
	return nil
}

func (n *flexNumber) int64Or(def int64) int64 {
	if n == nil || !n.valid || math.IsNaN(n.value) || math.IsInf(n.value, 0) {
		return def
	}
	return int64(math.Round(n.value))
}

// rawCategory resolves a category sent either as a plain name or as an object
type rawCategory struct {
	id     int64
	name   string
	object bool
}

func (c *rawCategory) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &c.name)
	}
	var obj struct {
		ID     flexNumber `json:"id"`
		Nombre string     `json:"nombre"`
		Name   string     `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	c.object = true
	c.id = obj.ID.int64Or(0)
	c.name = firstNonEmpty(obj.Nombre, obj.Name)
	return nil
}

func (c *rawCategory) resolve() (domain.Category, bool) {
	if c == nil {
		return domain.Category{}, false
	}
	if c.object {
		return domain.Category{ID: c.id, Name: firstNonEmpty(c.name, unnamedCategory)}, true
	}
	if c.name == "" {
		return domain.Category{}, false
	}
	return domain.Category{Name: c.name}, true
}

type rawProduct struct {
	ID          *flexNumber  `json:"id"`
	Codigo      string       `json:"codigo"`
	Nombre      string       `json:"nombre"`
	Name        string       `json:"name"`
	Precio      *flexNumber  `json:"precio"`
	Price       *flexNumber  `json:"price"`
	Descripcion string       `json:"descripcion"`
	Description string       `json:"description"`
	Img         string       `json:"img"`
	Image       string       `json:"image"`
	ImagenURL   string       `json:"imagenUrl"`
	Descuento   *flexNumber  `json:"descuento"`
	Discount    *flexNumber  `json:"discount"`
	Stock       *flexNumber  `json:"stock"`
	Estado      string       `json:"estado"`
	Categoria   *rawCategory `json:"categoria"`
	Category    *rawCategory `json:"category"`
}

func (p rawProduct) toDomain() domain.Product {
	id := p.ID.int64Or(0)
	code := p.Codigo
	if code == "" && id > 0 {
		code = strconv.FormatInt(id, 10)
	}

	price := p.Precio
	if price == nil || !price.valid {
		price = p.Price
	}
	discount := p.Descuento
	if discount == nil || !discount.valid {
		discount = p.Discount
	}
	stock := int(p.Stock.int64Or(0))

	category := domain.Category{Name: defaultCategoryName}
	if c, ok := p.Categoria.resolve(); ok {
		category = c
	} else if c, ok := p.Category.resolve(); ok {
		category = c
	}

	return domain.Product{
		ID:              id,
		Code:            code,
		Name:            firstNonEmpty(p.Nombre, p.Name, p.Codigo, unnamedProduct),
		Description:     firstNonEmpty(p.Descripcion, p.Description),
		BasePrice:       price.int64Or(0),
		DiscountPercent: int(discount.int64Or(0)),
		Category:        category,
		ImagePath:       firstNonEmpty(p.Img, p.Image, p.ImagenURL),
		Stock:           stock,
		Status:          domain.ParseProductStatus(p.Estado, stock),
	}
}

// NormalizeProduct maps a single remote product document onto domain.Product
func NormalizeProduct(raw []byte) (*domain.Product, error) {
	if isNull(raw) {
		return nil, ErrUnrecognizedShape
	}
	var rp rawProduct
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, err
	}
	p := rp.toDomain()
	return &p, nil
}

// NormalizeProductList accepts a bare array or an object wrapping one.
// Well-known wrapper keys are tried first, then _embedded, then any array field.
func NormalizeProductList(raw []byte) ([]domain.Product, error) {
	items, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		var rp rawProduct
		if err := json.Unmarshal(item, &rp); err != nil {
			continue
		}
		products = append(products, rp.toDomain())
	}
	return products, nil
}

func unwrapArray(raw []byte) ([]json.RawMessage, error) {
	if isNull(raw) {
		return nil, ErrUnrecognizedShape
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, ErrUnrecognizedShape
	}

	for _, key := range []string{"content", "data", "products", "items", "results"} {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, &arr); err == nil && arr != nil {
				return arr, nil
			}
		}
	}

	if embedded, ok := obj["_embedded"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(embedded, &inner); err == nil {
			if arr, err := firstArrayField(inner); err == nil {
				return arr, nil
			}
		}
	}

	return firstArrayField(obj)
}

// firstArrayField picks the first array-valued property in key order
func firstArrayField(obj map[string]json.RawMessage) ([]json.RawMessage, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var arr []json.RawMessage
		if err := json.Unmarshal(obj[k], &arr); err == nil && arr != nil {
			return arr, nil
		}
	}
	return nil, ErrUnrecognizedShape
}

type rawCartItem struct {
	ID             flexNumber `json:"id"`
	ProductoID     flexNumber `json:"productoId"`
	ProductoNombre string     `json:"productoNombre"`
	ProductoPrecio flexNumber `json:"productoPrecio"`
	ProductoImagen string     `json:"productoImagen"`
	Cantidad       flexNumber `json:"cantidad"`
}

// NormalizeCart maps the remote cart document onto cart lines
func NormalizeCart(raw []byte) ([]domain.CartLine, error) {
	if isNull(raw) {
		return []domain.CartLine{}, nil
	}
	var doc struct {
		Items []rawCartItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(doc.Items))
	for _, item := range doc.Items {
		productID := item.ProductoID.int64Or(0)
		code := ""
		if productID != 0 {
			code = strconv.FormatInt(productID, 10)
		}
		qty := int(item.Cantidad.int64Or(1))
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, domain.CartLine{
			ProductCode: code,
			ProductID:   productID,
			ItemID:      item.ID.int64Or(0),
			Name:        firstNonEmpty(item.ProductoNombre, unnamedProduct),
			UnitPrice:   item.ProductoPrecio.int64Or(0),
			Image:       item.ProductoImagen,
			Quantity:    qty,
		})
	}
	return lines, nil
}

// Order is the remote view of a persisted order
type Order struct {
	ID        int64           `json:"id"`
	Total     int64           `json:"total"`
	Status    string          `json:"estado"`
	CreatedAt time.Time       `json:"fecha"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

type rawOrder struct {
	ID         flexNumber `json:"id"`
	Total      flexNumber `json:"total"`
	Estado     string     `json:"estado"`
	Status     string     `json:"status"`
	Fecha      string     `json:"fecha"`
	CreatedAt  string     `json:"createdAt"`
	CreatedAt2 string     `json:"created_at"`
}

// NormalizeOrder maps a remote order document. A null body yields nil.
func NormalizeOrder(raw []byte) (*Order, error) {
	if isNull(raw) {
		return nil, nil
	}
	var ro rawOrder
	if err := json.Unmarshal(raw, &ro); err != nil {
		return nil, err
	}
	return &Order{
		ID:        ro.ID.int64Or(0),
		Total:     ro.Total.int64Or(0),
		Status:    firstNonEmpty(ro.Estado, ro.Status),
		CreatedAt: parseTimestamp(firstNonEmpty(ro.Fecha, ro.CreatedAt, ro.CreatedAt2)),
		Raw:       append(json.RawMessage(nil), raw...),
	}, nil
}

// NormalizeOrderList maps an order listing in any of the list shapes
func NormalizeOrderList(raw []byte) ([]Order, error) {
	items, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(items))
	for _, item := range items {
		o, err := NormalizeOrder(item)
		if err != nil || o == nil {
			continue
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// productPayload is the write shape the remote expects for admin CRUD
type productPayload struct {
	Codigo      string         `json:"codigo,omitempty"`
	Nombre      string         `json:"nombre"`
	Precio      int64          `json:"precio"`
	Descripcion string         `json:"descripcion"`
	ImagenURL   string         `json:"imagenUrl,omitempty"`
	Descuento   int            `json:"descuento"`
	Stock       int            `json:"stock"`
	Estado      string         `json:"estado"`
	Categoria   map[string]any `json:"categoria,omitempty"`
}

func toProductPayload(p domain.Product) productPayload {
	var category map[string]any
	switch {
	case p.Category.ID > 0:
		category = map[string]any{"id": p.Category.ID}
	case p.Category.Name != "":
		category = map[string]any{"nombre": p.Category.Name}
	}

	estado := "disponible"
	switch p.Status {
	case domain.ProductSoldOut:
		estado = "agotado"
	case domain.ProductDiscontinued:
		estado = "descontinuado"
	}

	return productPayload{
		Codigo:      p.Code,
		Nombre:      p.Name,
		Precio:      p.BasePrice,
		Descripcion: p.Description,
		ImagenURL:   p.ImagePath,
		Descuento:   p.DiscountPercent,
		Stock:       p.Stock,
		Estado:      estado,
		Categoria:   category,
	}
}

func isNull(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
