package catalog

import "bakery-storefront/internal/domain"

const defaultStock = 10

type seed struct {
	code, category, name, description, image string
	price                                    int64
	discount                                 int
}

var defaultCatalog = []seed{
	{"TC001", "Tortas Cuadradas", "Torta Cuadrada de Chocolate", "Deliciosa torta de chocolate con capas de ganache y un toque de avellanas. Personalizable con mensajes especiales", "img/Pastel_1.png", 45000, 20},
	{"TC002", "Tortas Cuadradas", "Torta Cuadrada de Frutas", "Una mezcla de frutas frescas y crema chantilly sobre un suave bizcocho de vainilla, ideal para celebraciones.", "img/Pastel_2.png", 50000, 0},
	{"TT001", "Tortas Circulares", "Torta Circular de Vainilla", "Bizcocho de vainilla clásico relleno con crema pastelera y cubierto con un glaseado dulce, perfecto para cualquier ocasión.", "img/Pastel_3.png", 40000, 0},
	{"TT002", "Tortas Circulares", "Torta Circular de Manjar", "Torta tradicional chilena con manjar y nueces, un deleite para los amantes de los sabores dulces y clásicos.", "img/Pastel_4.png", 42000, 15},
	{"PI001", "Postres Individuales", "Mousse de Chocolate", "Postre individual cremoso y suave, hecho con chocolate de alta calidad, ideal para los amantes del chocolate.", "img/Pastel_5.png", 5000, 10},
	{"PI002", "Postres Individuales", "Tiramisú Clásico", "Un postre italiano individual con capas de café, mascarpone y cacao, perfecto para finalizar cualquier comida.", "img/Pastel_6.png", 5500, 0},
	{"PSA001", "Productos Sin Azúcar", "Torta Sin Azúcar de Naranja", "Torta ligera y deliciosa, endulzada naturalmente, ideal para quienes buscan opciones más saludables.", "img/Pastel_7.png", 48000, 0},
	{"PSA002", "Productos Sin Azúcar", "Cheesecake Sin Azúcar", "Suave y cremoso, este cheesecake es una opción perfecta para disfrutar sin culpa.", "img/cheesecake.png", 47000, 0},
	{"PT001", "Pastelería Tradicional", "Empanada de Manzana", "Pastelería tradicional rellena de manzanas especiadas, perfecta para un dulce desayuno o merienda.", "img/Pastel_8.png", 3000, 0},
	{"PT002", "Pastelería Tradicional", "Tarta de Santiago", "Tradicional tarta española hecha con almendras, azúcar, y huevos, una delicia para los amantes de los postres clásicos.", "img/Pastel_9.png", 6000, 0},
	{"PG001", "Productos Sin Gluten", "Brownie Sin Gluten", "Rico y denso, este brownie es perfecto para quienes necesitan evitar el gluten sin sacrificar el sabor.", "img/Pastel_10.png", 4000, 12},
	{"PG002", "Productos Sin Gluten", "Pan Sin Gluten", "Suave y esponjoso, ideal para sándwiches o para acompañar cualquier comida.", "img/Pastel_11.png", 3500, 0},
	{"PV001", "Productos Veganos", "Torta Vegana de Chocolate", "Torta de chocolate húmeda y deliciosa, hecha sin productos de origen animal, perfecta para veganos.", "img/Pastel_12.png", 50000, 0},
	{"PV002", "Productos Veganos", "Galletas Veganas de Avena", "Crujientes y sabrosas, estas galletas son una excelente opción para un snack saludable y vegano.", "img/Pastel_13.png", 4500, 0},
	{"TE001", "Tortas Especiales", "Torta Especial de Cumpleaños", "Diseñada especialmente para celebraciones, personalizable con decoraciones y mensajes únicos.", "img/Pastel_14.png", 55000, 25},
	{"TE002", "Tortas Especiales", "Torta Especial de Boda", "Elegante y deliciosa, esta torta está diseñada para ser el centro de atención en cualquier boda.", "img/Pastel_15.png", 60000, 0},
}

// DefaultProducts returns a fresh copy of the built-in bakery catalog
func DefaultProducts() []domain.Product {
	products := make([]domain.Product, 0, len(defaultCatalog))
	for _, s := range defaultCatalog {
		products = append(products, domain.Product{
			Code:            s.code,
			Name:            s.name,
			Description:     s.description,
			BasePrice:       s.price,
			DiscountPercent: s.discount,
			Category:        domain.Category{Name: s.category},
			ImagePath:       s.image,
			Stock:           defaultStock,
			Status:          domain.ProductAvailable,
		})
	}
	return products
}
