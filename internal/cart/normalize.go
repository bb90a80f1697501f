package cart

import (
	"strconv"

	"github.com/magabrotheeeer/ev-storefront/internal/lib/numeric"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// PlaceholderImage подставляется вместо отсутствующей картинки товара.
const PlaceholderImage = "/images/placeholder-vehicle.svg"

const fallbackName = "Unknown product"

// wireItem — позиция корзины в том виде, в каком её может прислать бэкенд:
// числа бывают строками, снимок товара — вложенным либо размазанным по
// верхнему уровню.
type wireItem struct {
	ID        any           `json:"id"`
	ProductID any           `json:"product_id"`
	Quantity  any           `json:"quantity"`
	Price     any           `json:"price"`
	Total     any           `json:"total"`
	Color     string        `json:"color"`
	Name      string        `json:"name"`
	Image     string        `json:"image"`
	Model     string        `json:"model"`
	Category  string        `json:"category"`
	Product   *wireSnapshot `json:"product"`
}

type wireSnapshot struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	Model    string `json:"model"`
	Category string `json:"category"`
}

// normalizeItem приводит позицию к каноническому виду: числовые поля через
// numeric, total пересчитывается при нулевом или отсутствующем значении,
// недостающие поля снимка добираются из верхнего уровня или плейсхолдера.
func normalizeItem(w wireItem) models.CartItem {
	qty := numeric.Quantity(w.Quantity)
	price := numeric.ToSafe(w.Price)
	total := numeric.ToSafe(w.Total)
	if total == 0 {
		total = price * float64(qty)
	}

	var snap wireSnapshot
	if w.Product != nil {
		snap = *w.Product
	}
	return models.CartItem{
		ID:        stringID(w.ID),
		ProductID: stringID(w.ProductID),
		Quantity:  qty,
		Price:     price,
		Total:     total,
		Color:     w.Color,
		Product: models.ProductSnapshot{
			Name:     firstNonEmpty(snap.Name, w.Name, fallbackName),
			Image:    firstNonEmpty(snap.Image, w.Image, PlaceholderImage),
			Model:    firstNonEmpty(snap.Model, w.Model),
			Category: firstNonEmpty(snap.Category, w.Category),
		},
	}
}

// stringID приводит идентификатор к строке: бэкенд присылает их то числом,
// то строкой.
func stringID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
