package cart

import (
	"github.com/magabrotheeeer/ev-storefront/internal/config"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/numeric"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// Summarize вычисляет сводку корзины по текущему набору позиций.
// Доставка бесплатна от порога из политики; пустая корзина не тарифицируется.
// Каждое денежное поле дополнительно прогоняется через numeric — итоги не
// могут уйти в минус, какими бы ни были входные данные.
func Summarize(items []models.CartItem, policy config.CartPolicy) models.CartSummary {
	var count int
	var subtotal float64
	for _, item := range items {
		count += numeric.ClampInt(item.Quantity, 1)
		subtotal += numeric.ToSafe(item.Total)
	}

	tax := subtotal * numeric.ToSafe(policy.TaxRate)

	var shipping float64
	if count > 0 && subtotal < policy.FreeShippingOver {
		shipping = numeric.ToSafe(policy.ShippingFee)
	}

	return models.CartSummary{
		ItemCount: count,
		Subtotal:  numeric.ToSafe(subtotal),
		Tax:       numeric.ToSafe(tax),
		Shipping:  numeric.ToSafe(shipping),
		Total:     numeric.ToSafe(subtotal + tax + shipping),
	}
}
