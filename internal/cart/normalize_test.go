package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeItem_BackfillsSnapshot(t *testing.T) {
	item := normalizeItem(wireItem{
		ID:        1.0,
		ProductID: "42",
		Quantity:  nil,
		Price:     nil,
	})

	assert.Equal(t, "1", item.ID)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 0.0, item.Price)
	assert.Equal(t, 0.0, item.Total)
	assert.Equal(t, fallbackName, item.Product.Name, "name never renders empty")
	assert.Equal(t, PlaceholderImage, item.Product.Image)
}

func TestNormalizeItem_PrefersExplicitTotal(t *testing.T) {
	item := normalizeItem(wireItem{
		ID:        "7",
		ProductID: "42",
		Quantity:  3,
		Price:     100,
		Total:     "250", // скидочный total бэкенда важнее пересчета
	})

	assert.Equal(t, 250.0, item.Total)
}

func TestNormalizeItem_SnapshotWinsOverTopLevel(t *testing.T) {
	item := normalizeItem(wireItem{
		ID:        "7",
		ProductID: "42",
		Quantity:  1,
		Price:     100,
		Name:      "top-level",
		Product:   &wireSnapshot{Name: "snapshot", Model: "GT"},
	})

	assert.Equal(t, "snapshot", item.Product.Name)
	assert.Equal(t, "GT", item.Product.Model)
}
