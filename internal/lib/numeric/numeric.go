// Package numeric приводит произвольные значения из JSON-ответов бэкенда
// к безопасным числам. Бэкенд может прислать цену строкой, null вместо
// количества или отрицательное значение — все арифметические операции
// корзины проходят через эти функции, чтобы итоги никогда не портились
// NaN или отрицательными числами.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToSafe приводит значение любого типа к конечному неотрицательному float64.
// Всё, что не парсится как конечное число, превращается в 0.
func ToSafe(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		// true не является денежным значением
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Quantity приводит значение к целому количеству не меньше 1.
// Используется перед отправкой add/update на бэкенд и при нормализации
// позиций корзины из ответа.
func Quantity(v any) int {
	q := int(ToSafe(v))
	if q < 1 {
		return 1
	}
	return q
}

// ClampInt возвращает n, но не меньше min.
func ClampInt(n, min int) int {
	if n < min {
		return min
	}
	return n
}
