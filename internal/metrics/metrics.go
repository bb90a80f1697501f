// Package metrics регистрирует prometheus-счетчики подсистемы корзины.
// Сами метрики отдаются через promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CartOperations считает операции с корзиной по типу и исходу.
	CartOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart operations against the commerce backend by operation and outcome.",
	}, []string{"operation", "outcome"})

	// CheckoutClearRetries считает повторные попытки очистки корзины
	// после оформления заказа.
	CheckoutClearRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "clear_retries_total",
		Help:      "Retries of the post-checkout cart clear.",
	})

	// UnexpectedResponses считает ответы бэкенда, которые не удалось разобрать.
	UnexpectedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "unexpected_responses_total",
		Help:      "Backend responses that failed to decode into the expected envelope.",
	})
)

// Исходы операций для CartOperations.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
