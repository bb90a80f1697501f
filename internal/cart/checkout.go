package cart

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ev-storefront/internal/metrics"
)

// Значения по умолчанию для политики очистки после заказа.
const (
	DefaultClearAttempts = 3
	DefaultClearDelay    = time.Second
)

// Clearer — часть клиента корзины, нужная финализации заказа.
type Clearer interface {
	Clear(ctx context.Context) bool
}

// Finalizer очищает корзину после подтвержденного заказа. Очистка не должна
// молча провалиться и оставить пользователю устаревшие позиции, поэтому
// выполняется ограниченным числом попыток. Пауза между попытками нужна из-за
// гонки с коммитом заказа на бэкенде: немедленная очистка может его опередить.
type Finalizer struct {
	log      *slog.Logger
	cart     Clearer
	attempts int
	delay    time.Duration
}

// NewFinalizer создает Finalizer. Нулевые attempts и delay заменяются
// значениями по умолчанию (3 попытки, секунда между ними).
func NewFinalizer(log *slog.Logger, cart Clearer, attempts int, delay time.Duration) *Finalizer {
	if attempts <= 0 {
		attempts = DefaultClearAttempts
	}
	if delay <= 0 {
		delay = DefaultClearDelay
	}
	return &Finalizer{log: log, cart: cart, attempts: attempts, delay: delay}
}

// ClearAfterCheckout пытается очистить корзину, возвращая true при первом
// успехе. После исчерпания попыток локальный кэш корзины НЕ стирается:
// пустой UI при непустом бэкенде хуже, чем устаревшие позиции с кнопкой
// повтора.
func (f *Finalizer) ClearAfterCheckout(ctx context.Context) bool {
	const op = "cart.Finalizer.ClearAfterCheckout"
	log := f.log.With(slog.String("op", op))

	for attempt := 1; attempt <= f.attempts; attempt++ {
		if f.cart.Clear(ctx) {
			log.Info("cart cleared after checkout", slog.Int("attempt", attempt))
			return true
		}
		log.Warn("post-checkout clear attempt failed",
			slog.Int("attempt", attempt), slog.Int("max_attempts", f.attempts))

		if attempt == f.attempts {
			break
		}
		metrics.CheckoutClearRetries.Inc()
		select {
		case <-ctx.Done():
			log.Warn("post-checkout clear canceled")
			return false
		case <-time.After(f.delay):
		}
	}
	log.Error("post-checkout clear exhausted all attempts, keeping local state")
	return false
}
