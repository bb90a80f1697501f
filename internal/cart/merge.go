package cart

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
)

// Transferer — часть клиента корзины, нужная слиянию.
type Transferer interface {
	Transfer(ctx context.Context) bool
}

// GuestProber читает гостевой идентификатор, не создавая его.
type GuestProber interface {
	Existing(ctx context.Context) (string, bool)
}

// Merger выполняет одноразовое слияние гостевой корзины с корзиной только
// что вошедшего пользователя. Вызывается сразу после успешной записи сессии
// при входе или регистрации.
type Merger struct {
	log      *slog.Logger
	sessions SessionSource
	guest    GuestProber
	cart     Transferer
}

// NewMerger создает Merger.
func NewMerger(log *slog.Logger, sessions SessionSource, guest GuestProber, cart Transferer) *Merger {
	return &Merger{log: log, sessions: sessions, guest: guest, cart: cart}
}

// MergeIfNeeded переносит гостевую корзину, если есть и валидная сессия, и
// гостевой идентификатор; иначе возвращает false без сетевого вызова.
// Отказ слияния логируется и проглатывается: вход пользователя не должен
// сорваться из-за корзины, а сохранённый гостевой идентификатор оставляет
// возможность повторить слияние при следующем входе.
func (m *Merger) MergeIfNeeded(ctx context.Context) bool {
	const op = "cart.Merger.MergeIfNeeded"
	log := m.log.With(slog.String("op", op))

	sess, err := m.sessions.Read(ctx)
	if err != nil {
		log.Warn("failed to read session, skipping merge", sl.Err(err))
		return false
	}
	if sess == nil {
		log.Debug("no active session, merge not needed")
		return false
	}
	if _, ok := m.guest.Existing(ctx); !ok {
		log.Debug("no guest cart, merge not needed")
		return false
	}

	if !m.cart.Transfer(ctx) {
		log.Warn("guest cart merge failed, guest id kept for retry")
		return false
	}
	log.Info("guest cart merged", slog.String("user_id", sess.User.ID))
	return true
}
