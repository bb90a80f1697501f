package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
)

// Guest — репозиторий анонимного идентификатора корзины. Идентификатор
// выдается лениво при первой операции с корзиной без активной сессии и
// живет, пока слияние корзин не завершится успехом. При недоступном
// хранилище идентификатор держится в памяти до конца жизни экземпляра,
// чтобы не терять корзину в рамках текущего просмотра.
type Guest struct {
	kv     kvstore.Store
	prefix string
	log    *slog.Logger

	mu    sync.Mutex
	memID string // запасной вариант при отказе хранилища
}

// NewGuest создает репозиторий гостевого идентификатора.
func NewGuest(kv kvstore.Store, prefix string, log *slog.Logger) *Guest {
	return &Guest{kv: kv, prefix: prefix, log: log}
}

func (g *Guest) key() string { return g.prefix + KeyGuestID }

// ID возвращает гостевой идентификатор, при первом обращении генерируя и
// сохраняя новый. Никогда не возвращает пустую строку.
func (g *Guest) ID(ctx context.Context) string {
	const op = "session.Guest.ID"

	g.mu.Lock()
	defer g.mu.Unlock()

	var id string
	found, err := g.kv.Get(ctx, g.key(), &id)
	if err == nil && found && id != "" {
		return id
	}
	if err != nil {
		g.log.Warn("guest id storage unavailable", slog.String("op", op), sl.Err(err))
	}
	if g.memID != "" {
		return g.memID
	}

	id = uuid.NewString()
	if err := g.kv.Set(ctx, g.key(), id, 0); err != nil {
		g.log.Warn("failed to persist guest id, keeping in memory",
			slog.String("op", op), sl.Err(err))
		g.memID = id
	}
	return id
}

// Existing возвращает уже выданный идентификатор, не создавая новый.
func (g *Guest) Existing(ctx context.Context) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var id string
	found, err := g.kv.Get(ctx, g.key(), &id)
	if err == nil && found && id != "" {
		return id, true
	}
	if g.memID != "" {
		return g.memID, true
	}
	return "", false
}

// Set перезаписывает идентификатор значением, выданным бэкендом при первой
// гостевой мутации корзины.
func (g *Guest) Set(ctx context.Context, id string) error {
	const op = "session.Guest.Set"

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.kv.Set(ctx, g.key(), id, 0); err != nil {
		g.log.Warn("failed to persist guest id, keeping in memory",
			slog.String("op", op), sl.Err(err))
		g.memID = id
		return nil
	}
	g.memID = ""
	return nil
}

// Clear удаляет идентификатор. Вызывается после успешного слияния корзин.
func (g *Guest) Clear(ctx context.Context) error {
	const op = "session.Guest.Clear"

	g.mu.Lock()
	defer g.mu.Unlock()

	g.memID = ""
	if err := g.kv.Invalidate(ctx, g.key()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
