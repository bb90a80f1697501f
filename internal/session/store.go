// Package session хранит клиентское состояние посетителя витрины:
// аутентифицированную сессию и анонимный гостевой идентификатор корзины.
// Оба живут в инжектируемом kvstore.Store и разнесены по ключам внутри
// пространства имён посетителя.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// Ключи в пространстве имён посетителя.
const (
	KeySession = "session"
	// KeyUser — legacy-дубликат session.user, часть страниц читает его напрямую.
	KeyUser = "user"
	// KeyGuestID — гостевой идентификатор корзины.
	KeyGuestID = "guest_session_id"
	// KeyCartItems — кэш последнего снимка корзины.
	KeyCartItems = "cart_items"
)

// ErrIncompleteSession возвращается при попытке сохранить сессию без
// токена, пользователя или срока действия. Частичные сессии не сохраняются.
var ErrIncompleteSession = errors.New("incomplete session")

// Store — репозиторий сессии одного посетителя.
type Store struct {
	kv     kvstore.Store
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// NewStore создает репозиторий сессии с заданным префиксом ключей.
func NewStore(kv kvstore.Store, prefix string, log *slog.Logger) *Store {
	return &Store{kv: kv, prefix: prefix, log: log, now: time.Now}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Read возвращает сохраненную сессию либо nil, если её нет, она повреждена
// или истекла. Повреждённая и истекшая записи при чтении стираются.
func (s *Store) Read(ctx context.Context) (*models.Session, error) {
	const op = "session.Store.Read"

	var sess models.Session
	found, err := s.kv.Get(ctx, s.key(KeySession), &sess)
	if err != nil {
		if isCorruption(err) {
			s.log.Warn("stored session is malformed, erasing",
				slog.String("op", op), sl.Err(err))
			s.erase(ctx)
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	if !sess.Complete() {
		s.log.Warn("stored session is incomplete, erasing", slog.String("op", op))
		s.erase(ctx)
		return nil, nil
	}
	if sess.Expired(s.now()) {
		s.log.Info("stored session expired, erasing",
			slog.String("op", op), slog.Time("expires_at", sess.ExpiresAt))
		s.erase(ctx)
		return nil, nil
	}
	return &sess, nil
}

// Write атомарно заменяет сессию. Неполная или уже истекшая сессия
// отклоняется с ErrIncompleteSession.
func (s *Store) Write(ctx context.Context, sess models.Session) error {
	const op = "session.Store.Write"

	if !sess.Complete() || sess.Expired(s.now()) {
		return fmt.Errorf("%s: %w", op, ErrIncompleteSession)
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if err := s.kv.Set(ctx, s.key(KeySession), sess, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// legacy-дубликат обновляется вместе с сессией
	if err := s.kv.Set(ctx, s.key(KeyUser), sess.User, ttl); err != nil {
		s.log.Warn("failed to refresh legacy user record", slog.String("op", op), sl.Err(err))
	}
	return nil
}

// Clear стирает сессию, legacy-запись пользователя и кэш корзины:
// разлогиненный клиент не должен видеть чужую корзину.
func (s *Store) Clear(ctx context.Context) error {
	const op = "session.Store.Clear"

	var firstErr error
	for _, k := range []string{KeySession, KeyUser, KeyCartItems} {
		if err := s.kv.Invalidate(ctx, s.key(k)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", op, err)
		}
	}
	return firstErr
}

// UpdateUser заменяет только запись пользователя в существующей сессии,
// сохраняя токен и срок действия. Без активной сессии — no-op.
func (s *Store) UpdateUser(ctx context.Context, user models.UserRecord) error {
	const op = "session.Store.UpdateUser"

	sess, err := s.Read(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil {
		return nil
	}
	sess.User = user
	if err := s.Write(ctx, *sess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// erase — самовосстановление: повреждённое или истекшее значение не должно
// пережить чтение. Ошибки стирания только логируются.
func (s *Store) erase(ctx context.Context) {
	if err := s.kv.Invalidate(ctx, s.key(KeySession)); err != nil {
		s.log.Warn("failed to erase session", sl.Err(err))
	}
	if err := s.kv.Invalidate(ctx, s.key(KeyUser)); err != nil {
		s.log.Warn("failed to erase legacy user record", sl.Err(err))
	}
}

func isCorruption(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
