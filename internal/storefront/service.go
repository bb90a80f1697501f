// Package storefront собирает подсистему корзины и сессии для каждого
// посетителя витрины и предоставляет операции уровня UI: корзина, вход,
// выход, профиль, завершение оформления заказа.
package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/magabrotheeeer/ev-storefront/internal/cart"
	"github.com/magabrotheeeer/ev-storefront/internal/cart/events"
	"github.com/magabrotheeeer/ev-storefront/internal/commerce"
	"github.com/magabrotheeeer/ev-storefront/internal/config"
	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
	"github.com/magabrotheeeer/ev-storefront/internal/session"
)

// AuthAPI описывает контракт клиента аутентификации коммерческого бэкенда.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.Session, error)
	Register(ctx context.Context, name, email, password string) (models.Session, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*models.UserRecord, error)
}

// maxVisitors ограничивает кэш состояний посетителей: его ключ приходит из
// cookie, то есть контролируется клиентом, и без предела память процесса
// растёт на произвольных значениях. При переполнении вытесняется самый
// давний по обращению посетитель; его сохранённое состояние живёт в
// хранилище и не теряется.
var maxVisitors = 8192

// visitor — состояние одного посетителя. Экземпляр кэшируется, чтобы
// in-flight-защита от двойного добавления действовала между запросами.
type visitor struct {
	sessions  *session.Store
	guest     *session.Guest
	cart      *cart.Client
	merger    *cart.Merger
	finalizer *cart.Finalizer

	lastSeen time.Time
}

// Service — фасад подсистемы. Все операции принимают идентификатор
// посетителя и работают в его пространстве имён.
type Service struct {
	log        *slog.Logger
	cfg        *config.Config
	kv         kvstore.Store
	bus        *events.Bus
	auth       AuthAPI
	httpClient *http.Client

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New создает фасад подсистемы корзины и сессии.
func New(log *slog.Logger, cfg *config.Config, kv kvstore.Store, bus *events.Bus, auth AuthAPI) *Service {
	return &Service{
		log:        log,
		cfg:        cfg,
		kv:         kv,
		bus:        bus,
		auth:       auth,
		httpClient: &http.Client{Timeout: cfg.CommerceAPI.Timeout},
		visitors:   make(map[string]*visitor),
	}
}

// Bus возвращает шину событий корзины для подписки поверхностей UI.
func (s *Service) Bus() *events.Bus { return s.bus }

func (s *Service) visitor(id string) *visitor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.visitors[id]; ok {
		v.lastSeen = time.Now()
		return v
	}

	if len(s.visitors) >= maxVisitors {
		s.evictStalest()
	}

	prefix := "visitor:" + id + ":"
	sessions := session.NewStore(s.kv, prefix, s.log)
	guest := session.NewGuest(s.kv, prefix, s.log)
	client := cart.NewClient(s.log, s.httpClient, s.cfg.CommerceAPI.BaseURL, id,
		sessions, guest, s.bus, s.kv, prefix)

	v := &visitor{
		sessions:  sessions,
		guest:     guest,
		cart:      client,
		merger:    cart.NewMerger(s.log, sessions, guest, client),
		finalizer: cart.NewFinalizer(s.log, client, s.cfg.Checkout.ClearAttempts, s.cfg.Checkout.ClearDelay),
		lastSeen:  time.Now(),
	}
	s.visitors[id] = v
	return v
}

// evictStalest удаляет посетителя с самым давним обращением. Вызывается
// под s.mu.
func (s *Service) evictStalest() {
	var staleID string
	var staleAt time.Time
	for id, v := range s.visitors {
		if staleID == "" || v.lastSeen.Before(staleAt) {
			staleID = id
			staleAt = v.lastSeen
		}
	}
	if staleID != "" {
		delete(s.visitors, staleID)
	}
}

// ListCart возвращает позиции корзины и её сводку.
func (s *Service) ListCart(ctx context.Context, visitorID string) ([]models.CartItem, models.CartSummary) {
	items := s.visitor(visitorID).cart.Fetch(ctx)
	return items, cart.Summarize(items, s.cfg.CartPolicy)
}

// AddToCart добавляет товар в корзину посетителя.
func (s *Service) AddToCart(ctx context.Context, visitorID, productID string, quantity int, color string) (*models.CartItem, error) {
	return s.visitor(visitorID).cart.Add(ctx, productID, quantity, color)
}

// UpdateQuantity меняет количество позиции.
func (s *Service) UpdateQuantity(ctx context.Context, visitorID, itemID string, quantity int) bool {
	return s.visitor(visitorID).cart.UpdateQuantity(ctx, itemID, quantity)
}

// RemoveItem удаляет позицию из корзины.
func (s *Service) RemoveItem(ctx context.Context, visitorID, itemID string) bool {
	return s.visitor(visitorID).cart.Remove(ctx, itemID)
}

// ClearCart опустошает корзину посетителя.
func (s *Service) ClearCart(ctx context.Context, visitorID string) bool {
	return s.visitor(visitorID).cart.Clear(ctx)
}

// Login обменивает учетные данные на сессию, сохраняет её и сразу после
// этого сливает гостевую корзину. Отказ слияния не срывает вход.
func (s *Service) Login(ctx context.Context, visitorID, email, password string) (*models.UserRecord, error) {
	const op = "storefront.Service.Login"

	v := s.visitor(visitorID)
	sess, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := v.sessions.Write(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.merger.MergeIfNeeded(ctx)
	return &sess.User, nil
}

// Register создает пользователя, сохраняет его сессию и сливает гостевую
// корзину.
func (s *Service) Register(ctx context.Context, visitorID, name, email, password string) (*models.UserRecord, error) {
	const op = "storefront.Service.Register"

	v := s.visitor(visitorID)
	sess, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := v.sessions.Write(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.merger.MergeIfNeeded(ctx)
	return &sess.User, nil
}

// Logout завершает сессию. Бэкенд уведомляется по возможности, локальное
// состояние стирается безусловно.
func (s *Service) Logout(ctx context.Context, visitorID string) error {
	const op = "storefront.Service.Logout"

	v := s.visitor(visitorID)
	sess, err := v.sessions.Read(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sess != nil {
		if err := s.auth.Logout(ctx, sess.Token); err != nil {
			s.log.Warn("backend logout failed", slog.String("op", op), sl.Err(err))
		}
	}
	if err := v.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RefreshProfile запрашивает свежую запись пользователя и обновляет её в
// сессии, не трогая токен и срок действия.
func (s *Service) RefreshProfile(ctx context.Context, visitorID string) (*models.UserRecord, error) {
	const op = "storefront.Service.RefreshProfile"

	v := s.visitor(visitorID)
	sess, err := v.sessions.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%s: %w", op, commerce.ErrAuthRequired)
	}

	user, err := s.auth.Profile(ctx, sess.Token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := v.sessions.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// FinalizeCheckout очищает корзину после подтвержденного заказа с
// ограниченным числом повторов.
func (s *Service) FinalizeCheckout(ctx context.Context, visitorID string) bool {
	return s.visitor(visitorID).finalizer.ClearAfterCheckout(ctx)
}
