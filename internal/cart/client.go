// Package cart реализует клиентскую подсистему корзины: сетевой клиент к
// коммерческому бэкенду, нормализацию его ответов, слияние гостевой корзины
// после входа и очистку корзины после оформления заказа.
//
// Путь чтения никогда не возвращает ошибку наружу — пустая корзина всегда
// безопасна для отрисовки. Мутации сообщают об исходе возвращаемым
// значением; исключение — Add, который возвращает ошибку, чтобы UI мог
// показать контекстное сообщение.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/magabrotheeeer/ev-storefront/internal/cart/events"
	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/numeric"
	"github.com/magabrotheeeer/ev-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/ev-storefront/internal/metrics"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
	"github.com/magabrotheeeer/ev-storefront/internal/session"
)

var (
	// ErrAddFailed — бэкенд ответил неуспешным конвертом на добавление.
	ErrAddFailed = errors.New("add to cart failed")
	// ErrAddInFlight — добавление этого товара уже выполняется.
	ErrAddInFlight = errors.New("add already in flight for this product")
	// ErrUnexpectedResponse — тело ответа не разобралось в ожидаемый конверт.
	ErrUnexpectedResponse = errors.New("unexpected backend response")
)

// SessionSource отдаёт активную сессию посетителя, если она есть.
type SessionSource interface {
	Read(ctx context.Context) (*models.Session, error)
}

// GuestSource управляет гостевым идентификатором корзины.
type GuestSource interface {
	ID(ctx context.Context) string
	Existing(ctx context.Context) (string, bool)
	Set(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Client выполняет операции корзины против коммерческого бэкенда и приводит
// каждый ответ к каноническому виду.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	visitor    string
	sessions   SessionSource
	guest      GuestSource
	bus        *events.Bus
	snapshots  kvstore.Store
	prefix     string

	mu       sync.Mutex
	inflight map[string]struct{} // product_id -> выполняющийся Add
}

// NewClient создает клиент корзины для одного посетителя.
func NewClient(log *slog.Logger, httpClient *http.Client, baseURL, visitor string,
	sessions SessionSource, guest GuestSource, bus *events.Bus,
	snapshots kvstore.Store, prefix string) *Client {
	return &Client{
		log:        log,
		httpClient: httpClient,
		baseURL:    baseURL,
		visitor:    visitor,
		sessions:   sessions,
		guest:      guest,
		bus:        bus,
		snapshots:  snapshots,
		prefix:     prefix,
		inflight:   make(map[string]struct{}),
	}
}

// envelope — стандартный конверт ответа бэкенда.
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

func (e envelope) ok() bool { return e.Status == "OK" }

type addRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type updateRequest struct {
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionOnlyRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// identity возвращает bearer-токен активной сессии и гостевой идентификатор.
// Без сессии гостевой идентификатор при provision выдается лениво. Оба
// значения одновременно непусты только в окне переноса корзины.
func (c *Client) identity(ctx context.Context, provision bool) (token, guestID string) {
	sess, err := c.sessions.Read(ctx)
	if err != nil {
		c.log.Warn("failed to read session", sl.Err(err))
	}
	if sess != nil {
		token = sess.Token
	}
	if token == "" && provision {
		guestID = c.guest.ID(ctx)
		return token, guestID
	}
	guestID, _ = c.guest.Existing(ctx)
	return token, guestID
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, token, guestID string) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if guestID != "" {
		req.Header.Set("X-Session-ID", guestID)
	}
	return req, nil
}

// do выполняет запрос и декодирует конверт. Не-2xx статус — ошибка
// транспортного уровня, нечитаемое тело — ErrUnexpectedResponse.
func (c *Client) do(ctx context.Context, method, path string, body any, token, guestID string) (*envelope, error) {
	const op = "cart.Client.do"

	req, err := c.newRequest(ctx, method, path, body, token, guestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.UnexpectedResponses.Inc()
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnexpectedResponse, err)
	}
	return &env, nil
}

// Fetch возвращает текущую корзину. Любой отказ транспорта или разбора
// логируется и превращается в пустой список: пустая корзина — безопасный
// fallback для отрисовки. Успешный снимок кэшируется.
func (c *Client) Fetch(ctx context.Context) []models.CartItem {
	const op = "cart.Client.Fetch"
	log := c.log.With(slog.String("op", op))

	token, guestID := c.identity(ctx, true)

	env, err := c.do(ctx, http.MethodGet, "/cart", nil, token, guestID)
	if err != nil {
		log.Error("failed to fetch cart", sl.Err(err))
		metrics.CartOperations.WithLabelValues("fetch", metrics.OutcomeError).Inc()
		return []models.CartItem{}
	}
	if !env.ok() {
		log.Error("backend refused cart fetch", slog.String("backend_error", env.Error))
		metrics.CartOperations.WithLabelValues("fetch", metrics.OutcomeError).Inc()
		return []models.CartItem{}
	}

	var wire []wireItem
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			log.Error("cart payload has unexpected shape", sl.Err(fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)))
			metrics.UnexpectedResponses.Inc()
			metrics.CartOperations.WithLabelValues("fetch", metrics.OutcomeError).Inc()
			return []models.CartItem{}
		}
	}

	items := make([]models.CartItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, normalizeItem(w))
	}

	if err := c.snapshots.Set(ctx, c.prefix+session.KeyCartItems, items, 0); err != nil {
		log.Warn("failed to cache cart snapshot", sl.Err(err))
	}
	metrics.CartOperations.WithLabelValues("fetch", metrics.OutcomeOK).Inc()
	return items
}

// Add добавляет товар в корзину. Количество перед отправкой приводится к
// целому >= 1. Повторный конкурентный Add того же товара отклоняется с
// ErrAddInFlight. Выданный бэкендом гостевой идентификатор сохраняется.
func (c *Client) Add(ctx context.Context, productID string, quantity int, color string) (*models.CartItem, error) {
	const op = "cart.Client.Add"
	log := c.log.With(slog.String("op", op), slog.String("product_id", productID))

	quantity = numeric.ClampInt(quantity, 1)

	c.mu.Lock()
	if _, dup := c.inflight[productID]; dup {
		c.mu.Unlock()
		log.Warn("duplicate concurrent add rejected")
		return nil, ErrAddInFlight
	}
	c.inflight[productID] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, productID)
		c.mu.Unlock()
	}()

	token, guestID := c.identity(ctx, true)
	body := addRequest{ProductID: productID, Quantity: quantity, Color: color}
	if token == "" {
		body.SessionID = guestID
	}

	env, err := c.do(ctx, http.MethodPost, "/cart", body, token, guestID)
	if err != nil {
		log.Error("failed to add to cart", sl.Err(err))
		metrics.CartOperations.WithLabelValues("add", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !env.ok() {
		log.Error("backend refused add", slog.String("backend_error", env.Error))
		metrics.CartOperations.WithLabelValues("add", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%s: %w: %s", op, ErrAddFailed, env.Error)
	}

	// первая гостевая мутация: бэкенд выдал корзине идентификатор
	if token == "" && env.SessionID != "" && env.SessionID != guestID {
		if err := c.guest.Set(ctx, env.SessionID); err != nil {
			log.Warn("failed to persist backend-issued guest id", sl.Err(err))
		}
	}

	var w wireItem
	if err := json.Unmarshal(env.Data, &w); err != nil {
		// корзина на бэкенде уже изменилась, событие обязано уйти
		c.publishChanged()
		metrics.UnexpectedResponses.Inc()
		log.Error("added item payload has unexpected shape", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnexpectedResponse, err)
	}
	item := normalizeItem(w)

	c.publishChanged()
	metrics.CartOperations.WithLabelValues("add", metrics.OutcomeOK).Inc()
	log.Info("item added to cart", slog.Int("quantity", quantity))
	return &item, nil
}

// UpdateQuantity меняет количество позиции. Количество приводится к >= 1 до
// отправки. Событие публикуется только при подтверждении бэкенда.
func (c *Client) UpdateQuantity(ctx context.Context, itemID string, quantity int) bool {
	const op = "cart.Client.UpdateQuantity"
	log := c.log.With(slog.String("op", op), slog.String("item_id", itemID))

	quantity = numeric.ClampInt(quantity, 1)

	token, guestID := c.identity(ctx, true)
	body := updateRequest{Quantity: quantity}
	if token == "" {
		body.SessionID = guestID
	}

	env, err := c.do(ctx, http.MethodPut, "/cart/"+itemID, body, token, guestID)
	if err != nil || !env.ok() {
		if err != nil {
			log.Error("failed to update quantity", sl.Err(err))
		} else {
			log.Error("backend refused quantity update", slog.String("backend_error", env.Error))
		}
		metrics.CartOperations.WithLabelValues("update", metrics.OutcomeError).Inc()
		return false
	}

	c.publishChanged()
	metrics.CartOperations.WithLabelValues("update", metrics.OutcomeOK).Inc()
	return true
}

// Remove удаляет позицию корзины.
func (c *Client) Remove(ctx context.Context, itemID string) bool {
	const op = "cart.Client.Remove"
	log := c.log.With(slog.String("op", op), slog.String("item_id", itemID))

	token, guestID := c.identity(ctx, true)
	var body sessionOnlyRequest
	if token == "" {
		body.SessionID = guestID
	}

	env, err := c.do(ctx, http.MethodDelete, "/cart/"+itemID, body, token, guestID)
	if err != nil || !env.ok() {
		if err != nil {
			log.Error("failed to remove item", sl.Err(err))
		} else {
			log.Error("backend refused remove", slog.String("backend_error", env.Error))
		}
		metrics.CartOperations.WithLabelValues("remove", metrics.OutcomeError).Inc()
		return false
	}

	c.publishChanged()
	metrics.CartOperations.WithLabelValues("remove", metrics.OutcomeOK).Inc()
	return true
}

// Clear удаляет все позиции текущей идентичности. Помимо общего события
// публикуется отдельное cart:cleared — часть подписчиков реагирует именно
// на опустевшую корзину.
func (c *Client) Clear(ctx context.Context) bool {
	const op = "cart.Client.Clear"
	log := c.log.With(slog.String("op", op))

	token, guestID := c.identity(ctx, true)
	var body sessionOnlyRequest
	if token == "" {
		body.SessionID = guestID
	}

	env, err := c.do(ctx, http.MethodDelete, "/cart/clear", body, token, guestID)
	if err != nil || !env.ok() {
		if err != nil {
			log.Error("failed to clear cart", sl.Err(err))
		} else {
			log.Error("backend refused clear", slog.String("backend_error", env.Error))
		}
		metrics.CartOperations.WithLabelValues("clear", metrics.OutcomeError).Inc()
		return false
	}

	if err := c.snapshots.Invalidate(ctx, c.prefix+session.KeyCartItems); err != nil {
		log.Warn("failed to drop cart snapshot", sl.Err(err))
	}

	c.publishChanged()
	c.bus.Publish(events.Event{Type: events.CartCleared, Visitor: c.visitor})
	metrics.CartOperations.WithLabelValues("clear", metrics.OutcomeOK).Inc()
	return true
}

// Transfer переносит гостевую корзину аутентифицированному пользователю.
// Без валидной сессии и существующего гостевого идентификатора возвращает
// false, не выходя в сеть. При успехе гостевой идентификатор стирается.
func (c *Client) Transfer(ctx context.Context) bool {
	const op = "cart.Client.Transfer"
	log := c.log.With(slog.String("op", op))

	sess, err := c.sessions.Read(ctx)
	if err != nil {
		log.Error("failed to read session", sl.Err(err))
		return false
	}
	if sess == nil {
		log.Debug("no active session, nothing to transfer")
		return false
	}
	guestID, okGuest := c.guest.Existing(ctx)
	if !okGuest {
		log.Debug("no guest identity, nothing to transfer")
		return false
	}

	env, err := c.do(ctx, http.MethodPost, "/cart/transfer",
		sessionOnlyRequest{SessionID: guestID}, sess.Token, guestID)
	if err != nil || !env.ok() {
		if err != nil {
			log.Error("failed to transfer cart", sl.Err(err))
		} else {
			log.Error("backend refused transfer", slog.String("backend_error", env.Error))
		}
		metrics.CartOperations.WithLabelValues("transfer", metrics.OutcomeError).Inc()
		return false
	}

	if err := c.guest.Clear(ctx); err != nil {
		log.Warn("failed to retire guest id after transfer", sl.Err(err))
	}
	c.publishChanged()
	metrics.CartOperations.WithLabelValues("transfer", metrics.OutcomeOK).Inc()
	log.Info("guest cart transferred")
	return true
}

func (c *Client) publishChanged() {
	c.bus.Publish(events.Event{Type: events.CartChanged, Visitor: c.visitor})
}
