// Package commerce реализует клиент аутентификации коммерческого бэкенда:
// вход, регистрация, выход и обновление профиля. Именно его ответы
// наполняют session.Store.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/ev-storefront/internal/models"
)

// ErrAuthRequired — операция требует bearer-токен, а его нет.
var ErrAuthRequired = errors.New("authentication required")

// Client — HTTP-клиент аутентификации.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	sessionTTL time.Duration // запасной срок сессии, если бэкенд не прислал свой
}

// NewClient создает клиент аутентификации.
func NewClient(log *slog.Logger, baseURL string, timeout, sessionTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		sessionTTL: sessionTTL,
	}
}

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authPayload — содержимое data успешного ответа login/register.
type authPayload struct {
	User      models.UserRecord `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (e envelope) ok() bool { return e.Status == "OK" }

func (c *Client) newRequest(ctx context.Context, method, path string, body any, token string) (*http.Request, error) {
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
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string) (*envelope, error) {
	const op = "commerce.Client.do"

	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// тело может быть пустым или не-JSON, статус важнее
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return nil, fmt.Errorf("%s: %s", op, env.Error)
		}
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: unexpected response: %w", op, err)
	}
	return &env, nil
}

// Login обменивает учетные данные на сессию.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "commerce.Client.Login"
	return c.authenticate(ctx, op, "/login", credentialsRequest{Email: email, Password: password})
}

// Register создает пользователя и сразу возвращает его сессию.
func (c *Client) Register(ctx context.Context, name, email, password string) (models.Session, error) {
	const op = "commerce.Client.Register"
	return c.authenticate(ctx, op, "/register", credentialsRequest{Name: name, Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, op, path string, body credentialsRequest) (models.Session, error) {
	env, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !env.ok() {
		return models.Session{}, fmt.Errorf("%s: %s", op, env.Error)
	}

	var payload authPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return models.Session{}, fmt.Errorf("%s: unexpected response: %w", op, err)
	}
	if payload.Token == "" || payload.User.ID == "" {
		return models.Session{}, fmt.Errorf("%s: incomplete auth payload", op)
	}
	return models.Session{
		User:      payload.User,
		Token:     payload.Token,
		ExpiresAt: c.sessionExpiry(payload),
	}, nil
}

// Logout завершает сессию на бэкенде. Вызывается по возможности: локальная
// сессия стирается независимо от исхода.
func (c *Client) Logout(ctx context.Context, token string) error {
	const op = "commerce.Client.Logout"

	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	env, err := c.do(ctx, http.MethodPost, "/logout", nil, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !env.ok() {
		return fmt.Errorf("%s: %s", op, env.Error)
	}
	return nil
}

// Profile возвращает свежую запись пользователя.
func (c *Client) Profile(ctx context.Context, token string) (*models.UserRecord, error) {
	const op = "commerce.Client.Profile"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	env, err := c.do(ctx, http.MethodGet, "/profile", nil, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !env.ok() {
		return nil, fmt.Errorf("%s: %s", op, env.Error)
	}

	var user models.UserRecord
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("%s: unexpected response: %w", op, err)
	}
	return &user, nil
}

// sessionExpiry определяет срок действия сессии: явное expires_at бэкенда,
// иначе exp-claim из токена (подпись не проверяется — её валидирует бэкенд,
// клиенту нужен только дедлайн), иначе настроенный TTL.
func (c *Client) sessionExpiry(payload authPayload) time.Time {
	if payload.ExpiresAt != nil && !payload.ExpiresAt.IsZero() {
		return *payload.ExpiresAt
	}
	if exp, ok := tokenExpiry(payload.Token); ok {
		return exp
	}
	return time.Now().Add(c.sessionTTL)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
