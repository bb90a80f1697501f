// Package middlewarectx содержит HTTP middleware витрины: выдачу
// идентификатора посетителя и ограничение частоты запросов.
//
// Идентификатор посетителя — аналог "установки клиента" из браузерной
// версии: по нему разносится по пространствам имён всё сохранённое
// состояние (сессия, гостевая корзина, снимок корзины).
package middlewarectx

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// Visitor — ключ идентификатора посетителя в контексте запроса.
const Visitor Key = "visitor"

// VisitorCookie — имя cookie с идентификатором посетителя.
const VisitorCookie = "sf_visitor"

const visitorCookieTTL = 365 * 24 * time.Hour

// VisitorMiddleware возвращает middleware, который читает идентификатор
// посетителя из cookie, при необходимости выдает новый и кладет его в
// контекст запроса.
func VisitorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(VisitorCookie); err == nil && c.Value != "" {
				id = c.Value
			} else {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(visitorCookieTTL),
				})
			}
			ctx := context.WithValue(r.Context(), Visitor, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VisitorID достает идентификатор посетителя из контекста.
func VisitorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(Visitor).(string)
	return id, ok && id != ""
}
