// Package models содержит структуры данных витрины: пользователь, сессия,
// позиции корзины и производная сводка заказа.
package models

import "time"

// UserRecord описывает пользователя, каким его возвращает коммерческий бэкенд.
type UserRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session — запись об аутентифицированном посетителе: пользователь,
// bearer-токен и срок его действия. Сессия либо заполнена целиком,
// либо отсутствует — частичные сессии не сохраняются.
type Session struct {
	User      UserRecord `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Complete сообщает, заполнены ли все обязательные поля сессии.
func (s Session) Complete() bool {
	return s.Token != "" && s.User.ID != "" && !s.ExpiresAt.IsZero()
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ProductSnapshot — денормализованная копия витринных полей товара,
// снятая в момент добавления в корзину. Позволяет отрисовать корзину,
// даже если живая карточка товара недоступна.
type ProductSnapshot struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	Model    string `json:"model"`
	Category string `json:"category"`
}

// CartItem — позиция корзины в каноническом виде. Quantity всегда >= 1,
// Price и Total всегда >= 0.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     float64         `json:"price"`
	Total     float64         `json:"total"`
	Color     string          `json:"color,omitempty"`
	Product   ProductSnapshot `json:"product"`
}

// CartSummary — производная сводка корзины. Не хранится, вычисляется
// из текущего набора позиций; все денежные поля ограничены снизу нулём.
type CartSummary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Shipping  float64 `json:"shipping"`
	Total     float64 `json:"total"`
}
