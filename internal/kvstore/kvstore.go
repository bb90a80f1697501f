// Package kvstore предоставляет хранилище ключ-значение для клиентского
// состояния витрины: сессия, гостевой идентификатор и снимок корзины.
// Значения сериализуются в JSON. Реализации: redis (долговременное
// хранилище) и память (тесты и деградация при недоступном redis).
package kvstore

import (
	"context"
	"time"
)

// Store описывает контракт хранилища. Set с нулевым ttl сохраняет значение
// без срока жизни.
type Store interface {
	// Get читает значение по ключу в dest; возвращает false, если ключа нет.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set полностью заменяет значение по ключу.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Invalidate удаляет ключ. Отсутствие ключа ошибкой не считается.
	Invalidate(ctx context.Context, key string) error
}
