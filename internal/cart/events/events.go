// Package events реализует синхронную шину уведомлений об изменениях
// корзины. Независимые поверхности UI (счетчик в шапке, страница корзины,
// мастер оформления) подписываются на неё и не знают друг о друге.
// Доставка только подписчикам, оформленным до публикации; очередей и
// повторов нет.
package events

import (
	"sync"
	"time"
)

// Type — тип события корзины.
type Type string

const (
	// CartChanged публикуется после каждой успешной мутации корзины.
	CartChanged Type = "cart:changed"
	// CartCleared публикуется только после полной очистки корзины.
	CartCleared Type = "cart:cleared"
)

// Event — полезная нагрузка уведомления.
type Event struct {
	Type    Type
	Visitor string
	At      time.Time
}

// Bus — шина подписок. Нулевое значение непригодно, используйте NewBus.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Type]map[int]func(Event)
}

// NewBus создает пустую шину.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type]map[int]func(Event))}
}

// Subscribe регистрирует обработчик события и возвращает функцию отписки.
// Повторный вызов функции отписки безопасен.
func (b *Bus) Subscribe(t Type, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = make(map[int]func(Event))
	}
	id := b.nextID
	b.nextID++
	b.subs[t][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[t], id)
			b.mu.Unlock()
		})
	}
}

// Publish синхронно рассылает событие всем текущим подписчикам его типа.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[e.Type]))
	for _, fn := range b.subs[e.Type] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}
}
