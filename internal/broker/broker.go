// Пакет broker — типизированная рассылка событий подписчикам (fire-and-forget).
//
// Publish вызывает обработчики синхронно в горутине издателя, но без
// удержания внутренней блокировки: обработчик может отписаться или
// подписать нового слушателя. Паника обработчика перехватывается и
// логируется, остальные подписчики получают событие.
package broker

import (
	"log/slog"
	"sync"
)

// Broker — множество подписчиков на события типа T.
type Broker[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(T)
	order    []uint64
	logger   *slog.Logger
}

// New создаёт брокер. name попадает в атрибут component логгера.
func New[T any](name string, logger *slog.Logger) *Broker[T] {
	return &Broker[T]{
		handlers: make(map[uint64]func(T)),
		logger:   logger.With(slog.String("component", name)),
	}
}

// Subscribe регистрирует обработчик и возвращает функцию отписки.
// Повторный вызов функции отписки безопасен.
func (b *Broker[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = handler
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish рассылает событие всем текущим подписчикам в порядке подписки.
func (b *Broker[T]) Publish(event T) {
	b.mu.RLock()
	handlers := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *Broker[T]) deliver(h func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Паника в обработчике события", slog.Any("panic", r))
		}
	}()
	h(event)
}

func (b *Broker[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
