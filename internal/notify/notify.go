// Пакет notify — канал пользовательских уведомлений.
//
// Center принимает уведомления от хранилищ и конвейера приёма,
// держит их «на экране» фиксированное время (expirable LRU) и
// рассылает подписчикам (SSE). Хранилища только публикуют и никогда
// не читают состояние канала.
package notify

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/media-catalog/internal/broker"
)

// notificationsTotal — количество опубликованных уведомлений по виду.
var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mc_notifications_total",
		Help: "Общее количество опубликованных уведомлений",
	},
	[]string{"kind"},
)

// Kind — вид уведомления.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notification — одно уведомление.
type Notification struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// Notifier — минимальный контракт издателя уведомлений.
type Notifier interface {
	Notify(kind Kind, title, message string) Notification
}

// Center — канал уведомлений.
type Center struct {
	duration time.Duration
	active   *expirable.LRU[string, Notification]
	broker   *broker.Broker[Notification]
	logger   *slog.Logger
}

// New создаёт канал уведомлений.
// duration — время показа уведомления, maxActive — сколько уведомлений
// одновременно держится на экране (старые вытесняются).
func New(duration time.Duration, maxActive int, logger *slog.Logger) *Center {
	return &Center{
		duration: duration,
		active:   expirable.NewLRU[string, Notification](maxActive, nil, duration),
		broker:   broker.New[Notification]("notify", logger),
		logger:   logger.With(slog.String("component", "notify")),
	}
}

// Notify публикует уведомление и возвращает его.
func (c *Center) Notify(kind Kind, title, message string) Notification {
	n := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		Duration:  c.duration,
		CreatedAt: time.Now().UTC(),
	}

	c.active.Add(n.ID, n)
	notificationsTotal.WithLabelValues(string(kind)).Inc()

	c.logger.Debug("Уведомление опубликовано",
		slog.String("id", n.ID),
		slog.String("kind", string(kind)),
		slog.String("title", title),
	)

	c.broker.Publish(n)
	return n
}

// Subscribe подписывает обработчик на новые уведомления.
func (c *Center) Subscribe(handler func(Notification)) (unsubscribe func()) {
	return c.broker.Subscribe(handler)
}

// Active возвращает уведомления, время показа которых не истекло,
// от старых к новым.
func (c *Center) Active() []Notification {
	// Values в expirable.LRU оставляет нулевые элементы на месте
	// истёкших, но ещё не вычищенных записей. Keys их пропускает.
	keys := c.active.Keys()
	out := make([]Notification, 0, len(keys))
	for _, id := range keys {
		if n, ok := c.active.Peek(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// Dismiss убирает уведомление до истечения времени показа.
// Возвращает false, если уведомление уже скрыто.
func (c *Center) Dismiss(id string) bool {
	return c.active.Remove(id)
}

// Duration возвращает время показа уведомления.
func (c *Center) Duration() time.Duration {
	return c.duration
}
