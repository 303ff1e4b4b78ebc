// events.go — SSE endpoint GET /api/v1/events.
//
// События:
//   - notification — новое уведомление;
//   - upload — стадия или отказ файла конвейера;
//   - change — изменение каталога (операция и затронутые ID).
//
// Каждый клиент получает собственную очередь. Переполненная очередь
// отбрасывает события: клиент перечитывает состояние через REST.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/ingest"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
)

// sseQueueSize — ёмкость очереди событий одного клиента.
const sseQueueSize = 64

// sseEvent — событие, ожидающее отправки.
type sseEvent struct {
	name string
	data any
}

// Events — GET /api/v1/events.
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap() обёрток middleware.
	rc := http.NewResponseController(w)
	// Поток живёт дольше WriteTimeout сервера.
	_ = rc.SetWriteDeadline(time.Time{})
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	queue := make(chan sseEvent, sseQueueSize)
	push := func(ev sseEvent) {
		select {
		case queue <- ev:
		default:
			h.logger.Debug("SSE очередь переполнена, событие отброшено", slog.String("event", ev.name))
		}
	}

	unsubNotify := h.notifications.Subscribe(func(n notify.Notification) {
		push(sseEvent{name: "notification", data: toNotificationResponse(n)})
	})
	defer unsubNotify()
	unsubUpload := h.pipeline.Subscribe(func(ev ingest.Event) {
		push(sseEvent{name: "upload", data: ev})
	})
	defer unsubUpload()
	unsubChange := h.catalog.Subscribe(func(c catalog.Change) {
		push(sseEvent{name: "change", data: c})
	})
	defer unsubChange()

	ctx := r.Context()
	h.logger.Debug("SSE клиент подключён", slog.String("remote_addr", r.RemoteAddr))

	// Начальное состояние: активные уведомления.
	for _, n := range h.notifications.Active() {
		if err := writeSSE(w, rc, "notification", toNotificationResponse(n)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(h.sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("remote_addr", r.RemoteAddr))
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev := <-queue:
			if err := writeSSE(w, rc, ev.name, ev.data); err != nil {
				h.logger.Debug("SSE запись прервана", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// writeSSE пишет одно событие в формате event: X\ndata: {json}\n\n.
func writeSSE(w http.ResponseWriter, rc *http.ResponseController, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("сериализация события %s: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return rc.Flush()
}
