// notifications.go — активные уведомления.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
)

type notificationsResponse struct {
	Items []notificationResponse `json:"items"`
}

// notificationResponse — уведомление с длительностью показа в миллисекундах.
type notificationResponse struct {
	notify.Notification
	DurationMS int64 `json:"duration_ms"`
}

func toNotificationResponse(n notify.Notification) notificationResponse {
	return notificationResponse{Notification: n, DurationMS: n.Duration.Milliseconds()}
}

// ListNotifications — GET /api/v1/notifications: уведомления, ещё не
// истёкшие и не закрытые, от старых к новым.
func (h *APIHandler) ListNotifications(w http.ResponseWriter, _ *http.Request) {
	active := h.notifications.Active()
	items := make([]notificationResponse, 0, len(active))
	for _, n := range active {
		items = append(items, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Items: items})
}

// DismissNotification — DELETE /api/v1/notifications/{id}.
func (h *APIHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.notifications.Dismiss(id) {
		apierrors.NotFound(w, fmt.Sprintf("Уведомление %s не найдено", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
