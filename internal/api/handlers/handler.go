// handler.go — основной обработчик API каталога.
// Объединяет health, каталог, представление, приём файлов, уведомления и SSE.
// Маршруты регистрируются в chi.Router методом Routes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/ingest"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
	"github.com/bigkaa/goartstore/media-catalog/internal/service"
	"github.com/bigkaa/goartstore/media-catalog/internal/viewstate"
)

// maxJSONBody — лимит тела JSON-запроса.
const maxJSONBody = 1 << 20

// Deps — зависимости APIHandler.
type Deps struct {
	Catalog       *catalog.Store
	View          *viewstate.Store
	Pipeline      *ingest.Pipeline
	Board         *ingest.Board
	Notifications *notify.Center
	Content       *service.ContentService
	Health        *HealthHandler

	// MaxFileSize — лимит одного файла, из него считается лимит тела multipart
	MaxFileSize int64
	// UploadWait — сколько POST /uploads ждёт завершения пачки
	UploadWait time.Duration
	// SSEKeepalive — интервал keepalive-комментариев SSE
	SSEKeepalive time.Duration
}

// APIHandler — основной обработчик API каталога.
type APIHandler struct {
	catalog       *catalog.Store
	view          *viewstate.Store
	pipeline      *ingest.Pipeline
	board         *ingest.Board
	notifications *notify.Center
	content       *service.ContentService
	health        *HealthHandler

	maxFileSize  int64
	uploadWait   time.Duration
	sseKeepalive time.Duration
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(d Deps, logger *slog.Logger) *APIHandler {
	keepalive := d.SSEKeepalive
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &APIHandler{
		catalog:       d.Catalog,
		view:          d.View,
		pipeline:      d.Pipeline,
		board:         d.Board,
		notifications: d.Notifications,
		content:       d.Content,
		health:        d.Health,
		maxFileSize:   d.MaxFileSize,
		uploadWait:    d.UploadWait,
		sseKeepalive:  keepalive,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/files", h.ListFiles)
		r.Post("/files/delete", h.DeleteFiles)
		r.Post("/files/categorize", h.CategorizeFiles)
		r.Get("/files/{id}", h.GetFile)
		r.Patch("/files/{id}", h.UpdateFile)
		r.Delete("/files/{id}", h.DeleteFile)
		r.Post("/files/{id}/favorite", h.ToggleFavorite)
		r.Get("/files/{id}/content", h.GetContent)
		r.Get("/files/{id}/thumbnail", h.GetThumbnail)
		r.Get("/facets", h.GetFacets)

		r.Get("/search", h.GetSearch)
		r.Put("/search", h.SetSearch)
		r.Get("/selection", h.GetSelection)
		r.Delete("/selection", h.ClearSelection)
		r.Post("/selection/toggle", h.ToggleSelection)
		r.Get("/preview", h.GetPreview)
		r.Put("/preview", h.SetPreview)

		r.Get("/view", h.GetView)
		r.Patch("/view", h.PatchView)

		r.Post("/uploads", h.Upload)
		r.Get("/uploads", h.ListUploads)
		r.Post("/uploads/clear-completed", h.ClearCompletedUploads)
		r.Delete("/uploads/batches/{batch_id}", h.CancelBatch)

		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications/{id}", h.DismissNotification)
		r.Get("/events", h.Events)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, fmt.Sprintf("Маршрут %s не найден", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeValidationError,
			fmt.Sprintf("Метод %s не поддерживается для %s", r.Method, r.URL.Path))
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. Неизвестные поля — ошибка.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("пустое тело запроса")
		}
		return fmt.Errorf("некорректный JSON в теле запроса: %w", err)
	}
	return nil
}

// recordID извлекает и проверяет UUID записи из пути.
func recordID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("некорректный ID %q: ожидается UUID", raw)
	}
	return id.String(), nil
}

// parseIDs проверяет список UUID из тела запроса.
func parseIDs(raw []string) ([]string, error) {
	ids := make([]string, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("некорректный ID %q: ожидается UUID", s)
		}
		ids = append(ids, id.String())
	}
	return ids, nil
}

// writeCatalogError отображает ошибки каталога в HTTP-ответ.
func (h *APIHandler) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, catalog.ErrInvalidCategory):
		apierrors.InvalidCategory(w, err.Error())
	case errors.Is(err, catalog.ErrInvalidFacet):
		apierrors.InvalidFacet(w, err.Error())
	case errors.Is(err, catalog.ErrInvalidUpdate):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Ошибка операции каталога", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка каталога")
	}
}
