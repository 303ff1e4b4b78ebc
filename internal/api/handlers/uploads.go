// uploads.go — приём файлов через multipart/form-data и панель загрузок.
//
// POST /uploads передаёт файлы поля "files" в конвейер и ждёт завершения
// пачки не дольше UploadWait. Завершённая пачка — 200 с итогами,
// незавершённая — 202 с batch_id (продолжает выполняться, отменяется
// через DELETE /uploads/batches/{batch_id}).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/upload"
	"github.com/bigkaa/goartstore/media-catalog/internal/ingest"
)

const (
	// multipartMemory — часть формы в памяти, остальное во временных файлах.
	multipartMemory = 32 << 20
	// maxFilesPerRequest — из него считается лимит тела запроса.
	maxFilesPerRequest = 16
)

type uploadResponse struct {
	BatchID  string              `json:"batch_id"`
	Done     bool                `json:"done"`
	Complete int                 `json:"complete"`
	Failed   int                 `json:"failed"`
	Rejected int                 `json:"rejected"`
	Results  []ingest.FileResult `json:"results"`
}

// Upload — POST /api/v1/uploads.
// Поле "files" — файлы, необязательное поле "last_modified" — время
// модификации каждого файла в Unix-миллисекундах, по порядку.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize*maxFilesPerRequest+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Тело запроса превышает %d байт", maxErr.Limit))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Некорректная multipart-форма: %v", err))
		return
	}
	form := r.MultipartForm

	headers := form.File["files"]
	if len(headers) == 0 {
		_ = form.RemoveAll()
		apierrors.ValidationError(w, "Поле files не содержит файлов")
		return
	}

	modified, err := parseLastModified(form.Value["last_modified"], len(headers))
	if err != nil {
		_ = form.RemoveAll()
		apierrors.ValidationError(w, err.Error())
		return
	}

	sources := make([]ingest.Source, 0, len(headers))
	for i, fh := range headers {
		sources = append(sources, sourceFromHeader(fh, modified[i]))
	}

	// Пачка не привязана к запросу: при ответе 202 она продолжает работу.
	// Разрыв соединения до ответа отменяет её явно.
	batch := h.pipeline.Submit(context.WithoutCancel(r.Context()), sources)
	go func() {
		<-batch.Done()
		if err := form.RemoveAll(); err != nil {
			h.logger.Warn("Не удалось удалить временные файлы формы", slog.String("error", err.Error()))
		}
	}()

	timer := time.NewTimer(h.uploadWait)
	defer timer.Stop()

	status := http.StatusOK
	select {
	case <-batch.Done():
	case <-timer.C:
		status = http.StatusAccepted
	case <-r.Context().Done():
		batch.Cancel()
		return
	}

	writeJSON(w, status, summarize(batch, status == http.StatusOK))
}

func sourceFromHeader(fh *multipart.FileHeader, modified time.Time) ingest.Source {
	return ingest.Source{
		Name:         fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		LastModified: modified,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// parseLastModified разбирает Unix-миллисекунды. Отсутствующие значения — нулевое время.
func parseLastModified(values []string, n int) ([]time.Time, error) {
	out := make([]time.Time, n)
	if len(values) > n {
		return nil, fmt.Errorf("last_modified: значений (%d) больше, чем файлов (%d)", len(values), n)
	}
	for i, v := range values {
		if v == "" {
			continue
		}
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("last_modified[%d]: некорректное значение %q", i, v)
		}
		out[i] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

func summarize(b *ingest.Batch, done bool) uploadResponse {
	resp := uploadResponse{BatchID: b.ID, Done: done, Results: b.Results()}
	for _, res := range resp.Results {
		switch {
		case res.Rejected:
			resp.Rejected++
		case res.Status == upload.StatusComplete:
			resp.Complete++
		case res.Status == upload.StatusError:
			resp.Failed++
		}
	}
	return resp
}

type boardResponse struct {
	Items []ingest.Entry `json:"items"`
}

// ListUploads — GET /api/v1/uploads: панель загрузок.
func (h *APIHandler) ListUploads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, boardResponse{Items: h.board.List()})
}

type clearResponse struct {
	Removed int `json:"removed"`
}

// ClearCompletedUploads — POST /api/v1/uploads/clear-completed.
func (h *APIHandler) ClearCompletedUploads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, clearResponse{Removed: h.board.ClearCompleted()})
}

// CancelBatch — DELETE /api/v1/uploads/batches/{batch_id}.
func (h *APIHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batch_id")
	if !h.pipeline.CancelBatch(id) {
		apierrors.NotFound(w, fmt.Sprintf("Активная пачка %s не найдена", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
