// content.go — отдача байтов файлов и миниатюр по ID записи.
//
// Байты файла отдаются через http.ServeContent (Range, If-None-Match).
// Миниатюры небольшие и запрашиваются сеткой многократно, поэтому
// держатся в expirable LRU. Кэш инвалидируется по событиям каталога.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// Prometheus-метрики кэша миниатюр.
var (
	thumbCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_thumbnail_cache_hits_total",
		Help: "Общее количество попаданий в кэш миниатюр.",
	})
	thumbCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_thumbnail_cache_misses_total",
		Help: "Общее количество промахов кэша миниатюр.",
	})
)

// maxThumbnailBytes — миниатюры крупнее не кэшируются.
const maxThumbnailBytes = 1 << 20

// RecordSource — чтение записей каталога и подписка на изменения.
type RecordSource interface {
	Get(id string) (*model.FileRecord, error)
	Subscribe(handler func(catalog.Change)) (unsubscribe func())
}

// BlobOpener открывает байты по дескриптору.
type BlobOpener interface {
	Open(handle string) (*os.File, error)
}

// ContentError — ошибка отдачи с HTTP-кодом.
type ContentError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Write записывает ошибку в стандартном формате API.
func (e *ContentError) Write(w http.ResponseWriter) {
	apierrors.WriteError(w, e.StatusCode, e.Code, e.Message)
}

type thumbnail struct {
	data     []byte
	checksum string
}

// ContentService — сервис отдачи содержимого.
type ContentService struct {
	records     RecordSource
	blobs       BlobOpener
	thumbs      *expirable.LRU[string, thumbnail]
	unsubscribe func()
	logger      *slog.Logger
}

// NewContentService создаёт сервис и подписывает кэш на изменения каталога.
// cacheSize — максимум миниатюр в кэше, ttl — время жизни записи.
func NewContentService(
	records RecordSource,
	blobs BlobOpener,
	cacheSize int,
	ttl time.Duration,
	logger *slog.Logger,
) *ContentService {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	s := &ContentService{
		records: records,
		blobs:   blobs,
		thumbs:  expirable.NewLRU[string, thumbnail](cacheSize, nil, ttl),
		logger:  logger.With(slog.String("component", "content_service")),
	}
	s.unsubscribe = records.Subscribe(s.onChange)
	return s
}

// Close отписывает кэш от каталога.
func (s *ContentService) Close() {
	s.unsubscribe()
}

func (s *ContentService) onChange(c catalog.Change) {
	if c.Operation != (catalog.DeleteRecordsOp{}).Name() {
		return
	}
	for _, id := range c.IDs {
		s.thumbs.Remove(id)
	}
}

// Serve отдаёт байты файла. download=true — Content-Disposition: attachment.
func (s *ContentService) Serve(w http.ResponseWriter, r *http.Request, id string, download bool) *ContentError {
	rec, cerr := s.record(id)
	if cerr != nil {
		return cerr
	}

	f, err := s.blobs.Open(rec.Location)
	if err != nil {
		s.logger.Error("Байты записи не найдены",
			slog.String("id", id),
			slog.String("location", rec.Location),
			slog.String("error", err.Error()),
		)
		return &ContentError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Содержимое файла %s недоступно", id),
		}
	}
	defer f.Close()

	disposition := "inline"
	if download || isActiveContent(rec.ContentType) {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": rec.Name}))
	if rec.Checksum != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", rec.Checksum))
	}
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, rec.Name, rec.DateModified, f)
	return nil
}

// ServeThumbnail отдаёт JPEG-миниатюру записи.
func (s *ContentService) ServeThumbnail(w http.ResponseWriter, r *http.Request, id string) *ContentError {
	th, cerr := s.thumbnail(id)
	if cerr != nil {
		return cerr
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if th.checksum != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", "thumb-"+th.checksum))
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(th.data))
	return nil
}

// thumbnail возвращает миниатюру из кэша или читает её из хранилища.
func (s *ContentService) thumbnail(id string) (thumbnail, *ContentError) {
	if th, ok := s.thumbs.Get(id); ok {
		thumbCacheHitsTotal.Inc()
		return th, nil
	}
	thumbCacheMissesTotal.Inc()

	rec, cerr := s.record(id)
	if cerr != nil {
		return thumbnail{}, cerr
	}
	if rec.Thumbnail == "" {
		return thumbnail{}, &ContentError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNoThumbnail,
			Message:    fmt.Sprintf("У файла %s нет миниатюры", id),
		}
	}

	f, err := s.blobs.Open(rec.Thumbnail)
	if err != nil {
		s.logger.Error("Миниатюра не найдена",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return thumbnail{}, &ContentError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNoThumbnail,
			Message:    fmt.Sprintf("Миниатюра файла %s недоступна", id),
		}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return thumbnail{}, &ContentError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения миниатюры",
		}
	}
	th := thumbnail{data: data, checksum: rec.Checksum}
	if len(data) > maxThumbnailBytes {
		s.logger.Warn("Миниатюра слишком велика для кэша", slog.String("id", id))
		return th, nil
	}
	s.thumbs.Add(id, th)
	// Удаление могло пройти между чтением записи и Add: его инвалидация
	// уже отработала, поэтому запись перепроверяется после вставки.
	if _, err := s.records.Get(id); errors.Is(err, catalog.ErrNotFound) {
		s.thumbs.Remove(id)
	}
	return th, nil
}

// activeContentTypes — типы, которые браузер исполняет в контексте
// сервиса. Они всегда отдаются вложением.
var activeContentTypes = map[string]bool{
	"text/html":              true,
	"application/xhtml+xml":  true,
	"image/svg+xml":          true,
	"text/xml":               true,
	"application/xml":        true,
	"text/javascript":        true,
	"application/javascript": true,
	"application/ecmascript": true,
	"text/ecmascript":        true,
}

func isActiveContent(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Неразборчивый тип не отдаётся inline.
		return contentType != ""
	}
	return activeContentTypes[mt]
}

func (s *ContentService) record(id string) (*model.FileRecord, *ContentError) {
	rec, err := s.records.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ContentError{
				StatusCode: http.StatusNotFound,
				Code:       apierrors.CodeNotFound,
				Message:    fmt.Sprintf("Файл %s не найден", id),
			}
		}
		return nil, &ContentError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения каталога",
		}
	}
	return rec, nil
}
