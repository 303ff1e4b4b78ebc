// Пакет extract — best-effort извлечение метаданных и миниатюр.
//
// Extractor вызывается конвейером приёма для каждого сохранённого файла.
// Неподдерживаемый тип или неразборчивые данные дают пустой результат
// без ошибки; ошибка возвращается только если байты файла недоступны.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// File — описание файла для извлечения.
type File struct {
	Name        string
	ContentType string
	Size        int64
	// Open открывает байты файла. Вызывается не более одного раза.
	Open func() (io.ReadSeekCloser, error)
}

// Result — результат извлечения. Нулевое значение — ничего не извлечено.
type Result struct {
	// Metadata — вариант метаданных или nil
	Metadata model.Metadata
	// Thumbnail — JPEG-миниатюра или nil
	Thumbnail []byte
}

// Extractor — контракт извлечения метаданных.
type Extractor interface {
	Extract(ctx context.Context, f File) (*Result, error)
}

// probeFunc разбирает содержимое одного вида медиа.
type probeFunc func(r io.ReadSeeker) (*Result, error)

// MediaExtractor — реализация Extractor для изображений, WAV, MP4/MOV и текста.
type MediaExtractor struct {
	thumbSize int
	logger    *slog.Logger
}

// New создаёт MediaExtractor. thumbSize — максимальная сторона миниатюры
// в пикселях (0 — миниатюры не создаются).
func New(thumbSize int, logger *slog.Logger) *MediaExtractor {
	return &MediaExtractor{
		thumbSize: thumbSize,
		logger:    logger.With(slog.String("component", "extract")),
	}
}

// Extract извлекает метаданные и миниатюру.
func (e *MediaExtractor) Extract(ctx context.Context, f File) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	probe := e.probeFor(mediaType(f.ContentType))
	if probe == nil {
		return &Result{}, nil
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия %s: %w", f.Name, err)
	}
	defer r.Close()

	res, err := probe(r)
	if err != nil {
		e.logger.Warn("Метаданные не извлечены",
			slog.String("name", f.Name),
			slog.String("content_type", f.ContentType),
			slog.String("error", err.Error()),
		)
		return &Result{}, nil
	}
	return res, nil
}

func (e *MediaExtractor) probeFor(mt string) probeFunc {
	switch {
	case strings.HasPrefix(mt, "image/"):
		return e.probeImage
	case mt == "audio/wav", mt == "audio/x-wav", mt == "audio/wave", mt == "audio/vnd.wave":
		return probeWAV
	case mt == "video/mp4", mt == "video/quicktime", mt == "audio/mp4", mt == "audio/x-m4a":
		return probeMP4
	case strings.HasPrefix(mt, "text/"), mt == "application/json":
		return func(r io.ReadSeeker) (*Result, error) { return probeText(r) }
	default:
		return nil
	}
}

// mediaType возвращает MIME-тип без параметров в нижнем регистре.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
