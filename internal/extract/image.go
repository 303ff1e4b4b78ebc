// image.go — размеры изображения и JPEG-миниатюра.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // регистрация декодера
	"image/jpeg"
	_ "image/png" // регистрация декодера
	"io"
	"log/slog"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // регистрация декодера

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// maxThumbnailPixels — изображения крупнее не декодируются целиком.
const maxThumbnailPixels = 50_000_000

// thumbnailQuality — качество JPEG миниатюры.
const thumbnailQuality = 80

func (e *MediaExtractor) probeImage(r io.ReadSeeker) (*Result, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("заголовок изображения: %w", err)
	}

	res := &Result{Metadata: model.ImageMetadata{Width: cfg.Width, Height: cfg.Height}}

	if e.thumbSize <= 0 || cfg.Width*cfg.Height > maxThumbnailPixels {
		return res, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return res, nil
	}

	img, _, err := image.Decode(r)
	if err != nil {
		e.logger.Debug("Миниатюра не построена", slog.String("error", err.Error()))
		return res, nil
	}

	thumb, err := makeThumbnail(img, e.thumbSize)
	if err != nil {
		e.logger.Debug("Миниатюра не построена", slog.String("error", err.Error()))
		return res, nil
	}
	res.Thumbnail = thumb
	return res, nil
}

// makeThumbnail масштабирует изображение в квадрат limit×limit
// с сохранением пропорций и кодирует в JPEG.
func makeThumbnail(src image.Image, limit int) ([]byte, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("пустое изображение")
	}

	w, h := fitBox(b.Dx(), b.Dy(), limit)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("кодирование JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fitBox вписывает w×h в квадрат limit×limit. Меньшие изображения не увеличиваются.
func fitBox(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
