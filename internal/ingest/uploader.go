// uploader.go — стадия uploading: передача байтов в blob-хранилище
// с отчётом о прогрессе.
//
// DirectUploader сообщает реальный прогресс копирования.
// SimulatedUploader дополнительно выдерживает фиксированные шаги с
// задержкой (режим демонстрации панели загрузки).
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/storage/blobstore"
)

// ProgressFunc получает монотонно неубывающий прогресс 0..100.
type ProgressFunc func(percent int)

// Uploader передаёт байты источника в хранилище.
type Uploader interface {
	Upload(ctx context.Context, src Source, progress ProgressFunc) (*blobstore.SaveResult, error)
}

// BlobSaver — запись байтов в хранилище.
type BlobSaver interface {
	Save(reader io.Reader, originalName string) (*blobstore.SaveResult, error)
}

// DirectUploader копирует байты, сообщая прогресс с шагом step процентов.
type DirectUploader struct {
	store BlobSaver
	step  int
}

// NewDirectUploader создаёт DirectUploader. step <= 0 заменяется на 10.
func NewDirectUploader(store BlobSaver, step int) *DirectUploader {
	if step <= 0 || step > 100 {
		step = 10
	}
	return &DirectUploader{store: store, step: step}
}

// Upload копирует байты источника в хранилище.
func (u *DirectUploader) Upload(ctx context.Context, src Source, progress ProgressFunc) (*blobstore.SaveResult, error) {
	return u.transfer(ctx, src, progress, true)
}

func (u *DirectUploader) transfer(ctx context.Context, src Source, progress ProgressFunc, report bool) (*blobstore.SaveResult, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия источника: %w", err)
	}
	defer rc.Close()

	var r io.Reader = &ctxReader{ctx: ctx, r: rc}
	if report && progress != nil {
		r = &progressReader{r: r, total: src.Size, step: u.step, report: progress}
	}

	res, err := u.store.Save(r, src.Name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return res, nil
}

// SimulatedUploader выдаёт прогресс фиксированными шагами с задержкой,
// затем сохраняет байты.
type SimulatedUploader struct {
	direct *DirectUploader
	step   int
	delay  time.Duration
}

// NewSimulatedUploader создаёт SimulatedUploader (по умолчанию шаг 10%, 50ms).
func NewSimulatedUploader(store BlobSaver, step int, delay time.Duration) *SimulatedUploader {
	d := NewDirectUploader(store, step)
	return &SimulatedUploader{direct: d, step: d.step, delay: delay}
}

// Upload выдерживает шаги прогресса и копирует байты.
// Отмена контекста прерывает ожидание очередного шага.
func (u *SimulatedUploader) Upload(ctx context.Context, src Source, progress ProgressFunc) (*blobstore.SaveResult, error) {
	timer := time.NewTimer(u.delay)
	defer timer.Stop()

	for p := 0; p < 100; p += u.step {
		if progress != nil {
			progress(p)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			timer.Reset(u.delay)
		}
	}
	return u.direct.transfer(ctx, src, progress, false)
}

// ctxReader прерывает чтение при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// progressReader сообщает прогресс при пересечении очередного шага.
// 100% сообщается только после успешного сохранения.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	step   int
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && n > 0 {
		pct := int(min(p.read*100/p.total, 100))
		pct = pct / p.step * p.step
		if pct > p.last && pct < 100 {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
