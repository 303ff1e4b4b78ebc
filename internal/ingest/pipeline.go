// Пакет ingest — конвейер приёма файлов.
//
// Каждый принятый файл проходит стадии uploading → processing →
// complete | error (upload.StateMachine). Файлы пачки обрабатываются
// параллельно, не более Workers одновременно; сбой одного файла не
// влияет на остальные. Готовая запись передаётся в каталог, стадии
// публикуются событиями Event.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/media-catalog/internal/broker"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/upload"
	"github.com/bigkaa/goartstore/media-catalog/internal/extract"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
	"github.com/bigkaa/goartstore/media-catalog/internal/storage/blobstore"
)

// Prometheus метрики конвейера
var (
	filesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_ingest_files_total",
			Help: "Количество обработанных файлов по итогу",
		},
		[]string{"result"},
	)

	fileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mc_ingest_file_duration_seconds",
			Help:    "Длительность приёма одного файла",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeBatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mc_ingest_active_batches",
			Help: "Количество выполняющихся пачек",
		},
	)
)

// Сообщения об ошибках стадий.
const (
	msgCanceled      = "Загрузка отменена"
	msgUploadFailed  = "Ошибка передачи файла"
	msgProcessFailed = "Ошибка обработки файла"
)

// Source — файл, предложенный к приёму.
type Source struct {
	// Ref — клиентская ссылка на файл. Пустая заменяется на UUID.
	Ref          string
	Name         string
	ContentType  string
	Size         int64
	LastModified time.Time
	Open         func() (io.ReadCloser, error)
}

// EventKind — вид события конвейера.
type EventKind string

const (
	// EventStage — смена стадии или прогресса принятого файла.
	EventStage EventKind = "stage"
	// EventRejected — файл отклонён до приёма.
	EventRejected EventKind = "rejected"
)

// Event — событие конвейера.
type Event struct {
	Kind     EventKind     `json:"kind"`
	BatchID  string        `json:"batch_id"`
	Ref      string        `json:"ref"`
	Name     string        `json:"name"`
	Status   upload.Status `json:"status,omitempty"`
	Progress int           `json:"progress"`
	Code     string        `json:"code,omitempty"`
	Error    string        `json:"error,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	At       time.Time     `json:"at"`
}

// FileResult — итог приёма одного файла.
type FileResult struct {
	Ref      string        `json:"ref"`
	Name     string        `json:"name"`
	Status   upload.Status `json:"status,omitempty"`
	Rejected bool          `json:"rejected,omitempty"`
	Code     string        `json:"code,omitempty"`
	Error    string        `json:"error,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	// History — переходы между стадиями, заполняется в конечной стадии.
	History []upload.TransitionRecord `json:"history,omitempty"`
}

// Catalog — приёмник готовых записей.
type Catalog interface {
	AddRecords(records ...*model.FileRecord) int
}

// Blobs — blob-хранилище конвейера.
type Blobs interface {
	Save(reader io.Reader, originalName string) (*blobstore.SaveResult, error)
	Open(handle string) (*os.File, error)
	Release(handle string) error
}

// Config — параметры конвейера.
type Config struct {
	// Workers — максимум одновременно обрабатываемых файлов
	Workers int
	Policy  Policy
}

// Pipeline — конвейер приёма.
type Pipeline struct {
	workers   int
	policy    Policy
	uploader  Uploader
	blobs     Blobs
	extractor extract.Extractor
	catalog   Catalog
	notifier  notify.Notifier
	events    *broker.Broker[Event]
	logger    *slog.Logger

	mu      sync.Mutex
	batches map[string]*Batch
	wg      sync.WaitGroup
}

// New создаёт конвейер. notifier может быть nil.
func New(
	cfg Config,
	uploader Uploader,
	blobs Blobs,
	extractor extract.Extractor,
	catalog Catalog,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		workers:   workers,
		policy:    cfg.Policy,
		uploader:  uploader,
		blobs:     blobs,
		extractor: extractor,
		catalog:   catalog,
		notifier:  notifier,
		events:    broker.New[Event]("ingest.events", logger),
		logger:    logger.With(slog.String("component", "ingest")),
		batches:   make(map[string]*Batch),
	}
}

// Subscribe подписывает обработчик на события конвейера.
func (p *Pipeline) Subscribe(handler func(Event)) (unsubscribe func()) {
	return p.events.Subscribe(handler)
}

// Submit принимает пачку файлов и сразу возвращает управление.
// Отклонённые политикой файлы получают событие EventRejected и
// уведомление об ошибке. Отмена ctx или Batch.Cancel переводит
// незавершённые файлы в error.
func (p *Pipeline) Submit(ctx context.Context, files []Source) *Batch {
	batchCtx, cancel := context.WithCancel(ctx)
	b := &Batch{
		ID:      uuid.New().String(),
		cancel:  cancel,
		done:    make(chan struct{}),
		results: make([]FileResult, len(files)),
	}

	type accepted struct {
		idx int
		src Source
	}
	queue := make([]accepted, 0, len(files))

	for i, src := range files {
		if src.Ref == "" {
			src.Ref = uuid.New().String()
		}
		ct, rej := p.policy.Check(src.Name, src.ContentType, src.Size)
		if rej != nil {
			p.reject(b, i, src, rej)
			continue
		}
		src.ContentType = ct
		b.results[i] = FileResult{Ref: src.Ref, Name: src.Name, Status: upload.StatusUploading}
		queue = append(queue, accepted{idx: i, src: src})
	}

	p.mu.Lock()
	p.batches[b.ID] = b
	p.mu.Unlock()
	activeBatches.Inc()
	p.wg.Add(1)

	p.logger.Info("Пачка принята",
		slog.String("batch_id", b.ID),
		slog.Int("accepted", len(queue)),
		slog.Int("rejected", len(files)-len(queue)),
	)

	// Начальная стадия публикуется до запуска воркеров: строки панели
	// появляются в порядке подачи файлов.
	trackers := make([]tracker, 0, len(queue))
	for _, item := range queue {
		t := tracker{p: p, b: b, idx: item.idx, src: item.src, sm: upload.NewStateMachine()}
		t.emit("")
		trackers = append(trackers, t)
	}

	go func() {
		defer p.wg.Done()

		var g errgroup.Group
		g.SetLimit(p.workers)
		for _, t := range trackers {
			g.Go(func() error {
				p.process(batchCtx, t)
				return nil
			})
		}
		_ = g.Wait()

		cancel()
		p.mu.Lock()
		delete(p.batches, b.ID)
		p.mu.Unlock()
		activeBatches.Dec()
		close(b.done)

		p.logger.Info("Пачка завершена", slog.String("batch_id", b.ID))
	}()

	return b
}

// CancelBatch отменяет выполняющуюся пачку. false — пачка не найдена
// или уже завершена.
func (p *Pipeline) CancelBatch(id string) bool {
	p.mu.Lock()
	b, ok := p.batches[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	b.Cancel()
	return true
}

// ActiveBatches возвращает ID выполняющихся пачек.
func (p *Pipeline) ActiveBatches() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.batches))
	for id := range p.batches {
		ids = append(ids, id)
	}
	return ids
}

// Stop отменяет все пачки и ждёт их завершения или отмены ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	for _, b := range p.batches {
		b.Cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reject фиксирует отказ политики.
func (p *Pipeline) reject(b *Batch, idx int, src Source, rej *Rejection) {
	b.setResult(idx, FileResult{
		Ref:      src.Ref,
		Name:     src.Name,
		Rejected: true,
		Code:     rej.Code,
		Error:    rej.Message,
	})
	filesTotal.WithLabelValues("rejected").Inc()
	p.logger.Warn("Файл отклонён",
		slog.String("batch_id", b.ID),
		slog.String("name", src.Name),
		slog.String("code", rej.Code),
	)
	p.events.Publish(Event{
		Kind:    EventRejected,
		BatchID: b.ID,
		Ref:     src.Ref,
		Name:    src.Name,
		Code:    rej.Code,
		Error:   rej.Message,
		At:      time.Now().UTC(),
	})
	if p.notifier != nil {
		p.notifier.Notify(notify.KindError, "Файл отклонён", rej.Message)
	}
}

// process проводит один файл через все стадии.
func (p *Pipeline) process(ctx context.Context, t tracker) {
	start := time.Now()
	src, sm := t.src, t.sm

	defer func() {
		fileDuration.Observe(time.Since(start).Seconds())
	}()

	if ctx.Err() != nil {
		t.fail(msgCanceled)
		return
	}

	res, err := p.uploader.Upload(ctx, src, func(pct int) {
		if sm.SetProgress(pct) == nil {
			t.emit("")
		}
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			t.fail(msgCanceled)
			return
		}
		p.logger.Warn("Ошибка передачи",
			slog.String("name", src.Name),
			slog.String("error", err.Error()),
		)
		t.fail(msgUploadFailed)
		return
	}

	if err := sm.TransitionTo(upload.StatusProcessing); err != nil {
		p.release(res.Handle)
		t.fail(msgProcessFailed)
		return
	}
	t.emit("")

	rec, err := p.buildRecord(ctx, src, res)
	if err != nil {
		p.release(res.Handle)
		if ctx.Err() != nil {
			t.fail(msgCanceled)
			return
		}
		p.logger.Warn("Ошибка обработки",
			slog.String("name", src.Name),
			slog.String("error", err.Error()),
		)
		t.fail(msgProcessFailed)
		return
	}

	if ctx.Err() != nil {
		p.release(rec.Handles()...)
		t.fail(msgCanceled)
		return
	}

	if p.catalog.AddRecords(rec) != 1 {
		p.release(rec.Handles()...)
		t.fail(msgProcessFailed)
		return
	}

	if err := sm.TransitionTo(upload.StatusComplete); err != nil {
		p.logger.Error("Недопустимый переход", slog.String("error", err.Error()))
		return
	}
	t.emit(rec.ID)
	filesTotal.WithLabelValues("complete").Inc()
}

// buildRecord собирает запись: ID, категория, метаданные, миниатюра.
// Ошибка чтения байтов фатальна, отсутствие метаданных нет.
func (p *Pipeline) buildRecord(ctx context.Context, src Source, res *blobstore.SaveResult) (*model.FileRecord, error) {
	now := time.Now().UTC()
	modified := src.LastModified
	if modified.IsZero() {
		modified = now
	}

	rec := &model.FileRecord{
		ID:           uuid.New().String(),
		Name:         src.Name,
		Size:         res.Size,
		ContentType:  src.ContentType,
		DateModified: modified.UTC(),
		DateAdded:    now,
		Location:     res.Handle,
		Checksum:     res.Checksum,
		Category:     model.InferCategory(src.ContentType),
		Tags:         []string{},
	}

	if p.extractor == nil {
		return rec, nil
	}

	xr, err := p.extractor.Extract(ctx, extract.File{
		Name:        src.Name,
		ContentType: src.ContentType,
		Size:        res.Size,
		Open: func() (io.ReadSeekCloser, error) {
			f, err := p.blobs.Open(res.Handle)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("извлечение метаданных: %w", err)
	}
	rec.Metadata = xr.Metadata

	if len(xr.Thumbnail) > 0 {
		thumb, err := p.blobs.Save(bytes.NewReader(xr.Thumbnail), "thumb_"+src.Name+".jpg")
		if err != nil {
			p.logger.Warn("Не удалось сохранить миниатюру",
				slog.String("name", src.Name),
				slog.String("error", err.Error()),
			)
		} else {
			rec.Thumbnail = thumb.Handle
		}
	}
	return rec, nil
}

func (p *Pipeline) release(handles ...string) {
	for _, h := range handles {
		if err := p.blobs.Release(h); err != nil {
			p.logger.Warn("Не удалось освободить дескриптор",
				slog.String("handle", h),
				slog.String("error", err.Error()),
			)
		}
	}
}

// tracker публикует стадии одного файла и пишет итог в пачку.
type tracker struct {
	p   *Pipeline
	b   *Batch
	idx int
	src Source
	sm  *upload.StateMachine
}

func (t tracker) emit(recordID string) {
	st := t.sm.Current()
	res := FileResult{
		Ref:      t.src.Ref,
		Name:     t.src.Name,
		Status:   st.Status,
		Error:    st.Error,
		RecordID: recordID,
	}
	if t.sm.IsTerminal() {
		res.History = t.sm.History()
	}
	t.b.setResult(t.idx, res)
	t.p.events.Publish(Event{
		Kind:     EventStage,
		BatchID:  t.b.ID,
		Ref:      t.src.Ref,
		Name:     t.src.Name,
		Status:   st.Status,
		Progress: st.Progress,
		Error:    st.Error,
		RecordID: recordID,
		At:       time.Now().UTC(),
	})
}

func (t tracker) fail(msg string) {
	if err := t.sm.Fail(msg); err != nil {
		return
	}
	filesTotal.WithLabelValues("error").Inc()
	t.emit("")
}

// Batch — пачка файлов, принятая одним вызовом Submit.
type Batch struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	results []FileResult
}

// Cancel отменяет незавершённые файлы пачки.
func (b *Batch) Cancel() {
	b.cancel()
}

// Done закрывается, когда все файлы пачки достигли конечной стадии.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait ждёт завершения пачки и возвращает итоги в порядке подачи файлов.
func (b *Batch) Wait(ctx context.Context) ([]FileResult, error) {
	select {
	case <-b.done:
		return b.Results(), nil
	case <-ctx.Done():
		return b.Results(), ctx.Err()
	}
}

// Results возвращает текущие итоги (копия).
func (b *Batch) Results() []FileResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FileResult, len(b.results))
	copy(out, b.results)
	return out
}

func (b *Batch) setResult(idx int, r FileResult) {
	b.mu.Lock()
	b.results[idx] = r
	b.mu.Unlock()
}
