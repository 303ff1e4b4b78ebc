// gc.go — фоновая очистка blob-хранилища.
//
// Удаляет blob, на которые не ссылается ни одна запись каталога
// (Location или Thumbnail). Свежие blob моложе grace не трогаются:
// это байты файлов, которые ещё проходят конвейер приёма.
//
// Запускается как горутина с периодическим тикером (MC_GC_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/media-catalog/internal/storage/blobstore"
)

// Prometheus метрики GC
var (
	gcRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_gc_runs_total",
		Help: "Общее количество запусков GC",
	})

	gcBlobsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mc_gc_blobs_released_total",
		Help: "Общее количество осиротевших blob, удалённых GC",
	})

	gcDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mc_gc_duration_seconds",
		Help:    "Длительность выполнения GC в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// BlobLister — хранилище, которое GC сканирует и чистит.
type BlobLister interface {
	List() ([]blobstore.Entry, error)
	Release(handle string) error
}

// HandleSource — источник живых дескрипторов (каталог).
type HandleSource interface {
	Handles() map[string]struct{}
}

// GCResult — результат одного запуска GC.
type GCResult struct {
	// Scanned — количество просмотренных blob
	Scanned int
	// Released — количество удалённых осиротевших blob
	Released int
	// Errors — количество ошибок удаления
	Errors   int
	Duration time.Duration
}

// GCService — сервис фоновой очистки blob.
type GCService struct {
	blobs    BlobLister
	handles  HandleSource
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGCService создаёт сервис GC.
func NewGCService(
	blobs BlobLister,
	handles HandleSource,
	interval, grace time.Duration,
	logger *slog.Logger,
) *GCService {
	return &GCService{
		blobs:    blobs,
		handles:  handles,
		interval: interval,
		grace:    grace,
		logger:   logger.With(slog.String("component", "gc")),
	}
}

// Start запускает фоновую горутину GC.
func (gc *GCService) Start(ctx context.Context) {
	gcCtx, cancel := context.WithCancel(ctx)
	gc.cancel = cancel
	gc.done = make(chan struct{})

	go gc.run(gcCtx)

	gc.logger.Info("GC запущен",
		slog.String("interval", gc.interval.String()),
		slog.String("grace", gc.grace.String()),
	)
}

// Stop останавливает фоновый процесс и ждёт выхода горутины.
func (gc *GCService) Stop() {
	if gc.cancel == nil {
		return
	}
	gc.cancel()
	<-gc.done
	gc.logger.Info("GC остановлен")
}

func (gc *GCService) run(ctx context.Context) {
	defer close(gc.done)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gc.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл GC.
func (gc *GCService) RunOnce() *GCResult {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	start := time.Now()
	result := &GCResult{}

	entries, err := gc.blobs.List()
	if err != nil {
		gc.logger.Error("GC: ошибка сканирования хранилища", slog.String("error", err.Error()))
		result.Errors++
		return result
	}

	// Снимок живых дескрипторов берётся после листинга: blob, добавленный
	// в каталог между двумя шагами, окажется в снимке.
	live := gc.handles.Handles()
	cutoff := time.Now().Add(-gc.grace)

	for _, e := range entries {
		result.Scanned++
		if _, ok := live[e.Handle]; ok {
			continue
		}
		if e.ModTime.After(cutoff) {
			continue
		}
		if err := gc.blobs.Release(e.Handle); err != nil {
			gc.logger.Error("GC: ошибка удаления blob",
				slog.String("handle", e.Handle),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		gc.logger.Debug("GC: blob удалён", slog.String("handle", e.Handle))
		result.Released++
	}

	result.Duration = time.Since(start)

	gcRunsTotal.Inc()
	gcBlobsReleasedTotal.Add(float64(result.Released))
	gcDurationSeconds.Observe(result.Duration.Seconds())

	gc.logger.Info("GC завершён",
		slog.Int("scanned", result.Scanned),
		slog.Int("released", result.Released),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)
	return result
}
