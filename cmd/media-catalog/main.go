// main.go — точка входа каталога медиафайлов.
// Инициализация: config → logger → blob-хранилище → уведомления →
// каталог → конвейер приёма → фоновые сервисы → HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/bigkaa/goartstore/media-catalog/internal/api/handlers"
	"github.com/bigkaa/goartstore/media-catalog/internal/api/middleware"
	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/config"
	"github.com/bigkaa/goartstore/media-catalog/internal/extract"
	"github.com/bigkaa/goartstore/media-catalog/internal/ingest"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
	"github.com/bigkaa/goartstore/media-catalog/internal/server"
	"github.com/bigkaa/goartstore/media-catalog/internal/service"
	"github.com/bigkaa/goartstore/media-catalog/internal/storage/blobstore"
	"github.com/bigkaa/goartstore/media-catalog/internal/viewstate"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Media Catalog запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("upload_mode", cfg.UploadMode),
	)

	// 3. Blob-хранилище. Без MC_DATA_DIR — временная директория сессии.
	dataDir := cfg.DataDir
	sessionDir := dataDir == ""
	if sessionDir {
		dataDir, err = os.MkdirTemp("", "media-catalog-*")
		if err != nil {
			log.Fatalf("Ошибка создания директории сессии: %v", err)
		}
	}
	store, err := blobstore.New(dataDir)
	if err != nil {
		log.Fatalf("Ошибка инициализации blob-хранилища: %v", err)
	}
	logger.Info("Blob-хранилище готово",
		slog.String("data_dir", store.DataDir()),
		slog.Bool("session", sessionDir),
	)

	// 4. Канал уведомлений и хранилища состояния
	notifications := notify.New(cfg.NotifyDuration, cfg.NotifyMaxActive, logger)
	cat := catalog.New(notifications, store, logger)
	view := viewstate.New()

	// 5. Конвейер приёма
	var uploader ingest.Uploader
	switch cfg.UploadMode {
	case config.UploadModeDirect:
		uploader = ingest.NewDirectUploader(store, cfg.UploadProgressStep)
	default:
		uploader = ingest.NewSimulatedUploader(store, cfg.UploadProgressStep, cfg.UploadStepDelay)
	}
	pipeline := ingest.New(
		ingest.Config{
			Workers: cfg.IngestWorkers,
			Policy:  ingest.Policy{MaxFileSize: cfg.MaxFileSize, AllowedTypes: cfg.AllowedTypes},
		},
		uploader,
		store,
		extract.New(cfg.ThumbnailSize, logger),
		cat,
		notifications,
		logger,
	)
	board := ingest.NewBoard(pipeline)
	defer board.Close()

	// 6. Фоновые сервисы
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gc := service.NewGCService(store, cat, cfg.GCInterval, cfg.GCGrace, logger)
	gc.Start(ctx)

	content := service.NewContentService(cat, store, cfg.ThumbnailCacheSize, cfg.ThumbnailCacheTTL, logger)
	defer content.Close()

	// 7. HTTP-обработчики
	health := handlers.NewHealthHandler(
		handlers.Check{Name: "storage", Checker: store},
		handlers.Check{Name: "ingest", Checker: handlers.CheckerFunc(func() (string, string) {
			return "ok", fmt.Sprintf("активных пачек: %d", len(pipeline.ActiveBatches()))
		})},
	)
	apiHandler := handlers.NewAPIHandler(handlers.Deps{
		Catalog:       cat,
		View:          view,
		Pipeline:      pipeline,
		Board:         board,
		Notifications: notifications,
		Content:       content,
		Health:        health,
		MaxFileSize:   cfg.MaxFileSize,
		UploadWait:    cfg.UploadWait,
		SSEKeepalive:  cfg.SSEKeepalive,
	}, logger)

	// 8. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler,
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	)

	// 9. Запуск сервера (блокирующий вызов с graceful shutdown)
	runErr := srv.Run()

	// 10. Остановка: пачки приёма, GC, затем очистка сессии
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if err := pipeline.Stop(stopCtx); err != nil {
		logger.Warn("Конвейер не остановился за отведённое время", slog.String("error", err.Error()))
	}
	stopCancel()
	gc.Stop()

	if sessionDir {
		if err := store.Purge(); err != nil {
			logger.Error("Ошибка очистки директории сессии", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", runErr)
	}

	logger.Info("Media Catalog остановлен")
}
