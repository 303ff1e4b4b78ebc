package config

import (
	"log/slog"
	"testing"
	"time"
)

// allKeys — все переменные MC_*, которые читает Load.
var allKeys = []string{
	"MC_PORT", "MC_LOG_LEVEL", "MC_LOG_FORMAT", "MC_DATA_DIR",
	"MC_MAX_FILE_SIZE", "MC_ALLOWED_TYPES", "MC_INGEST_WORKERS",
	"MC_UPLOAD_MODE", "MC_UPLOAD_PROGRESS_STEP", "MC_UPLOAD_STEP_DELAY", "MC_UPLOAD_WAIT",
	"MC_NOTIFY_DURATION", "MC_NOTIFY_MAX_ACTIVE",
	"MC_THUMBNAIL_SIZE", "MC_THUMBNAIL_CACHE_SIZE", "MC_THUMBNAIL_CACHE_TTL",
	"MC_GC_INTERVAL", "MC_GC_GRACE", "MC_SSE_KEEPALIVE",
	"MC_HTTP_READ_TIMEOUT", "MC_HTTP_WRITE_TIMEOUT", "MC_HTTP_IDLE_TIMEOUT",
	"MC_SHUTDOWN_TIMEOUT",
}

// clearEnv сбрасывает все MC_* переменные на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8020 {
		t.Errorf("Port: хотели 8020, получили %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "json" {
		t.Errorf("логирование: %v %s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DataDir != "" {
		t.Errorf("DataDir по умолчанию должен быть пустым: %q", cfg.DataDir)
	}
	if cfg.MaxFileSize != 100<<20 {
		t.Errorf("MaxFileSize: %d", cfg.MaxFileSize)
	}
	if len(cfg.AllowedTypes) != 5 {
		t.Errorf("AllowedTypes: %v", cfg.AllowedTypes)
	}
	if cfg.IngestWorkers != 4 || cfg.UploadMode != UploadModeSimulated || cfg.UploadProgressStep != 10 {
		t.Errorf("приём: workers=%d mode=%s step=%d", cfg.IngestWorkers, cfg.UploadMode, cfg.UploadProgressStep)
	}
	if cfg.UploadStepDelay != 50*time.Millisecond {
		t.Errorf("UploadStepDelay: %s", cfg.UploadStepDelay)
	}
	if cfg.NotifyDuration != 5*time.Second || cfg.NotifyMaxActive != 100 {
		t.Errorf("уведомления: %s %d", cfg.NotifyDuration, cfg.NotifyMaxActive)
	}
	if cfg.ThumbnailSize != 256 || cfg.ThumbnailCacheSize != 512 {
		t.Errorf("миниатюры: %d %d", cfg.ThumbnailSize, cfg.ThumbnailCacheSize)
	}
	if cfg.GCInterval != 10*time.Minute || cfg.GCGrace != 5*time.Minute {
		t.Errorf("GC: %s %s", cfg.GCInterval, cfg.GCGrace)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: %s", cfg.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MC_PORT", "9000")
	t.Setenv("MC_LOG_LEVEL", "debug")
	t.Setenv("MC_LOG_FORMAT", "text")
	t.Setenv("MC_ALLOWED_TYPES", " image/* , ,application/pdf")
	t.Setenv("MC_UPLOAD_MODE", "DIRECT")
	t.Setenv("MC_THUMBNAIL_SIZE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "text" {
		t.Errorf("неожиданные значения: %+v", cfg)
	}
	if len(cfg.AllowedTypes) != 2 || cfg.AllowedTypes[0] != "image/*" || cfg.AllowedTypes[1] != "application/pdf" {
		t.Errorf("AllowedTypes: %q", cfg.AllowedTypes)
	}
	if cfg.UploadMode != UploadModeDirect {
		t.Errorf("UploadMode: %s", cfg.UploadMode)
	}
	if cfg.ThumbnailSize != 0 {
		t.Errorf("ThumbnailSize: %d", cfg.ThumbnailSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт не число", "MC_PORT", "abc"},
		{"порт вне диапазона", "MC_PORT", "70000"},
		{"уровень логов", "MC_LOG_LEVEL", "verbose"},
		{"формат логов", "MC_LOG_FORMAT", "xml"},
		{"размер файла", "MC_MAX_FILE_SIZE", "0"},
		{"воркеры", "MC_INGEST_WORKERS", "0"},
		{"режим загрузки", "MC_UPLOAD_MODE", "turbo"},
		{"шаг прогресса", "MC_UPLOAD_PROGRESS_STEP", "150"},
		{"длительность", "MC_NOTIFY_DURATION", "5 seconds"},
		{"отрицательная длительность", "MC_GC_GRACE", "-1m"},
		{"ожидание дольше записи", "MC_UPLOAD_WAIT", "2m"},
		{"кэш миниатюр", "MC_THUMBNAIL_CACHE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q: ожидалась ошибка", tt.key, tt.val)
			}
		})
	}
}
