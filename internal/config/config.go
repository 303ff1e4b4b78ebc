// Пакет config — загрузка и валидация конфигурации каталога
// из переменных окружения с префиксом MC_.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы стадии uploading.
const (
	UploadModeSimulated = "simulated"
	UploadModeDirect    = "direct"
)

// Config содержит все параметры конфигурации каталога.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Директория blob-хранилища. Пустая — временная директория сессии,
	// удаляется при остановке.
	DataDir string

	// --- Приём файлов ---

	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Допустимые MIME-шаблоны
	AllowedTypes []string
	// Максимум одновременно обрабатываемых файлов
	IngestWorkers int
	// Режим стадии uploading: simulated или direct
	UploadMode string
	// Шаг прогресса в процентах
	UploadProgressStep int
	// Задержка между шагами в режиме simulated
	UploadStepDelay time.Duration
	// Сколько POST /uploads ждёт завершения пачки
	UploadWait time.Duration

	// --- Уведомления ---

	// Время показа уведомления
	NotifyDuration time.Duration
	// Максимум одновременно активных уведомлений
	NotifyMaxActive int

	// --- Миниатюры ---

	// Максимальная сторона миниатюры (0 — не создавать)
	ThumbnailSize int
	// Размер кэша миниатюр
	ThumbnailCacheSize int
	// Время жизни миниатюры в кэше
	ThumbnailCacheTTL time.Duration

	// --- GC ---

	GCInterval time.Duration
	// Возраст, после которого blob без ссылок считается осиротевшим
	GCGrace time.Duration

	// Интервал keepalive-комментариев SSE
	SSEKeepalive time.Duration

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MC_PORT — порт HTTP-сервера (по умолчанию 8020)
	cfg.Port, err = getEnvInt("MC_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("MC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MC_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MC_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("MC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MC_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.DataDir = os.Getenv("MC_DATA_DIR")

	// --- Приём файлов ---

	// MC_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	cfg.MaxFileSize, err = getEnvInt64("MC_MAX_FILE_SIZE", 100<<20)
	if err != nil {
		return nil, fmt.Errorf("MC_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MC_MAX_FILE_SIZE: значение должно быть положительным")
	}

	cfg.AllowedTypes = getEnvList("MC_ALLOWED_TYPES",
		[]string{"image/*", "video/*", "audio/*", "application/pdf", "text/*"})

	cfg.IngestWorkers, err = getEnvInt("MC_INGEST_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("MC_INGEST_WORKERS: %w", err)
	}
	if cfg.IngestWorkers < 1 {
		return nil, fmt.Errorf("MC_INGEST_WORKERS: значение должно быть >= 1")
	}

	cfg.UploadMode = strings.ToLower(getEnvDefault("MC_UPLOAD_MODE", UploadModeSimulated))
	if cfg.UploadMode != UploadModeSimulated && cfg.UploadMode != UploadModeDirect {
		return nil, fmt.Errorf("MC_UPLOAD_MODE: недопустимый режим %q, допустимые: simulated, direct", cfg.UploadMode)
	}

	cfg.UploadProgressStep, err = getEnvInt("MC_UPLOAD_PROGRESS_STEP", 10)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_PROGRESS_STEP: %w", err)
	}
	if cfg.UploadProgressStep < 1 || cfg.UploadProgressStep > 100 {
		return nil, fmt.Errorf("MC_UPLOAD_PROGRESS_STEP: значение %d вне диапазона 1-100", cfg.UploadProgressStep)
	}

	cfg.UploadStepDelay, err = getEnvDuration("MC_UPLOAD_STEP_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_STEP_DELAY: %w", err)
	}

	cfg.UploadWait, err = getEnvDuration("MC_UPLOAD_WAIT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_WAIT: %w", err)
	}

	// --- Уведомления ---

	cfg.NotifyDuration, err = getEnvDuration("MC_NOTIFY_DURATION", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_NOTIFY_DURATION: %w", err)
	}
	if cfg.NotifyDuration <= 0 {
		return nil, fmt.Errorf("MC_NOTIFY_DURATION: значение должно быть > 0")
	}

	cfg.NotifyMaxActive, err = getEnvInt("MC_NOTIFY_MAX_ACTIVE", 100)
	if err != nil {
		return nil, fmt.Errorf("MC_NOTIFY_MAX_ACTIVE: %w", err)
	}
	if cfg.NotifyMaxActive < 1 {
		return nil, fmt.Errorf("MC_NOTIFY_MAX_ACTIVE: значение должно быть >= 1")
	}

	// --- Миниатюры ---

	cfg.ThumbnailSize, err = getEnvInt("MC_THUMBNAIL_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("MC_THUMBNAIL_SIZE: %w", err)
	}
	if cfg.ThumbnailSize < 0 {
		return nil, fmt.Errorf("MC_THUMBNAIL_SIZE: значение должно быть >= 0")
	}

	cfg.ThumbnailCacheSize, err = getEnvInt("MC_THUMBNAIL_CACHE_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("MC_THUMBNAIL_CACHE_SIZE: %w", err)
	}
	if cfg.ThumbnailCacheSize < 1 {
		return nil, fmt.Errorf("MC_THUMBNAIL_CACHE_SIZE: значение должно быть >= 1")
	}

	cfg.ThumbnailCacheTTL, err = getEnvDuration("MC_THUMBNAIL_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MC_THUMBNAIL_CACHE_TTL: %w", err)
	}

	// --- GC ---

	cfg.GCInterval, err = getEnvDuration("MC_GC_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MC_GC_INTERVAL: %w", err)
	}
	if cfg.GCInterval <= 0 {
		return nil, fmt.Errorf("MC_GC_INTERVAL: значение должно быть > 0")
	}

	cfg.GCGrace, err = getEnvDuration("MC_GC_GRACE", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MC_GC_GRACE: %w", err)
	}

	cfg.SSEKeepalive, err = getEnvDuration("MC_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_SSE_KEEPALIVE: %w", err)
	}
	if cfg.SSEKeepalive <= 0 {
		return nil, fmt.Errorf("MC_SSE_KEEPALIVE: значение должно быть > 0")
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("MC_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("MC_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("MC_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_IDLE_TIMEOUT: %w", err)
	}

	if cfg.UploadWait >= cfg.HTTPWriteTimeout {
		return nil, fmt.Errorf("MC_UPLOAD_WAIT: значение %s должно быть меньше MC_HTTP_WRITE_TIMEOUT (%s)",
			cfg.UploadWait, cfg.HTTPWriteTimeout)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("MC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной или defaultVal, если она пуста.
func getEnvDefault(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// parseEnv разбирает непустую переменную функцией parse.
// Пустая или отсутствующая переменная даёт defaultVal.
func parseEnv[T any](key string, defaultVal T, parse func(string) (T, error)) (T, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}
	return parse(val)
}

func getEnvInt(key string, defaultVal int) (int, error) {
	return parseEnv(key, defaultVal, func(val string) (int, error) {
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("ожидается целое число, получено %q", val)
		}
		return n, nil
	})
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	return parseEnv(key, defaultVal, func(val string) (int64, error) {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ожидается целое число, получено %q", val)
		}
		return n, nil
	})
}

// getEnvDuration принимает формат time.ParseDuration (30s, 15m, 1h).
// Отрицательные значения отвергаются.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	return parseEnv(key, defaultVal, func(val string) (time.Duration, error) {
		d, err := time.ParseDuration(val)
		switch {
		case err != nil:
			return 0, fmt.Errorf("ожидается длительность вида 30s или 15m, получено %q", val)
		case d < 0:
			return 0, fmt.Errorf("отрицательная длительность %q", val)
		}
		return d, nil
	})
}

// getEnvList разбирает список через запятую. Пустые элементы отбрасываются.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// parseLogLevel преобразует строку в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
	return l, nil
}
