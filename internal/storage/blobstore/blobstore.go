// Пакет blobstore — байты файлов каталога в сессионной директории.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету, чтение,
// явное освобождение дескрипторов и очистку директории при завершении.
//
// Дескриптор (handle) — имя файла внутри директории данных. Он
// непрозрачен для остальных пакетов и принадлежит ровно одной записи.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tmpSuffix — суффикс временных файлов незавершённой записи.
const tmpSuffix = ".tmp"

var (
	// ErrNotFound — дескриптор не найден.
	ErrNotFound = errors.New("blob не найден")
	// ErrInvalidHandle — дескриптор не является именем файла в директории данных.
	ErrInvalidHandle = errors.New("некорректный дескриптор blob")
)

// Store — хранилище байтов файлов.
type Store struct {
	// dataDir — директория данных сессии (MC_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения.
type SaveResult struct {
	// Handle — дескриптор для последующего Open/Release
	Handle string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// Entry — сведения о сохранённом blob.
type Entry struct {
	Handle  string
	Size    int64
	ModTime time.Time
}

// New создаёт хранилище, при необходимости создавая директорию.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Save записывает данные из reader с подсчётом SHA-256 на лету.
// Дескриптор — UUID и необязательное расширение: {uuid}[.ext].
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Save(reader io.Reader, originalName string) (*SaveResult, error) {
	handle := generateHandle(originalName)
	fullPath := filepath.Join(s.dataDir, handle)
	tmpPath := fullPath + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		Handle:   handle,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает blob для чтения. Вызывающий код обязан закрыть файл.
func (s *Store) Open(handle string) (*os.File, error) {
	fullPath, err := s.path(handle)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return nil, fmt.Errorf("ошибка открытия blob %s: %w", handle, err)
	}
	return f, nil
}

// Release освобождает дескриптор (удаляет байты).
// Возвращает nil, если blob уже не существует.
func (s *Store) Release(handle string) error {
	fullPath, err := s.path(handle)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления blob %s: %w", handle, err)
	}
	return nil
}

// List возвращает все завершённые blob (без временных файлов).
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.dataDir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasSuffix(de.Name(), tmpSuffix) || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Файл удалён между ReadDir и Info
			continue
		}
		entries = append(entries, Entry{
			Handle:  de.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Purge удаляет директорию данных сессии целиком.
func (s *Store) Purge() error {
	if err := os.RemoveAll(s.dataDir); err != nil {
		return fmt.Errorf("ошибка очистки директории %s: %w", s.dataDir, err)
	}
	return nil
}

// DataDir возвращает путь к директории данных.
func (s *Store) DataDir() string {
	return s.dataDir
}

// path проверяет дескриптор и возвращает абсолютный путь.
func (s *Store) path(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) || handle == "." || handle == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return filepath.Join(s.dataDir, handle), nil
}

// generateHandle выдаёт уникальный дескриптор: UUID и расширение исходного
// имени в нижнем регистре. Расширение длиннее 8 символов или не из
// [a-z0-9] отбрасывается.
func generateHandle(originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if ext == "" || len(ext) > 8 || strings.IndexFunc(ext, notAlnum) >= 0 {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

func notAlnum(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}

// CheckReady проверяет доступность директории данных для readiness probe.
// Возвращает статус ("ok", "fail") и сообщение.
func (s *Store) CheckReady() (status, message string) {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return "fail", fmt.Sprintf("директория данных недоступна: %v", err)
	}
	if !info.IsDir() {
		return "fail", "путь данных не является директорией"
	}
	return "ok", ""
}
