// Пакет model — доменные модели каталога файлов.
// FileRecord — единица каталога: метаданные загруженного файла,
// категория, теги, избранное и ссылки на байты в blob-хранилище.
package model

import (
	"strings"
	"time"
)

// FileRecord — запись каталога о загруженном файле.
type FileRecord struct {
	// ID — UUID записи, присваивается при приёме файла и не переиспользуется
	ID string
	// Name — отображаемое имя файла
	Name string
	// Size — размер в байтах
	Size int64
	// ContentType — заявленный MIME-тип
	ContentType string
	// DateModified — время модификации исходного файла
	DateModified time.Time
	// DateAdded — момент добавления в каталог, не изменяется
	DateAdded time.Time
	// Location — дескриптор байтов файла в blob-хранилище (принадлежит записи)
	Location string
	// Checksum — SHA-256 содержимого
	Checksum string
	// Category — текущая категория
	Category Category
	// Tags — упорядоченный список уникальных тегов
	Tags []string
	// IsFavorite — флаг избранного, не зависит от категории
	IsFavorite bool
	// Metadata — извлечённые метаданные (nil — отсутствуют)
	Metadata Metadata
	// Thumbnail — дескриптор миниатюры ("" — миниатюры нет)
	Thumbnail string
}

// Clone возвращает глубокую копию записи.
// Варианты Metadata — неизменяемые значения, копируется только срез тегов.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	copied := *r
	if r.Tags != nil {
		copied.Tags = make([]string, len(r.Tags))
		copy(copied.Tags, r.Tags)
	}
	return &copied
}

// Handles возвращает дескрипторы blob-хранилища, которыми владеет запись.
func (r *FileRecord) Handles() []string {
	handles := make([]string, 0, 2)
	if r.Location != "" {
		handles = append(handles, r.Location)
	}
	if r.Thumbnail != "" {
		handles = append(handles, r.Thumbnail)
	}
	return handles
}

// NormalizeTags обрезает пробелы, удаляет пустые значения и дубликаты,
// сохраняя порядок первого вхождения.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
