// policy.go — проверка файла перед приёмом: лимит размера и список
// допустимых MIME-типов. Нарушение даёт Rejection, файл не попадает
// в конвейер.
package ingest

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Коды отказа.
const (
	CodeFileTooLarge   = "FILE_TOO_LARGE"
	CodeTypeNotAllowed = "TYPE_NOT_ALLOWED"
)

// DefaultMaxFileSize — лимит размера файла по умолчанию (100 MB).
const DefaultMaxFileSize int64 = 100 << 20

// DefaultAllowedTypes — шаблоны MIME-типов по умолчанию.
var DefaultAllowedTypes = []string{"image/*", "video/*", "audio/*", "application/pdf", "text/*"}

// knownExtensions — расширения, по которым определяется тип файла,
// если клиент не указал Content-Type.
var knownExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".csv":  "text/csv",
}

// Rejection — отказ в приёме файла.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Policy — правила приёма файлов.
type Policy struct {
	// MaxFileSize — максимальный размер файла в байтах
	MaxFileSize int64
	// AllowedTypes — шаблоны MIME-типов: точные ("application/pdf") или с * ("image/*")
	AllowedTypes []string
}

// DefaultPolicy возвращает правила по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		MaxFileSize:  DefaultMaxFileSize,
		AllowedTypes: DefaultAllowedTypes,
	}
}

// Check проверяет файл. Возвращает итоговый MIME-тип и nil либо отказ.
// Пустой или application/octet-stream тип уточняется по расширению.
func (p Policy) Check(name, contentType string, size int64) (string, *Rejection) {
	if p.MaxFileSize > 0 && size > p.MaxFileSize {
		return "", &Rejection{
			Code: CodeFileTooLarge,
			Message: fmt.Sprintf("Файл %s превышает лимит %d MB",
				name, p.MaxFileSize/(1<<20)),
		}
	}

	ct := ResolveContentType(name, contentType)
	if !p.allows(ct) {
		return "", &Rejection{
			Code:    CodeTypeNotAllowed,
			Message: fmt.Sprintf("Тип файла %s (%s) не поддерживается", name, ct),
		}
	}
	return ct, nil
}

// allows проверяет MIME-тип по шаблонам.
func (p Policy) allows(contentType string) bool {
	if len(p.AllowedTypes) == 0 {
		return true
	}
	mt := baseType(contentType)
	for _, pattern := range p.AllowedTypes {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "*/*" || pattern == mt {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(mt, prefix+"/") {
			return true
		}
	}
	return false
}

// ResolveContentType возвращает заявленный тип или, если он не задан,
// тип по расширению файла.
func ResolveContentType(name, contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct != "" && baseType(ct) != "application/octet-stream" {
		return ct
	}
	ext := strings.ToLower(filepath.Ext(name))
	if byExt, ok := knownExtensions[ext]; ok {
		return byExt
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// baseType возвращает MIME-тип без параметров в нижнем регистре.
func baseType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
