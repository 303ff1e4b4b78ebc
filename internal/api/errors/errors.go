// Пакет errors — единый формат ошибок HTTP API каталога.
// Формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // имя пакета совпадает со stdlib, импортируется как apierrors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок API.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidCategory = "INVALID_CATEGORY"
	CodeInvalidFacet    = "INVALID_FACET"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeTypeNotAllowed  = "TYPE_NOT_ALLOWED"
	CodeNoThumbnail     = "NO_THUMBNAIL"
	CodeUploadTimeout   = "UPLOAD_TIMEOUT"
	CodeInternalError   = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// InvalidCategory — 400 категория вне допустимого набора.
func InvalidCategory(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidCategory, message)
}

// InvalidFacet — 400 неизвестный фасет.
func InvalidFacet(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidFacet, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// FileTooLarge — 413 тело запроса превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// UploadTimeout — 504 пачка не завершилась за отведённое время.
func UploadTimeout(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGatewayTimeout, CodeUploadTimeout, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
