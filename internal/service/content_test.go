package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
	"github.com/bigkaa/goartstore/media-catalog/internal/storage/blobstore"
)

func addRecord(t *testing.T, store *blobstore.Store, cat *catalog.Store, id string, data, thumb []byte) *model.FileRecord {
	t.Helper()
	res, err := store.Save(bytes.NewReader(data), id+".txt")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec := &model.FileRecord{
		ID:           id,
		Name:         "Отчёт " + id + ".txt",
		Size:         res.Size,
		ContentType:  "text/plain",
		DateModified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Category:     model.CategoryDocuments,
		Location:     res.Handle,
		Checksum:     res.Checksum,
	}
	if thumb != nil {
		tr, err := store.Save(bytes.NewReader(thumb), "thumb.jpg")
		if err != nil {
			t.Fatalf("Save thumb: %v", err)
		}
		rec.Thumbnail = tr.Handle
	}
	if cat.AddRecords(rec) != 1 {
		t.Fatal("запись не добавлена")
	}
	return rec
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("тело ошибки не JSON: %v", err)
	}
	return body.Error.Code
}

func TestServe(t *testing.T) {
	store, cat := setupEnv(t)
	rec := addRecord(t, store, cat, "f1", []byte("0123456789"), nil)
	svc := NewContentService(cat, store, 8, time.Minute, testLogger())
	defer svc.Close()

	t.Run("целиком", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/files/f1/content", nil)
		if cerr := svc.Serve(w, r, "f1", false); cerr != nil {
			t.Fatalf("Serve: %v", cerr)
		}
		if w.Code != http.StatusOK || w.Body.String() != "0123456789" {
			t.Errorf("неожиданный ответ: %d %q", w.Code, w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
			t.Errorf("ожидался inline: %q", cd)
		}
		if w.Header().Get("ETag") != `"`+rec.Checksum+`"` {
			t.Errorf("неверный ETag: %q", w.Header().Get("ETag"))
		}
	})

	t.Run("диапазон", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/files/f1/content", nil)
		r.Header.Set("Range", "bytes=2-4")
		if cerr := svc.Serve(w, r, "f1", true); cerr != nil {
			t.Fatalf("Serve: %v", cerr)
		}
		if w.Code != http.StatusPartialContent || w.Body.String() != "234" {
			t.Errorf("неожиданный ответ: %d %q", w.Code, w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
			t.Errorf("ожидался attachment: %q", cd)
		}
	})

	t.Run("неизвестный ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/files/nope/content", nil)
		cerr := svc.Serve(w, r, "nope", false)
		if cerr == nil || cerr.StatusCode != http.StatusNotFound {
			t.Fatalf("ожидалась 404: %v", cerr)
		}
		cerr.Write(w)
		if code := errorCode(t, w); code != "NOT_FOUND" {
			t.Errorf("ожидался NOT_FOUND, получен %s", code)
		}
	})
}

func TestServeThumbnail(t *testing.T) {
	store, cat := setupEnv(t)
	addRecord(t, store, cat, "with", []byte("data"), []byte("jpeg-bytes"))
	addRecord(t, store, cat, "without", []byte("data"), nil)
	svc := NewContentService(cat, store, 8, time.Minute, testLogger())
	defer svc.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/files/with/thumbnail", nil)
	if cerr := svc.ServeThumbnail(w, r, "with"); cerr != nil {
		t.Fatalf("ServeThumbnail: %v", cerr)
	}
	if w.Body.String() != "jpeg-bytes" || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("неожиданный ответ: %q %q", w.Body.String(), w.Header().Get("Content-Type"))
	}
	if !svc.thumbs.Contains("with") {
		t.Error("миниатюра должна попасть в кэш")
	}

	cerr := svc.ServeThumbnail(httptest.NewRecorder(), r, "without")
	if cerr == nil || cerr.Code != "NO_THUMBNAIL" {
		t.Errorf("ожидалась NO_THUMBNAIL: %v", cerr)
	}

	// Удаление записи инвалидирует кэш.
	cat.DeleteRecords("with")
	if svc.thumbs.Contains("with") {
		t.Error("кэш должен быть очищен после удаления записи")
	}
	cerr = svc.ServeThumbnail(httptest.NewRecorder(), r, "with")
	if cerr == nil || cerr.StatusCode != http.StatusNotFound {
		t.Errorf("ожидалась 404 после удаления: %v", cerr)
	}
}

// TestServe_ActiveContentAsAttachment проверяет, что исполняемые браузером
// типы не отдаются inline.
func TestServe_ActiveContentAsAttachment(t *testing.T) {
	store, cat := setupEnv(t)
	svc := NewContentService(cat, store, 8, time.Minute, testLogger())
	defer svc.Close()

	tests := []struct {
		name        string
		contentType string
		disposition string
	}{
		{"html", "text/html; charset=utf-8", "attachment"},
		{"svg", "image/svg+xml", "attachment"},
		{"javascript", "application/javascript", "attachment"},
		{"xhtml", "application/xhtml+xml", "attachment"},
		{"png", "image/png", "inline"},
		{"text", "text/plain", "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.Save(strings.NewReader("<script>alert(1)</script>"), tt.name+".bin")
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if cat.AddRecords(&model.FileRecord{
				ID:          tt.name,
				Name:        tt.name + ".bin",
				Size:        res.Size,
				ContentType: tt.contentType,
				Category:    model.CategoryDocuments,
				Location:    res.Handle,
			}) != 1 {
				t.Fatal("запись не добавлена")
			}

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+tt.name+"/content", nil)
			if cerr := svc.Serve(w, r, tt.name, false); cerr != nil {
				t.Fatalf("Serve: %v", cerr)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, tt.disposition) {
				t.Errorf("ожидался %s, получено %q", tt.disposition, cd)
			}
			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("ожидался nosniff, получено %q", got)
			}
		})
	}
}

// deletingOpener удаляет запись из каталога сразу после открытия миниатюры:
// удаление проходит между чтением записи и вставкой в кэш.
type deletingOpener struct {
	BlobOpener
	cat    *catalog.Store
	handle string
	id     string
}

func (o deletingOpener) Open(handle string) (*os.File, error) {
	f, err := o.BlobOpener.Open(handle)
	if err == nil && handle == o.handle {
		o.cat.DeleteRecords(o.id)
	}
	return f, err
}

// TestServeThumbnail_DeletedDuringLoad проверяет, что миниатюра удалённой
// во время загрузки записи не остаётся в кэше.
func TestServeThumbnail_DeletedDuringLoad(t *testing.T) {
	store, cat := setupEnv(t)
	rec := addRecord(t, store, cat, "gone", []byte("data"), []byte("jpeg-bytes"))
	opener := deletingOpener{BlobOpener: store, cat: cat, handle: rec.Thumbnail, id: "gone"}
	svc := NewContentService(cat, opener, 8, time.Minute, testLogger())
	defer svc.Close()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/files/gone/thumbnail", nil)
	// Первый запрос успел прочитать байты до удаления.
	if cerr := svc.ServeThumbnail(httptest.NewRecorder(), r, "gone"); cerr != nil {
		t.Fatalf("ServeThumbnail: %v", cerr)
	}
	if svc.thumbs.Contains("gone") {
		t.Error("миниатюра удалённой записи осталась в кэше")
	}

	w := httptest.NewRecorder()
	cerr := svc.ServeThumbnail(w, r, "gone")
	if cerr == nil || cerr.StatusCode != http.StatusNotFound {
		t.Fatalf("ожидалась 404 после удаления: %v", cerr)
	}
	cerr.Write(w)
	if code := errorCode(t, w); code != "NOT_FOUND" {
		t.Errorf("ожидался NOT_FOUND, получен %s", code)
	}
}
