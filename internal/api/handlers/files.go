// files.go — обработчики записей каталога: список, чтение, изменение,
// удаление, избранное, смена категории, содержимое и фасеты.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// Представления списка файлов.
const (
	listViewAll      = "all"
	listViewFiltered = "filtered"
)

// ListFiles — GET /api/v1/files?facet=&view=all|filtered.
// Без facet используется активный фасет из View Store.
// view=filtered — производное представление поиска, суженное фасетом.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	var facetParam, viewParam string
	if err := runtime.BindQueryParameter("form", true, false, "facet", r.URL.Query(), &facetParam); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр facet: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "view", r.URL.Query(), &viewParam); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр view: %v", err))
		return
	}

	facet := h.view.Get().ActiveFacet
	if facetParam != "" {
		f, err := model.ParseFacet(facetParam)
		if err != nil {
			apierrors.InvalidFacet(w, err.Error())
			return
		}
		facet = f
	}

	var records []*model.FileRecord
	switch viewParam {
	case "", listViewAll:
		var err error
		records, err = h.catalog.RecordsByCategory(facet)
		if err != nil {
			h.writeCatalogError(w, err)
			return
		}
	case listViewFiltered:
		for _, rec := range h.catalog.Filtered() {
			if facet.Matches(rec) {
				records = append(records, rec)
			}
		}
	default:
		apierrors.ValidationError(w, fmt.Sprintf("Недопустимое значение view: %q, допустимые: all, filtered", viewParam))
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Items: toFileResponses(records), Total: len(records)})
}

// GetFile — GET /api/v1/files/{id}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	rec, err := h.catalog.Get(id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec))
}

// updateFileRequest — тело PATCH /files/{id}. Отсутствующие поля не меняются.
type updateFileRequest struct {
	Name *string   `json:"name"`
	Tags *[]string `json:"tags"`
}

// UpdateFile — PATCH /api/v1/files/{id}: переименование и/или замена тегов.
func (h *APIHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	var req updateFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if req.Name == nil && req.Tags == nil {
		apierrors.ValidationError(w, "Нужно указать name и/или tags")
		return
	}

	rec, err := h.catalog.UpdateRecord(id, req.Name, req.Tags)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec))
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

// DeleteFile — DELETE /api/v1/files/{id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if _, err := h.catalog.Get(id); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: h.catalog.DeleteRecords(id)})
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// DeleteFiles — POST /api/v1/files/delete. Неизвестные ID игнорируются.
func (h *APIHandler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: h.catalog.DeleteRecords(ids...)})
}

type favoriteResponse struct {
	ID         string `json:"id"`
	IsFavorite bool   `json:"is_favorite"`
}

// ToggleFavorite — POST /api/v1/files/{id}/favorite.
func (h *APIHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	fav, err := h.catalog.ToggleFavorite(id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{ID: id, IsFavorite: fav})
}

type categorizeRequest struct {
	IDs      []string `json:"ids"`
	Category string   `json:"category"`
}

type categorizeResponse struct {
	Updated  int            `json:"updated"`
	Category model.Category `json:"category"`
}

// CategorizeFiles — POST /api/v1/files/categorize.
func (h *APIHandler) CategorizeFiles(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		apierrors.InvalidCategory(w, err.Error())
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	n, err := h.catalog.Recategorize(ids, category)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categorizeResponse{Updated: n, Category: category})
}

// GetContent — GET /api/v1/files/{id}/content[?download=true].
func (h *APIHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	var download bool
	if err := runtime.BindQueryParameter("form", true, false, "download", r.URL.Query(), &download); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр download: %v", err))
		return
	}
	if cerr := h.content.Serve(w, r, id, download); cerr != nil {
		cerr.Write(w)
	}
}

// GetThumbnail — GET /api/v1/files/{id}/thumbnail.
func (h *APIHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if cerr := h.content.ServeThumbnail(w, r, id); cerr != nil {
		cerr.Write(w)
	}
}

// GetFacets — GET /api/v1/facets: счётчики боковой панели и активный фасет.
func (h *APIHandler) GetFacets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, facetsResponse{
		FacetCounts: h.catalog.FacetCounts(),
		Active:      h.view.Get().ActiveFacet,
	})
}
