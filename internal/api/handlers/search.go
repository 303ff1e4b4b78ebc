// search.go — поиск, выбор записей и предпросмотр.
package handlers

import (
	"net/http"
	"slices"

	"github.com/google/uuid"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
)

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Query string         `json:"query"`
	Items []fileResponse `json:"items"`
	Total int            `json:"total"`
}

// GetSearch — GET /api/v1/search: текущий запрос и производное представление.
func (h *APIHandler) GetSearch(w http.ResponseWriter, _ *http.Request) {
	h.writeSearch(w)
}

// SetSearch — PUT /api/v1/search: задать запрос и вернуть результат.
func (h *APIHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	h.catalog.SetSearchQuery(req.Query)
	h.writeSearch(w)
}

func (h *APIHandler) writeSearch(w http.ResponseWriter) {
	filtered := h.catalog.Filtered()
	writeJSON(w, http.StatusOK, searchResponse{
		Query: h.catalog.Query(),
		Items: toFileResponses(filtered),
		Total: len(filtered),
	})
}

type selectionResponse struct {
	IDs      []string `json:"ids"`
	Selected *bool    `json:"selected,omitempty"`
}

// GetSelection — GET /api/v1/selection.
func (h *APIHandler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, selectionResponse{IDs: h.catalog.Selection()})
}

// ClearSelection — DELETE /api/v1/selection.
func (h *APIHandler) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	h.catalog.ClearSelection()
	writeJSON(w, http.StatusOK, selectionResponse{IDs: h.catalog.Selection()})
}

type idRequest struct {
	ID string `json:"id"`
}

// ToggleSelection — POST /api/v1/selection/toggle {id}.
func (h *APIHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный ID: ожидается UUID")
		return
	}
	if err := h.catalog.ToggleSelection(id.String()); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	ids := h.catalog.Selection()
	selected := slices.Contains(ids, id.String())
	writeJSON(w, http.StatusOK, selectionResponse{IDs: ids, Selected: &selected})
}

type previewResponse struct {
	File *fileResponse `json:"file"`
}

// GetPreview — GET /api/v1/preview. file=null, если предпросмотр закрыт.
func (h *APIHandler) GetPreview(w http.ResponseWriter, _ *http.Request) {
	h.writePreview(w)
}

// SetPreview — PUT /api/v1/preview {id}. Пустой id закрывает предпросмотр.
func (h *APIHandler) SetPreview(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	id := req.ID
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			apierrors.ValidationError(w, "Некорректный ID: ожидается UUID")
			return
		}
		id = parsed.String()
	}
	if err := h.catalog.SetPreviewed(id); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.writePreview(w)
}

func (h *APIHandler) writePreview(w http.ResponseWriter) {
	resp := previewResponse{}
	if rec := h.catalog.Previewed(); rec != nil {
		f := toFileResponse(rec)
		resp.File = &f
	}
	writeJSON(w, http.StatusOK, resp)
}
