// view.go — состояние представления (фасет, раскладка, панели).
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/media-catalog/internal/api/errors"
	"github.com/bigkaa/goartstore/media-catalog/internal/viewstate"
)

// GetView — GET /api/v1/view.
func (h *APIHandler) GetView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view.Get())
}

// PatchView — PATCH /api/v1/view. Патч применяется атомарно.
func (h *APIHandler) PatchView(w http.ResponseWriter, r *http.Request) {
	var p viewstate.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	v, err := h.view.Apply(p)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}
