package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/store"
)

// EntryHandler handles /api/v1/dynamic-data-entries routes.
type EntryHandler struct{ base }

// NewEntryHandler creates an EntryHandler.
func NewEntryHandler(s *store.Store, log *slog.Logger) *EntryHandler {
	return &EntryHandler{base{store: s, log: log}}
}

type entryUpdateRequest struct {
	Data map[string]any `json:"data"`
}

// List handles GET /api/v1/dynamic-data-entries?dataTypeId=.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dataTypeID := q.Get("dataTypeId")
	if dataTypeID == "" {
		dataTypeID = q.Get("data_type_id")
	}
	entries, err := h.store.ListEntries(r.Context(), h.caller(r), dataTypeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.List(w, entries)
}

// Get handles GET /api/v1/dynamic-data-entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.GetEntry(r.Context(), h.caller(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, e)
}

// Create handles POST /api/v1/dynamic-data-entries.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.EntryInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.store.CreateEntry(r.Context(), h.caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, e)
}

// Update handles PUT /api/v1/dynamic-data-entries/{id}. The data map is
// replaced in full.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req entryUpdateRequest
	if err := render.Decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.store.UpdateEntry(r.Context(), h.caller(r), r.PathValue("id"), req.Data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/v1/dynamic-data-entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEntry(r.Context(), h.caller(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}
