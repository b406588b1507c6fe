package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/store"
)

// DataTypeHandler handles /api/v1/data-types routes.
type DataTypeHandler struct{ base }

// NewDataTypeHandler creates a DataTypeHandler.
func NewDataTypeHandler(s *store.Store, log *slog.Logger) *DataTypeHandler {
	return &DataTypeHandler{base{store: s, log: log}}
}

// dataTypeResponse adds the fields removed by an update to the data type.
type dataTypeResponse struct {
	*model.DataType
	DroppedFields []string `json:"dropped_fields,omitempty"`
}

// List handles GET /api/v1/data-types.
func (h *DataTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	dts, err := h.store.ListDataTypes(r.Context(), h.caller(r), r.URL.Query().Get("organization_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.List(w, dts)
}

// Get handles GET /api/v1/data-types/{id}.
func (h *DataTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	dt, err := h.store.GetDataType(r.Context(), h.caller(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, dt)
}

// Create handles POST /api/v1/data-types.
func (h *DataTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.DataTypeInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	dt, err := h.store.CreateDataType(r.Context(), h.caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, dt)
}

// Update handles PUT /api/v1/data-types/{id}. The field list is replaced
// wholesale.
func (h *DataTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in store.DataTypeInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	dt, dropped, err := h.store.UpdateDataType(r.Context(), h.caller(r), r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, dataTypeResponse{DataType: dt, DroppedFields: dropped})
}

// Delete handles DELETE /api/v1/data-types/{id}.
func (h *DataTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDataType(r.Context(), h.caller(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}
