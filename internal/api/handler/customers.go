package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/store"
)

// CustomerHandler handles /api/v1/customers routes.
type CustomerHandler struct{ base }

// NewCustomerHandler creates a CustomerHandler.
func NewCustomerHandler(s *store.Store, log *slog.Logger) *CustomerHandler {
	return &CustomerHandler{base{store: s, log: log}}
}

// List handles GET /api/v1/customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context(), h.caller(r), r.URL.Query().Get("organization_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.List(w, customers)
}

// Get handles GET /api/v1/customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCustomer(r.Context(), h.caller(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, c)
}

// Create handles POST /api/v1/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.CustomerInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.CreateCustomer(r.Context(), h.caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/v1/customers/{id}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in store.CustomerInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.UpdateCustomer(r.Context(), h.caller(r), r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/customers/{id}.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCustomer(r.Context(), h.caller(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}
