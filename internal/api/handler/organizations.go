package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/store"
)

// OrganizationHandler handles /api/v1/organizations routes.
type OrganizationHandler struct{ base }

// NewOrganizationHandler creates an OrganizationHandler.
func NewOrganizationHandler(s *store.Store, log *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{base{store: s, log: log}}
}

// List handles GET /api/v1/organizations.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizations(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.List(w, orgs)
}

// Get handles GET /api/v1/organizations/{id}.
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.store.GetOrganization(r.Context(), h.caller(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, org)
}

// Create handles POST /api/v1/organizations.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.OrganizationInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	org, err := h.store.CreateOrganization(r.Context(), h.caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, org)
}

// Update handles PUT /api/v1/organizations/{id}.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in store.OrganizationInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	org, err := h.store.UpdateOrganization(r.Context(), h.caller(r), r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, org)
}

// Delete handles DELETE /api/v1/organizations/{id}.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteOrganization(r.Context(), h.caller(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}
