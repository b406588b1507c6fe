package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/store"
)

// ProfileHandler handles /api/v1/profiles routes.
type ProfileHandler struct{ base }

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(s *store.Store, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{base{store: s, log: log}}
}

// List handles GET /api/v1/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.List(w, profiles)
}

// Get handles GET /api/v1/profiles/{id}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProfile(r.Context(), h.caller(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

// Create handles POST /api/v1/profiles.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in store.ProfileInput
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.store.CreateProfile(r.Context(), h.caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/v1/profiles/{id}.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in store.ProfileUpdate
	if err := render.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.store.UpdateProfile(r.Context(), h.caller(r), r.PathValue("id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

// AddMembership handles PUT /api/v1/profiles/{id}/organizations/{orgID}.
func (h *ProfileHandler) AddMembership(w http.ResponseWriter, r *http.Request) {
	err := h.store.AddMembership(r.Context(), h.caller(r), r.PathValue("id"), r.PathValue("orgID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}

// RemoveMembership handles DELETE /api/v1/profiles/{id}/organizations/{orgID}.
func (h *ProfileHandler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	err := h.store.RemoveMembership(r.Context(), h.caller(r), r.PathValue("id"), r.PathValue("orgID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w)
}
