package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/api/middleware"
	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/store"
)

// SessionHandler serves the caller's identity and switches the current
// organization.
type SessionHandler struct {
	base
	cookieSecure bool
}

// NewSessionHandler creates a SessionHandler. cookieSecure marks the
// current_org cookie Secure.
func NewSessionHandler(s *store.Store, log *slog.Logger, cookieSecure bool) *SessionHandler {
	return &SessionHandler{base: base{store: s, log: log}, cookieSecure: cookieSecure}
}

// meResponse describes the authenticated caller.
type meResponse struct {
	ProfileID             string            `json:"profile_id"`
	Email                 string            `json:"email"`
	Type                  model.ProfileType `json:"type"`
	Organizations         []string          `json:"organizations"`
	CurrentOrganizationID string            `json:"current_organization_id,omitempty"`
}

func newMeResponse(c *access.Caller) meResponse {
	orgs := c.Memberships
	if orgs == nil {
		orgs = []string{}
	}
	return meResponse{
		ProfileID:             c.ProfileID,
		Email:                 c.Email,
		Type:                  c.Type,
		Organizations:         orgs,
		CurrentOrganizationID: c.CurrentOrganizationID,
	}
}

type selectOrganizationRequest struct {
	OrganizationID string `json:"organization_id"`
}

// Me handles GET /api/v1/me.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	c := h.caller(r)
	if c == nil {
		h.fail(w, r, access.ErrUnauthorized)
		return
	}
	render.JSON(w, http.StatusOK, newMeResponse(c))
}

// SelectOrganization handles PUT /api/v1/session/organization. It checks
// membership and stores the choice in the current_org cookie; an empty
// organization_id clears it.
func (h *SessionHandler) SelectOrganization(w http.ResponseWriter, r *http.Request) {
	c := h.caller(r)
	if c == nil {
		h.fail(w, r, access.ErrUnauthorized)
		return
	}
	var req selectOrganizationRequest
	if err := render.Decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     middleware.OrganizationCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if req.OrganizationID == "" {
		c.CurrentOrganizationID = ""
		cookie.MaxAge = -1
	} else {
		if err := c.SelectOrganization(req.OrganizationID); err != nil {
			h.fail(w, r, err)
			return
		}
		// Administrators may pick any id; make sure it exists.
		if _, err := h.store.GetOrganization(r.Context(), c, req.OrganizationID); err != nil {
			h.fail(w, r, err)
			return
		}
		cookie.Value = req.OrganizationID
	}
	http.SetCookie(w, cookie)
	render.JSON(w, http.StatusOK, newMeResponse(c))
}
