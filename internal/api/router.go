// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/api/handler"
	"github.com/d9705996/tenantcrm/internal/api/middleware"
	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/health"
	"github.com/d9705996/tenantcrm/internal/store"
)

// Options configures RegisterRoutes.
type Options struct {
	Store        *store.Store
	Health       *health.Handler
	JWTSecret    string
	JWTIssuer    string
	CookieSecure bool
	Logger       *slog.Logger
}

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, opts Options) {
	log := opts.Logger

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/v1/health", opts.Health.ServeHealth)
	mux.HandleFunc("GET /api/v1/ready", opts.Health.ServeReady)

	// Everything else requires a bearer token and a known profile.
	protected := middleware.RequireAuth(middleware.AuthConfig{
		Secret:  opts.JWTSecret,
		Issuer:  opts.JWTIssuer,
		Callers: opts.Store,
		Logger:  log,
	})
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}

	session := handler.NewSessionHandler(opts.Store, log, opts.CookieSecure)
	handle("GET /api/v1/me", session.Me)
	handle("PUT /api/v1/session/organization", session.SelectOrganization)

	orgs := handler.NewOrganizationHandler(opts.Store, log)
	handle("GET /api/v1/organizations", orgs.List)
	handle("POST /api/v1/organizations", orgs.Create)
	handle("GET /api/v1/organizations/{id}", orgs.Get)
	handle("PUT /api/v1/organizations/{id}", orgs.Update)
	handle("DELETE /api/v1/organizations/{id}", orgs.Delete)

	profiles := handler.NewProfileHandler(opts.Store, log)
	handle("GET /api/v1/profiles", profiles.List)
	handle("POST /api/v1/profiles", profiles.Create)
	handle("GET /api/v1/profiles/{id}", profiles.Get)
	handle("PUT /api/v1/profiles/{id}", profiles.Update)
	handle("PUT /api/v1/profiles/{id}/organizations/{orgID}", profiles.AddMembership)
	handle("DELETE /api/v1/profiles/{id}/organizations/{orgID}", profiles.RemoveMembership)

	customers := handler.NewCustomerHandler(opts.Store, log)
	handle("GET /api/v1/customers", customers.List)
	handle("POST /api/v1/customers", customers.Create)
	handle("GET /api/v1/customers/{id}", customers.Get)
	handle("PUT /api/v1/customers/{id}", customers.Update)
	handle("DELETE /api/v1/customers/{id}", customers.Delete)

	dataTypes := handler.NewDataTypeHandler(opts.Store, log)
	handle("GET /api/v1/data-types", dataTypes.List)
	handle("POST /api/v1/data-types", dataTypes.Create)
	handle("GET /api/v1/data-types/{id}", dataTypes.Get)
	handle("PUT /api/v1/data-types/{id}", dataTypes.Update)
	handle("DELETE /api/v1/data-types/{id}", dataTypes.Delete)

	entries := handler.NewEntryHandler(opts.Store, log)
	handle("GET /api/v1/dynamic-data-entries", entries.List)
	handle("POST /api/v1/dynamic-data-entries", entries.Create)
	handle("GET /api/v1/dynamic-data-entries/{id}", entries.Get)
	handle("PUT /api/v1/dynamic-data-entries/{id}", entries.Update)
	handle("DELETE /api/v1/dynamic-data-entries/{id}", entries.Delete)

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		render.Message(w, http.StatusNotFound, "not found")
	})
}
