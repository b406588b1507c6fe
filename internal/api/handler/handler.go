// Package handler contains HTTP handlers grouped by resource.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/api/middleware"
	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/store"
)

// base carries what every resource handler needs.
type base struct {
	store *store.Store
	log   *slog.Logger
}

func (b base) caller(r *http.Request) *access.Caller {
	return middleware.CallerFromContext(r.Context())
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Error(w, r, b.log, err)
}
