// Package middleware provides HTTP middleware for tenantcrm.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/api/render"
	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/auth"
)

type contextKey string

const callerKey contextKey = "caller"

// Where the current organization is read from. The header wins over the
// cookie.
const (
	OrganizationCookie = "current_org"
	OrganizationHeader = "X-Organization-ID"
)

// CallerResolver loads the profile behind a verified token identity.
type CallerResolver interface {
	Caller(ctx context.Context, email string) (*access.Caller, error)
}

// AuthConfig configures RequireAuth.
type AuthConfig struct {
	Secret  string
	Issuer  string
	Callers CallerResolver
	Logger  *slog.Logger
}

// RequireAuth validates the Bearer JWT in the Authorization header, loads
// the caller's profile and memberships, and selects the current
// organization. On success it injects *access.Caller into the request
// context.
func RequireAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				render.Message(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			claims, err := auth.ParseAccessToken(token, cfg.Issuer, cfg.Secret)
			if err != nil {
				render.Message(w, http.StatusUnauthorized, "access token is invalid or expired")
				return
			}

			caller, err := cfg.Callers.Caller(r.Context(), claims.Identity())
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					render.Message(w, http.StatusForbidden, "no profile is registered for "+claims.Identity())
					return
				}
				render.Error(w, r, cfg.Logger, err)
				return
			}

			if err := selectOrganization(r, caller); err != nil {
				render.Error(w, r, cfg.Logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// selectOrganization applies the requested organization. An explicit
// header that the caller may not use is an error; a stale cookie is
// ignored so the caller can still pick another organization.
func selectOrganization(r *http.Request, caller *access.Caller) error {
	if orgID := r.Header.Get(OrganizationHeader); orgID != "" {
		return caller.SelectOrganization(orgID)
	}
	if c, err := r.Cookie(OrganizationCookie); err == nil && c.Value != "" {
		if caller.SelectOrganization(c.Value) == nil {
			return nil
		}
	}
	return caller.SelectOrganization("")
}

// CallerFromContext extracts the caller from the request context.
// Returns nil if not present.
func CallerFromContext(ctx context.Context) *access.Caller {
	v := ctx.Value(callerKey)
	if v == nil {
		return nil
	}
	c, _ := v.(*access.Caller)
	return c
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *access.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
