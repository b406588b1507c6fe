// Package render writes JSON responses and maps classified errors to HTTP
// status codes. Error bodies are always {"error": "<message>"}.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/d9705996/tenantcrm/internal/apperr"
)

const contentType = "application/json"

// maxBodyBytes bounds request bodies read by Decode.
const maxBodyBytes = 1 << 20

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v to w with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// List writes items, rendering a nil slice as [].
func List[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	JSON(w, http.StatusOK, items)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Message writes an error body with an explicit status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Error renders err. Classified errors keep their caller-facing message;
// anything else, and Unexpected errors, are logged and rendered as a
// generic 500.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		Message(w, status, "internal server error")
		return
	}
	var e *apperr.Error
	msg := err.Error()
	if errors.As(err, &e) {
		msg = e.Message
	}
	if status == http.StatusConflict || status == http.StatusForbidden {
		log.InfoContext(r.Context(), "request rejected",
			"method", r.Method, "path", r.URL.Path, "kind", kind, "err", err)
	}
	Message(w, status, msg)
}

// Decode reads a JSON body into v. Malformed or oversized bodies are
// reported as InvalidInput.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.InvalidInput, "request body is required")
		}
		return apperr.Wrap(apperr.InvalidInput, err, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
