// Package apperr defines the error taxonomy shared by the stores, the access
// gate and the HTTP layer, and translates database errors into it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies an error for propagation to the caller.
type Kind string

const (
	MissingRequiredField Kind = "missing_required_field"
	InvalidNumber        Kind = "invalid_number"
	InvalidJSON          Kind = "invalid_json"
	InvalidDate          Kind = "invalid_date"
	InvalidOption        Kind = "invalid_option"
	InvalidSchema        Kind = "invalid_schema"
	InvalidInput         Kind = "invalid_input"
	NotFound             Kind = "not_found"
	Unauthorized         Kind = "unauthorized"
	Forbidden            Kind = "forbidden"
	ConflictForeignKey   Kind = "conflict_foreign_key"
	Unexpected           Kind = "unexpected"
)

// Postgres SQLSTATE codes the store cares about.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	// Also raised for row-level security denials.
	pgInsufficientPrivilege = "42501"
)

// Error is a classified error. Message is safe to show to callers; Err, if
// set, is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a caller-facing message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of err, or Unexpected if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case MissingRequiredField, InvalidNumber, InvalidJSON, InvalidDate,
		InvalidOption, InvalidSchema, InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case ConflictForeignKey:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromStore translates a database error into the taxonomy. what names the
// resource for NotFound messages ("data type", "entry", ...). Already
// classified errors pass through unchanged.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(NotFound, err, what+" not found")
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return Wrap(ConflictForeignKey, err, what+" references a record that does not exist")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(ConflictForeignKey, err, what+" already exists")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return Wrap(ConflictForeignKey, err, what+" references a record that does not exist")
		case pgUniqueViolation:
			return Wrap(ConflictForeignKey, err, what+" already exists")
		case pgInsufficientPrivilege:
			return Wrap(Forbidden, err, "permission denied")
		}
	}
	return Wrap(Unexpected, err, "unexpected error")
}
