package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.MissingRequiredField: http.StatusBadRequest,
		apperr.InvalidNumber:        http.StatusBadRequest,
		apperr.InvalidJSON:          http.StatusBadRequest,
		apperr.InvalidDate:          http.StatusBadRequest,
		apperr.InvalidOption:        http.StatusBadRequest,
		apperr.InvalidSchema:        http.StatusBadRequest,
		apperr.InvalidInput:         http.StatusBadRequest,
		apperr.NotFound:             http.StatusNotFound,
		apperr.Unauthorized:         http.StatusUnauthorized,
		apperr.Forbidden:            http.StatusForbidden,
		apperr.ConflictForeignKey:   http.StatusConflict,
		apperr.Unexpected:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.Status(kind), kind)
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", apperr.New(apperr.InvalidDate, "bad date %q", "x"))
	assert.Equal(t, apperr.InvalidDate, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.InvalidDate))
	assert.Equal(t, apperr.Unexpected, apperr.KindOf(errors.New("boom")))
	assert.False(t, apperr.Is(nil, apperr.Unexpected))
}

func TestFromStore(t *testing.T) {
	assert.NoError(t, apperr.FromStore(nil, "entry"))

	err := apperr.FromStore(gorm.ErrRecordNotFound, "data type")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	var e *apperr.Error
	if assert.ErrorAs(t, err, &e) {
		assert.Equal(t, "data type not found", e.Message)
	}
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Equal(t, apperr.ConflictForeignKey, apperr.KindOf(apperr.FromStore(gorm.ErrForeignKeyViolated, "entry")))
	assert.Equal(t, apperr.ConflictForeignKey, apperr.KindOf(apperr.FromStore(gorm.ErrDuplicatedKey, "profile")))
	assert.Equal(t, apperr.Unexpected, apperr.KindOf(apperr.FromStore(errors.New("disk full"), "entry")))
}

func TestFromStore_Postgres(t *testing.T) {
	cases := map[string]apperr.Kind{
		"23503": apperr.ConflictForeignKey,
		"23505": apperr.ConflictForeignKey,
		"42501": apperr.Forbidden,
		"40001": apperr.Unexpected,
	}
	for code, want := range cases {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
		assert.Equal(t, want, apperr.KindOf(apperr.FromStore(err, "customer")), code)
	}
}

func TestFromStore_KeepsClassifiedErrors(t *testing.T) {
	orig := apperr.New(apperr.Forbidden, "no")
	assert.Same(t, orig, apperr.FromStore(orig, "entry"))
}
