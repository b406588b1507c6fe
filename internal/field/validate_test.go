package field_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Number(t *testing.T) {
	v := field.Validator{}
	f := field.Field{Name: "age", Type: field.TypeNumber}

	_, err := v.Validate(f, "abc")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidNumber, apperr.KindOf(err))

	got, err := v.Validate(f, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = v.Validate(f, "42")
	require.NoError(t, err)
	assert.Equal(t, float64(42), got)

	got, err = v.Validate(f, 3.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	for _, raw := range []any{"NaN", "Inf", "-Infinity", math.NaN(), math.Inf(1), json.Number("1e400")} {
		_, err := v.Validate(f, raw)
		require.Error(t, err, "%v", raw)
		assert.Equal(t, apperr.InvalidNumber, apperr.KindOf(err), "%v", raw)
	}
}

func TestValidate_JSON(t *testing.T) {
	v := field.Validator{}
	f := field.Field{Name: "meta", Type: field.TypeJSON}

	_, err := v.Validate(f, "{")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidJSON, apperr.KindOf(err))

	got, err := v.Validate(f, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	got, err = v.Validate(f, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	got, err = v.Validate(f, `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)

	got, err = v.Validate(f, map[string]any{"b": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": true}, got)
}

func TestValidate_Date(t *testing.T) {
	v := field.Validator{}
	f := field.Field{Name: "due", Type: field.TypeDate}

	_, err := v.Validate(f, "not a date")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidDate, apperr.KindOf(err))

	_, err = v.Validate(f, "2024-02-30")
	require.Error(t, err)

	got, err := v.Validate(f, "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)

	got, err = v.Validate(f, "2024-03-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T08:00:00Z", got)

	got, err = v.Validate(f, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidate_Boolean(t *testing.T) {
	v := field.Validator{}
	f := field.Field{Name: "paid", Type: field.TypeBoolean}

	cases := map[string]struct {
		in   any
		want bool
	}{
		"bool true":    {true, true},
		"bool false":   {false, false},
		"string true":  {"true", true},
		"string false": {"false", false},
		"string on":    {"on", true},
		"empty":        {"", false},
		"nil":          {nil, false},
		"zero":         {float64(0), false},
		"one":          {float64(1), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := v.Validate(f, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidate_Dropdown(t *testing.T) {
	f := field.Field{Name: "choice", Type: field.TypeDropdown, Options: []string{"A", "B"}}

	got, err := field.Validator{}.Validate(f, "C")
	require.NoError(t, err, "membership is not enforced by default")
	assert.Equal(t, "C", got)

	_, err = field.Validator{StrictOptions: true}.Validate(f, "C")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidOption, apperr.KindOf(err))

	got, err = field.Validator{StrictOptions: true}.Validate(f, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", got)
}

func TestValidate_RequiredPassThrough(t *testing.T) {
	v := field.Validator{}

	got, err := v.Validate(field.Field{Name: "note", Type: field.TypeString}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = v.Validate(field.Field{Name: "doc", Type: field.TypeFile, Required: true}, "")
	require.Error(t, err)
	assert.Equal(t, apperr.MissingRequiredField, apperr.KindOf(err))
}

func TestValidateEntry_CollectsErrorsAndDropsUnknownKeys(t *testing.T) {
	fields := []field.Field{
		{Name: "amount", Type: field.TypeNumber},
		{Name: "paid", Type: field.TypeBoolean},
		{Name: "due", Type: field.TypeDate},
	}

	out, err := field.Validator{}.ValidateEntry(fields, map[string]any{
		"amount": "100",
		"paid":   true,
		"extra":  "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": float64(100), "paid": true, "due": nil}, out)

	_, err = field.Validator{}.ValidateEntry(fields, map[string]any{"amount": "x", "due": "never"})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidNumber, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "amount")
	assert.Contains(t, err.Error(), "due")
}

func TestValidateDefinitions(t *testing.T) {
	require.NoError(t, field.ValidateDefinitions([]field.Field{{Name: "age", Type: field.TypeNumber}}))

	cases := map[string][]field.Field{
		"empty list":        nil,
		"blank name":        {{Name: " ", Type: field.TypeString}},
		"duplicate":         {{Name: "a", Type: field.TypeString}, {Name: "a", Type: field.TypeNumber}},
		"unknown type":      {{Name: "a", Type: "currency"}},
		"dropdown no opts":  {{Name: "a", Type: field.TypeDropdown}},
		"reference no type": {{Name: "a", Type: field.TypeReference}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			err := field.ValidateDefinitions(fields)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidSchema, apperr.KindOf(err))
		})
	}
}

func TestDropped(t *testing.T) {
	before := []field.Field{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	after := []field.Field{{Name: "a"}, {Name: "c2"}}
	assert.Equal(t, []string{"b", "c"}, field.Dropped(before, after))
	assert.Nil(t, field.Dropped(after, after))
}
