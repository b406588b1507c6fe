package field

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/d9705996/tenantcrm/internal/apperr"
)

// Accepted input layouts for date fields, tried in order.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Validator applies per-field validation to submitted entry data.
//
// StrictOptions rejects dropdown values that are not among the field's
// options. It is off by default so that existing clients keep working.
type Validator struct {
	StrictOptions bool
}

// Validate normalizes one raw value against f. The returned error, if any,
// is an *apperr.Error carrying the failure kind.
func (v Validator) Validate(f Field, raw any) (any, error) {
	switch f.Type {
	case TypeNumber:
		return validateNumber(f, raw)
	case TypeJSON:
		return validateJSON(f, raw)
	case TypeDate:
		return validateDate(f, raw)
	case TypeBoolean:
		return coerceBool(raw), nil
	case TypeDropdown:
		s := stringify(raw)
		if s == "" {
			return requiredOr(f, "")
		}
		if v.StrictOptions && !slices.Contains(f.Options, s) {
			return nil, apperr.New(apperr.InvalidOption, "%s: %q is not one of the allowed options", f.Name, s)
		}
		return s, nil
	default:
		// string, file, reference
		s := stringify(raw)
		if s == "" {
			return requiredOr(f, "")
		}
		return s, nil
	}
}

// ValidateEntry validates data against every field in fields and returns
// the normalized map. Keys not defined by fields are dropped. All field
// failures are collected into one error whose kind is that of the first
// failure.
func (v Validator) ValidateEntry(fields []Field, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	var errs Errors
	for _, f := range fields {
		val, err := v.Validate(f, data[f.Name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[f.Name] = val
	}
	if len(errs) > 0 {
		return nil, &apperr.Error{Kind: apperr.KindOf(errs[0]), Message: errs.Error()}
	}
	return out, nil
}

// Errors is a list of per-field validation failures.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func requiredOr(f Field, empty any) (any, error) {
	if f.Required {
		return nil, apperr.New(apperr.MissingRequiredField, "%s: is required", f.Name)
	}
	return empty, nil
}

func validateNumber(f Field, raw any) (any, error) {
	var x float64
	switch n := raw.(type) {
	case nil:
		return requiredOr(f, nil)
	case float64:
		x = n
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, apperr.New(apperr.InvalidNumber, "%s: %q is not a number", f.Name, n.String())
		}
		x = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return requiredOr(f, nil)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, apperr.New(apperr.InvalidNumber, "%s: %q is not a number", f.Name, n)
		}
		x = parsed
	default:
		return nil, apperr.New(apperr.InvalidNumber, "%s: expected a number", f.Name)
	}
	// Stored data must round-trip through JSON.
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, apperr.New(apperr.InvalidNumber, "%s: %v is not a finite number", f.Name, raw)
	}
	return x, nil
}

func validateJSON(f Field, raw any) (any, error) {
	switch j := raw.(type) {
	case nil:
		return requiredOr(f, map[string]any{})
	case string:
		if strings.TrimSpace(j) == "" {
			return requiredOr(f, map[string]any{})
		}
		var out any
		if err := json.Unmarshal([]byte(j), &out); err != nil {
			return nil, apperr.New(apperr.InvalidJSON, "%s: invalid JSON", f.Name)
		}
		return out, nil
	default:
		// Already decoded by the request body decoder.
		return j, nil
	}
}

func validateDate(f Field, raw any) (any, error) {
	s := strings.TrimSpace(stringify(raw))
	if s == "" {
		return requiredOr(f, nil)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == time.DateOnly {
			return t.Format(time.DateOnly), nil
		}
		return t.UTC().Format(time.RFC3339), nil
	}
	return nil, apperr.New(apperr.InvalidDate, "%s: %q is not a valid date", f.Name, s)
}

func coerceBool(raw any) bool {
	switch b := raw.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
		return b != ""
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return true
	}
}

func stringify(raw any) string {
	switch s := raw.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}
