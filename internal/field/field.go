// Package field describes the typed fields of a dynamic data type and
// validates raw submitted values against them.
package field

import (
	"strings"

	"github.com/d9705996/tenantcrm/internal/apperr"
)

// Type is the declared type tag of a field.
type Type string

const (
	TypeString    Type = "string"
	TypeNumber    Type = "number"
	TypeBoolean   Type = "boolean"
	TypeDate      Type = "date"
	TypeJSON      Type = "json"
	TypeDropdown  Type = "dropdown"
	TypeFile      Type = "file"
	TypeReference Type = "reference"
)

// Valid reports whether t is a known type tag.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeJSON,
		TypeDropdown, TypeFile, TypeReference:
		return true
	}
	return false
}

// Field is one entry in a data type's ordered field list.
type Field struct {
	Name                string   `json:"name"`
	Type                Type     `json:"type"`
	Options             []string `json:"options,omitempty"`
	ReferenceDataTypeID string   `json:"referenceDataTypeId,omitempty"`
	Required            bool     `json:"required,omitempty"`
}

// ValidateDefinitions checks a field list before it is saved: it must be
// non-empty, names must be non-empty and unique, dropdowns need options and
// references need a target data type id. The target itself is not looked up.
func ValidateDefinitions(fields []Field) error {
	if len(fields) == 0 {
		return apperr.New(apperr.InvalidSchema, "at least one field is required")
	}
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return apperr.New(apperr.InvalidSchema, "field %d: name is required", i+1)
		}
		if _, dup := seen[name]; dup {
			return apperr.New(apperr.InvalidSchema, "field %q is defined more than once", name)
		}
		seen[name] = struct{}{}

		if !f.Type.Valid() {
			return apperr.New(apperr.InvalidSchema, "field %q: unknown type %q", name, f.Type)
		}
		switch f.Type {
		case TypeDropdown:
			if len(f.Options) == 0 {
				return apperr.New(apperr.InvalidSchema, "field %q: dropdown requires options", name)
			}
		case TypeReference:
			if strings.TrimSpace(f.ReferenceDataTypeID) == "" {
				return apperr.New(apperr.InvalidSchema, "field %q: reference requires referenceDataTypeId", name)
			}
		}
	}
	return nil
}

// Normalize trims names and drops metadata that does not apply to a
// field's type, so stored definitions stay minimal.
func Normalize(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Type != TypeDropdown {
			f.Options = nil
		}
		if f.Type != TypeReference {
			f.ReferenceDataTypeID = ""
		}
		out[i] = f
	}
	return out
}

// Names returns the field names in order.
func Names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Dropped returns the names present in before but absent from after.
func Dropped(before, after []Field) []string {
	keep := make(map[string]struct{}, len(after))
	for _, f := range after {
		keep[f.Name] = struct{}{}
	}
	var out []string
	for _, f := range before {
		if _, ok := keep[f.Name]; !ok {
			out = append(out, f.Name)
		}
	}
	return out
}
