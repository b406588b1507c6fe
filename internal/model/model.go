// Package model contains GORM model definitions shared across packages.
// All models are driver-agnostic: they work with both PostgreSQL and SQLite.
package model

import (
	"time"

	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileType is the role a profile holds across the application.
type ProfileType string

const (
	ProfileAdministrator ProfileType = "Administrator"
	ProfileManager       ProfileType = "Manager"
	ProfileUser          ProfileType = "User"
)

// Valid reports whether t is one of the known profile types.
func (t ProfileType) Valid() bool {
	switch t {
	case ProfileAdministrator, ProfileManager, ProfileUser:
		return true
	}
	return false
}

// Organization is the root tenant boundary.
type Organization struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Contact   *string   `gorm:"type:text" json:"contact,omitempty"`
	Industry  *string   `gorm:"type:text" json:"industry,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate generates a UUID primary key if not set.
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// Profile is an application user. Identity is owned by the external
// provider; Email is the join key with the token subject.
type Profile struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	Email          string         `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name           string         `gorm:"type:text;not null;default:''" json:"name"`
	Type           ProfileType    `gorm:"type:text;not null;default:'User'" json:"type"`
	OrganizationID *string        `gorm:"type:text" json:"organization_id,omitempty"`
	Organizations  []Organization `gorm:"many2many:profile_organizations;" json:"organizations,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// OrganizationIDs returns the ids of the organizations the profile belongs to.
func (p *Profile) OrganizationIDs() []string {
	ids := make([]string, len(p.Organizations))
	for i, o := range p.Organizations {
		ids[i] = o.ID
	}
	return ids
}

// ProfileOrganization is the profile ↔ organization membership link.
type ProfileOrganization struct {
	ProfileID      string    `gorm:"type:text;primaryKey"`
	OrganizationID string    `gorm:"type:text;primaryKey;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// Customer is an organization-scoped customer record.
type Customer struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID string    `gorm:"type:text;not null;index" json:"organization_id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	Email          *string   `gorm:"type:text" json:"email,omitempty"`
	Phone          *string   `gorm:"type:text" json:"phone,omitempty"`
	Company        *string   `gorm:"type:text" json:"company,omitempty"`
	Notes          *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate generates a UUID primary key if not set.
func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// FieldList is the ordered field list of a data type. GORM serialises it
// as JSON in a TEXT column.
type FieldList []field.Field

// DataType is a user-defined schema owned by an organization. Fields are
// replaced wholesale on every update; Version counts those replacements.
type DataType struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	OrganizationID string    `gorm:"type:text;not null;index" json:"organization_id"`
	Fields         FieldList `gorm:"type:text;not null;default:'[]';serializer:json" json:"fields"`
	Version        int       `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate generates a UUID primary key and starts at version 1.
func (d *DataType) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Version == 0 {
		d.Version = 1
	}
	return nil
}

// DynamicDataEntry is one record conforming to a DataType. DataTypeID is
// deliberately not a foreign key: deleting a data type orphans its entries.
type DynamicDataEntry struct {
	ID             string            `gorm:"type:text;primaryKey" json:"id"`
	DataTypeID     string            `gorm:"type:text;not null;index" json:"data_type_id"`
	OrganizationID string            `gorm:"type:text;not null;index" json:"organization_id"`
	Data           datatypes.JSONMap `gorm:"not null" json:"data"`
	SchemaVersion  int               `gorm:"not null;default:1" json:"schema_version"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`

	// References is computed on read for reference-type fields.
	References map[string]Reference `gorm:"-" json:"references,omitempty"`
}

// BeforeCreate generates a UUID primary key if not set.
func (e *DynamicDataEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.SchemaVersion == 0 {
		e.SchemaVersion = 1
	}
	return nil
}

// Reference is the read-time resolution of a reference field value.
type Reference struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}
