package store

import (
	"context"
	"strings"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/events"
	"github.com/d9705996/tenantcrm/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// OrganizationInput carries the writable organization fields.
type OrganizationInput struct {
	Name     string  `json:"name"`
	Contact  *string `json:"contact"`
	Industry *string `json:"industry"`
}

// ListOrganizations returns every organization for administrators and the
// caller's memberships otherwise.
func (s *Store) ListOrganizations(ctx context.Context, caller *access.Caller) (orgs []model.Organization, err error) {
	ctx, span := startSpan(ctx, "ListOrganizations")
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	q := s.db.WithContext(ctx).Order("name")
	if !caller.IsAdmin() {
		if len(caller.Memberships) == 0 {
			return []model.Organization{}, nil
		}
		q = q.Where("id IN ?", caller.Memberships)
	}
	if err := q.Find(&orgs).Error; err != nil {
		return nil, apperr.FromStore(err, "organization")
	}
	return orgs, nil
}

// GetOrganization loads one organization the caller may read.
func (s *Store) GetOrganization(ctx context.Context, caller *access.Caller, id string) (org *model.Organization, err error) {
	ctx, span := startSpan(ctx, "GetOrganization", attribute.String("organization.id", id))
	defer endSpan(span, &err)

	if err := caller.CanReadOrganization(id); err != nil {
		return nil, err
	}
	org = &model.Organization{}
	if err := s.db.WithContext(ctx).First(org, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "organization")
	}
	return org, nil
}

// CreateOrganization creates an organization. Administrators only.
func (s *Store) CreateOrganization(ctx context.Context, caller *access.Caller, in OrganizationInput) (org *model.Organization, err error) {
	ctx, span := startSpan(ctx, "CreateOrganization")
	defer endSpan(span, &err)

	if err := caller.CanCreateOrganization(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "name is required")
	}
	org = &model.Organization{Name: name, Contact: in.Contact, Industry: in.Industry}
	if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, apperr.FromStore(err, "organization")
	}
	s.events.Publish(ctx, org.ID, events.ResourceOrganization, events.ActionCreated, org.ID, caller.ProfileID, org)
	return org, nil
}

// UpdateOrganization replaces the writable fields of an organization.
// Administrators and managers who are members may edit.
func (s *Store) UpdateOrganization(ctx context.Context, caller *access.Caller, id string, in OrganizationInput) (org *model.Organization, err error) {
	ctx, span := startSpan(ctx, "UpdateOrganization", attribute.String("organization.id", id))
	defer endSpan(span, &err)

	if err := caller.CanEditOrganization(id); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "name is required")
	}
	org = &model.Organization{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(org, "id = ?", id).Error; err != nil {
			return err
		}
		org.Name = name
		org.Contact = in.Contact
		org.Industry = in.Industry
		return tx.Save(org).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "organization")
	}
	s.events.Publish(ctx, org.ID, events.ResourceOrganization, events.ActionUpdated, org.ID, caller.ProfileID, org)
	return org, nil
}

// DeleteOrganization removes an organization together with everything it
// owns: entries, data types, customers and membership links. Profiles whose
// primary organization it was keep existing with no primary organization.
func (s *Store) DeleteOrganization(ctx context.Context, caller *access.Caller, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteOrganization", attribute.String("organization.id", id))
	defer endSpan(span, &err)

	if err := caller.CanDeleteOrganization(); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org model.Organization
		if err := tx.First(&org, "id = ?", id).Error; err != nil {
			return err
		}
		for _, m := range []any{
			&model.DynamicDataEntry{},
			&model.DataType{},
			&model.Customer{},
			&model.ProfileOrganization{},
		} {
			if err := tx.Where("organization_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.Profile{}).
			Where("organization_id = ?", id).
			Update("organization_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&org).Error
	})
	if err != nil {
		return apperr.FromStore(err, "organization")
	}
	s.events.Publish(ctx, id, events.ResourceOrganization, events.ActionDeleted, id, caller.ProfileID, nil)
	return nil
}
