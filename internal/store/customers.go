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

// CustomerInput carries the writable customer fields. OrganizationID is
// only read on create and defaults to the caller's current organization.
type CustomerInput struct {
	OrganizationID string  `json:"organization_id"`
	Name           string  `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Company        *string `json:"company"`
	Notes          *string `json:"notes"`
}

// ListCustomers returns the customers in scope. Administrators may narrow
// the result with orgFilter.
func (s *Store) ListCustomers(ctx context.Context, caller *access.Caller, orgFilter string) (customers []model.Customer, err error) {
	ctx, span := startSpan(ctx, "ListCustomers")
	defer endSpan(span, &err)

	q, err := scoped(s.db.WithContext(ctx), caller, orgFilter)
	if err != nil {
		return nil, err
	}
	if err := q.Order("name").Find(&customers).Error; err != nil {
		return nil, apperr.FromStore(err, "customer")
	}
	return customers, nil
}

// GetCustomer loads a customer within the caller's scope.
func (s *Store) GetCustomer(ctx context.Context, caller *access.Caller, id string) (c *model.Customer, err error) {
	ctx, span := startSpan(ctx, "GetCustomer", attribute.String("customer.id", id))
	defer endSpan(span, &err)

	return s.loadCustomer(s.db.WithContext(ctx), caller, id)
}

func (s *Store) loadCustomer(tx *gorm.DB, caller *access.Caller, id string) (*model.Customer, error) {
	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	var c model.Customer
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "customer")
	}
	if err := caller.CanAccessOrg(c.OrganizationID); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer adds a customer to an organization in scope.
func (s *Store) CreateCustomer(ctx context.Context, caller *access.Caller, in CustomerInput) (c *model.Customer, err error) {
	ctx, span := startSpan(ctx, "CreateCustomer")
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	if in.OrganizationID == "" {
		in.OrganizationID = caller.CurrentOrganizationID
	}
	if in.OrganizationID == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "organization_id is required")
	}
	if err := caller.CanAccessOrg(in.OrganizationID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "name is required")
	}
	c = &model.Customer{
		OrganizationID: in.OrganizationID,
		Name:           name,
		Email:          in.Email,
		Phone:          in.Phone,
		Company:        in.Company,
		Notes:          in.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOrganization(tx, c.OrganizationID); err != nil {
			return err
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "customer")
	}
	s.events.Publish(ctx, c.OrganizationID, events.ResourceCustomer, events.ActionCreated, c.ID, caller.ProfileID, c)
	return c, nil
}

// UpdateCustomer replaces the writable fields of a customer. The owning
// organization cannot change.
func (s *Store) UpdateCustomer(ctx context.Context, caller *access.Caller, id string, in CustomerInput) (c *model.Customer, err error) {
	ctx, span := startSpan(ctx, "UpdateCustomer", attribute.String("customer.id", id))
	defer endSpan(span, &err)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "name is required")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = s.loadCustomer(tx, caller, id); err != nil {
			return err
		}
		c.Name = name
		c.Email = in.Email
		c.Phone = in.Phone
		c.Company = in.Company
		c.Notes = in.Notes
		return tx.Save(c).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "customer")
	}
	s.events.Publish(ctx, c.OrganizationID, events.ResourceCustomer, events.ActionUpdated, c.ID, caller.ProfileID, c)
	return c, nil
}

// DeleteCustomer hard-deletes a customer. Administrators and managers only.
func (s *Store) DeleteCustomer(ctx context.Context, caller *access.Caller, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteCustomer", attribute.String("customer.id", id))
	defer endSpan(span, &err)

	var orgID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.loadCustomer(tx, caller, id)
		if err != nil {
			return err
		}
		if err := caller.CanDeleteRecords(c.OrganizationID); err != nil {
			return err
		}
		orgID = c.OrganizationID
		return tx.Delete(c).Error
	})
	if err != nil {
		return apperr.FromStore(err, "customer")
	}
	s.events.Publish(ctx, orgID, events.ResourceCustomer, events.ActionDeleted, id, caller.ProfileID, nil)
	return nil
}

// scoped restricts q to the caller's organization. Administrators see all
// rows, or those of orgFilter when set.
func scoped(q *gorm.DB, caller *access.Caller, orgFilter string) (*gorm.DB, error) {
	scope, all, err := caller.Scope()
	if err != nil {
		return nil, err
	}
	if all {
		if orgFilter != "" {
			q = q.Where("organization_id = ?", orgFilter)
		}
		return q, nil
	}
	if orgFilter != "" && orgFilter != scope {
		return nil, apperr.New(apperr.Forbidden, "organization %s is outside your current organization", orgFilter)
	}
	return q.Where("organization_id = ?", scope), nil
}
