package store

import (
	"context"
	"strings"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/events"
	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/worker"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DataTypeInput is the body of a data type create or update.
type DataTypeInput struct {
	Name           string        `json:"name"`
	OrganizationID string        `json:"organization_id"`
	Fields         []field.Field `json:"fields"`
}

// ListDataTypes returns the data types in scope. Administrators see every
// organization's data types, optionally narrowed by orgFilter.
func (s *Store) ListDataTypes(ctx context.Context, caller *access.Caller, orgFilter string) (dts []model.DataType, err error) {
	ctx, span := startSpan(ctx, "ListDataTypes")
	defer endSpan(span, &err)

	q, err := scoped(s.db.WithContext(ctx), caller, orgFilter)
	if err != nil {
		return nil, err
	}
	if err := q.Order("name").Find(&dts).Error; err != nil {
		return nil, apperr.FromStore(err, "data type")
	}
	return dts, nil
}

// GetDataType loads a data type within the caller's scope.
func (s *Store) GetDataType(ctx context.Context, caller *access.Caller, id string) (dt *model.DataType, err error) {
	ctx, span := startSpan(ctx, "GetDataType", attribute.String("data_type.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	dt = &model.DataType{}
	if err := s.db.WithContext(ctx).First(dt, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "data type")
	}
	if err := caller.CanAccessOrg(dt.OrganizationID); err != nil {
		return nil, err
	}
	return dt, nil
}

// CreateDataType saves a new schema. The field definitions are validated
// and the owning organization must exist.
func (s *Store) CreateDataType(ctx context.Context, caller *access.Caller, in DataTypeInput) (dt *model.DataType, err error) {
	ctx, span := startSpan(ctx, "CreateDataType", attribute.String("organization.id", in.OrganizationID))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "name is required")
	}
	if in.OrganizationID == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "organization_id is required")
	}
	if err := caller.CanManageSchemas(in.OrganizationID); err != nil {
		return nil, err
	}
	if err := field.ValidateDefinitions(in.Fields); err != nil {
		return nil, err
	}

	dt = &model.DataType{
		Name:           name,
		OrganizationID: in.OrganizationID,
		Fields:         field.Normalize(in.Fields),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOrganization(tx, dt.OrganizationID); err != nil {
			return err
		}
		return tx.Create(dt).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "data type")
	}
	s.events.Publish(ctx, dt.OrganizationID, events.ResourceDataType, events.ActionCreated, dt.ID, caller.ProfileID, dt)
	return dt, nil
}

// UpdateDataType replaces the name and field list wholesale and bumps the
// version. It returns the names of fields that no longer exist; values
// stored under those names stay in existing entries and are reported by
// the schema drift job. A data type cannot move between organizations.
func (s *Store) UpdateDataType(ctx context.Context, caller *access.Caller, id string, in DataTypeInput) (dt *model.DataType, dropped []string, err error) {
	ctx, span := startSpan(ctx, "UpdateDataType", attribute.String("data_type.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, nil, access.ErrUnauthorized
	}
	dt = &model.DataType{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(dt, "id = ?", id).Error; err != nil {
			return err
		}
		if err := caller.CanManageSchemas(dt.OrganizationID); err != nil {
			return err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return apperr.New(apperr.MissingRequiredField, "name is required")
		}
		if in.OrganizationID != "" && in.OrganizationID != dt.OrganizationID {
			return apperr.New(apperr.InvalidInput, "a data type cannot move to another organization")
		}
		if err := field.ValidateDefinitions(in.Fields); err != nil {
			return err
		}
		fields := field.Normalize(in.Fields)
		dropped = field.Dropped(dt.Fields, fields)

		dt.Name = name
		dt.Fields = fields
		dt.Version++
		return tx.Save(dt).Error
	})
	if err != nil {
		return nil, nil, apperr.FromStore(err, "data type")
	}

	if s.jobs != nil {
		args := worker.SchemaDriftArgs{DataTypeID: dt.ID, Version: dt.Version, DroppedFields: dropped}
		if err := s.jobs.EnqueueSchemaDrift(ctx, args); err != nil {
			s.log.Error("enqueue schema drift", "data_type_id", dt.ID, "err", err)
		}
	}
	s.events.Publish(ctx, dt.OrganizationID, events.ResourceDataType, events.ActionUpdated, dt.ID, caller.ProfileID, dt)
	return dt, dropped, nil
}

// DeleteDataType removes a data type. Its entries are left in place,
// orphaned.
func (s *Store) DeleteDataType(ctx context.Context, caller *access.Caller, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteDataType", attribute.String("data_type.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return access.ErrUnauthorized
	}
	var dt model.DataType
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dt, "id = ?", id).Error; err != nil {
			return err
		}
		if err := caller.CanManageSchemas(dt.OrganizationID); err != nil {
			return err
		}
		return tx.Delete(&dt).Error
	})
	if err != nil {
		return apperr.FromStore(err, "data type")
	}
	s.events.Publish(ctx, dt.OrganizationID, events.ResourceDataType, events.ActionDeleted, id, caller.ProfileID, nil)
	return nil
}
