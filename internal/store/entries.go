package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/events"
	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/d9705996/tenantcrm/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EntryInput is the body of an entry creation.
type EntryInput struct {
	DataTypeID     string         `json:"data_type_id"`
	OrganizationID string         `json:"organization_id"`
	Data           map[string]any `json:"data"`
}

// CreateEntry validates data against the current field list of its data
// type and stores the normalized map. The data type lookup and the insert
// share one transaction.
func (s *Store) CreateEntry(ctx context.Context, caller *access.Caller, in EntryInput) (e *model.DynamicDataEntry, err error) {
	ctx, span := startSpan(ctx, "CreateEntry", attribute.String("data_type.id", in.DataTypeID))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	switch {
	case in.DataTypeID == "":
		return nil, apperr.New(apperr.MissingRequiredField, "data_type_id is required")
	case in.OrganizationID == "":
		return nil, apperr.New(apperr.MissingRequiredField, "organization_id is required")
	case in.Data == nil:
		return nil, apperr.New(apperr.MissingRequiredField, "data is required")
	}
	if err := caller.CanAccessOrg(in.OrganizationID); err != nil {
		return nil, err
	}

	var dt model.DataType
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dt, "id = ?", in.DataTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.ConflictForeignKey, err, "data type "+in.DataTypeID+" does not exist")
			}
			return err
		}
		if dt.OrganizationID != in.OrganizationID {
			return apperr.New(apperr.ConflictForeignKey, "entry organization does not match the data type's organization")
		}
		data, err := s.validate(ctx, dt.Fields, in.Data)
		if err != nil {
			return err
		}
		e = &model.DynamicDataEntry{
			DataTypeID:     dt.ID,
			OrganizationID: dt.OrganizationID,
			Data:           datatypes.JSONMap(data),
			SchemaVersion:  dt.Version,
		}
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		return s.resolveReferences(tx, dt.Fields, e)
	})
	if err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	entriesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "create")))
	s.events.Publish(ctx, e.OrganizationID, events.ResourceEntry, events.ActionCreated, e.ID, caller.ProfileID, e)
	return e, nil
}

// UpdateEntry replaces the whole data map, re-validating it against the
// data type's current field list and restamping the schema version.
func (s *Store) UpdateEntry(ctx context.Context, caller *access.Caller, id string, data map[string]any) (e *model.DynamicDataEntry, err error) {
	ctx, span := startSpan(ctx, "UpdateEntry", attribute.String("entry.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	if data == nil {
		return nil, apperr.New(apperr.MissingRequiredField, "data is required")
	}
	e = &model.DynamicDataEntry{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(e, "id = ?", id).Error; err != nil {
			return err
		}
		if err := caller.CanAccessOrg(e.OrganizationID); err != nil {
			return err
		}
		var dt model.DataType
		if err := tx.First(&dt, "id = ?", e.DataTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.ConflictForeignKey, err, "data type "+e.DataTypeID+" no longer exists")
			}
			return err
		}
		normalized, err := s.validate(ctx, dt.Fields, data)
		if err != nil {
			return err
		}
		e.Data = datatypes.JSONMap(normalized)
		e.SchemaVersion = dt.Version
		if err := tx.Save(e).Error; err != nil {
			return err
		}
		return s.resolveReferences(tx, dt.Fields, e)
	})
	if err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	entriesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))
	s.events.Publish(ctx, e.OrganizationID, events.ResourceEntry, events.ActionUpdated, e.ID, caller.ProfileID, e)
	return e, nil
}

// GetEntry loads an entry within the caller's scope with its references
// resolved. Orphaned entries are returned without references.
func (s *Store) GetEntry(ctx context.Context, caller *access.Caller, id string) (e *model.DynamicDataEntry, err error) {
	ctx, span := startSpan(ctx, "GetEntry", attribute.String("entry.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	db := s.db.WithContext(ctx)
	e = &model.DynamicDataEntry{}
	if err := db.First(e, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	if err := caller.CanAccessOrg(e.OrganizationID); err != nil {
		return nil, err
	}
	var dt model.DataType
	switch err := db.First(&dt, "id = ?", e.DataTypeID).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e, nil
	case err != nil:
		return nil, apperr.FromStore(err, "data type")
	}
	if err := s.resolveReferences(db, dt.Fields, e); err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	return e, nil
}

// ListEntries returns the entries of one data type. Non-administrators may
// only list data types of their current organization. Administrators may
// also list the orphaned entries of a deleted data type; those come back
// without references.
func (s *Store) ListEntries(ctx context.Context, caller *access.Caller, dataTypeID string) (entries []model.DynamicDataEntry, err error) {
	ctx, span := startSpan(ctx, "ListEntries", attribute.String("data_type.id", dataTypeID))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	if dataTypeID == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "dataTypeId is required")
	}
	db := s.db.WithContext(ctx)
	var dt model.DataType
	if err := db.First(&dt, "id = ?", dataTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) && caller.IsAdmin() {
			return s.listOrphans(db, dataTypeID)
		}
		return nil, apperr.FromStore(err, "data type")
	}
	if err := caller.CanAccessOrg(dt.OrganizationID); err != nil {
		return nil, err
	}
	err = db.Where("data_type_id = ? AND organization_id = ?", dt.ID, dt.OrganizationID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	ptrs := make([]*model.DynamicDataEntry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}
	if err := s.resolveReferences(db, dt.Fields, ptrs...); err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	return entries, nil
}

func (s *Store) listOrphans(db *gorm.DB, dataTypeID string) ([]model.DynamicDataEntry, error) {
	var entries []model.DynamicDataEntry
	if err := db.Where("data_type_id = ?", dataTypeID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, apperr.FromStore(err, "entry")
	}
	if len(entries) == 0 {
		return nil, apperr.New(apperr.NotFound, "data type not found")
	}
	return entries, nil
}

// DeleteEntry hard-deletes an entry. Entries referencing it are not touched.
func (s *Store) DeleteEntry(ctx context.Context, caller *access.Caller, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteEntry", attribute.String("entry.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return access.ErrUnauthorized
	}
	var e model.DynamicDataEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		if err := caller.CanAccessOrg(e.OrganizationID); err != nil {
			return err
		}
		return tx.Delete(&e).Error
	})
	if err != nil {
		return apperr.FromStore(err, "entry")
	}
	s.events.Publish(ctx, e.OrganizationID, events.ResourceEntry, events.ActionDeleted, id, caller.ProfileID, nil)
	return nil
}

func (s *Store) validate(ctx context.Context, fields []field.Field, data map[string]any) (map[string]any, error) {
	out, err := s.validator.ValidateEntry(fields, data)
	if err != nil {
		entriesRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(apperr.KindOf(err)))))
		return nil, err
	}
	return out, nil
}

// resolveReferences fills References for every reference field of the
// given entries. A value resolves when an entry with that id exists in the
// same organization under the field's referenced data type. Dangling
// values are marked unresolved, never rejected.
func (s *Store) resolveReferences(db *gorm.DB, fields []field.Field, entries ...*model.DynamicDataEntry) error {
	var refFields []field.Field
	for _, f := range fields {
		if f.Type == field.TypeReference {
			refFields = append(refFields, f)
		}
	}
	if len(refFields) == 0 || len(entries) == 0 {
		return nil
	}

	ids := map[string]struct{}{}
	for _, e := range entries {
		for _, f := range refFields {
			if v, ok := e.Data[f.Name].(string); ok && v != "" {
				ids[v] = struct{}{}
			}
		}
	}
	found := map[string]string{}
	if len(ids) > 0 {
		keys := make([]string, 0, len(ids))
		for id := range ids {
			keys = append(keys, id)
		}
		var rows []struct {
			ID         string
			DataTypeID string
		}
		err := db.Model(&model.DynamicDataEntry{}).
			Select("id", "data_type_id").
			Where("id IN ? AND organization_id = ?", keys, entries[0].OrganizationID).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("resolve references: %w", err)
		}
		for _, r := range rows {
			found[r.ID] = r.DataTypeID
		}
	}

	for _, e := range entries {
		for _, f := range refFields {
			v, ok := e.Data[f.Name].(string)
			if !ok || v == "" {
				continue
			}
			if e.References == nil {
				e.References = map[string]model.Reference{}
			}
			dtID, hit := found[v]
			e.References[f.Name] = model.Reference{ID: v, Resolved: hit && dtID == f.ReferenceDataTypeID}
		}
	}
	return nil
}
