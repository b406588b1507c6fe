package store

import (
	"context"
	"strings"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileInput is the body of a profile creation.
type ProfileInput struct {
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Type           model.ProfileType `json:"type"`
	OrganizationID string            `json:"organization_id"`
}

// ProfileUpdate holds the mutable profile attributes. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name *string            `json:"name"`
	Type *model.ProfileType `json:"type"`
}

// Caller resolves the profile with the given email into an access.Caller.
// The current organization is left for the HTTP layer to select.
func (s *Store) Caller(ctx context.Context, email string) (c *access.Caller, err error) {
	ctx, span := startSpan(ctx, "Caller")
	defer endSpan(span, &err)

	p, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &access.Caller{
		ProfileID:   p.ID,
		Email:       p.Email,
		Type:        p.Type,
		Memberships: p.OrganizationIDs(),
	}, nil
}

func (s *Store) profileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.WithContext(ctx).
		Preload("Organizations").
		First(&p, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	return &p, nil
}

// ListProfiles returns all profiles for administrators and the members of
// the current organization otherwise.
func (s *Store) ListProfiles(ctx context.Context, caller *access.Caller) (profiles []model.Profile, err error) {
	ctx, span := startSpan(ctx, "ListProfiles")
	defer endSpan(span, &err)

	scope, all, err := caller.Scope()
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Preload("Organizations").Order("email")
	if !all {
		q = q.Where("id IN (?)", s.db.Model(&model.ProfileOrganization{}).
			Select("profile_id").
			Where("organization_id = ?", scope))
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	return profiles, nil
}

// GetProfile loads a profile. Non-administrators may read themselves and
// members of their current organization.
func (s *Store) GetProfile(ctx context.Context, caller *access.Caller, id string) (p *model.Profile, err error) {
	ctx, span := startSpan(ctx, "GetProfile", attribute.String("profile.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	p = &model.Profile{}
	if err := s.db.WithContext(ctx).Preload("Organizations").First(p, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	if err := canSeeProfile(caller, p); err != nil {
		return nil, err
	}
	return p, nil
}

func canSeeProfile(caller *access.Caller, p *model.Profile) error {
	if caller.IsAdmin() || caller.ProfileID == p.ID {
		return nil
	}
	scope, _, err := caller.Scope()
	if err != nil {
		return err
	}
	for _, id := range p.OrganizationIDs() {
		if id == scope {
			return nil
		}
	}
	return apperr.New(apperr.Forbidden, "profile %s is outside your current organization", p.ID)
}

// CreateProfile registers a profile for an identity-provider account and
// links it to its primary organization in the same transaction. Managers
// may only create profiles in their current organization.
func (s *Store) CreateProfile(ctx context.Context, caller *access.Caller, in ProfileInput) (p *model.Profile, err error) {
	ctx, span := startSpan(ctx, "CreateProfile")
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.New(apperr.MissingRequiredField, "email is required")
	}
	if in.Type == "" {
		in.Type = model.ProfileUser
	}
	if err := caller.CanAssignType(in.Type); err != nil {
		return nil, err
	}
	if in.OrganizationID == "" && !caller.IsAdmin() {
		in.OrganizationID = caller.CurrentOrganizationID
	}
	if in.OrganizationID != "" {
		if err := caller.CanManageProfiles(in.OrganizationID); err != nil {
			return nil, err
		}
	} else if !caller.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "insufficient permissions to manage profiles")
	}

	p = &model.Profile{Email: email, Name: strings.TrimSpace(in.Name), Type: in.Type}
	if in.OrganizationID != "" {
		p.OrganizationID = &in.OrganizationID
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.OrganizationID != nil {
			if err := requireOrganization(tx, *p.OrganizationID); err != nil {
				return err
			}
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if p.OrganizationID == nil {
			return nil
		}
		return tx.Create(&model.ProfileOrganization{ProfileID: p.ID, OrganizationID: *p.OrganizationID}).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	return s.reloadProfile(ctx, p.ID)
}

// UpdateProfile changes a profile's name and type. Anyone may rename
// themselves; other changes need profile management rights over one of the
// target's organizations, and type changes follow access.Caller.CanAssignType.
func (s *Store) UpdateProfile(ctx context.Context, caller *access.Caller, id string, in ProfileUpdate) (p *model.Profile, err error) {
	ctx, span := startSpan(ctx, "UpdateProfile", attribute.String("profile.id", id))
	defer endSpan(span, &err)

	if caller == nil {
		return nil, access.ErrUnauthorized
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target model.Profile
		if err := tx.Preload("Organizations").First(&target, "id = ?", id).Error; err != nil {
			return err
		}
		self := caller.ProfileID == target.ID
		if in.Type != nil || !self {
			if err := canManageProfile(caller, &target); err != nil {
				return err
			}
		}
		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil && *in.Type != target.Type {
			if err := caller.CanAssignType(*in.Type); err != nil {
				return err
			}
			if target.Type == model.ProfileAdministrator && !caller.IsAdmin() {
				return apperr.New(apperr.Forbidden, "only administrators can change an administrator's type")
			}
			updates["type"] = *in.Type
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model.Profile{}).Where("id = ?", target.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	return s.reloadProfile(ctx, id)
}

func canManageProfile(caller *access.Caller, target *model.Profile) error {
	if caller.IsAdmin() {
		return nil
	}
	if err := caller.CanManageProfiles(caller.CurrentOrganizationID); err != nil {
		return err
	}
	for _, id := range target.OrganizationIDs() {
		if id == caller.CurrentOrganizationID {
			return nil
		}
	}
	return apperr.New(apperr.Forbidden, "profile %s is outside your current organization", target.ID)
}

// AddMembership links a profile to an organization. Adding an existing link
// is a no-op.
func (s *Store) AddMembership(ctx context.Context, caller *access.Caller, profileID, orgID string) (err error) {
	ctx, span := startSpan(ctx, "AddMembership",
		attribute.String("profile.id", profileID), attribute.String("organization.id", orgID))
	defer endSpan(span, &err)

	if err := caller.CanManageProfiles(orgID); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Profile{}, "id = ?", profileID).Error; err != nil {
			return err
		}
		if err := requireOrganization(tx, orgID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.ProfileOrganization{ProfileID: profileID, OrganizationID: orgID}).Error
	})
	return apperr.FromStore(err, "profile")
}

// RemoveMembership unlinks a profile from an organization, clearing it as
// the profile's primary organization if it was.
func (s *Store) RemoveMembership(ctx context.Context, caller *access.Caller, profileID, orgID string) (err error) {
	ctx, span := startSpan(ctx, "RemoveMembership",
		attribute.String("profile.id", profileID), attribute.String("organization.id", orgID))
	defer endSpan(span, &err)

	if err := caller.CanManageProfiles(orgID); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("profile_id = ? AND organization_id = ?", profileID, orgID).
			Delete(&model.ProfileOrganization{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.NotFound, "membership not found")
		}
		return tx.Model(&model.Profile{}).
			Where("id = ? AND organization_id = ?", profileID, orgID).
			Update("organization_id", nil).Error
	})
	return apperr.FromStore(err, "profile")
}

func (s *Store) reloadProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := s.db.WithContext(ctx).Preload("Organizations").First(&p, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "profile")
	}
	return &p, nil
}

// requireOrganization fails with ConflictForeignKey when orgID does not
// exist.
func requireOrganization(tx *gorm.DB, orgID string) error {
	var n int64
	if err := tx.Model(&model.Organization{}).Where("id = ?", orgID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.ConflictForeignKey, "organization %s does not exist", orgID)
	}
	return nil
}
