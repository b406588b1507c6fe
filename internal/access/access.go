// Package access implements the organization/role gate consulted on every
// read and write.
package access

import (
	"slices"

	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/model"
)

// Caller is the resolved identity of a request.
type Caller struct {
	ProfileID string
	Email     string
	Type      model.ProfileType
	// Memberships lists the organizations the profile belongs to.
	Memberships []string
	// CurrentOrganizationID is the organization selected out-of-band
	// (cookie or header). Empty means none selected.
	CurrentOrganizationID string
}

// ErrUnauthorized is returned when no identity is present.
var ErrUnauthorized = apperr.New(apperr.Unauthorized, "authentication required")

// IsAdmin reports whether the caller has unrestricted access.
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Type == model.ProfileAdministrator
}

// IsManager reports whether the caller is a Manager.
func (c *Caller) IsManager() bool {
	return c != nil && c.Type == model.ProfileManager
}

// IsMember reports whether the caller belongs to orgID.
func (c *Caller) IsMember(orgID string) bool {
	return c != nil && slices.Contains(c.Memberships, orgID)
}

// SelectOrganization validates orgID against the caller's memberships and
// makes it the current organization. Administrators may select any
// organization; an empty orgID falls back to the single membership, if
// there is exactly one.
func (c *Caller) SelectOrganization(orgID string) error {
	if c == nil {
		return ErrUnauthorized
	}
	if orgID == "" {
		if len(c.Memberships) == 1 {
			c.CurrentOrganizationID = c.Memberships[0]
		}
		return nil
	}
	if !c.IsAdmin() && !c.IsMember(orgID) {
		return apperr.New(apperr.Forbidden, "not a member of organization %s", orgID)
	}
	c.CurrentOrganizationID = orgID
	return nil
}

// Scope returns the organization a non-admin caller is restricted to.
// all is true for administrators, who are unrestricted.
func (c *Caller) Scope() (orgID string, all bool, err error) {
	if c == nil {
		return "", false, ErrUnauthorized
	}
	if c.IsAdmin() {
		return "", true, nil
	}
	if c.CurrentOrganizationID == "" {
		return "", false, apperr.New(apperr.Forbidden, "no organization selected")
	}
	return c.CurrentOrganizationID, false, nil
}

// CanAccessOrg checks read/write access to rows owned by orgID.
func (c *Caller) CanAccessOrg(orgID string) error {
	scope, all, err := c.Scope()
	if err != nil {
		return err
	}
	if all || scope == orgID {
		return nil
	}
	return apperr.New(apperr.Forbidden, "organization %s is outside your current organization", orgID)
}

// CanManageSchemas checks that the caller may create, edit or delete data
// types owned by orgID.
func (c *Caller) CanManageSchemas(orgID string) error {
	if err := c.CanAccessOrg(orgID); err != nil {
		return err
	}
	if c.IsAdmin() || c.IsManager() {
		return nil
	}
	return apperr.New(apperr.Forbidden, "only administrators and managers can manage data types")
}

// CanCreateOrganization allows administrators only.
func (c *Caller) CanCreateOrganization() error {
	return c.requireAdmin("only administrators can create organizations")
}

// CanDeleteOrganization: administrators only; managers may edit but not
// delete.
func (c *Caller) CanDeleteOrganization() error {
	return c.requireAdmin("only administrators can delete organizations")
}

// CanReadOrganization allows administrators and members.
func (c *Caller) CanReadOrganization(orgID string) error {
	if c == nil {
		return ErrUnauthorized
	}
	if c.IsAdmin() || c.IsMember(orgID) {
		return nil
	}
	return apperr.New(apperr.Forbidden, "not a member of organization %s", orgID)
}

// CanEditOrganization allows administrators and managers who are members.
func (c *Caller) CanEditOrganization(orgID string) error {
	if c == nil {
		return ErrUnauthorized
	}
	if c.IsAdmin() || (c.IsManager() && c.IsMember(orgID)) {
		return nil
	}
	return apperr.New(apperr.Forbidden, "only administrators and member managers can edit organization %s", orgID)
}

// CanManageProfiles checks that the caller may create profiles or change
// memberships within orgID.
func (c *Caller) CanManageProfiles(orgID string) error {
	if c == nil {
		return ErrUnauthorized
	}
	if c.IsAdmin() {
		return nil
	}
	if c.IsManager() && c.CurrentOrganizationID != "" && c.CurrentOrganizationID == orgID {
		return nil
	}
	return apperr.New(apperr.Forbidden, "insufficient permissions to manage profiles")
}

// CanAssignType checks a profile type change. Administrators may assign any
// type; managers may assign Manager or User but never Administrator.
func (c *Caller) CanAssignType(t model.ProfileType) error {
	if c == nil {
		return ErrUnauthorized
	}
	if !t.Valid() {
		return apperr.New(apperr.InvalidInput, "unknown profile type %q", t)
	}
	switch {
	case c.IsAdmin():
		return nil
	case c.IsManager() && t != model.ProfileAdministrator:
		return nil
	}
	return apperr.New(apperr.Forbidden, "insufficient permissions to assign type %s", t)
}

// CanDeleteRecords restricts hard deletes of customer records to
// administrators and managers within scope.
func (c *Caller) CanDeleteRecords(orgID string) error {
	if err := c.CanAccessOrg(orgID); err != nil {
		return err
	}
	if c.IsAdmin() || c.IsManager() {
		return nil
	}
	return apperr.New(apperr.Forbidden, "only administrators and managers can delete records")
}

func (c *Caller) requireAdmin(msg string) error {
	if c == nil {
		return ErrUnauthorized
	}
	if c.IsAdmin() {
		return nil
	}
	return apperr.New(apperr.Forbidden, "%s", msg)
}
