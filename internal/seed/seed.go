// Package seed creates a default organization and administrator profile on
// first boot when the profiles table is empty.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/d9705996/tenantcrm/internal/model"
	"gorm.io/gorm"
)

// AdminOptions configures the seed administrator.
type AdminOptions struct {
	// Email must match the identity provider account that will sign in.
	Email string
	// OrganizationName names the organization created alongside the
	// administrator.
	OrganizationName string
}

// EnsureAdmin creates an Administrator profile linked to a new organization
// if no profiles exist. The function is idempotent: it is safe to call on
// every startup.
func EnsureAdmin(ctx context.Context, db *gorm.DB, opts AdminOptions, log *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Profile{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	if count > 0 {
		log.Info("seed admin already exists")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" {
		return fmt.Errorf("seed admin email is empty")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org := &model.Organization{Name: opts.OrganizationName}
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("insert seed organization: %w", err)
		}
		p := &model.Profile{
			Email:          email,
			Name:           "Seed Admin",
			Type:           model.ProfileAdministrator,
			OrganizationID: &org.ID,
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert seed admin: %w", err)
		}
		return tx.Create(&model.ProfileOrganization{ProfileID: p.ID, OrganizationID: org.ID}).Error
	})
	if err != nil {
		return err
	}

	log.Info("seed admin created", "email", email, "organization", opts.OrganizationName)
	return nil
}
