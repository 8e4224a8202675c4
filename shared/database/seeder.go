package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/utils/auth"
)

// SuperAdminRoleName is the role given to the seeded administrator.
const SuperAdminRoleName = "Super Admin"

// DefaultRoles are created for every seeded organization.
func DefaultRoles(orgID uuid.UUID) []models.Role {
	return []models.Role{
		{
			Name:           "Admin",
			Description:    "Organization administrator with full access",
			IsDefault:      true,
			OrganizationID: orgID,
		},
		{
			Name:           "Underwriter",
			Description:    "Prices and binds policies",
			OrganizationID: orgID,
		},
		{
			Name:           "Claims Handler",
			Description:    "Handles claims of the organization",
			OrganizationID: orgID,
		},
		{
			Name:           "User",
			Description:    "Standard user with read access",
			OrganizationID: orgID,
		},
	}
}

// SeedDefaultRoles creates the missing default roles of an organization and
// returns how many were created.
func SeedDefaultRoles(ctx context.Context, db *gorm.DB, orgID uuid.UUID) (int, error) {
	created := 0
	for _, role := range DefaultRoles(orgID) {
		ok, err := ensureRole(ctx, db, &role)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ensureRole loads the role by name within its organization, creating it
// when absent. It reports whether a row was inserted.
func ensureRole(ctx context.Context, db *gorm.DB, role *models.Role) (bool, error) {
	var existing models.Role
	err := db.WithContext(ctx).
		Where("name = ? AND organization_id = ?", role.Name, role.OrganizationID).
		First(&existing).Error
	switch {
	case err == nil:
		*role = existing
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("failed to load role %q: %w", role.Name, err)
	}

	if err := db.WithContext(ctx).Create(role).Error; err != nil {
		return false, fmt.Errorf("failed to create role %q: %w", role.Name, err)
	}
	return true, nil
}

// SuperAdmin describes the administrator account created by the seed tool.
type SuperAdmin struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	OrganizationID uuid.UUID
}

// CreateSuperAdmin creates the administrator user and its role in the given
// organization. An existing user with the same email is left untouched.
func CreateSuperAdmin(ctx context.Context, db *gorm.DB, admin SuperAdmin, log *logrus.Logger) error {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		log.WithField("email", admin.Email).Info("super admin already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up super admin: %w", err)
	}

	hashed, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash super admin password: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role := models.Role{
			Name:           SuperAdminRoleName,
			Description:    "Full system access",
			OrganizationID: admin.OrganizationID,
		}
		if _, err := ensureRole(ctx, tx, &role); err != nil {
			return err
		}

		user := models.User{
			Email:          admin.Email,
			Password:       hashed,
			FirstName:      admin.FirstName,
			LastName:       admin.LastName,
			Status:         "ACTIVE",
			OrganizationID: admin.OrganizationID,
			RoleID:         &role.ID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create super admin: %w", err)
		}

		log.WithFields(logrus.Fields{
			"email":           admin.Email,
			"organization_id": admin.OrganizationID,
		}).Info("super admin created")
		return nil
	})
}
