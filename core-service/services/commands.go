package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("org_type", func(fl validator.FieldLevel) bool {
		return models.OrganizationType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("org_status", func(fl validator.FieldLevel) bool {
		return models.OrganizationStatus(fl.Field().String()).Valid()
	})
	return v
}

type CreateOrganizationCommand struct {
	Name        string                    `validate:"required,max=200"`
	Code        string                    `validate:"required,max=100"`
	Type        models.OrganizationType   `validate:"required,org_type"`
	Status      models.OrganizationStatus `validate:"omitempty,oneof=PENDING ACTIVE"`
	Description string
	Email       string `validate:"omitempty,email,max=200"`
	Phone       string `validate:"omitempty,max=20"`
	Country     string `validate:"omitempty,len=2"`
	ParentID    *uuid.UUID
}

func (c *CreateOrganizationCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Code = strings.TrimSpace(c.Code)
	c.Email = strings.TrimSpace(c.Email)
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	if c.Status == "" {
		c.Status = models.OrganizationStatusActive
	}
}

// UpdateOrganizationCommand changes only the fields that are set. Version
// must match the stored version.
type UpdateOrganizationCommand struct {
	ID          uuid.UUID
	Version     int64                    `validate:"required,gte=1"`
	Name        *string                  `validate:"omitempty,min=1,max=200"`
	Code        *string                  `validate:"omitempty,min=1,max=100"`
	Type        *models.OrganizationType `validate:"omitempty,org_type"`
	Description *string
	Email       *string `validate:"omitempty,email,max=200"`
	Phone       *string `validate:"omitempty,max=20"`
	Country     *string `validate:"omitempty,len=2"`
	ParentID    *uuid.UUID
	// MoveToRoot detaches the organization from its parent.
	MoveToRoot bool
}

func (c *UpdateOrganizationCommand) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(c.Name)
	trim(c.Code)
	trim(c.Email)
	if c.Country != nil {
		upper := strings.ToUpper(strings.TrimSpace(*c.Country))
		c.Country = &upper
	}
}

type GetOrganizationQuery struct {
	ID   *uuid.UUID
	Code string
}

type ListOrganizationsQuery struct {
	Type       models.OrganizationType
	Status     models.OrganizationStatus
	ParentID   *uuid.UUID
	RootsOnly  bool
	SearchTerm string
	SortField  string
	SortOrder  string
	Page       int
	Limit      int
	// ExcludeDescendants restricts a tenant to its own organization.
	ExcludeDescendants bool
}

func validationFailed(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return apperrors.Wrap(apperrors.CodeValidation, err, "invalid fields: %s", strings.Join(fields, ", "))
	}
	return apperrors.Validation(err)
}
