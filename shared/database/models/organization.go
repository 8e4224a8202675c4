package models

import (
	"time"

	"github.com/google/uuid"
)

type OrganizationType string

const (
	OrganizationTypeInsuranceCompany   OrganizationType = "INSURANCE_COMPANY"
	OrganizationTypeBroker             OrganizationType = "BROKER"
	OrganizationTypeAgent              OrganizationType = "AGENT"
	OrganizationTypeReinsurer          OrganizationType = "REINSURER"
	OrganizationTypeClaimsManager      OrganizationType = "CLAIMS_MANAGER"
	OrganizationTypeRiskManager        OrganizationType = "RISK_MANAGER"
	OrganizationTypeBancassurance      OrganizationType = "BANCASSURANCE"
	OrganizationTypeMutual             OrganizationType = "MUTUAL"
	OrganizationTypeUnderwritingAgency OrganizationType = "UNDERWRITING_AGENCY"
	OrganizationTypeOther              OrganizationType = "OTHER"
)

var organizationTypes = map[OrganizationType]struct{}{
	OrganizationTypeInsuranceCompany:   {},
	OrganizationTypeBroker:             {},
	OrganizationTypeAgent:              {},
	OrganizationTypeReinsurer:          {},
	OrganizationTypeClaimsManager:      {},
	OrganizationTypeRiskManager:        {},
	OrganizationTypeBancassurance:      {},
	OrganizationTypeMutual:             {},
	OrganizationTypeUnderwritingAgency: {},
	OrganizationTypeOther:              {},
}

func (t OrganizationType) Valid() bool {
	_, ok := organizationTypes[t]
	return ok
}

type OrganizationStatus string

const (
	OrganizationStatusPending   OrganizationStatus = "PENDING"
	OrganizationStatusActive    OrganizationStatus = "ACTIVE"
	OrganizationStatusInactive  OrganizationStatus = "INACTIVE"
	OrganizationStatusSuspended OrganizationStatus = "SUSPENDED"
	OrganizationStatusArchived  OrganizationStatus = "ARCHIVED"
)

// statusTransitions lists the statuses reachable from each status.
// ARCHIVED is terminal.
var statusTransitions = map[OrganizationStatus][]OrganizationStatus{
	OrganizationStatusPending:   {OrganizationStatusActive},
	OrganizationStatusActive:    {OrganizationStatusInactive, OrganizationStatusSuspended},
	OrganizationStatusInactive:  {OrganizationStatusActive, OrganizationStatusArchived},
	OrganizationStatusSuspended: {OrganizationStatusActive, OrganizationStatusArchived},
	OrganizationStatusArchived:  nil,
}

func (s OrganizationStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s OrganizationStatus) CanTransitionTo(next OrganizationStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Organization struct {
	ID          uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string             `json:"name" gorm:"size:200;not null"`
	Code        string             `json:"code" gorm:"size:100;uniqueIndex;not null"`
	Type        OrganizationType   `json:"type" gorm:"type:varchar(40);not null;index"`
	Status      OrganizationStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Description string             `json:"description" gorm:"type:text"`
	Email       string             `json:"email" gorm:"size:200"`
	Phone       string             `json:"phone" gorm:"size:20"`
	Country     string             `json:"country" gorm:"size:2"`
	ParentID    *uuid.UUID         `json:"parent_id" gorm:"type:uuid;index"`
	Active      bool               `json:"active" gorm:"not null"`
	Version     int64              `json:"version" gorm:"not null;default:1"`
	CreatedBy   *uuid.UUID         `json:"created_by" gorm:"type:uuid"`
	UpdatedBy   *uuid.UUID         `json:"updated_by" gorm:"type:uuid"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

// IsRoot reports whether the organization has no parent.
func (o *Organization) IsRoot() bool {
	return o.ParentID == nil
}
