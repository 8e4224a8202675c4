package models

import "github.com/google/uuid"

// OrganizationHierarchy is one row of the organization closure table: the
// descendant sits Distance edges below the ancestor. Every organization has a
// row pointing at itself with Distance 0.
type OrganizationHierarchy struct {
	AncestorID   uuid.UUID `json:"ancestor_id" gorm:"type:uuid;primaryKey"`
	DescendantID uuid.UUID `json:"descendant_id" gorm:"type:uuid;primaryKey;index"`
	Distance     int       `json:"distance" gorm:"not null;check:distance >= 0"`
}

func (OrganizationHierarchy) TableName() string {
	return "organization_hierarchies"
}
