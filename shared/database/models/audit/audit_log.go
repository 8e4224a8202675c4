package audit

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one domain event about an organization. OrganizationID is
// the tenant that owns the entry, so listings go through the tenant filter.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:uuid;not null;index"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty" gorm:"type:uuid;index"`
	EventType      string     `json:"event_type" gorm:"type:varchar(100);not null;index"`
	EntityType     string     `json:"entity_type" gorm:"type:varchar(100);not null"`
	EntityID       uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null;index"`
	Payload        string     `json:"payload,omitempty" gorm:"type:jsonb"`
	OccurredAt     time.Time  `json:"occurred_at" gorm:"not null"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName returns the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
