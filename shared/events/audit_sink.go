package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"assurcore-backend/shared/database/models/audit"
)

// AuditSink records every event in audit_logs, owned by the organization
// the event is about.
type AuditSink struct {
	db *gorm.DB
}

func NewAuditSink(db *gorm.DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	entry := audit.AuditLog{
		OrganizationID: auditOwner(event),
		ActorID:        event.ActorID(),
		EventType:      event.Name(),
		EntityType:     "organization",
		EntityID:       event.OrganizationID(),
		Payload:        string(payload),
		OccurredAt:     event.OccurredAt(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// auditOwner files deletions under the former parent so the entry stays
// visible to the tenants that could see the deleted organization.
func auditOwner(event Event) uuid.UUID {
	if deleted, ok := event.(OrganizationDeleted); ok && deleted.ParentID != nil {
		return *deleted.ParentID
	}
	return event.OrganizationID()
}
