// Package events carries organization domain events from the services to
// their consumers. Events are published after the originating transaction
// commits; delivery is asynchronous and best effort.
package events

import (
	"time"

	"github.com/google/uuid"

	"assurcore-backend/shared/database/models"
)

const (
	NameOrganizationCreated = "organization.created"
	NameOrganizationUpdated = "organization.updated"
	NameOrganizationDeleted = "organization.deleted"
)

type Event interface {
	Name() string
	OrganizationID() uuid.UUID
	ActorID() *uuid.UUID
	OccurredAt() time.Time
	// Subjects are the organizations a viewer must be able to see to
	// receive the event.
	Subjects() []uuid.UUID
}

type OrganizationCreated struct {
	ID        uuid.UUID               `json:"id"`
	OrgName   string                  `json:"name"`
	Code      string                  `json:"code"`
	Type      models.OrganizationType `json:"type"`
	ParentID  *uuid.UUID              `json:"parent_id,omitempty"`
	Actor     *uuid.UUID              `json:"actor_id,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

func (e OrganizationCreated) Name() string              { return NameOrganizationCreated }
func (e OrganizationCreated) OrganizationID() uuid.UUID { return e.ID }
func (e OrganizationCreated) ActorID() *uuid.UUID       { return e.Actor }
func (e OrganizationCreated) OccurredAt() time.Time     { return e.Timestamp }
func (e OrganizationCreated) Subjects() []uuid.UUID     { return []uuid.UUID{e.ID} }

type OrganizationUpdated struct {
	ID        uuid.UUID                 `json:"id"`
	OrgName   string                    `json:"name"`
	Code      string                    `json:"code"`
	Type      models.OrganizationType   `json:"type"`
	Status    models.OrganizationStatus `json:"status"`
	ParentID  *uuid.UUID                `json:"parent_id,omitempty"`
	Actor     *uuid.UUID                `json:"actor_id,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

func (e OrganizationUpdated) Name() string              { return NameOrganizationUpdated }
func (e OrganizationUpdated) OrganizationID() uuid.UUID { return e.ID }
func (e OrganizationUpdated) ActorID() *uuid.UUID       { return e.Actor }
func (e OrganizationUpdated) OccurredAt() time.Time     { return e.Timestamp }
func (e OrganizationUpdated) Subjects() []uuid.UUID     { return []uuid.UUID{e.ID} }

// OrganizationDeleted is visible through the former parent since the
// deleted organization no longer has hierarchy entries.
type OrganizationDeleted struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Actor     *uuid.UUID `json:"actor_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (e OrganizationDeleted) Name() string              { return NameOrganizationDeleted }
func (e OrganizationDeleted) OrganizationID() uuid.UUID { return e.ID }
func (e OrganizationDeleted) ActorID() *uuid.UUID       { return e.Actor }
func (e OrganizationDeleted) OccurredAt() time.Time     { return e.Timestamp }

func (e OrganizationDeleted) Subjects() []uuid.UUID {
	if e.ParentID == nil {
		return []uuid.UUID{e.ID}
	}
	return []uuid.UUID{e.ID, *e.ParentID}
}

func NewOrganizationCreated(org *models.Organization, actor *uuid.UUID) OrganizationCreated {
	return OrganizationCreated{
		ID:        org.ID,
		OrgName:   org.Name,
		Code:      org.Code,
		Type:      org.Type,
		ParentID:  org.ParentID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}
}

func NewOrganizationUpdated(org *models.Organization, actor *uuid.UUID) OrganizationUpdated {
	return OrganizationUpdated{
		ID:        org.ID,
		OrgName:   org.Name,
		Code:      org.Code,
		Type:      org.Type,
		Status:    org.Status,
		ParentID:  org.ParentID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}
}

func NewOrganizationDeleted(org *models.Organization, actor *uuid.UUID) OrganizationDeleted {
	return OrganizationDeleted{
		ID:        org.ID,
		Code:      org.Code,
		ParentID:  org.ParentID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}
}

// Envelope is the wire form shared by the redis and websocket sinks.
type Envelope struct {
	Type           string     `json:"type"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
	Data           Event      `json:"data"`
}

func Wrap(e Event) Envelope {
	return Envelope{
		Type:           e.Name(),
		OrganizationID: e.OrganizationID(),
		ActorID:        e.ActorID(),
		OccurredAt:     e.OccurredAt(),
		Data:           e,
	}
}
