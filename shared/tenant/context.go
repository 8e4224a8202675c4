// Package tenant holds the request-scoped tenant value and the visibility
// predicate applied to tenant-owned queries. The tenant is always passed
// explicitly; nothing here reads ambient state.
package tenant

import (
	"github.com/google/uuid"

	"assurcore-backend/shared/apperrors"
)

// Context identifies the organization a request acts for. The zero value
// means no tenant is present.
type Context struct {
	OrganizationID uuid.UUID
	UserID         *uuid.UUID

	// VisibleOrganizationIDs is set when the visible set was already
	// resolved upstream; filters then use it as an explicit set.
	VisibleOrganizationIDs []uuid.UUID
}

func None() Context { return Context{} }

func For(organizationID uuid.UUID, userID *uuid.UUID) Context {
	return Context{OrganizationID: organizationID, UserID: userID}
}

func (c Context) Present() bool {
	return c.OrganizationID != uuid.Nil
}

// Require fails fast for tenant-scoped operations invoked without a tenant.
func (c Context) Require(operation string) error {
	if !c.Present() {
		return apperrors.TenantRequired(operation)
	}
	return nil
}

func (c Context) WithVisibleSet(ids []uuid.UUID) Context {
	c.VisibleOrganizationIDs = ids
	return c
}

// Actor returns the acting user id for audit columns.
func (c Context) Actor() *uuid.UUID {
	return c.UserID
}
