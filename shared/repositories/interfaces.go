package repositories

import (
	"context"

	"github.com/google/uuid"

	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/database/models/audit"
	"assurcore-backend/shared/hierarchy"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

// OrganizationFilter narrows FindAll. Visibility is the tenant predicate
// over the organization's own id.
type OrganizationFilter struct {
	Type       models.OrganizationType
	Status     models.OrganizationStatus
	ParentID   *uuid.UUID
	RootsOnly  bool
	SearchTerm string
	Visibility tenant.Filter

	SortField string
	SortOrder string
	Page      int
	Limit     int
}

type OrganizationRepository interface {
	// Save inserts a new organization (zero ID) or updates an existing one
	// guarded by its Version.
	Save(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FindByCode(ctx context.Context, code string) (*models.Organization, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organization, error)
	FindAll(ctx context.Context, filter OrganizationFilter) ([]models.Organization, int64, error)
	FindAllNodes(ctx context.Context) ([]hierarchy.Node, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
	CountDependents(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type HierarchyRepository interface {
	// Lock serializes hierarchy mutations for the rest of the transaction.
	Lock(ctx context.Context) error
	CreateSelfReference(ctx context.Context, orgID uuid.UUID) error
	InsertEdge(ctx context.Context, parentID, childID uuid.UUID) error
	// MoveSubtree detaches nodeID and its descendants from their current
	// ancestors and, when newParentID is set, re-attaches them below it.
	MoveSubtree(ctx context.Context, nodeID uuid.UUID, newParentID *uuid.UUID) error
	FindAllDescendantIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	FindAllAncestorIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	// FindAncestors and FindDescendants include distances; the self row is
	// excluded from ancestors and included in descendants.
	FindAncestors(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationHierarchy, error)
	FindDescendants(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationHierarchy, error)
	IsAncestorOf(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error)
	DeleteAllByOrganizationID(ctx context.Context, orgID uuid.UUID) error
	FindAll(ctx context.Context) ([]hierarchy.Entry, error)
	ReplaceAll(ctx context.Context, entries []hierarchy.Entry) error
}

// StoreProvider hands out repositories bound to one connection or transaction.
type StoreProvider interface {
	Organizations() OrganizationRepository
	Hierarchy() HierarchyRepository
}

// UnitOfWork runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	StoreProvider
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

// DirectoryRepository lists tenant-owned records.
type DirectoryRepository interface {
	ListUsers(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]models.User, int64, error)
	ListRoles(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]models.Role, int64, error)
	ListAuditLogs(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]audit.AuditLog, int64, error)
}
