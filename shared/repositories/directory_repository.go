package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/database/models/audit"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

var userListSpec = query.ListSpec{
	AllowedFilters: map[string]string{
		"status":  "status",
		"role_id": "role_id",
	},
	AllowedSortFields: map[string]string{
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
		"created_at": "created_at",
	},
	SearchFields: []string{"email", "first_name", "last_name"},
	DefaultSort:  "created_at DESC",
}

var roleListSpec = query.ListSpec{
	AllowedFilters: map[string]string{
		"is_default": "is_default",
	},
	AllowedSortFields: map[string]string{
		"name":       "name",
		"created_at": "created_at",
	},
	SearchFields: []string{"name", "description"},
	DefaultSort:  "name ASC",
}

var auditLogListSpec = query.ListSpec{
	AllowedFilters: map[string]string{
		"event_type":  "event_type",
		"entity_type": "entity_type",
		"entity_id":   "entity_id",
		"actor_id":    "actor_id",
	},
	AllowedSortFields: map[string]string{
		"occurred_at": "occurred_at",
		"created_at":  "created_at",
		"event_type":  "event_type",
	},
	SearchFields: []string{"event_type"},
	DefaultSort:  "occurred_at DESC",
}

type directoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) ListUsers(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]models.User, int64, error) {
	return listTenantOwned[models.User](ctx, r.db, userListSpec, visibility, params)
}

func (r *directoryRepository) ListRoles(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]models.Role, int64, error) {
	return listTenantOwned[models.Role](ctx, r.db, roleListSpec, visibility, params)
}

func (r *directoryRepository) ListAuditLogs(ctx context.Context, visibility tenant.Filter, params query.FilterParams) ([]audit.AuditLog, int64, error) {
	return listTenantOwned[audit.AuditLog](ctx, r.db, auditLogListSpec, visibility, params)
}

// listTenantOwned pages through a table keyed by organization_id with the
// tenant predicate ANDed onto the caller's filters.
func listTenantOwned[T any](ctx context.Context, db *gorm.DB, spec query.ListSpec, visibility tenant.Filter, params query.FilterParams) ([]T, int64, error) {
	params = query.Normalize(params)

	var model T
	q := db.WithContext(ctx).Model(&model).Scopes(visibility.Scope("organization_id"))
	q = spec.Apply(q, params)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %T: %w", model, err)
	}

	q = query.ApplySort(q, params.Sort, spec.AllowedSortFields, spec.DefaultSort)
	q = query.ApplyPagination(q, params.Page, params.Limit)

	rows := make([]T, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list %T: %w", model, err)
	}
	return rows, total, nil
}
