package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/hierarchy"
	"assurcore-backend/shared/utils/query"
)

var organizationSortFields = map[string]string{
	"name":       "name",
	"code":       "code",
	"type":       "type",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Save(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		return r.create(ctx, org)
	}
	return r.update(ctx, org)
}

func (r *organizationRepository) create(ctx context.Context, org *models.Organization) error {
	taken, err := r.codeTaken(ctx, org.Code, uuid.Nil)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.DuplicateCode(org.Code)
	}

	org.ID = uuid.New()
	org.Version = 1
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		org.ID = uuid.Nil
		return translateWriteError(err, org.Code, "create organization")
	}
	return nil
}

func (r *organizationRepository) update(ctx context.Context, org *models.Organization) error {
	taken, err := r.codeTaken(ctx, org.Code, org.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.DuplicateCode(org.Code)
	}

	var parentID interface{}
	if org.ParentID != nil {
		parentID = *org.ParentID
	}
	var updatedBy interface{}
	if org.UpdatedBy != nil {
		updatedBy = *org.UpdatedBy
	}

	now := time.Now().UTC()
	next := org.Version + 1
	result := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ? AND version = ?", org.ID, org.Version).
		Updates(map[string]interface{}{
			"name":        org.Name,
			"code":        org.Code,
			"type":        org.Type,
			"status":      org.Status,
			"description": org.Description,
			"email":       org.Email,
			"phone":       org.Phone,
			"country":     org.Country,
			"parent_id":   parentID,
			"active":      org.Active,
			"version":     next,
			"updated_by":  updatedBy,
			"updated_at":  now,
		})
	if result.Error != nil {
		return translateWriteError(result.Error, org.Code, "update organization")
	}
	if result.RowsAffected == 0 {
		return apperrors.ConcurrencyConflict("organization", org.ID)
	}

	org.Version = next
	org.UpdatedAt = now
	return nil
}

// codeTaken reports whether code belongs to an organization other than exceptID.
func (r *organizationRepository) codeTaken(ctx context.Context, code string, exceptID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Organization{})
	if exceptID == uuid.Nil {
		q = q.Where("code = ?", code)
	} else {
		q = q.Where("code = ? AND id <> ?", code, exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check organization code: %w", err)
	}
	return count > 0, nil
}

func translateWriteError(err error, code, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.DuplicateCode(code)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("organization", id)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) FindByCode(ctx context.Context, code string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("organization", code)
		}
		return nil, fmt.Errorf("failed to find organization by code: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return []models.Organization{}, nil
	}
	var orgs []models.Organization
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("failed to find organizations: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) FindAll(ctx context.Context, filter OrganizationFilter) ([]models.Organization, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Scopes(filter.Visibility.Scope("id"))

	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.RootsOnly {
		q = q.Where("parent_id IS NULL")
	}
	q = query.ApplySearch(q, filter.SearchTerm, []string{"name", "code"})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	q = query.ApplySort(q, query.SortParams{Field: filter.SortField, Order: filter.SortOrder}, organizationSortFields, "name ASC")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = query.ApplyPagination(q, page, filter.Limit)
	}

	var orgs []models.Organization
	if err := q.Find(&orgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, total, nil
}

func (r *organizationRepository) FindAllNodes(ctx context.Context) ([]hierarchy.Node, error) {
	var rows []struct {
		ID       uuid.UUID
		ParentID *uuid.UUID
	}
	if err := r.db.WithContext(ctx).Model(&models.Organization{}).Select("id, parent_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load organization graph: %w", err)
	}

	nodes := make([]hierarchy.Node, len(rows))
	for i, row := range rows {
		nodes[i] = hierarchy.Node{ID: row.ID, ParentID: row.ParentID}
	}
	return nodes, nil
}

func (r *organizationRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.codeTaken(ctx, code, uuid.Nil)
}

func (r *organizationRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check organization: %w", err)
	}
	return count > 0, nil
}

func (r *organizationRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Organization{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count child organizations: %w", err)
	}
	return count, nil
}

// CountDependents counts users and roles that belong to the organization.
func (r *organizationRepository) CountDependents(ctx context.Context, id uuid.UUID) (int64, error) {
	var users, roles int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("organization_id = ?", id).Count(&users).Error; err != nil {
		return 0, fmt.Errorf("failed to count organization users: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Role{}).Where("organization_id = ?", id).Count(&roles).Error; err != nil {
		return 0, fmt.Errorf("failed to count organization roles: %w", err)
	}
	return users + roles, nil
}

func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Organization{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("organization", id)
	}
	return nil
}

func (r *organizationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Organization{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}
