package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/hierarchy"
)

const hierarchyLockKey = "organization-hierarchy"

const (
	sqlHierarchyLock = `SELECT pg_advisory_xact_lock(hashtext(?))`

	sqlInsertSelfReference = `INSERT INTO organization_hierarchies (ancestor_id, descendant_id, distance)
VALUES (?, ?, 0)
ON CONFLICT (ancestor_id, descendant_id) DO NOTHING`

	// Pairs the edge would create that already exist with another distance.
	sqlEdgeConflicts = `SELECT COUNT(*) FROM organization_hierarchies sup
JOIN organization_hierarchies existing
  ON existing.ancestor_id = sup.ancestor_id AND existing.descendant_id = ?
WHERE sup.descendant_id = ? AND existing.distance <> sup.distance + 1`

	sqlInsertEdge = `INSERT INTO organization_hierarchies (ancestor_id, descendant_id, distance)
SELECT ancestor_id, ?, distance + 1 FROM organization_hierarchies WHERE descendant_id = ?
ON CONFLICT (ancestor_id, descendant_id) DO NOTHING`

	// Moving a subtree is a detach followed by an attach. With HQ > BR1 > OF1
	// and HQ > BR2, moving BR1 below BR2:
	//
	//   detach removes (HQ,BR1,1) (HQ,OF1,2) and keeps the rows inside the
	//   subtree: (BR1,BR1,0) (BR1,OF1,1) (OF1,OF1,0).
	//   attach crosses sup = rows ending at BR2: (HQ,BR2,1) (BR2,BR2,0)
	//   with sub = rows starting at BR1: (BR1,BR1,0) (BR1,OF1,1), giving
	//   (HQ,BR1,2) (HQ,OF1,3) (BR2,BR1,1) (BR2,OF1,2).

	// Removes every row linking the subtree of ? to an ancestor outside it.
	sqlDetachSubtree = `DELETE FROM organization_hierarchies
WHERE descendant_id IN (SELECT descendant_id FROM organization_hierarchies WHERE ancestor_id = ?)
  AND ancestor_id NOT IN (SELECT descendant_id FROM organization_hierarchies WHERE ancestor_id = ?)`

	sqlSubtreeConflicts = `SELECT COUNT(*) FROM organization_hierarchies sup
CROSS JOIN organization_hierarchies sub
JOIN organization_hierarchies existing
  ON existing.ancestor_id = sup.ancestor_id AND existing.descendant_id = sub.descendant_id
WHERE sup.descendant_id = ? AND sub.ancestor_id = ?
  AND existing.distance <> sup.distance + sub.distance + 1`

	sqlAttachSubtree = `INSERT INTO organization_hierarchies (ancestor_id, descendant_id, distance)
SELECT sup.ancestor_id, sub.descendant_id, sup.distance + sub.distance + 1
FROM organization_hierarchies sup
CROSS JOIN organization_hierarchies sub
WHERE sup.descendant_id = ? AND sub.ancestor_id = ?
ON CONFLICT (ancestor_id, descendant_id) DO NOTHING`
)

const replaceBatchSize = 500

type hierarchyRepository struct {
	db *gorm.DB
}

func NewHierarchyRepository(db *gorm.DB) HierarchyRepository {
	return &hierarchyRepository{db: db}
}

func (r *hierarchyRepository) Lock(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(sqlHierarchyLock, hierarchyLockKey).Error; err != nil {
		return fmt.Errorf("failed to lock organization hierarchy: %w", err)
	}
	return nil
}

func (r *hierarchyRepository) CreateSelfReference(ctx context.Context, orgID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Exec(sqlInsertSelfReference, orgID, orgID).Error; err != nil {
		return fmt.Errorf("failed to create hierarchy self reference: %w", err)
	}
	return nil
}

func (r *hierarchyRepository) InsertEdge(ctx context.Context, parentID, childID uuid.UUID) error {
	if err := r.requireSelfRow(ctx, parentID); err != nil {
		return err
	}

	var conflicts int64
	if err := r.db.WithContext(ctx).Raw(sqlEdgeConflicts, childID, parentID).Scan(&conflicts).Error; err != nil {
		return fmt.Errorf("failed to check hierarchy edge: %w", err)
	}
	if conflicts > 0 {
		return apperrors.HierarchyInconsistent("edge %s -> %s conflicts with %d existing hierarchy entries", parentID, childID, conflicts)
	}

	if err := r.db.WithContext(ctx).Exec(sqlInsertEdge, childID, parentID).Error; err != nil {
		return fmt.Errorf("failed to insert hierarchy edge: %w", err)
	}
	return nil
}

func (r *hierarchyRepository) MoveSubtree(ctx context.Context, nodeID uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID != nil {
		var inside int64
		if err := r.db.WithContext(ctx).Model(&models.OrganizationHierarchy{}).
			Where("ancestor_id = ? AND descendant_id = ?", nodeID, *newParentID).
			Count(&inside).Error; err != nil {
			return fmt.Errorf("failed to check hierarchy cycle: %w", err)
		}
		if inside > 0 {
			return apperrors.InvalidParent("organization %s cannot be moved below itself or one of its descendants", nodeID)
		}
		if err := r.requireSelfRow(ctx, *newParentID); err != nil {
			return err
		}
	}

	if err := r.db.WithContext(ctx).Exec(sqlDetachSubtree, nodeID, nodeID).Error; err != nil {
		return fmt.Errorf("failed to detach hierarchy subtree: %w", err)
	}
	if newParentID == nil {
		return nil
	}

	var conflicts int64
	if err := r.db.WithContext(ctx).Raw(sqlSubtreeConflicts, *newParentID, nodeID).Scan(&conflicts).Error; err != nil {
		return fmt.Errorf("failed to check hierarchy subtree: %w", err)
	}
	if conflicts > 0 {
		return apperrors.HierarchyInconsistent("moving %s below %s conflicts with %d existing hierarchy entries", nodeID, *newParentID, conflicts)
	}

	if err := r.db.WithContext(ctx).Exec(sqlAttachSubtree, *newParentID, nodeID).Error; err != nil {
		return fmt.Errorf("failed to attach hierarchy subtree: %w", err)
	}
	return nil
}

// requireSelfRow fails when orgID was never registered in the index.
func (r *hierarchyRepository) requireSelfRow(ctx context.Context, orgID uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrganizationHierarchy{}).
		Where("ancestor_id = ? AND descendant_id = ? AND distance = 0", orgID, orgID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check hierarchy self reference: %w", err)
	}
	if count == 0 {
		return apperrors.HierarchyInconsistent("organization %s has no hierarchy self reference", orgID)
	}
	return nil
}

func (r *hierarchyRepository) FindAllDescendantIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.OrganizationHierarchy{}).
		Where("ancestor_id = ? AND distance > 0", orgID).
		Order("distance ASC, descendant_id ASC").
		Pluck("descendant_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find descendants: %w", err)
	}
	return ids, nil
}

func (r *hierarchyRepository) FindAllAncestorIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.OrganizationHierarchy{}).
		Where("descendant_id = ? AND distance > 0", orgID).
		Order("distance ASC, ancestor_id ASC").
		Pluck("ancestor_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find ancestors: %w", err)
	}
	return ids, nil
}

func (r *hierarchyRepository) FindAncestors(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationHierarchy, error) {
	var rows []models.OrganizationHierarchy
	if err := r.db.WithContext(ctx).
		Where("descendant_id = ? AND distance > 0", orgID).
		Order("distance DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find ancestor entries: %w", err)
	}
	return rows, nil
}

func (r *hierarchyRepository) FindDescendants(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationHierarchy, error) {
	var rows []models.OrganizationHierarchy
	if err := r.db.WithContext(ctx).
		Where("ancestor_id = ?", orgID).
		Order("distance ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find descendant entries: %w", err)
	}
	return rows, nil
}

func (r *hierarchyRepository) IsAncestorOf(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrganizationHierarchy{}).
		Where("ancestor_id = ? AND descendant_id = ? AND distance > 0", ancestorID, descendantID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	return count > 0, nil
}

func (r *hierarchyRepository) DeleteAllByOrganizationID(ctx context.Context, orgID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("ancestor_id = ? OR descendant_id = ?", orgID, orgID).
		Delete(&models.OrganizationHierarchy{}).Error; err != nil {
		return fmt.Errorf("failed to delete hierarchy entries: %w", err)
	}
	return nil
}

func (r *hierarchyRepository) FindAll(ctx context.Context) ([]hierarchy.Entry, error) {
	var rows []models.OrganizationHierarchy
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}

	entries := make([]hierarchy.Entry, len(rows))
	for i, row := range rows {
		entries[i] = hierarchy.Entry{AncestorID: row.AncestorID, DescendantID: row.DescendantID, Distance: row.Distance}
	}
	hierarchy.Sort(entries)
	return entries, nil
}

func (r *hierarchyRepository) ReplaceAll(ctx context.Context, entries []hierarchy.Entry) error {
	if err := r.db.WithContext(ctx).Exec("DELETE FROM organization_hierarchies").Error; err != nil {
		return fmt.Errorf("failed to clear hierarchy: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	rows := make([]models.OrganizationHierarchy, len(entries))
	for i, e := range entries {
		rows[i] = models.OrganizationHierarchy{AncestorID: e.AncestorID, DescendantID: e.DescendantID, Distance: e.Distance}
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, replaceBatchSize).Error; err != nil {
		return fmt.Errorf("failed to write hierarchy: %w", err)
	}
	return nil
}
