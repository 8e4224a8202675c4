package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/hierarchy"
	"assurcore-backend/shared/metrics"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/utils/cache"
)

// HierarchyService answers ancestry and visibility questions from the
// closure table.
type HierarchyService struct {
	stores repositories.UnitOfWork
	cache  *cache.CacheManager
	log    *logrus.Logger
}

// RebuildReport describes a full closure recomputation.
type RebuildReport struct {
	Organizations int            `json:"organizations"`
	Entries       int            `json:"entries"`
	Diff          hierarchy.Diff `json:"-"`
	Missing       int            `json:"missing"`
	Unexpected    int            `json:"unexpected"`
	Mismatched    int            `json:"mismatched"`
	Applied       bool           `json:"applied"`
}

// NewHierarchyService accepts a nil cache.
func NewHierarchyService(stores repositories.UnitOfWork, visibleSets *cache.CacheManager, log *logrus.Logger) *HierarchyService {
	return &HierarchyService{stores: stores, cache: visibleSets, log: log}
}

func (s *HierarchyService) requireOrganization(ctx context.Context, orgID uuid.UUID) error {
	exists, err := s.stores.Organizations().ExistsByID(ctx, orgID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("organization", orgID)
	}
	return nil
}

func (s *HierarchyService) GetAllDescendantIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.requireOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.stores.Hierarchy().FindAllDescendantIDs(ctx, orgID)
}

func (s *HierarchyService) GetAllAncestorIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.requireOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.stores.Hierarchy().FindAllAncestorIDs(ctx, orgID)
}

// IsAncestorOf is false for unknown ids and for an organization compared
// with itself.
func (s *HierarchyService) IsAncestorOf(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error) {
	if ancestorID == descendantID {
		return false, nil
	}
	return s.stores.Hierarchy().IsAncestorOf(ctx, ancestorID, descendantID)
}

// CanView reports whether viewerID is subjectID or one of its ancestors.
func (s *HierarchyService) CanView(ctx context.Context, viewerID, subjectID uuid.UUID) (bool, error) {
	return canView(ctx, s.stores.Hierarchy(), viewerID, subjectID)
}

func canView(ctx context.Context, index repositories.HierarchyRepository, viewerID, subjectID uuid.UUID) (bool, error) {
	if viewerID == subjectID {
		return true, nil
	}
	return index.IsAncestorOf(ctx, viewerID, subjectID)
}

// GetVisibleOrganizationIDs returns orgID followed by all of its descendants.
func (s *HierarchyService) GetVisibleOrganizationIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	if ids, ok := s.cache.GetVisibleSet(ctx, orgID); ok {
		return ids, nil
	}

	descendants, err := s.GetAllDescendantIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	visible := make([]uuid.UUID, 0, len(descendants)+1)
	visible = append(visible, orgID)
	visible = append(visible, descendants...)

	if err := s.cache.SetVisibleSet(ctx, orgID, visible); err != nil {
		s.log.WithError(err).WithField("organization_id", orgID).Warn("failed to cache visible set")
	}
	return visible, nil
}

// GetOrganizationPath returns the ids from the root down to orgID.
func (s *HierarchyService) GetOrganizationPath(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.requireOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	ancestors, err := s.stores.Hierarchy().FindAncestors(ctx, orgID)
	if err != nil {
		return nil, err
	}

	path := make([]uuid.UUID, 0, len(ancestors)+1)
	for _, a := range ancestors {
		path = append(path, a.AncestorID)
	}
	return append(path, orgID), nil
}

// InvalidateVisibleSets drops cached visible sets after a committed change.
func (s *HierarchyService) InvalidateVisibleSets(ctx context.Context, orgIDs ...uuid.UUID) {
	if err := s.cache.InvalidateVisibleSets(ctx, orgIDs...); err != nil {
		s.log.WithError(err).Warn("failed to invalidate visible sets")
	}
}

// RebuildHierarchy recomputes the closure table from parent pointers and,
// unless dryRun is set, replaces the stored rows when they differ.
func (s *HierarchyService) RebuildHierarchy(ctx context.Context, dryRun bool) (*RebuildReport, error) {
	started := time.Now()
	report := &RebuildReport{}

	err := s.stores.WithTx(ctx, func(stores repositories.StoreProvider) error {
		if err := stores.Hierarchy().Lock(ctx); err != nil {
			return err
		}

		nodes, err := stores.Organizations().FindAllNodes(ctx)
		if err != nil {
			return err
		}
		expected, err := hierarchy.ComputeClosure(nodes)
		if err != nil {
			if errors.Is(err, hierarchy.ErrCycle) {
				return apperrors.Wrap(apperrors.CodeHierarchyInconsistent, err, "organization parents form a cycle")
			}
			return err
		}
		stored, err := stores.Hierarchy().FindAll(ctx)
		if err != nil {
			return err
		}

		report.Organizations = len(nodes)
		report.Entries = len(expected)
		report.Diff = hierarchy.Compare(expected, stored)
		report.Missing = len(report.Diff.Missing)
		report.Unexpected = len(report.Diff.Unexpected)
		report.Mismatched = len(report.Diff.Mismatched)

		if dryRun || report.Diff.Empty() {
			return nil
		}
		if err := stores.Hierarchy().ReplaceAll(ctx, expected); err != nil {
			return err
		}
		report.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRebuild(dryRun, report.Entries, time.Since(started))
	if report.Applied {
		if err := s.cache.InvalidateAllVisibleSets(ctx); err != nil {
			s.log.WithError(err).Warn("failed to invalidate visible sets after rebuild")
		}
	}

	s.log.WithFields(logrus.Fields{
		"organizations": report.Organizations,
		"entries":       report.Entries,
		"missing":       report.Missing,
		"unexpected":    report.Unexpected,
		"mismatched":    report.Mismatched,
		"applied":       report.Applied,
		"dry_run":       dryRun,
	}).Info("organization hierarchy rebuild finished")
	return report, nil
}

// VerifyHierarchy compares the stored closure with the one implied by
// parent pointers without changing anything.
func (s *HierarchyService) VerifyHierarchy(ctx context.Context) (*RebuildReport, error) {
	return s.RebuildHierarchy(ctx, true)
}
