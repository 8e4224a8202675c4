package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/events"
	"assurcore-backend/shared/metrics"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

// OrganizationService owns organization lifecycle. Every mutation writes the
// organization row and its closure rows in one transaction; cache
// invalidation and events follow the commit.
type OrganizationService struct {
	stores    repositories.UnitOfWork
	hierarchy *HierarchyService
	tenants   *TenantFilterResolver
	publisher events.Publisher
	log       *logrus.Logger
}

type OrganizationPage = Page[models.Organization]

// OrganizationNode is one organization in a hierarchy tree. Level is the
// distance from the requested root.
type OrganizationNode struct {
	ID       uuid.UUID                 `json:"id"`
	Name     string                    `json:"name"`
	Code     string                    `json:"code"`
	Type     models.OrganizationType   `json:"type"`
	Status   models.OrganizationStatus `json:"status"`
	Active   bool                      `json:"active"`
	ParentID *uuid.UUID                `json:"parent_id"`
	Level    int                       `json:"level"`
	Children []*OrganizationNode       `json:"children"`
}

func NewOrganizationService(
	stores repositories.UnitOfWork,
	hierarchy *HierarchyService,
	tenants *TenantFilterResolver,
	publisher events.Publisher,
	log *logrus.Logger,
) *OrganizationService {
	return &OrganizationService{
		stores:    stores,
		hierarchy: hierarchy,
		tenants:   tenants,
		publisher: publisher,
		log:       log,
	}
}

func (s *OrganizationService) CreateOrganization(ctx context.Context, tc tenant.Context, cmd CreateOrganizationCommand) (*models.Organization, error) {
	org, err := s.createOrganization(ctx, tc, cmd)
	metrics.RecordMutation("create", err)
	return org, err
}

func (s *OrganizationService) createOrganization(ctx context.Context, tc tenant.Context, cmd CreateOrganizationCommand) (*models.Organization, error) {
	cmd.Normalize()
	if err := validate.Struct(cmd); err != nil {
		return nil, validationFailed(err)
	}

	org := &models.Organization{
		Name:        cmd.Name,
		Code:        cmd.Code,
		Type:        cmd.Type,
		Status:      cmd.Status,
		Description: cmd.Description,
		Email:       cmd.Email,
		Phone:       cmd.Phone,
		Country:     cmd.Country,
		ParentID:    cmd.ParentID,
		Active:      cmd.Status == models.OrganizationStatusActive,
		CreatedBy:   tc.Actor(),
		UpdatedBy:   tc.Actor(),
	}

	var affected []uuid.UUID
	err := s.stores.WithTx(ctx, func(stores repositories.StoreProvider) error {
		if err := stores.Hierarchy().Lock(ctx); err != nil {
			return err
		}

		taken, err := stores.Organizations().ExistsByCode(ctx, org.Code)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.DuplicateCode(org.Code)
		}

		if org.ParentID != nil {
			if err := s.checkParent(ctx, stores, tc, *org.ParentID); err != nil {
				return err
			}
		}

		if err := stores.Organizations().Save(ctx, org); err != nil {
			return err
		}
		if err := stores.Hierarchy().CreateSelfReference(ctx, org.ID); err != nil {
			return err
		}
		if org.ParentID == nil {
			return nil
		}
		if err := stores.Hierarchy().InsertEdge(ctx, *org.ParentID, org.ID); err != nil {
			return err
		}
		affected, err = stores.Hierarchy().FindAllAncestorIDs(ctx, org.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, affected, events.NewOrganizationCreated(org, tc.Actor()))
	s.log.WithFields(logrus.Fields{
		"organization_id": org.ID,
		"code":            org.Code,
		"parent_id":       org.ParentID,
	}).Info("organization created")
	return org, nil
}

// checkParent requires parentID to exist and, with a tenant present, to be
// visible to it.
func (s *OrganizationService) checkParent(ctx context.Context, stores repositories.StoreProvider, tc tenant.Context, parentID uuid.UUID) error {
	exists, err := stores.Organizations().ExistsByID(ctx, parentID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.InvalidParent("parent organization %s does not exist", parentID)
	}
	if !tc.Present() {
		return nil
	}
	visible, err := canView(ctx, stores.Hierarchy(), tc.OrganizationID, parentID)
	if err != nil {
		return err
	}
	if !visible {
		return apperrors.InvalidParent("parent organization %s is outside the tenant hierarchy", parentID)
	}
	return nil
}

// loadVisible finds id and hides it as not found when the tenant cannot see it.
func (s *OrganizationService) loadVisible(ctx context.Context, stores repositories.StoreProvider, tc tenant.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := stores.Organizations().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, stores, tc, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) ensureVisible(ctx context.Context, stores repositories.StoreProvider, tc tenant.Context, org *models.Organization) error {
	if !tc.Present() {
		return nil
	}
	visible, err := canView(ctx, stores.Hierarchy(), tc.OrganizationID, org.ID)
	if err != nil {
		return err
	}
	if !visible {
		return apperrors.NotFound("organization", org.ID)
	}
	return nil
}

func (s *OrganizationService) UpdateOrganization(ctx context.Context, tc tenant.Context, cmd UpdateOrganizationCommand) (*models.Organization, error) {
	org, err := s.updateOrganization(ctx, tc, cmd)
	metrics.RecordMutation("update", err)
	return org, err
}

func (s *OrganizationService) updateOrganization(ctx context.Context, tc tenant.Context, cmd UpdateOrganizationCommand) (*models.Organization, error) {
	if err := tc.Require("update organization"); err != nil {
		return nil, err
	}
	if cmd.ID == uuid.Nil {
		return nil, apperrors.InvalidQuery("organization id is required")
	}
	cmd.Normalize()
	if err := validate.Struct(cmd); err != nil {
		return nil, validationFailed(err)
	}

	var (
		updated  *models.Organization
		affected []uuid.UUID
	)
	err := s.stores.WithTx(ctx, func(stores repositories.StoreProvider) error {
		org, err := s.loadVisible(ctx, stores, tc, cmd.ID)
		if err != nil {
			return err
		}
		if org.Version != cmd.Version {
			return apperrors.ConcurrencyConflict("organization", org.ID)
		}

		applyUpdate(org, cmd)
		org.UpdatedBy = tc.Actor()

		newParent, moved := parentChange(org, cmd)
		if !moved {
			updated = org
			return stores.Organizations().Save(ctx, org)
		}

		// A tenant may rearrange its subtree but not detach its own root
		// from the ancestors that can see it.
		if org.ID == tc.OrganizationID {
			return apperrors.InvalidParent("organization %s cannot move itself", org.ID)
		}

		if err := stores.Hierarchy().Lock(ctx); err != nil {
			return err
		}
		if newParent != nil {
			if *newParent == org.ID {
				return apperrors.InvalidParent("organization %s cannot be its own parent", org.ID)
			}
			if err := s.checkParent(ctx, stores, tc, *newParent); err != nil {
				return err
			}
			cycle, err := stores.Hierarchy().IsAncestorOf(ctx, org.ID, *newParent)
			if err != nil {
				return err
			}
			if cycle {
				return apperrors.InvalidParent("organization %s cannot be moved below its descendant %s", org.ID, *newParent)
			}
		}

		before, err := stores.Hierarchy().FindAllAncestorIDs(ctx, org.ID)
		if err != nil {
			return err
		}
		org.ParentID = newParent
		if err := stores.Organizations().Save(ctx, org); err != nil {
			return err
		}
		if err := stores.Hierarchy().MoveSubtree(ctx, org.ID, newParent); err != nil {
			return err
		}
		after, err := stores.Hierarchy().FindAllAncestorIDs(ctx, org.ID)
		if err != nil {
			return err
		}

		affected = unionIDs(before, after)
		updated = org
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, affected, events.NewOrganizationUpdated(updated, tc.Actor()))
	s.log.WithFields(logrus.Fields{
		"organization_id": updated.ID,
		"version":         updated.Version,
		"moved":           len(affected) > 0,
	}).Info("organization updated")
	return updated, nil
}

func applyUpdate(org *models.Organization, cmd UpdateOrganizationCommand) {
	if cmd.Name != nil {
		org.Name = *cmd.Name
	}
	if cmd.Code != nil {
		org.Code = *cmd.Code
	}
	if cmd.Type != nil {
		org.Type = *cmd.Type
	}
	if cmd.Description != nil {
		org.Description = *cmd.Description
	}
	if cmd.Email != nil {
		org.Email = *cmd.Email
	}
	if cmd.Phone != nil {
		org.Phone = *cmd.Phone
	}
	if cmd.Country != nil {
		org.Country = *cmd.Country
	}
}

// parentChange reports the requested parent and whether it differs from
// the current one.
func parentChange(org *models.Organization, cmd UpdateOrganizationCommand) (*uuid.UUID, bool) {
	switch {
	case cmd.MoveToRoot:
		return nil, org.ParentID != nil
	case cmd.ParentID != nil:
		next := *cmd.ParentID
		return &next, org.ParentID == nil || *org.ParentID != next
	default:
		return org.ParentID, false
	}
}

func unionIDs(groups ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, ids := range groups {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (s *OrganizationService) GetOrganization(ctx context.Context, tc tenant.Context, q GetOrganizationQuery) (*models.Organization, error) {
	code := strings.TrimSpace(q.Code)

	var (
		org *models.Organization
		err error
	)
	switch {
	case q.ID != nil:
		org, err = s.stores.Organizations().FindByID(ctx, *q.ID)
	case code != "":
		org, err = s.stores.Organizations().FindByCode(ctx, code)
	default:
		return nil, apperrors.InvalidQuery("either id or code is required")
	}
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, s.stores, tc, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) ListOrganizations(ctx context.Context, tc tenant.Context, q ListOrganizationsQuery) (*OrganizationPage, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, apperrors.InvalidQuery("unknown organization type %q", q.Type)
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperrors.InvalidQuery("unknown organization status %q", q.Status)
	}

	visibility, err := s.tenants.Resolve(ctx, tc, !q.ExcludeDescendants)
	if err != nil {
		return nil, err
	}

	// The sort field stays empty when not requested so the store applies
	// its own default order.
	params := query.Normalize(query.FilterParams{
		Page:  q.Page,
		Limit: q.Limit,
		Sort:  query.SortParams{Field: q.SortField, Order: q.SortOrder},
	})
	orgs, total, err := s.stores.Organizations().FindAll(ctx, repositories.OrganizationFilter{
		Type:       q.Type,
		Status:     q.Status,
		ParentID:   q.ParentID,
		RootsOnly:  q.RootsOnly,
		SearchTerm: strings.TrimSpace(q.SearchTerm),
		Visibility: visibility,
		SortField:  strings.TrimSpace(q.SortField),
		SortOrder:  params.Sort.Order,
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		return nil, err
	}
	return newPage(orgs, params, total), nil
}

// DeleteOrganization rejects organizations that still have children or
// that users or roles belong to.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	err := s.deleteOrganization(ctx, tc, id)
	metrics.RecordMutation("delete", err)
	return err
}

func (s *OrganizationService) deleteOrganization(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	if err := tc.Require("delete organization"); err != nil {
		return err
	}

	var (
		deleted  *models.Organization
		affected []uuid.UUID
	)
	err := s.stores.WithTx(ctx, func(stores repositories.StoreProvider) error {
		if err := stores.Hierarchy().Lock(ctx); err != nil {
			return err
		}
		org, err := s.loadVisible(ctx, stores, tc, id)
		if err != nil {
			return err
		}

		children, err := stores.Organizations().CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperrors.HasChildren(id)
		}
		dependents, err := stores.Organizations().CountDependents(ctx, id)
		if err != nil {
			return err
		}
		if dependents > 0 {
			return apperrors.New(apperrors.CodeOrganizationInUse, "organization %s is still referenced by %d users or roles", id, dependents)
		}

		ancestors, err := stores.Hierarchy().FindAllAncestorIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := stores.Hierarchy().DeleteAllByOrganizationID(ctx, id); err != nil {
			return err
		}
		if err := stores.Organizations().Delete(ctx, id); err != nil {
			return err
		}

		affected = append(ancestors, id)
		deleted = org
		return nil
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, affected, events.NewOrganizationDeleted(deleted, tc.Actor()))
	s.log.WithFields(logrus.Fields{"organization_id": id, "code": deleted.Code}).Info("organization deleted")
	return nil
}

func (s *OrganizationService) Activate(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error) {
	return s.changeStatus(ctx, tc, id, models.OrganizationStatusActive)
}

func (s *OrganizationService) Deactivate(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error) {
	return s.changeStatus(ctx, tc, id, models.OrganizationStatusInactive)
}

func (s *OrganizationService) Suspend(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error) {
	return s.changeStatus(ctx, tc, id, models.OrganizationStatusSuspended)
}

func (s *OrganizationService) Archive(ctx context.Context, tc tenant.Context, id uuid.UUID) (*models.Organization, error) {
	return s.changeStatus(ctx, tc, id, models.OrganizationStatusArchived)
}

// changeStatus is a no-op when the organization already has target.
func (s *OrganizationService) changeStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, target models.OrganizationStatus) (*models.Organization, error) {
	org, changed, err := s.transition(ctx, tc, id, target)
	metrics.RecordMutation("status", err)
	if err != nil || !changed {
		return org, err
	}

	s.afterCommit(ctx, nil, events.NewOrganizationUpdated(org, tc.Actor()))
	s.log.WithFields(logrus.Fields{"organization_id": id, "status": target}).Info("organization status changed")
	return org, nil
}

func (s *OrganizationService) transition(ctx context.Context, tc tenant.Context, id uuid.UUID, target models.OrganizationStatus) (*models.Organization, bool, error) {
	if err := tc.Require("change organization status"); err != nil {
		return nil, false, err
	}

	var (
		org     *models.Organization
		changed bool
	)
	err := s.stores.WithTx(ctx, func(stores repositories.StoreProvider) error {
		var err error
		org, err = s.loadVisible(ctx, stores, tc, id)
		if err != nil {
			return err
		}
		if org.Status == target {
			return nil
		}
		if !org.Status.CanTransitionTo(target) {
			return apperrors.New(apperrors.CodeInvalidStatusTransition, "organization status cannot change from %s to %s", org.Status, target)
		}

		org.Status = target
		org.Active = target == models.OrganizationStatusActive
		org.UpdatedBy = tc.Actor()
		changed = true
		return stores.Organizations().Save(ctx, org)
	})
	if err != nil {
		return nil, false, err
	}
	return org, changed, nil
}

// GetOrganizationHierarchy returns the subtree rooted at rootID.
func (s *OrganizationService) GetOrganizationHierarchy(ctx context.Context, tc tenant.Context, rootID uuid.UUID) (*OrganizationNode, error) {
	if _, err := s.loadVisible(ctx, s.stores, tc, rootID); err != nil {
		return nil, err
	}

	entries, err := s.stores.Hierarchy().FindDescendants(ctx, rootID)
	if err != nil {
		return nil, err
	}
	levels := make(map[uuid.UUID]int, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		levels[e.DescendantID] = e.Distance
		ids = append(ids, e.DescendantID)
	}

	orgs, err := s.stores.Organizations().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return buildTree(rootID, orgs, levels)
}

func buildTree(rootID uuid.UUID, orgs []models.Organization, levels map[uuid.UUID]int) (*OrganizationNode, error) {
	nodes := make(map[uuid.UUID]*OrganizationNode, len(orgs))
	for _, o := range orgs {
		nodes[o.ID] = &OrganizationNode{
			ID:       o.ID,
			Name:     o.Name,
			Code:     o.Code,
			Type:     o.Type,
			Status:   o.Status,
			Active:   o.Active,
			ParentID: o.ParentID,
			Level:    levels[o.ID],
			Children: []*OrganizationNode{},
		}
	}

	root, ok := nodes[rootID]
	if !ok {
		return nil, apperrors.HierarchyInconsistent("organization %s is missing from its own subtree", rootID)
	}
	for id, n := range nodes {
		if id == rootID || n.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*n.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}
	for _, n := range nodes {
		sort.Slice(n.Children, func(i, j int) bool {
			if n.Children[i].Name != n.Children[j].Name {
				return n.Children[i].Name < n.Children[j].Name
			}
			return n.Children[i].Code < n.Children[j].Code
		})
	}
	return root, nil
}

func (s *OrganizationService) afterCommit(ctx context.Context, affected []uuid.UUID, event events.Event) {
	if len(affected) > 0 {
		s.hierarchy.InvalidateVisibleSets(ctx, affected...)
	}
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
