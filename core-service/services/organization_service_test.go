package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/events"
	"assurcore-backend/shared/hierarchy"
	"assurcore-backend/shared/logging"
	"assurcore-backend/shared/tenant"
	"assurcore-backend/shared/utils/query"
)

type harness struct {
	store     *memoryStore
	hierarchy *HierarchyService
	tenants   *TenantFilterResolver
	orgs      *OrganizationService
	published *recordingPublisher
}

func newHarness() *harness {
	log := logging.Discard()
	store := newMemoryStore()
	h := NewHierarchyService(store, nil, log)
	tenants := NewTenantFilterResolver(h)
	published := &recordingPublisher{}
	return &harness{
		store:     store,
		hierarchy: h,
		tenants:   tenants,
		orgs:      NewOrganizationService(store, h, tenants, published, log),
		published: published,
	}
}

func (h *harness) create(t *testing.T, tc tenant.Context, name, code string, parent *uuid.UUID) *models.Organization {
	t.Helper()
	org, err := h.orgs.CreateOrganization(context.Background(), tc, CreateOrganizationCommand{
		Name:     name,
		Code:     code,
		Type:     models.OrganizationTypeInsuranceCompany,
		ParentID: parent,
	})
	require.NoError(t, err)
	return org
}

func (h *harness) requireConsistent(t *testing.T) {
	t.Helper()
	nodes, err := h.store.Organizations().FindAllNodes(context.Background())
	require.NoError(t, err)
	expected, err := hierarchy.ComputeClosure(nodes)
	require.NoError(t, err)
	diff := hierarchy.Compare(expected, h.store.entries())
	require.True(t, diff.Empty(), "closure drifted: %+v", diff)
}

// headquarters builds HQ -> Branch1 -> Office1.
func (h *harness) headquarters(t *testing.T) (hq, branch, office *models.Organization) {
	t.Helper()
	hq = h.create(t, tenant.None(), "Headquarters", "HQ", nil)
	branch = h.create(t, tenant.None(), "Branch 1", "BR1", &hq.ID)
	office = h.create(t, tenant.None(), "Office 1", "OF1", &branch.ID)
	return hq, branch, office
}

func asTenant(org *models.Organization) tenant.Context {
	user := uuid.New()
	return tenant.For(org.ID, &user)
}

func TestCreateOrganization_HeadquartersScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch, office := h.headquarters(t)

	want := []hierarchy.Entry{
		{AncestorID: hq.ID, DescendantID: hq.ID, Distance: 0},
		{AncestorID: branch.ID, DescendantID: branch.ID, Distance: 0},
		{AncestorID: office.ID, DescendantID: office.ID, Distance: 0},
		{AncestorID: hq.ID, DescendantID: branch.ID, Distance: 1},
		{AncestorID: branch.ID, DescendantID: office.ID, Distance: 1},
		{AncestorID: hq.ID, DescendantID: office.ID, Distance: 2},
	}
	hierarchy.Sort(want)
	require.Equal(t, want, h.store.entries())

	visible, err := h.hierarchy.GetVisibleOrganizationIDs(ctx, hq.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{hq.ID, branch.ID, office.ID}, visible)
	require.Equal(t, hq.ID, visible[0])

	visible, err = h.hierarchy.GetVisibleOrganizationIDs(ctx, branch.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{branch.ID, office.ID}, visible)

	ok, err := h.hierarchy.IsAncestorOf(ctx, hq.ID, office.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = h.hierarchy.IsAncestorOf(ctx, office.ID, hq.ID)
	require.NoError(t, err)
	require.False(t, ok)

	path, err := h.hierarchy.GetOrganizationPath(ctx, office.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{hq.ID, branch.ID, office.ID}, path)

	descendants, err := h.hierarchy.GetAllDescendantIDs(ctx, hq.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{branch.ID, office.ID}, descendants)

	ancestors, err := h.hierarchy.GetAllAncestorIDs(ctx, office.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{branch.ID, hq.ID}, ancestors)

	require.Equal(t, []string{
		events.NameOrganizationCreated, events.NameOrganizationCreated, events.NameOrganizationCreated,
	}, h.published.names())
	require.Equal(t, 3, h.store.locks)
}

func TestCreateOrganization_Defaults(t *testing.T) {
	h := newHarness()
	org := h.create(t, tenant.None(), "  Headquarters ", " HQ ", nil)

	require.Equal(t, "Headquarters", org.Name)
	require.Equal(t, "HQ", org.Code)
	require.Equal(t, models.OrganizationStatusActive, org.Status)
	require.True(t, org.Active)
	require.Equal(t, int64(1), org.Version)
	require.True(t, org.IsRoot())
}

func TestCreateOrganization_PendingIsInactive(t *testing.T) {
	h := newHarness()
	org, err := h.orgs.CreateOrganization(context.Background(), tenant.None(), CreateOrganizationCommand{
		Name:   "Agency",
		Code:   "AG",
		Type:   models.OrganizationTypeAgent,
		Status: models.OrganizationStatusPending,
	})
	require.NoError(t, err)
	require.False(t, org.Active)
}

func TestCreateOrganization_Validation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	cases := map[string]CreateOrganizationCommand{
		"missing name":   {Code: "X", Type: models.OrganizationTypeBroker},
		"unknown type":   {Name: "X", Code: "X", Type: "SPACESHIP"},
		"initial status": {Name: "X", Code: "X", Type: models.OrganizationTypeBroker, Status: models.OrganizationStatusSuspended},
		"bad email":      {Name: "X", Code: "X", Type: models.OrganizationTypeBroker, Email: "not-an-email"},
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.orgs.CreateOrganization(ctx, tenant.None(), cmd)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	count, err := h.store.Organizations().Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCreateOrganization_DuplicateCode(t *testing.T) {
	h := newHarness()
	h.create(t, tenant.None(), "Headquarters", "HQ", nil)

	_, err := h.orgs.CreateOrganization(context.Background(), tenant.None(), CreateOrganizationCommand{
		Name: "Other", Code: "HQ", Type: models.OrganizationTypeBroker,
	})

	require.ErrorIs(t, err, apperrors.ErrDuplicateCode)
	count, _ := h.store.Organizations().Count(context.Background())
	require.Equal(t, int64(1), count)
}

func TestCreateOrganization_UnknownParent(t *testing.T) {
	h := newHarness()
	missing := uuid.New()

	_, err := h.orgs.CreateOrganization(context.Background(), tenant.None(), CreateOrganizationCommand{
		Name: "Orphan", Code: "ORPHAN", Type: models.OrganizationTypeBroker, ParentID: &missing,
	})

	require.ErrorIs(t, err, apperrors.ErrInvalidParent)
	require.Empty(t, h.store.entries())
}

func TestCreateOrganization_ParentOutsideTenant(t *testing.T) {
	h := newHarness()
	a := h.create(t, tenant.None(), "Group A", "A", nil)
	b := h.create(t, tenant.None(), "Group B", "B", nil)

	_, err := h.orgs.CreateOrganization(context.Background(), asTenant(a), CreateOrganizationCommand{
		Name: "Sneaky", Code: "SNEAKY", Type: models.OrganizationTypeBroker, ParentID: &b.ID,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)

	child, err := h.orgs.CreateOrganization(context.Background(), asTenant(a), CreateOrganizationCommand{
		Name: "Branch", Code: "A-BR", Type: models.OrganizationTypeBroker, ParentID: &a.ID,
	})
	require.NoError(t, err)
	require.Equal(t, a.ID, *child.ParentID)
	require.NotNil(t, child.CreatedBy)
}

func TestCreateOrganization_EdgeFailureRollsBackEverything(t *testing.T) {
	h := newHarness()
	hq := h.create(t, tenant.None(), "Headquarters", "HQ", nil)
	before := h.store.entries()
	h.published.events = nil

	h.store.failInsertEdge = errors.New("disk full")
	_, err := h.orgs.CreateOrganization(context.Background(), tenant.None(), CreateOrganizationCommand{
		Name: "Branch 1", Code: "BR1", Type: models.OrganizationTypeBroker, ParentID: &hq.ID,
	})

	require.EqualError(t, err, "disk full")
	count, _ := h.store.Organizations().Count(context.Background())
	require.Equal(t, int64(1), count)
	exists, _ := h.store.Organizations().ExistsByCode(context.Background(), "BR1")
	require.False(t, exists)
	require.Equal(t, before, h.store.entries())
	require.Empty(t, h.published.names())
}

func TestClosureMatchesParentPointersAfterRandomMoves(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	group := h.create(t, tenant.None(), "Group", "GROUP", nil)
	tc := asTenant(group)
	ids := []uuid.UUID{group.ID}
	for i := 0; i < 30; i++ {
		parent := ids[rng.Intn(len(ids))]
		org := h.create(t, tc, "Org", uuid.NewString(), &parent)
		ids = append(ids, org.ID)
	}
	h.requireConsistent(t)

	moves := 0
	for moves < 20 {
		node := ids[1+rng.Intn(len(ids)-1)]
		target := ids[rng.Intn(len(ids))]
		inside, _ := h.store.Hierarchy().IsAncestorOf(ctx, node, target)
		if inside || node == target {
			continue
		}
		current, err := h.store.Organizations().FindByID(ctx, node)
		require.NoError(t, err)

		_, err = h.orgs.UpdateOrganization(ctx, tc, UpdateOrganizationCommand{
			ID: node, Version: current.Version, ParentID: &target,
		})
		require.NoError(t, err)
		moves++
	}
	h.requireConsistent(t)

	for _, id := range ids {
		visible, err := h.hierarchy.GetVisibleOrganizationIDs(ctx, id)
		require.NoError(t, err)
		for _, v := range visible {
			ok, err := h.hierarchy.CanView(ctx, id, v)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
}

func TestUpdateOrganization_RequiresTenant(t *testing.T) {
	h := newHarness()
	hq := h.create(t, tenant.None(), "Headquarters", "HQ", nil)
	name := "Renamed"

	_, err := h.orgs.UpdateOrganization(context.Background(), tenant.None(), UpdateOrganizationCommand{
		ID: hq.ID, Version: hq.Version, Name: &name,
	})

	require.ErrorIs(t, err, apperrors.ErrTenantRequired)
}

func TestUpdateOrganization_FieldsAndVersion(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, _, _ := h.headquarters(t)
	name, country := "Head Office", "fr"

	updated, err := h.orgs.UpdateOrganization(ctx, asTenant(hq), UpdateOrganizationCommand{
		ID: hq.ID, Version: 1, Name: &name, Country: &country,
	})
	require.NoError(t, err)
	require.Equal(t, "Head Office", updated.Name)
	require.Equal(t, "FR", updated.Country)
	require.Equal(t, "HQ", updated.Code)
	require.Equal(t, int64(2), updated.Version)

	_, err = h.orgs.UpdateOrganization(ctx, asTenant(hq), UpdateOrganizationCommand{
		ID: hq.ID, Version: 1, Name: &name,
	})
	require.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
}

func TestUpdateOrganization_CodeClash(t *testing.T) {
	h := newHarness()
	hq, branch, _ := h.headquarters(t)
	code := "HQ"

	_, err := h.orgs.UpdateOrganization(context.Background(), asTenant(hq), UpdateOrganizationCommand{
		ID: branch.ID, Version: branch.Version, Code: &code,
	})

	require.ErrorIs(t, err, apperrors.ErrDuplicateCode)
}

func TestUpdateOrganization_InvisibleIsNotFound(t *testing.T) {
	h := newHarness()
	_, branch, _ := h.headquarters(t)
	other := h.create(t, tenant.None(), "Other", "OTHER", nil)
	name := "Hijacked"

	_, err := h.orgs.UpdateOrganization(context.Background(), asTenant(other), UpdateOrganizationCommand{
		ID: branch.ID, Version: branch.Version, Name: &name,
	})

	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateOrganization_Reparent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch1, office := h.headquarters(t)
	branch2 := h.create(t, tenant.None(), "Branch 2", "BR2", &hq.ID)

	moved, err := h.orgs.UpdateOrganization(ctx, asTenant(hq), UpdateOrganizationCommand{
		ID: branch1.ID, Version: branch1.Version, ParentID: &branch2.ID,
	})
	require.NoError(t, err)
	require.Equal(t, branch2.ID, *moved.ParentID)

	path, err := h.hierarchy.GetOrganizationPath(ctx, office.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{hq.ID, branch2.ID, branch1.ID, office.ID}, path)
	h.requireConsistent(t)

	ok, _ := h.hierarchy.IsAncestorOf(ctx, branch2.ID, office.ID)
	require.True(t, ok)

	moved, err = h.orgs.UpdateOrganization(ctx, asTenant(hq), UpdateOrganizationCommand{
		ID: branch1.ID, Version: moved.Version, MoveToRoot: true,
	})
	require.NoError(t, err)
	require.True(t, moved.IsRoot())
	path, err = h.hierarchy.GetOrganizationPath(ctx, office.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{branch1.ID, office.ID}, path)
	h.requireConsistent(t)
}

func TestUpdateOrganization_RejectsCycles(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch, office := h.headquarters(t)
	tc := asTenant(hq)

	_, err := h.orgs.UpdateOrganization(ctx, tc, UpdateOrganizationCommand{ID: branch.ID, Version: branch.Version, ParentID: &office.ID})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)

	_, err = h.orgs.UpdateOrganization(ctx, tc, UpdateOrganizationCommand{ID: branch.ID, Version: branch.Version, ParentID: &branch.ID})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)

	h.requireConsistent(t)
	current, _ := h.store.Organizations().FindByID(ctx, branch.ID)
	require.Equal(t, branch.Version, current.Version)
}

func TestUpdateOrganization_TenantCannotMoveItself(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch, office := h.headquarters(t)
	sibling := h.create(t, tenant.None(), "Branch 2", "BR2", &hq.ID)
	locks := h.store.locks

	_, err := h.orgs.UpdateOrganization(ctx, asTenant(branch), UpdateOrganizationCommand{
		ID: branch.ID, Version: branch.Version, MoveToRoot: true,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)

	_, err = h.orgs.UpdateOrganization(ctx, asTenant(hq), UpdateOrganizationCommand{
		ID: hq.ID, Version: hq.Version, ParentID: &sibling.ID,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)
	require.Equal(t, locks, h.store.locks)

	visible, err := h.hierarchy.GetVisibleOrganizationIDs(ctx, hq.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{hq.ID, branch.ID, office.ID, sibling.ID}, visible)

	found, err := h.orgs.GetOrganization(ctx, asTenant(hq), GetOrganizationQuery{ID: &branch.ID})
	require.NoError(t, err)
	require.Equal(t, hq.ID, *found.ParentID)

	// Moving a descendant stays allowed.
	moved, err := h.orgs.UpdateOrganization(ctx, asTenant(branch), UpdateOrganizationCommand{
		ID: office.ID, Version: office.Version, MoveToRoot: true,
	})
	require.NoError(t, err)
	require.True(t, moved.IsRoot())
	h.requireConsistent(t)
}

func TestGetOrganization(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch, _ := h.headquarters(t)
	other := h.create(t, tenant.None(), "Other", "OTHER", nil)

	got, err := h.orgs.GetOrganization(ctx, asTenant(hq), GetOrganizationQuery{Code: "BR1"})
	require.NoError(t, err)
	require.Equal(t, branch.ID, got.ID)

	_, err = h.orgs.GetOrganization(ctx, asTenant(other), GetOrganizationQuery{ID: &branch.ID})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err = h.orgs.GetOrganization(ctx, tenant.None(), GetOrganizationQuery{ID: &branch.ID})
	require.NoError(t, err)
	require.Equal(t, "BR1", got.Code)

	_, err = h.orgs.GetOrganization(ctx, tenant.None(), GetOrganizationQuery{})
	require.ErrorIs(t, err, apperrors.ErrInvalidQuery)

	missing := uuid.New()
	_, err = h.orgs.GetOrganization(ctx, tenant.None(), GetOrganizationQuery{ID: &missing})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func codesOf(orgs []models.Organization) []string {
	out := make([]string, len(orgs))
	for i, o := range orgs {
		out[i] = o.Code
	}
	return out
}

func TestListOrganizations_TenantIsolation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := h.create(t, tenant.None(), "Group A", "A", nil)
	h.create(t, tenant.None(), "A Branch", "A1", &a.ID)
	b := h.create(t, tenant.None(), "Group B", "B", nil)
	h.create(t, tenant.None(), "B Branch", "B1", &b.ID)

	page, err := h.orgs.ListOrganizations(ctx, asTenant(a), ListOrganizationsQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "A1"}, codesOf(page.Items))
	require.Equal(t, int64(2), page.Pagination.Total)

	page, err = h.orgs.ListOrganizations(ctx, asTenant(a), ListOrganizationsQuery{ExcludeDescendants: true})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, codesOf(page.Items))

	page, err = h.orgs.ListOrganizations(ctx, tenant.None(), ListOrganizationsQuery{RootsOnly: true})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, codesOf(page.Items))

	page, err = h.orgs.ListOrganizations(ctx, tenant.None(), ListOrganizationsQuery{SearchTerm: "branch", Limit: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"B1"}, codesOf(page.Items))
	require.Equal(t, int64(2), page.Pagination.Total)
	require.False(t, page.Pagination.HasNext)

	_, err = h.orgs.ListOrganizations(ctx, tenant.None(), ListOrganizationsQuery{Status: "SLEEPING"})
	require.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestListOrganizations_PrecomputedVisibleSet(t *testing.T) {
	h := newHarness()
	a := h.create(t, tenant.None(), "Group A", "A", nil)
	a1 := h.create(t, tenant.None(), "A Branch", "A1", &a.ID)

	tc := asTenant(a).WithVisibleSet([]uuid.UUID{a1.ID})
	page, err := h.orgs.ListOrganizations(context.Background(), tc, ListOrganizationsQuery{})

	require.NoError(t, err)
	require.Equal(t, []string{"A1"}, codesOf(page.Items))
}

func TestListOrganizations_SortFieldLeftToStore(t *testing.T) {
	h := newHarness()
	h.create(t, tenant.None(), "Headquarters", "HQ", nil)
	ctx := context.Background()

	_, err := h.orgs.ListOrganizations(ctx, tenant.None(), ListOrganizationsQuery{})
	require.NoError(t, err)
	require.Empty(t, h.store.lastFilter.SortField)
	require.Equal(t, 1, h.store.lastFilter.Page)
	require.Equal(t, query.DefaultLimit, h.store.lastFilter.Limit)

	_, err = h.orgs.ListOrganizations(ctx, tenant.None(), ListOrganizationsQuery{SortField: "code", SortOrder: "ASC"})
	require.NoError(t, err)
	require.Equal(t, "code", h.store.lastFilter.SortField)
	require.Equal(t, "asc", h.store.lastFilter.SortOrder)
}

func TestDeleteOrganization(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch, office := h.headquarters(t)
	tc := asTenant(hq)

	require.ErrorIs(t, h.orgs.DeleteOrganization(ctx, tenant.None(), office.ID), apperrors.ErrTenantRequired)
	require.ErrorIs(t, h.orgs.DeleteOrganization(ctx, tc, branch.ID), apperrors.ErrHasChildren)

	h.store.state.dependents[office.ID] = 2
	require.ErrorIs(t, h.orgs.DeleteOrganization(ctx, tc, office.ID), apperrors.ErrOrganizationInUse)
	delete(h.store.state.dependents, office.ID)

	h.published.events = nil
	require.NoError(t, h.orgs.DeleteOrganization(ctx, tc, office.ID))

	_, err := h.store.Organizations().FindByID(ctx, office.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	for _, e := range h.store.entries() {
		require.NotEqual(t, office.ID, e.AncestorID)
		require.NotEqual(t, office.ID, e.DescendantID)
	}
	h.requireConsistent(t)
	require.Equal(t, []string{events.NameOrganizationDeleted}, h.published.names())

	deleted := h.published.events[0].(events.OrganizationDeleted)
	require.Equal(t, branch.ID, *deleted.ParentID)

	require.ErrorIs(t, h.orgs.DeleteOrganization(ctx, tc, office.ID), apperrors.ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq := h.create(t, tenant.None(), "Headquarters", "HQ", nil)
	tc := asTenant(hq)
	h.published.events = nil

	org, err := h.orgs.Suspend(ctx, tc, hq.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrganizationStatusSuspended, org.Status)
	require.False(t, org.Active)

	org, err = h.orgs.Suspend(ctx, tc, hq.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrganizationStatusSuspended, org.Status)

	org, err = h.orgs.Activate(ctx, tc, hq.ID)
	require.NoError(t, err)
	require.True(t, org.Active)

	_, err = h.orgs.Archive(ctx, tc, hq.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	_, err = h.orgs.Deactivate(ctx, tc, hq.ID)
	require.NoError(t, err)
	org, err = h.orgs.Archive(ctx, tc, hq.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrganizationStatusArchived, org.Status)

	_, err = h.orgs.Activate(ctx, tc, hq.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	_, err = h.orgs.Activate(ctx, tenant.None(), hq.ID)
	require.ErrorIs(t, err, apperrors.ErrTenantRequired)

	require.Len(t, h.published.names(), 4)
	require.Equal(t, int64(5), org.Version)
}

func TestGetOrganizationHierarchy(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hq, branch1, office := h.headquarters(t)
	branch2 := h.create(t, tenant.None(), "Branch 2", "BR2", &hq.ID)

	tree, err := h.orgs.GetOrganizationHierarchy(ctx, asTenant(hq), hq.ID)
	require.NoError(t, err)

	require.Equal(t, hq.ID, tree.ID)
	require.Zero(t, tree.Level)
	require.Len(t, tree.Children, 2)
	require.Equal(t, branch1.ID, tree.Children[0].ID)
	require.Equal(t, branch2.ID, tree.Children[1].ID)
	require.Equal(t, 1, tree.Children[0].Level)
	require.Len(t, tree.Children[0].Children, 1)
	require.Equal(t, office.ID, tree.Children[0].Children[0].ID)
	require.Equal(t, 2, tree.Children[0].Children[0].Level)
	require.Empty(t, tree.Children[1].Children)

	_, err = h.orgs.GetOrganizationHierarchy(ctx, asTenant(branch2), hq.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
