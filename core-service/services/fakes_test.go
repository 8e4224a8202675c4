package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/events"
	"assurcore-backend/shared/hierarchy"
	"assurcore-backend/shared/repositories"
)

type pair struct {
	ancestor   uuid.UUID
	descendant uuid.UUID
}

type memoryState struct {
	orgs       map[uuid.UUID]models.Organization
	closure    map[pair]int
	dependents map[uuid.UUID]int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		orgs:       make(map[uuid.UUID]models.Organization, len(s.orgs)),
		closure:    make(map[pair]int, len(s.closure)),
		dependents: make(map[uuid.UUID]int64, len(s.dependents)),
	}
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.closure {
		c.closure[k] = v
	}
	for k, v := range s.dependents {
		c.dependents[k] = v
	}
	return c
}

// memoryStore is an in-memory UnitOfWork. WithTx restores the previous
// state when fn fails.
type memoryStore struct {
	state          *memoryState
	failInsertEdge error
	locks          int
	lastFilter     repositories.OrganizationFilter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: &memoryState{
		orgs:       map[uuid.UUID]models.Organization{},
		closure:    map[pair]int{},
		dependents: map[uuid.UUID]int64{},
	}}
}

func (m *memoryStore) Organizations() repositories.OrganizationRepository { return &memoryOrgs{m} }
func (m *memoryStore) Hierarchy() repositories.HierarchyRepository        { return &memoryIndex{m} }

func (m *memoryStore) WithTx(_ context.Context, fn func(stores repositories.StoreProvider) error) error {
	snapshot := m.state.clone()
	if err := fn(m); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) entries() []hierarchy.Entry {
	out := make([]hierarchy.Entry, 0, len(m.state.closure))
	for k, d := range m.state.closure {
		out = append(out, hierarchy.Entry{AncestorID: k.ancestor, DescendantID: k.descendant, Distance: d})
	}
	hierarchy.Sort(out)
	return out
}

type memoryOrgs struct{ m *memoryStore }

func (r *memoryOrgs) codeTaken(code string, except uuid.UUID) bool {
	for id, o := range r.m.state.orgs {
		if id != except && o.Code == code {
			return true
		}
	}
	return false
}

func (r *memoryOrgs) Save(_ context.Context, org *models.Organization) error {
	if r.codeTaken(org.Code, org.ID) {
		return apperrors.DuplicateCode(org.Code)
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
		org.Version = 1
		r.m.state.orgs[org.ID] = *org
		return nil
	}
	current, ok := r.m.state.orgs[org.ID]
	if !ok || current.Version != org.Version {
		return apperrors.ConcurrencyConflict("organization", org.ID)
	}
	org.Version++
	r.m.state.orgs[org.ID] = *org
	return nil
}

func (r *memoryOrgs) FindByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	o, ok := r.m.state.orgs[id]
	if !ok {
		return nil, apperrors.NotFound("organization", id)
	}
	return &o, nil
}

func (r *memoryOrgs) FindByCode(_ context.Context, code string) (*models.Organization, error) {
	for _, o := range r.m.state.orgs {
		if o.Code == code {
			found := o
			return &found, nil
		}
	}
	return nil, apperrors.NotFound("organization", code)
}

func (r *memoryOrgs) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Organization, error) {
	out := []models.Organization{}
	for _, id := range ids {
		if o, ok := r.m.state.orgs[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryOrgs) FindAll(_ context.Context, f repositories.OrganizationFilter) ([]models.Organization, int64, error) {
	r.m.lastFilter = f
	var out []models.Organization
	term := strings.ToLower(f.SearchTerm)
	for _, o := range r.m.state.orgs {
		switch {
		case !f.Visibility.Matches(o.ID):
		case f.Type != "" && o.Type != f.Type:
		case f.Status != "" && o.Status != f.Status:
		case f.ParentID != nil && (o.ParentID == nil || *o.ParentID != *f.ParentID):
		case f.RootsOnly && o.ParentID != nil:
		case term != "" && !strings.Contains(strings.ToLower(o.Name), term) && !strings.Contains(strings.ToLower(o.Code), term):
		default:
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	total := int64(len(out))
	if f.Limit > 0 {
		start := (f.Page - 1) * f.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r *memoryOrgs) FindAllNodes(context.Context) ([]hierarchy.Node, error) {
	nodes := make([]hierarchy.Node, 0, len(r.m.state.orgs))
	for _, o := range r.m.state.orgs {
		nodes = append(nodes, hierarchy.Node{ID: o.ID, ParentID: o.ParentID})
	}
	return nodes, nil
}

func (r *memoryOrgs) ExistsByCode(_ context.Context, code string) (bool, error) {
	return r.codeTaken(code, uuid.Nil), nil
}

func (r *memoryOrgs) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.m.state.orgs[id]
	return ok, nil
}

func (r *memoryOrgs) CountChildren(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, o := range r.m.state.orgs {
		if o.ParentID != nil && *o.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (r *memoryOrgs) CountDependents(_ context.Context, id uuid.UUID) (int64, error) {
	return r.m.state.dependents[id], nil
}

func (r *memoryOrgs) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.m.state.orgs[id]; !ok {
		return apperrors.NotFound("organization", id)
	}
	delete(r.m.state.orgs, id)
	return nil
}

func (r *memoryOrgs) Count(context.Context) (int64, error) {
	return int64(len(r.m.state.orgs)), nil
}

type memoryIndex struct{ m *memoryStore }

func (x *memoryIndex) closure() map[pair]int { return x.m.state.closure }

func (x *memoryIndex) Lock(context.Context) error {
	x.m.locks++
	return nil
}

func (x *memoryIndex) CreateSelfReference(_ context.Context, id uuid.UUID) error {
	x.closure()[pair{id, id}] = 0
	return nil
}

func (x *memoryIndex) put(k pair, d int) error {
	if existing, ok := x.closure()[k]; ok && existing != d {
		return apperrors.HierarchyInconsistent("pair %s/%s already has distance %d", k.ancestor, k.descendant, existing)
	}
	x.closure()[k] = d
	return nil
}

func (x *memoryIndex) requireSelfRow(id uuid.UUID) error {
	if d, ok := x.closure()[pair{id, id}]; !ok || d != 0 {
		return apperrors.HierarchyInconsistent("organization %s has no hierarchy self reference", id)
	}
	return nil
}

func (x *memoryIndex) InsertEdge(_ context.Context, parentID, childID uuid.UUID) error {
	if x.m.failInsertEdge != nil {
		return x.m.failInsertEdge
	}
	if err := x.requireSelfRow(parentID); err != nil {
		return err
	}
	for k, d := range x.snapshot() {
		if k.descendant == parentID {
			if err := x.put(pair{k.ancestor, childID}, d+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *memoryIndex) snapshot() map[pair]int {
	c := make(map[pair]int, len(x.closure()))
	for k, v := range x.closure() {
		c[k] = v
	}
	return c
}

func (x *memoryIndex) MoveSubtree(_ context.Context, nodeID uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID != nil {
		if _, inside := x.closure()[pair{nodeID, *newParentID}]; inside {
			return apperrors.InvalidParent("organization %s cannot be moved below itself", nodeID)
		}
		if err := x.requireSelfRow(*newParentID); err != nil {
			return err
		}
	}

	subtree := map[uuid.UUID]int{}
	for k, d := range x.closure() {
		if k.ancestor == nodeID {
			subtree[k.descendant] = d
		}
	}
	for k := range x.snapshot() {
		_, descInside := subtree[k.descendant]
		_, ancInside := subtree[k.ancestor]
		if descInside && !ancInside {
			delete(x.closure(), k)
		}
	}
	if newParentID == nil {
		return nil
	}

	for k, up := range x.snapshot() {
		if k.descendant != *newParentID {
			continue
		}
		for d, down := range subtree {
			if err := x.put(pair{k.ancestor, d}, up+down+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *memoryIndex) sortedIDs(match func(pair) bool, pick func(pair) uuid.UUID) []uuid.UUID {
	type row struct {
		id uuid.UUID
		d  int
	}
	var rows []row
	for k, d := range x.closure() {
		if d > 0 && match(k) {
			rows = append(rows, row{pick(k), d})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].d != rows[j].d {
			return rows[i].d < rows[j].d
		}
		return rows[i].id.String() < rows[j].id.String()
	})
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}

func (x *memoryIndex) FindAllDescendantIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return x.sortedIDs(func(k pair) bool { return k.ancestor == id }, func(k pair) uuid.UUID { return k.descendant }), nil
}

func (x *memoryIndex) FindAllAncestorIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return x.sortedIDs(func(k pair) bool { return k.descendant == id }, func(k pair) uuid.UUID { return k.ancestor }), nil
}

func (x *memoryIndex) FindAncestors(_ context.Context, id uuid.UUID) ([]models.OrganizationHierarchy, error) {
	var rows []models.OrganizationHierarchy
	for k, d := range x.closure() {
		if k.descendant == id && d > 0 {
			rows = append(rows, models.OrganizationHierarchy{AncestorID: k.ancestor, DescendantID: k.descendant, Distance: d})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Distance > rows[j].Distance })
	return rows, nil
}

func (x *memoryIndex) FindDescendants(_ context.Context, id uuid.UUID) ([]models.OrganizationHierarchy, error) {
	var rows []models.OrganizationHierarchy
	for k, d := range x.closure() {
		if k.ancestor == id {
			rows = append(rows, models.OrganizationHierarchy{AncestorID: k.ancestor, DescendantID: k.descendant, Distance: d})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	return rows, nil
}

func (x *memoryIndex) IsAncestorOf(_ context.Context, ancestorID, descendantID uuid.UUID) (bool, error) {
	d, ok := x.closure()[pair{ancestorID, descendantID}]
	return ok && d > 0, nil
}

func (x *memoryIndex) DeleteAllByOrganizationID(_ context.Context, id uuid.UUID) error {
	for k := range x.snapshot() {
		if k.ancestor == id || k.descendant == id {
			delete(x.closure(), k)
		}
	}
	return nil
}

func (x *memoryIndex) FindAll(context.Context) ([]hierarchy.Entry, error) {
	return x.m.entries(), nil
}

func (x *memoryIndex) ReplaceAll(_ context.Context, entries []hierarchy.Entry) error {
	x.m.state.closure = make(map[pair]int, len(entries))
	for _, e := range entries {
		x.m.state.closure[pair{e.AncestorID, e.DescendantID}] = e.Distance
	}
	return nil
}

type recordingPublisher struct {
	mutex  sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evts ...events.Event) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.events = append(p.events, evts...)
}

func (p *recordingPublisher) names() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name()
	}
	return out
}
