// Package memstore is an in-memory store.Store implementation used by the
// policy and poller packages' tests: a small real implementation rather
// than a mocking framework, sized up to the full store contract since the
// orchestrator and scheduler depend on the whole interface, not a slice of
// it.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/ids"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

type Store struct {
	mu sync.Mutex

	nodes     map[string]*model.Node
	links     map[string]*model.Link
	locations map[string]*model.Location
	statuses  map[string]*model.NodeStatus
	templates map[string]*model.TemplateMetadata
	assigns   map[string][]*model.TemplateAssignment
	polling   map[string]*store.PollingTaskRow
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nodes:     map[string]*model.Node{},
		links:     map[string]*model.Link{},
		locations: map[string]*model.Location{},
		statuses:  map[string]*model.NodeStatus{},
		templates: map[string]*model.TemplateMetadata{},
		assigns:   map[string][]*model.TemplateAssignment{},
		polling:   map[string]*store.PollingTaskRow{},
	}
}

// --- Transactor: memstore has no real transactions, so Begin/Commit/Rollback
// are no-ops and WithTx just runs fn with a nil token (auto-commit). Good
// enough for unit tests that exercise orchestration logic, not durability.

func (s *Store) Begin(ctx context.Context) (*store.Tx, error)     { return nil, nil }
func (s *Store) Commit(ctx context.Context, tx *store.Tx) error   { return nil }
func (s *Store) Rollback(ctx context.Context, tx *store.Tx) error { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) error {
	return fn(ctx, nil)
}

func (s *Store) Migrate(ctx context.Context) error                     { return nil }
func (s *Store) AppliedVersions(ctx context.Context) ([]string, error) { return nil, nil }

func (s *Store) CreateNode(ctx context.Context, tx *store.Tx, n *model.Node) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verrs := n.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, "memstore.node.create", verrs.Error())
	}
	for _, existing := range s.nodes {
		if existing.Name == n.Name && existing.Domain == n.Domain {
			return nil, errs.New(errs.KindAlreadyExists, "memstore.node.create", "name+domain already exists")
		}
	}
	if n.ID == "" {
		n.ID = ids.New(ids.KindNode)
	}
	cp := *n
	s.nodes[cp.ID] = &cp
	return &cp, nil
}

func (s *Store) GetNode(ctx context.Context, tx *store.Tx, id string) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.node.get", "not found").With("node_id", id)
	}
	cp := *n
	return &cp, nil
}

func (s *Store) GetNodeByName(ctx context.Context, tx *store.Tx, name, domain string) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.Name == name && n.Domain == domain {
			cp := *n
			return &cp, nil
		}
	}
	return nil, errs.New(errs.KindNotFound, "memstore.node.get_by_name", "not found")
}

func (s *Store) UpdateNode(ctx context.Context, tx *store.Tx, n *model.Node) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.nodes[n.ID]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.node.update", "not found").With("node_id", n.ID)
	}
	if existing.Version != n.Version {
		return nil, errs.New(errs.KindConflict, "memstore.node.update", "version conflict").With("node_id", n.ID)
	}
	if verrs := n.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, "memstore.node.update", verrs.Error())
	}
	cp := *n
	cp.Version++
	s.nodes[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) DeleteNode(ctx context.Context, tx *store.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return errs.New(errs.KindNotFound, "memstore.node.delete", "not found")
	}
	delete(s.nodes, id)
	return nil
}

func (s *Store) ListNodes(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.Node], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		cp := *s.nodes[id]
		items = append(items, &cp)
	}
	return applyList(items, nodeFields, opts)
}

func (s *Store) BatchUpsertNodes(ctx context.Context, tx *store.Tx, nodes []*model.Node) ([]*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Node
	for _, n := range nodes {
		if n.ID == "" {
			n.ID = ids.New(ids.KindNode)
		}
		cp := *n
		s.nodes[cp.ID] = &cp
		item := cp
		out = append(out, &item)
	}
	return out, nil
}

// BatchDeleteNodes is all-or-nothing: the ids are checked up front and the
// map is only mutated once every one of them is known to exist.
func (s *Store) BatchDeleteNodes(ctx context.Context, tx *store.Tx, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return errs.New(errs.KindNotFound, "memstore.node.batch_delete", "not found").With("node_id", id)
		}
	}
	for _, id := range ids {
		delete(s.nodes, id)
	}
	return nil
}

func (s *Store) CreateLink(ctx context.Context, tx *store.Tx, l *model.Link) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verrs := l.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, "memstore.link.create", verrs.Error())
	}
	if _, ok := s.nodes[l.EndpointA.NodeID]; !ok {
		return nil, errs.New(errs.KindReferentialIntegrity, "memstore.link.create", "node_a_id does not exist").With("node_id", l.EndpointA.NodeID)
	}
	if l.HasEndpointZ() {
		if _, ok := s.nodes[l.EndpointZ.NodeID]; !ok {
			return nil, errs.New(errs.KindReferentialIntegrity, "memstore.link.create", "node_z_id does not exist").With("node_id", l.EndpointZ.NodeID)
		}
	}
	for _, existing := range s.links {
		if existing.EndpointA == l.EndpointA {
			return nil, errs.New(errs.KindAlreadyExists, "memstore.link.create", "node_a_id+interface_a already exists")
		}
	}
	if l.ID == "" {
		l.ID = ids.New(ids.KindLink)
	}
	cp := *l
	s.links[cp.ID] = &cp
	return &cp, nil
}

func (s *Store) GetLink(ctx context.Context, tx *store.Tx, id string) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.link.get", "not found")
	}
	cp := *l
	return &cp, nil
}

func (s *Store) UpdateLink(ctx context.Context, tx *store.Tx, l *model.Link) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[l.ID]; !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.link.update", "not found")
	}
	cp := *l
	cp.Version++
	s.links[cp.ID] = &cp
	return &cp, nil
}

func (s *Store) DeleteLink(ctx context.Context, tx *store.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, id)
	return nil
}

func (s *Store) ListLinks(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.Link], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.links))
	for id := range s.links {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]*model.Link, 0, len(ids))
	for _, id := range ids {
		cp := *s.links[id]
		items = append(items, &cp)
	}
	return applyList(items, linkFields, opts)
}

func (s *Store) CreateLocation(ctx context.Context, tx *store.Tx, l *model.Location) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verrs := l.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, "memstore.location.create", verrs.Error())
	}
	for _, existing := range s.locations {
		if existing.ParentID == l.ParentID && existing.Name == l.Name {
			return nil, errs.New(errs.KindAlreadyExists, "memstore.location.create", "sibling name already exists")
		}
	}
	if l.ID == "" {
		l.ID = ids.New(ids.KindLocation)
	}
	if err := s.checkNoCycleLocked(l.ID, l.ParentID); err != nil {
		return nil, err
	}
	cp := *l
	s.locations[cp.ID] = &cp
	return &cp, nil
}

// checkNoCycleLocked walks ancestors from candidateParentID and rejects the
// write if it ever reaches locationID. Caller holds s.mu.
func (s *Store) checkNoCycleLocked(locationID, candidateParentID string) error {
	const op = "memstore.location.cycle_check"
	cur := candidateParentID
	for cur != "" {
		if cur == locationID {
			return errs.New(errs.KindValidation, op, "parent assignment would introduce a cycle").With("location_id", locationID)
		}
		parent, ok := s.locations[cur]
		if !ok {
			return errs.New(errs.KindReferentialIntegrity, op, "parent_id does not exist").With("location_id", cur)
		}
		cur = parent.ParentID
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, tx *store.Tx, id string) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.location.get", "not found")
	}
	cp := *l
	return &cp, nil
}

func (s *Store) UpdateLocation(ctx context.Context, tx *store.Tx, l *model.Location) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[l.ID]; !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.location.update", "not found")
	}
	if err := s.checkNoCycleLocked(l.ID, l.ParentID); err != nil {
		return nil, err
	}
	cp := *l
	cp.Version++
	s.locations[cp.ID] = &cp
	return &cp, nil
}

func (s *Store) DeleteLocation(ctx context.Context, tx *store.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, id)
	return nil
}

func (s *Store) ListLocations(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.Location], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.locations))
	for id := range s.locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]*model.Location, 0, len(ids))
	for _, id := range ids {
		cp := *s.locations[id]
		items = append(items, &cp)
	}
	return applyList(items, locationFields, opts)
}

func (s *Store) AncestorChain(ctx context.Context, tx *store.Tx, locationID string) ([]*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chain []*model.Location
	cur := locationID
	seen := map[string]bool{}
	for cur != "" {
		if seen[cur] {
			return nil, errs.New(errs.KindInternal, "memstore.location.ancestor_chain", "cycle detected")
		}
		seen[cur] = true
		loc, ok := s.locations[cur]
		if !ok {
			return nil, errs.New(errs.KindNotFound, "memstore.location.ancestor_chain", "not found")
		}
		cp := *loc
		chain = append([]*model.Location{&cp}, chain...)
		cur = loc.ParentID
	}
	return chain, nil
}

func (s *Store) PutNodeStatus(ctx context.Context, tx *store.Tx, st *model.NodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.statuses[st.NodeID]
	next := *st
	if existing != nil {
		next.Version = existing.Version + 1
	} else {
		next.Version = 1
	}
	s.statuses[st.NodeID] = &next
	st.Version = next.Version
	return nil
}

func (s *Store) GetNodeStatus(ctx context.Context, tx *store.Tx, nodeID string) (*model.NodeStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[nodeID]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.derived.get", "not found").With("node_id", nodeID)
	}
	cp := *st
	return &cp, nil
}

func (s *Store) DeleteNodeStatus(ctx context.Context, tx *store.Tx, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, nodeID)
	return nil
}

func (s *Store) DerivedVersion(ctx context.Context, tx *store.Tx, nodeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[nodeID]
	if !ok {
		return 0, nil
	}
	return st.Version, nil
}

func (s *Store) PutTemplate(ctx context.Context, tx *store.Tx, t *model.TemplateMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New(ids.KindTemplate)
	}
	cp := *t
	s.templates[cp.ID] = &cp
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, tx *store.Tx, id string) (*model.TemplateMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.template.get", "not found")
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTemplates(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.TemplateMetadata], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]*model.TemplateMetadata, 0, len(ids))
	for _, id := range ids {
		cp := *s.templates[id]
		items = append(items, &cp)
	}
	return applyList(items, templateFields, opts)
}

func (s *Store) AssignTemplate(ctx context.Context, tx *store.Tx, a *model.TemplateAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigns[a.NodeID] = append(s.assigns[a.NodeID], a)
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, tx *store.Tx, nodeID string) ([]*model.TemplateAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assigns[nodeID], nil
}

func (s *Store) UpsertPollingTask(ctx context.Context, tx *store.Tx, task *store.PollingTaskRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.polling[cp.NodeID] = &cp
	return nil
}

func (s *Store) GetPollingTask(ctx context.Context, tx *store.Tx, nodeID string) (*store.PollingTaskRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.polling[nodeID]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "memstore.polling_task.get", "not found")
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListDuePollingTasks(ctx context.Context, tx *store.Tx, beforeMS int64, limit int) ([]*store.PollingTaskRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.PollingTaskRow
	for _, t := range s.polling {
		if t.NextDueAtMS <= beforeMS {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDueAtMS < out[j].NextDueAtMS })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeletePollingTask(ctx context.Context, tx *store.Tx, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.polling, nodeID)
	return nil
}
