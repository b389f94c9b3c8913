package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Observer receives synchronous notifications for every store mutation,
// inside the store's exclusive section. Secondary indexes implement this so
// they can never lag behind the store. Payloads are the store's own copies;
// observers must not mutate or retain them past the call.
type Observer interface {
	NodeAdded(n *types.Node)
	NodeUpdated(old, updated *types.Node)
	NodeRemoved(n *types.Node)
	EdgeAdded(e *types.Edge)
	EdgeUpdated(old, updated *types.Edge)
	EdgeRemoved(e *types.Edge)
}

// Store owns the graph's nodes, edges, and adjacency index under a
// single-writer, multiple-reader discipline. All returned entities are deep
// copies; the only way to share state with a reader is through a pinned
// Snapshot.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*types.Node
	edges map[string]*types.Edge

	// Adjacency: node id -> incident edge ids, split by direction.
	outgoing map[string]map[string]struct{}
	incoming map[string]map[string]struct{}

	byNodeType map[types.NodeType]map[string]struct{}
	byEdgeType map[types.EdgeType]map[string]struct{}

	journal []Event
	seq     uint64

	// generation increments on every mutation; derived-metadata caches key
	// off it for lazy invalidation.
	generation uint64

	observers        []Observer
	journalObservers []JournalObserver
	clock            func() time.Time
	logger           *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source. Tests use this to make
// timestamps and journal events deterministic.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:      make(map[string]*types.Node),
		edges:      make(map[string]*types.Edge),
		outgoing:   make(map[string]map[string]struct{}),
		incoming:   make(map[string]map[string]struct{}),
		byNodeType: make(map[types.NodeType]map[string]struct{}),
		byEdgeType: make(map[types.EdgeType]map[string]struct{}),
		clock:      func() time.Time { return time.Now().UTC() },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterObserver attaches an observer to all future mutations.
func (s *Store) RegisterObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// RegisterJournalObserver attaches an observer to all future journal
// appends.
func (s *Store) RegisterJournalObserver(o JournalObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journalObservers = append(s.journalObservers, o)
}

// AddNode inserts a new node. A missing id is assigned a generated UUID. It
// fails with types.ErrDuplicateID if the id already exists. The caller's
// struct is not retained; the stored copy is returned.
func (s *Store) AddNode(ctx context.Context, node *types.Node) (*types.Node, error) {
	if node == nil {
		return nil, fmt.Errorf("add node: %w", types.ErrNotFound)
	}
	stored := node.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("add node %q: %w", stored.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[stored.ID]; exists {
		return nil, fmt.Errorf("add node %q: %w", stored.ID, types.ErrDuplicateID)
	}

	now := s.clock()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.Version = 1

	s.nodes[stored.ID] = stored
	typeSet(s.byNodeType, stored.Type)[stored.ID] = struct{}{}
	s.appendEvent(Event{Kind: EventNodeAdded, Time: stored.CreatedAt, Node: stored.Clone()})
	for _, o := range s.observers {
		o.NodeAdded(stored)
	}
	s.logger.Debug("node added", "id", stored.ID, "type", stored.Type)

	return stored.Clone(), nil
}

// GetNode returns a copy of the node with the given id.
func (s *Store) GetNode(ctx context.Context, id string) (*types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, types.ErrNotFound)
	}
	return node.Clone(), nil
}

// UpdateNode applies a partial patch to an existing node. The patch is
// applied atomically: concurrent readers observe either the old or the new
// state, never a mix. Type and CreatedAt are immutable. Fails with
// types.ErrConflict when the patch carries a stale expected version.
func (s *Store) UpdateNode(ctx context.Context, id string, patch types.NodePatch) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("update node %q: %w", id, types.ErrNotFound)
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
		return nil, fmt.Errorf("update node %q: have version %d, expected %d: %w",
			id, current.Version, *patch.ExpectedVersion, types.ErrConflict)
	}

	updated := current.Clone()
	applyNodePatch(updated, patch)
	updated.UpdatedAt = s.clock()
	updated.Version = current.Version + 1

	s.nodes[id] = updated
	s.appendEvent(Event{Kind: EventNodeUpdated, Time: updated.UpdatedAt, Node: updated.Clone()})
	for _, o := range s.observers {
		o.NodeUpdated(current, updated)
	}

	return updated.Clone(), nil
}

// DeleteNode removes a node. Without cascade it fails with
// types.ErrHasDependentEdges while incident edges exist; with cascade the
// incident edges are removed first, in the same exclusive section, so no
// reader can ever observe a dangling edge.
func (s *Store) DeleteNode(ctx context.Context, id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("delete node %q: %w", id, types.ErrNotFound)
	}

	incident := s.incidentEdgeIDsLocked(id)
	if len(incident) > 0 && !cascade {
		return fmt.Errorf("delete node %q: %d incident edges: %w",
			id, len(incident), types.ErrHasDependentEdges)
	}

	now := s.clock()
	for _, edgeID := range incident {
		s.removeEdgeLocked(s.edges[edgeID], now)
	}

	delete(s.nodes, id)
	delete(typeSet(s.byNodeType, node.Type), id)
	s.appendEvent(Event{Kind: EventNodeRemoved, Time: now, Node: node.Clone()})
	for _, o := range s.observers {
		o.NodeRemoved(node)
	}
	s.logger.Debug("node deleted", "id", id, "cascaded_edges", len(incident))

	return nil
}

// AddEdge inserts a new edge between two existing nodes. A missing id gets a
// generated UUID; a zero weight defaults to 1, so a genuinely zero-weight
// edge must be set via UpdateEdge after creation. Fails with
// types.ErrUnknownNode if either endpoint is absent.
func (s *Store) AddEdge(ctx context.Context, edge *types.Edge) (*types.Edge, error) {
	if edge == nil {
		return nil, fmt.Errorf("add edge: %w", types.ErrNotFound)
	}
	stored := edge.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Weight == 0 {
		stored.Weight = 1
	}
	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("add edge %q: %w", stored.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.edges[stored.ID]; exists {
		return nil, fmt.Errorf("add edge %q: %w", stored.ID, types.ErrDuplicateID)
	}
	if _, ok := s.nodes[stored.Source]; !ok {
		return nil, fmt.Errorf("add edge %q: source %q: %w", stored.ID, stored.Source, types.ErrUnknownNode)
	}
	if _, ok := s.nodes[stored.Target]; !ok {
		return nil, fmt.Errorf("add edge %q: target %q: %w", stored.ID, stored.Target, types.ErrUnknownNode)
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.Version = 1

	s.edges[stored.ID] = stored
	s.adjSet(s.outgoing, stored.Source)[stored.ID] = struct{}{}
	s.adjSet(s.incoming, stored.Target)[stored.ID] = struct{}{}
	typeSet(s.byEdgeType, stored.Type)[stored.ID] = struct{}{}
	s.appendEvent(Event{Kind: EventEdgeAdded, Time: stored.CreatedAt, Edge: stored.Clone()})
	for _, o := range s.observers {
		o.EdgeAdded(stored)
	}

	return stored.Clone(), nil
}

// GetEdge returns a copy of the edge with the given id.
func (s *Store) GetEdge(ctx context.Context, id string) (*types.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[id]
	if !ok {
		return nil, fmt.Errorf("edge %q: %w", id, types.ErrNotFound)
	}
	return edge.Clone(), nil
}

// UpdateEdge applies a partial patch to an existing edge. Type, Source, and
// Target are immutable.
func (s *Store) UpdateEdge(ctx context.Context, id string, patch types.EdgePatch) (*types.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.edges[id]
	if !ok {
		return nil, fmt.Errorf("update edge %q: %w", id, types.ErrNotFound)
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
		return nil, fmt.Errorf("update edge %q: have version %d, expected %d: %w",
			id, current.Version, *patch.ExpectedVersion, types.ErrConflict)
	}

	updated := current.Clone()
	if err := applyEdgePatch(updated, patch); err != nil {
		return nil, fmt.Errorf("update edge %q: %w", id, err)
	}
	updated.UpdatedAt = s.clock()
	updated.Version = current.Version + 1

	s.edges[id] = updated
	s.appendEvent(Event{Kind: EventEdgeUpdated, Time: updated.UpdatedAt, Edge: updated.Clone()})
	for _, o := range s.observers {
		o.EdgeUpdated(current, updated)
	}

	return updated.Clone(), nil
}

// DeleteEdge removes an edge.
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[id]
	if !ok {
		return fmt.Errorf("delete edge %q: %w", id, types.ErrNotFound)
	}
	s.removeEdgeLocked(edge, s.clock())
	return nil
}

// NodeCount returns the number of live nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of live edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Generation returns the mutation counter. Derived-metadata caches compare
// generations to decide whether a lazy recomputation is due.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Events returns a copy of the mutation journal. Entries are immutable once
// appended.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.journal))
	copy(out, s.journal)
	return out
}

// --- internal, all called with s.mu held for writing ---

func (s *Store) appendEvent(ev Event) {
	s.seq++
	s.generation++
	ev.Seq = s.seq
	if ev.Time.IsZero() {
		ev.Time = s.clock()
	}
	s.journal = append(s.journal, ev)
	for _, o := range s.journalObservers {
		o.EventAppended(ev)
	}
}

func (s *Store) removeEdgeLocked(edge *types.Edge, now time.Time) {
	delete(s.edges, edge.ID)
	delete(s.adjSet(s.outgoing, edge.Source), edge.ID)
	delete(s.adjSet(s.incoming, edge.Target), edge.ID)
	delete(typeSet(s.byEdgeType, edge.Type), edge.ID)
	s.appendEvent(Event{Kind: EventEdgeRemoved, Time: now, Edge: edge.Clone()})
	for _, o := range s.observers {
		o.EdgeRemoved(edge)
	}
}

func (s *Store) incidentEdgeIDsLocked(nodeID string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for edgeID := range s.outgoing[nodeID] {
		if _, dup := seen[edgeID]; !dup {
			seen[edgeID] = struct{}{}
			ids = append(ids, edgeID)
		}
	}
	for edgeID := range s.incoming[nodeID] {
		if _, dup := seen[edgeID]; !dup {
			seen[edgeID] = struct{}{}
			ids = append(ids, edgeID)
		}
	}
	return ids
}

func (s *Store) adjSet(index map[string]map[string]struct{}, nodeID string) map[string]struct{} {
	set, ok := index[nodeID]
	if !ok {
		set = make(map[string]struct{})
		index[nodeID] = set
	}
	return set
}

func typeSet[K comparable](index map[K]map[string]struct{}, key K) map[string]struct{} {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	return set
}

func applyNodePatch(node *types.Node, patch types.NodePatch) {
	if patch.Label != nil {
		node.Label = *patch.Label
	}
	if len(patch.Set) > 0 && node.Properties == nil {
		node.Properties = make(map[string]types.PropertyValue, len(patch.Set))
	}
	for k, v := range patch.Set {
		node.Properties[k] = v.Clone()
	}
	for _, k := range patch.Unset {
		delete(node.Properties, k)
	}
	if patch.Embedding != nil {
		node.Embedding = patch.Embedding.Clone()
	}
	if patch.Importance != nil {
		node.Importance = *patch.Importance
	}
	if patch.FirstActivity != nil {
		node.FirstActivity = copyTime(*patch.FirstActivity)
	}
	if patch.LastActivity != nil {
		node.LastActivity = copyTime(*patch.LastActivity)
	}
	if patch.PeakActivity != nil {
		node.PeakActivity = copyTime(*patch.PeakActivity)
	}
}

func copyTime(t time.Time) *time.Time { return &t }

func applyEdgePatch(edge *types.Edge, patch types.EdgePatch) error {
	if patch.Weight != nil {
		if *patch.Weight < 0 {
			return types.ErrInvalidWeight
		}
		edge.Weight = *patch.Weight
	}
	if patch.Strength != nil {
		if *patch.Strength < 0 || *patch.Strength > 1 {
			return types.ErrInvalidScore
		}
		edge.Strength = *patch.Strength
	}
	if patch.Confidence != nil {
		if *patch.Confidence < 0 || *patch.Confidence > 1 {
			return types.ErrInvalidScore
		}
		edge.Confidence = *patch.Confidence
	}
	// Evidence is a set: re-adding a known reference keeps patches idempotent.
	for _, ref := range patch.AddEvidence {
		known := false
		for _, existing := range edge.Evidence {
			if existing == ref {
				known = true
				break
			}
		}
		if !known {
			edge.Evidence = append(edge.Evidence, ref)
		}
	}
	if patch.StartDate != nil {
		edge.StartDate = copyTime(*patch.StartDate)
	}
	if patch.EndDate != nil {
		edge.EndDate = copyTime(*patch.EndDate)
	}
	if patch.Occur != nil {
		edge.Occurrences++
		edge.LastOccurrence = copyTime(*patch.Occur)
	}
	if patch.Bidirectional != nil {
		edge.Bidirectional = *patch.Bidirectional
	}
	if patch.Primary != nil {
		edge.Primary = *patch.Primary
	}
	if len(patch.Set) > 0 && edge.Properties == nil {
		edge.Properties = make(map[string]types.PropertyValue, len(patch.Set))
	}
	for k, v := range patch.Set {
		edge.Properties[k] = v.Clone()
	}
	for _, k := range patch.Unset {
		delete(edge.Properties, k)
	}
	return nil
}
