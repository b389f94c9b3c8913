package graph

import (
	"sort"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Snapshot is an immutable view of the graph's nodes and edges, pinned at a
// point in time. Long-running consumers (analytics, temporal diffs, path
// queries) operate on a snapshot so concurrent writes can never tear their
// input. Accessors return internal pointers; treat everything as read-only.
type Snapshot struct {
	At         time.Time
	Generation uint64

	nodes map[string]*types.Node
	edges map[string]*types.Edge

	outgoing map[string][]string
	incoming map[string][]string

	nodeIDs []string
	edgeIDs []string
}

// Step is one hop taken from a node: the edge followed and the node reached.
type Step struct {
	Edge *types.Edge
	Node string
}

// Snapshot pins the store's current state. Nodes and edges are deep-copied
// under the read lock; subsequent store mutations cannot affect the result.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*types.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n.Clone())
	}
	edges := make([]*types.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e.Clone())
	}

	snap := BuildSnapshot(s.clock(), nodes, edges)
	snap.Generation = s.generation
	return snap
}

// BuildSnapshot assembles a snapshot from already-copied nodes and edges.
// The temporal engine uses it to materialize historical views from the
// journal. Edges whose endpoints are not in the node set are dropped; a
// snapshot never contains dangling edges.
func BuildSnapshot(at time.Time, nodes []*types.Node, edges []*types.Edge) *Snapshot {
	snap := &Snapshot{
		At:       at,
		nodes:    make(map[string]*types.Node, len(nodes)),
		edges:    make(map[string]*types.Edge, len(edges)),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}

	for _, n := range nodes {
		snap.nodes[n.ID] = n
		snap.nodeIDs = append(snap.nodeIDs, n.ID)
	}
	for _, e := range edges {
		if _, ok := snap.nodes[e.Source]; !ok {
			continue
		}
		if _, ok := snap.nodes[e.Target]; !ok {
			continue
		}
		snap.edges[e.ID] = e
		snap.edgeIDs = append(snap.edgeIDs, e.ID)
		snap.outgoing[e.Source] = append(snap.outgoing[e.Source], e.ID)
		snap.incoming[e.Target] = append(snap.incoming[e.Target], e.ID)
	}

	sort.Strings(snap.nodeIDs)
	sort.Strings(snap.edgeIDs)
	for _, ids := range snap.outgoing {
		sort.Strings(ids)
	}
	for _, ids := range snap.incoming {
		sort.Strings(ids)
	}

	return snap
}

// Node returns the node with the given id, or nil.
func (s *Snapshot) Node(id string) *types.Node { return s.nodes[id] }

// Edge returns the edge with the given id, or nil.
func (s *Snapshot) Edge(id string) *types.Edge { return s.edges[id] }

// HasNode reports whether the snapshot contains the node id.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// NodeIDs returns all node ids in sorted order. Read-only.
func (s *Snapshot) NodeIDs() []string { return s.nodeIDs }

// EdgeIDs returns all edge ids in sorted order. Read-only.
func (s *Snapshot) EdgeIDs() []string { return s.edgeIDs }

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// Nodes returns all nodes in id order.
func (s *Snapshot) Nodes() []*types.Node {
	out := make([]*types.Node, 0, len(s.nodeIDs))
	for _, id := range s.nodeIDs {
		out = append(out, s.nodes[id])
	}
	return out
}

// Edges returns all edges in id order.
func (s *Snapshot) Edges() []*types.Edge {
	out := make([]*types.Edge, 0, len(s.edgeIDs))
	for _, id := range s.edgeIDs {
		out = append(out, s.edges[id])
	}
	return out
}

// Steps returns the hops available from a node in the given direction,
// filtered by edge type, ordered by edge id for determinism. A bidirectional
// edge is traversable from either endpoint regardless of direction.
func (s *Snapshot) Steps(nodeID string, direction types.Direction, edgeTypes []types.EdgeType) []Step {
	var typeFilter map[types.EdgeType]struct{}
	if len(edgeTypes) > 0 {
		typeFilter = make(map[types.EdgeType]struct{}, len(edgeTypes))
		for _, t := range edgeTypes {
			typeFilter[t] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var steps []Step
	appendStep := func(edgeID string, next string) {
		if _, dup := seen[edgeID]; dup {
			return
		}
		edge := s.edges[edgeID]
		if typeFilter != nil {
			if _, ok := typeFilter[edge.Type]; !ok {
				return
			}
		}
		seen[edgeID] = struct{}{}
		steps = append(steps, Step{Edge: edge, Node: next})
	}

	forward := direction == types.DirectionOutgoing || direction == types.DirectionBoth
	backward := direction == types.DirectionIncoming || direction == types.DirectionBoth

	if forward {
		for _, edgeID := range s.outgoing[nodeID] {
			appendStep(edgeID, s.edges[edgeID].Target)
		}
	}
	if backward {
		for _, edgeID := range s.incoming[nodeID] {
			appendStep(edgeID, s.edges[edgeID].Source)
		}
	}
	// Bidirectional edges are reachable against their stored direction.
	if forward && !backward {
		for _, edgeID := range s.incoming[nodeID] {
			if s.edges[edgeID].Bidirectional {
				appendStep(edgeID, s.edges[edgeID].Source)
			}
		}
	}
	if backward && !forward {
		for _, edgeID := range s.outgoing[nodeID] {
			if s.edges[edgeID].Bidirectional {
				appendStep(edgeID, s.edges[edgeID].Target)
			}
		}
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Edge.ID < steps[j].Edge.ID })
	return steps
}

// NeighborIDs returns the distinct ids of nodes one hop away, sorted.
func (s *Snapshot) NeighborIDs(nodeID string, direction types.Direction) []string {
	seen := make(map[string]struct{})
	for _, step := range s.Steps(nodeID, direction, nil) {
		if step.Node != nodeID {
			seen[step.Node] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Degree returns the in, out, and total degree of a node. Bidirectional
// edges count toward both directions; self-loops count once per side they
// touch.
func (s *Snapshot) Degree(nodeID string) (in, out, total int) {
	for _, edgeID := range s.outgoing[nodeID] {
		out++
		if s.edges[edgeID].Bidirectional {
			in++
		}
	}
	for _, edgeID := range s.incoming[nodeID] {
		in++
		if s.edges[edgeID].Bidirectional {
			out++
		}
	}
	total = len(s.outgoing[nodeID]) + len(s.incoming[nodeID])
	return in, out, total
}
