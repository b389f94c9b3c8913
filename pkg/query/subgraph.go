package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// SubgraphQuery extracts the neighborhood around a set of center nodes: the
// centers, everything reachable within Radius hops, and all edges whose
// endpoints both land in that node set.
type SubgraphQuery struct {
	Centers   []string         `json:"centers"`
	Radius    int              `json:"radius"`
	EdgeTypes []types.EdgeType `json:"edge_types,omitempty"`
	Direction types.Direction  `json:"direction,omitempty"`
	MaxNodes  int              `json:"max_nodes,omitempty"`
}

// Subgraph is the induced result, with nodes and edges sorted by id.
type Subgraph struct {
	Nodes     []*types.Node `json:"nodes"`
	Edges     []*types.Edge `json:"edges"`
	Truncated bool          `json:"truncated"`
}

// QuerySubgraph materializes the induced subgraph around the centers. When
// MaxNodes is hit, expansion stops and Truncated is set; nodes closer to a
// center always win over more distant ones.
func (e *Engine) QuerySubgraph(ctx context.Context, q SubgraphQuery) (*Subgraph, error) {
	snap := e.store.Snapshot()

	if q.Radius < 0 {
		return nil, fmt.Errorf("subgraph: negative radius: %w", types.ErrInvalidInput)
	}
	direction := q.Direction
	if direction == "" {
		direction = types.DirectionBoth
	}

	spec := TraversalSpec{
		Start:     q.Centers,
		MaxDepth:  q.Radius,
		EdgeTypes: q.EdgeTypes,
		Direction: direction,
		Unique:    UniquenessGlobal,
		Limit:     q.MaxNodes,
	}
	visits, err := traverseSnapshot(ctx, snap, spec)
	if err != nil {
		return nil, fmt.Errorf("subgraph: %w", err)
	}

	included := make(map[string]struct{}, len(visits))
	for _, v := range visits {
		included[v.NodeID] = struct{}{}
	}
	truncated := q.MaxNodes > 0 && len(included) >= q.MaxNodes

	out := &Subgraph{Truncated: truncated}
	nodeIDs := make([]string, 0, len(included))
	for id := range included {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)
	for _, id := range nodeIDs {
		out.Nodes = append(out.Nodes, snap.Node(id).Clone())
	}
	for _, id := range snap.EdgeIDs() {
		edge := snap.Edge(id)
		if _, ok := included[edge.Source]; !ok {
			continue
		}
		if _, ok := included[edge.Target]; !ok {
			continue
		}
		if !edgeTypeIn(edge.Type, q.EdgeTypes) {
			continue
		}
		out.Edges = append(out.Edges, edge.Clone())
	}
	return out, nil
}

func edgeTypeIn(t types.EdgeType, allowed []types.EdgeType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
