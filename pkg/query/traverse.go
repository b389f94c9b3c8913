package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Uniqueness controls how often a node may be visited during traversal.
type Uniqueness string

const (
	// UniquenessGlobal visits each node at most once across the whole
	// traversal.
	UniquenessGlobal Uniqueness = "global"
	// UniquenessNode is an alias for UniquenessGlobal.
	UniquenessNode Uniqueness = "node"
	// UniquenessPath allows revisits as long as the node does not already
	// appear on the current path.
	UniquenessPath Uniqueness = "path"
	// UniquenessNone places no restriction; the depth bound is the only
	// thing stopping the walk.
	UniquenessNone Uniqueness = "none"
)

// TraversalSpec describes a breadth-first expansion from a set of start
// nodes.
type TraversalSpec struct {
	Start     []string         `json:"start"`
	MaxDepth  int              `json:"max_depth"`
	EdgeTypes []types.EdgeType `json:"edge_types,omitempty"`
	Direction types.Direction  `json:"direction,omitempty"`
	NodeTypes []types.NodeType `json:"node_types,omitempty"`
	Unique    Uniqueness       `json:"uniqueness,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}

// Visit is one node reached by a traversal, with the hop count and the
// edge it arrived through. Start nodes have depth 0 and no via edge.
type Visit struct {
	NodeID string `json:"node_id"`
	Depth  int    `json:"depth"`
	Via    string `json:"via,omitempty"`
}

// Traverse expands breadth first from the start set. Visits are reported
// in discovery order; nodes at the same depth are expanded in edge-id
// order so the output is stable.
func (e *Engine) Traverse(ctx context.Context, spec TraversalSpec) ([]Visit, error) {
	snap := e.store.Snapshot()
	return traverseSnapshot(ctx, snap, spec)
}

type frontierEntry struct {
	node   string
	depth  int
	via    string
	onPath map[string]struct{}
}

func traverseSnapshot(ctx context.Context, snap *graph.Snapshot, spec TraversalSpec) ([]Visit, error) {
	if len(spec.Start) == 0 {
		return nil, fmt.Errorf("traverse: no start nodes: %w", types.ErrInvalidInput)
	}
	direction := spec.Direction
	if direction == "" {
		direction = types.DirectionOutgoing
	}
	unique := spec.Unique
	switch unique {
	case "", UniquenessGlobal, UniquenessNode:
		unique = UniquenessGlobal
	case UniquenessPath, UniquenessNone:
	default:
		return nil, fmt.Errorf("traverse: unknown uniqueness %q: %w", unique, types.ErrInvalidInput)
	}
	if unique == UniquenessNone && spec.MaxDepth <= 0 {
		return nil, fmt.Errorf("traverse: unbounded walk needs a depth limit: %w", types.ErrInvalidInput)
	}

	var nodeTypes map[types.NodeType]struct{}
	if len(spec.NodeTypes) > 0 {
		nodeTypes = make(map[types.NodeType]struct{})
		for _, t := range spec.NodeTypes {
			nodeTypes[t] = struct{}{}
		}
	}

	starts := append([]string(nil), spec.Start...)
	sort.Strings(starts)

	seen := make(map[string]struct{})
	var frontier []frontierEntry
	var visits []Visit
	for _, id := range starts {
		if !snap.HasNode(id) {
			return nil, fmt.Errorf("traverse: start %q: %w", id, types.ErrNotFound)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		entry := frontierEntry{node: id}
		if unique == UniquenessPath {
			entry.onPath = map[string]struct{}{id: {}}
		}
		frontier = append(frontier, entry)
		visits = append(visits, Visit{NodeID: id, Depth: 0})
	}

	steps := 0
	for len(frontier) > 0 {
		if spec.Limit > 0 && len(visits) >= spec.Limit {
			break
		}
		current := frontier[0]
		frontier = frontier[1:]
		if spec.MaxDepth > 0 && current.depth >= spec.MaxDepth {
			continue
		}

		for _, step := range snap.Steps(current.node, direction, spec.EdgeTypes) {
			steps++
			if steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("traverse: %w", err)
				}
			}
			if spec.Limit > 0 && len(visits) >= spec.Limit {
				break
			}
			if nodeTypes != nil {
				if _, ok := nodeTypes[snap.Node(step.Node).Type]; !ok {
					continue
				}
			}

			next := frontierEntry{node: step.Node, depth: current.depth + 1, via: step.Edge.ID}
			switch unique {
			case UniquenessGlobal:
				if _, visited := seen[step.Node]; visited {
					continue
				}
				seen[step.Node] = struct{}{}
			case UniquenessPath:
				if _, onPath := current.onPath[step.Node]; onPath {
					continue
				}
				next.onPath = make(map[string]struct{}, len(current.onPath)+1)
				for id := range current.onPath {
					next.onPath[id] = struct{}{}
				}
				next.onPath[step.Node] = struct{}{}
			}

			visits = append(visits, Visit{NodeID: step.Node, Depth: next.depth, Via: step.Edge.ID})
			frontier = append(frontier, next)
		}
	}
	return visits, nil
}
