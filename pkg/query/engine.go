package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// checkEvery is how many expansion/scan steps pass between context checks.
const checkEvery = 256

// Engine answers structural queries against pinned store snapshots.
type Engine struct {
	store  *graph.Store
	logger *slog.Logger
}

// New creates a query engine over the given store.
func New(store *graph.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// QueryNodes runs a filtered scan over all nodes. Results are ordered by the
// sort field (id when none is given) so identical queries return identical
// orderings.
func (e *Engine) QueryNodes(ctx context.Context, q NodeQuery) ([]*types.Node, error) {
	snap := e.store.Snapshot()
	return queryNodesSnapshot(ctx, snap, q)
}

// QueryEdges runs a filtered scan over all edges.
func (e *Engine) QueryEdges(ctx context.Context, q EdgeQuery) ([]*types.Edge, error) {
	snap := e.store.Snapshot()
	return queryEdgesSnapshot(ctx, snap, q)
}

func queryNodesSnapshot(ctx context.Context, snap *graph.Snapshot, q NodeQuery) ([]*types.Node, error) {
	var typeFilter map[types.NodeType]struct{}
	if len(q.Types) > 0 {
		typeFilter = make(map[types.NodeType]struct{}, len(q.Types))
		for _, t := range q.Types {
			typeFilter[t] = struct{}{}
		}
	}

	var matches []*types.Node
	for i, id := range snap.NodeIDs() {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("query nodes: %w", err)
			}
		}
		node := snap.Node(id)
		if typeFilter != nil {
			if _, ok := typeFilter[node.Type]; !ok {
				continue
			}
		}
		if matchNode(node, q.All, q.Any) {
			matches = append(matches, node)
		}
	}

	sortNodes(matches, q.SortBy, q.Descending)
	return paginate(matches, q.Offset, q.Limit)
}

func queryEdgesSnapshot(ctx context.Context, snap *graph.Snapshot, q EdgeQuery) ([]*types.Edge, error) {
	var typeFilter map[types.EdgeType]struct{}
	if len(q.Types) > 0 {
		typeFilter = make(map[types.EdgeType]struct{}, len(q.Types))
		for _, t := range q.Types {
			typeFilter[t] = struct{}{}
		}
	}

	var matches []*types.Edge
	for i, id := range snap.EdgeIDs() {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("query edges: %w", err)
			}
		}
		edge := snap.Edge(id)
		if typeFilter != nil {
			if _, ok := typeFilter[edge.Type]; !ok {
				continue
			}
		}
		if matchEdge(edge, q.All, q.Any) {
			matches = append(matches, edge)
		}
	}

	sortEdges(matches, q.SortBy, q.Descending)
	return paginate(matches, q.Offset, q.Limit)
}
