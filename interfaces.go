package tapestry

import (
	"context"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/analytics"
	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/index"
	"github.com/tapestry-kg/tapestry/pkg/query"
	"github.com/tapestry-kg/tapestry/pkg/temporal"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// This file defines focused interfaces; the main Engine interface is
// composed from them. Consumers should depend on the smallest interface
// that meets their needs.

// GraphMutator provides write operations on the graph.
type GraphMutator interface {
	// AddNode inserts a new node. A missing id is assigned a generated UUID.
	AddNode(ctx context.Context, node *types.Node) (*types.Node, error)

	// UpdateNode applies a partial patch to an existing node.
	UpdateNode(ctx context.Context, id string, patch types.NodePatch) (*types.Node, error)

	// DeleteNode removes a node. Without cascade it fails while incident
	// edges remain.
	DeleteNode(ctx context.Context, id string, cascade bool) error

	// AddEdge inserts a new edge between two existing nodes. A zero weight
	// defaults to 1; use UpdateEdge for an explicit zero.
	AddEdge(ctx context.Context, edge *types.Edge) (*types.Edge, error)

	// UpdateEdge applies a partial patch to an existing edge.
	UpdateEdge(ctx context.Context, id string, patch types.EdgePatch) (*types.Edge, error)

	// DeleteEdge removes an edge.
	DeleteEdge(ctx context.Context, id string) error
}

// GraphReader provides direct reads of single entities and counts.
type GraphReader interface {
	// GetNode retrieves a specific node.
	GetNode(ctx context.Context, id string) (*types.Node, error)

	// GetEdge retrieves a specific edge.
	GetEdge(ctx context.Context, id string) (*types.Edge, error)

	// NodeCount returns the number of live nodes.
	NodeCount() int

	// EdgeCount returns the number of live edges.
	EdgeCount() int
}

// IndexSearcher provides secondary-index lookups.
type IndexSearcher interface {
	// FindByProperty returns ids of nodes whose indexed properties match
	// every filter, in ascending id order.
	FindByProperty(filters ...index.Filter) []string

	// FindSimilar ranks nodes by embedding similarity to the given vector.
	FindSimilar(vector []float32, k int, minScore float64, metric index.Metric) (*index.SimilarityResult, error)
}

// GraphQuerier provides read-only query and traversal operations.
type GraphQuerier interface {
	// QueryNodes returns nodes matching a filtered, sorted, paginated query.
	QueryNodes(ctx context.Context, q query.NodeQuery) ([]*types.Node, error)

	// QueryEdges returns edges matching a filtered, sorted, paginated query.
	QueryEdges(ctx context.Context, q query.EdgeQuery) ([]*types.Edge, error)

	// MatchPattern finds all bindings of a declarative node/edge pattern.
	MatchPattern(ctx context.Context, pattern query.Pattern) ([]query.Match, error)

	// FindPath finds weighted shortest paths or enumerates paths under
	// constraints.
	FindPath(ctx context.Context, q query.PathQuery) ([]query.Path, error)

	// Traverse walks outward from start nodes under a uniqueness policy.
	Traverse(ctx context.Context, spec query.TraversalSpec) ([]query.Visit, error)

	// QuerySubgraph extracts the induced subgraph around seed nodes.
	QuerySubgraph(ctx context.Context, q query.SubgraphQuery) (*query.Subgraph, error)
}

// Analyzer provides whole-graph analytics.
type Analyzer interface {
	// Centrality scores every node under the requested measure.
	Centrality(ctx context.Context, spec analytics.CentralitySpec) (*analytics.CentralityResult, error)

	// Communities partitions the graph with the requested method.
	Communities(ctx context.Context, method analytics.CommunityMethod) (*analytics.CommunityResult, error)

	// NodeSimilarity computes a pairwise similarity matrix for the given
	// nodes.
	NodeSimilarity(ctx context.Context, spec analytics.SimilaritySpec) (*analytics.SimilarityMatrix, error)

	// Statistics returns cached whole-graph statistics.
	Statistics(ctx context.Context) (*analytics.GraphStatistics, error)
}

// Historian provides historical reconstruction and change analysis.
type Historian interface {
	// TimeSlice reconstructs the graph as of a date, including entities
	// active within the surrounding window.
	TimeSlice(ctx context.Context, date time.Time, window time.Duration) (*graph.Snapshot, error)

	// TrackChange reports differences between two historical states.
	TrackChange(ctx context.Context, start, end time.Time) (*temporal.ChangeReport, error)

	// Evolution reports a node's connectivity history and trend segments.
	Evolution(ctx context.Context, nodeID string) (*temporal.Evolution, error)
}

// Engine is the main interface for building, querying, and analyzing
// typed, weighted, temporally-aware knowledge graphs.
type Engine interface {
	GraphMutator
	GraphReader
	IndexSearcher
	GraphQuerier
	Analyzer
	Historian

	// Snapshot pins an immutable view of the current graph.
	Snapshot() *graph.Snapshot

	// Close releases resources and flushes any persistence backend.
	Close() error
}
