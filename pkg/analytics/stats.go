package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
	"github.com/tapestry-kg/tapestry/pkg/utils"
)

// statsTopNodes is how many entries the top-nodes list carries.
const statsTopNodes = 5

// NodeRank pairs a node id with the score that ranked it.
type NodeRank struct {
	NodeID string  `json:"node_id"`
	Score  float64 `json:"score"`
}

// GraphStatistics summarizes the whole graph in one pass. Diameter is the
// longest shortest path in hops, taken over components; it stays zero when
// the graph exceeds the exact-computation ceiling.
type GraphStatistics struct {
	Nodes            int                    `json:"nodes"`
	Edges            int                    `json:"edges"`
	Density          float64                `json:"density"`
	AvgDegree        float64                `json:"avg_degree"`
	MaxDegree        int                    `json:"max_degree"`
	NodeTypeCounts   map[types.NodeType]int `json:"node_type_counts"`
	EdgeTypeCounts   map[types.EdgeType]int `json:"edge_type_counts"`
	Components       int                    `json:"components"`
	LargestComponent int                    `json:"largest_component"`
	AvgClustering    float64                `json:"avg_clustering"`
	Diameter         int                    `json:"diameter"`
	TopNodes         []NodeRank             `json:"top_nodes,omitempty"`
}

// Statistics computes graph-level summary measures. The result is cached
// against the store's generation counter, so repeated calls between
// mutations are free.
func (e *Engine) Statistics(ctx context.Context) (*GraphStatistics, error) {
	gen := e.store.Generation()
	e.mu.Lock()
	if e.statsCache != nil && e.statsGen == gen {
		cached := *e.statsCache
		e.mu.Unlock()
		return &cached, nil
	}
	e.mu.Unlock()

	snap := e.store.Snapshot()
	stats, err := e.computeStatistics(ctx, snap)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// A concurrent mutation may have advanced the generation while we
	// computed; only cache when the snapshot still matches.
	if snap.Generation == e.store.Generation() {
		e.statsGen = snap.Generation
		e.statsCache = stats
	}
	e.mu.Unlock()

	out := *stats
	return &out, nil
}

func (e *Engine) computeStatistics(ctx context.Context, snap *graph.Snapshot) (*GraphStatistics, error) {
	stats := &GraphStatistics{
		Nodes:          snap.NodeCount(),
		Edges:          snap.EdgeCount(),
		NodeTypeCounts: make(map[types.NodeType]int),
		EdgeTypeCounts: make(map[types.EdgeType]int),
	}
	for _, id := range snap.NodeIDs() {
		stats.NodeTypeCounts[snap.Node(id).Type]++
	}
	for _, id := range snap.EdgeIDs() {
		stats.EdgeTypeCounts[snap.Edge(id).Type]++
	}
	if stats.Nodes < 2 {
		stats.Components = stats.Nodes
		stats.LargestComponent = stats.Nodes
		return stats, nil
	}

	u := buildUndirected(snap)
	stats.Density = 2 * float64(stats.Edges) / (float64(stats.Nodes) * float64(stats.Nodes-1))

	var degreeSum int
	for i := range u.neighbors {
		d := len(u.neighbors[i])
		degreeSum += d
		if d > stats.MaxDegree {
			stats.MaxDegree = d
		}
	}
	stats.AvgDegree = float64(degreeSum) / float64(stats.Nodes)

	labels := connectedComponents(u)
	sizes := make(map[int]int)
	for _, label := range labels {
		sizes[label]++
	}
	stats.Components = len(sizes)
	for _, size := range sizes {
		if size > stats.LargestComponent {
			stats.LargestComponent = size
		}
	}

	clustering, err := avgClustering(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	stats.AvgClustering = clustering

	if stats.Nodes <= e.maxExact {
		d, err := diameter(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("statistics: %w", err)
		}
		stats.Diameter = d
	}
	stats.TopNodes = topDegreeNodes(u, statsTopNodes)
	return stats, nil
}

// diameter is the largest BFS eccentricity in hops. Disconnected graphs
// take the maximum over components.
func diameter(ctx context.Context, u *undirected) (int, error) {
	n := u.size()
	dist := make([]int, n)
	queue := make([]int, 0, n)
	best := 0
	steps := 0
	for src := 0; src < n; src++ {
		for i := range dist {
			dist[i] = -1
		}
		dist[src] = 0
		queue = append(queue[:0], src)
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range u.neighbors[v] {
				steps++
				if steps%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						return 0, err
					}
				}
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					if dist[w] > best {
						best = dist[w]
					}
					queue = append(queue, w)
				}
			}
		}
	}
	return best, nil
}

// topDegreeNodes ranks nodes by distinct-neighbor count, ties broken by id.
func topDegreeNodes(u *undirected, k int) []NodeRank {
	scored := make([]utils.ScoredItem[string], u.size())
	for i := range u.neighbors {
		scored[i] = utils.ScoredItem[string]{Item: u.ids[i], Score: float64(len(u.neighbors[i]))}
	}
	// Pre-sorting keeps the selection stable when ties straddle the cut.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item < scored[j].Item
	})
	top := utils.TopKByScore(scored, k)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score != top[j].Score {
			return top[i].Score > top[j].Score
		}
		return top[i].Item < top[j].Item
	})

	out := make([]NodeRank, len(top))
	for i, item := range top {
		out[i] = NodeRank{NodeID: item.Item, Score: item.Score}
	}
	return out
}

// avgClustering averages the local clustering coefficient over nodes with
// at least two neighbors.
func avgClustering(ctx context.Context, u *undirected) (float64, error) {
	adj := make([]map[int]struct{}, u.size())
	for i, ns := range u.neighbors {
		adj[i] = make(map[int]struct{}, len(ns))
		for _, j := range ns {
			adj[i][j] = struct{}{}
		}
	}

	var sum float64
	counted := 0
	steps := 0
	for _, ns := range u.neighbors {
		if len(ns) < 2 {
			continue
		}
		closed := 0
		for x := 0; x < len(ns); x++ {
			for y := x + 1; y < len(ns); y++ {
				steps++
				if steps%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						return 0, err
					}
				}
				if _, ok := adj[ns[x]][ns[y]]; ok {
					closed++
				}
			}
		}
		possible := len(ns) * (len(ns) - 1) / 2
		sum += float64(closed) / float64(possible)
		counted++
	}
	if counted == 0 {
		return 0, nil
	}
	return sum / float64(counted), nil
}
