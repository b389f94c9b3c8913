package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// CommunityMethod names a community-detection algorithm.
type CommunityMethod string

const (
	// CommunityConnectedComponents partitions by reachability.
	CommunityConnectedComponents CommunityMethod = "connected_components"
	// CommunityLabelPropagation runs synchronous label propagation with
	// deterministic tie-breaking.
	CommunityLabelPropagation CommunityMethod = "label_propagation"
	// CommunityLouvain runs Louvain modularity optimization.
	CommunityLouvain CommunityMethod = "louvain"
)

const (
	labelPropMaxIters = 50
	louvainMaxPasses  = 10
)

// Community is one detected group. Members are sorted by id.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// CommunityResult is a full partition of the graph. Every node belongs to
// exactly one community; isolated nodes form singletons. Community ids are
// assigned in order of each community's smallest member id.
type CommunityResult struct {
	Method      CommunityMethod `json:"method"`
	Communities []Community     `json:"communities"`
	Assignment  map[string]int  `json:"assignment"`
	Modularity  float64         `json:"modularity"`
}

// Communities partitions the current snapshot with the requested method.
func (e *Engine) Communities(ctx context.Context, method CommunityMethod) (*CommunityResult, error) {
	snap := e.store.Snapshot()
	u := buildUndirected(snap)

	var labels []int
	var err error
	switch method {
	case CommunityConnectedComponents, "":
		method = CommunityConnectedComponents
		labels = connectedComponents(u)
	case CommunityLabelPropagation:
		labels, err = labelPropagation(ctx, u)
	case CommunityLouvain:
		labels, err = louvain(ctx, u)
	default:
		return nil, fmt.Errorf("communities: unknown method %q: %w", method, types.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	result := buildCommunityResult(u, labels)
	result.Method = method
	result.Modularity = modularity(u, labels)
	return result, nil
}

// unionFind with path compression and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}

func connectedComponents(u *undirected) []int {
	uf := newUnionFind(u.size())
	for i := range u.neighbors {
		for _, j := range u.neighbors[i] {
			uf.union(i, j)
		}
	}
	labels := make([]int, u.size())
	for i := range labels {
		labels[i] = uf.find(i)
	}
	return labels
}

// labelPropagation updates every node's label to the weight-heaviest label
// among its neighbors, sweeping nodes in sorted-id order until no label
// changes or the iteration cap is hit. Ties pick the smallest label so runs
// are reproducible.
func labelPropagation(ctx context.Context, u *undirected) ([]int, error) {
	n := u.size()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < labelPropMaxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("label propagation: %w", err)
		}
		changed := false
		for i := 0; i < n; i++ {
			if len(u.neighbors[i]) == 0 {
				continue
			}
			weightByLabel := make(map[int]float64)
			for k, j := range u.neighbors[i] {
				weightByLabel[labels[j]] += u.weights[i][k]
			}
			best, bestW := labels[i], weightByLabel[labels[i]]
			for label, w := range weightByLabel {
				if w > bestW || (w == bestW && label < best) {
					best, bestW = label, w
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels, nil
}

// louvain runs the standard two-phase loop: greedy local moves that improve
// modularity, then aggregation of communities into super-nodes, repeated
// until a pass yields no improvement.
func louvain(ctx context.Context, u *undirected) ([]int, error) {
	n := u.size()
	// labels[i] tracks the final community of original node i across
	// aggregation levels.
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	current := u
	mapping := make([]int, n) // original node -> current-level node
	for i := range mapping {
		mapping[i] = i
	}

	for pass := 0; pass < louvainMaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("louvain: %w", err)
		}
		comm, improved := louvainLocalMove(current)
		if !improved {
			break
		}
		comm, count := densify(comm)
		for i := range mapping {
			mapping[i] = comm[mapping[i]]
		}
		current = aggregate(current, comm, count)
	}

	copy(labels, mapping)
	return labels, nil
}

// louvainLocalMove greedily reassigns nodes to the neighboring community
// with the largest modularity gain, sweeping in index order until stable.
func louvainLocalMove(u *undirected) ([]int, bool) {
	n := u.size()
	comm := make([]int, n)
	commTotal := make([]float64, n) // sum of weighted degrees per community
	nodeW := make([]float64, n)
	for i := range comm {
		comm[i] = i
		nodeW[i] = u.weightedDegree(i)
		commTotal[i] = nodeW[i]
	}
	m2 := 2 * u.totalW
	if m2 == 0 {
		return comm, false
	}

	improvedEver := false
	for sweep := 0; sweep < labelPropMaxIters; sweep++ {
		moved := false
		for i := 0; i < n; i++ {
			// Weight from i into each adjacent community.
			linkW := make(map[int]float64)
			for k, j := range u.neighbors[i] {
				linkW[comm[j]] += u.weights[i][k]
			}

			old := comm[i]
			commTotal[old] -= nodeW[i]
			best, bestGain := old, linkW[old]-commTotal[old]*nodeW[i]/m2
			for c, w := range linkW {
				gain := w - commTotal[c]*nodeW[i]/m2
				if gain > bestGain || (gain == bestGain && c < best) {
					best, bestGain = c, gain
				}
			}
			comm[i] = best
			commTotal[best] += nodeW[i]
			if best != old {
				moved = true
				improvedEver = true
			}
		}
		if !moved {
			break
		}
	}
	return comm, improvedEver
}

// densify renumbers arbitrary labels into 0..count-1 in order of first
// appearance, which follows sorted node ids.
func densify(labels []int) ([]int, int) {
	remap := make(map[int]int)
	out := make([]int, len(labels))
	for i, label := range labels {
		idx, ok := remap[label]
		if !ok {
			idx = len(remap)
			remap[label] = idx
		}
		out[i] = idx
	}
	return out, len(remap)
}

// aggregate collapses each community into a single node; edges between
// communities sum their weights. comm must already be dense.
func aggregate(u *undirected, comm []int, n int) *undirected {
	next := &undirected{
		ids:       make([]string, n),
		index:     make(map[string]int, n),
		neighbors: make([][]int, n),
		weights:   make([][]float64, n),
		self:      make([]float64, n),
		totalW:    u.totalW,
	}
	for idx := 0; idx < n; idx++ {
		next.ids[idx] = fmt.Sprintf("agg-%d", idx)
		next.index[next.ids[idx]] = idx
	}

	type pair struct{ a, b int }
	combined := make(map[pair]float64)
	for i := range u.neighbors {
		a := comm[i]
		next.self[a] += u.self[i]
		for k, j := range u.neighbors[i] {
			if j < i {
				continue // each undirected edge once
			}
			b := comm[j]
			if a == b {
				// Intra-community weight becomes a self-loop; it still
				// counts toward weighted degree for modularity.
				next.self[a] += 2 * u.weights[i][k]
				continue
			}
			x, y := a, b
			if x > y {
				x, y = y, x
			}
			combined[pair{x, y}] += u.weights[i][k]
		}
	}
	keys := make([]pair, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, k := range keys {
		w := combined[k]
		next.neighbors[k.a] = append(next.neighbors[k.a], k.b)
		next.weights[k.a] = append(next.weights[k.a], w)
		next.neighbors[k.b] = append(next.neighbors[k.b], k.a)
		next.weights[k.b] = append(next.weights[k.b], w)
	}
	return next
}

// modularity evaluates Q for a partition over the weighted undirected view.
func modularity(u *undirected, labels []int) float64 {
	m2 := 2 * u.totalW
	if m2 == 0 {
		return 0
	}
	var intra float64
	degByComm := make(map[int]float64)
	for i := range u.neighbors {
		degByComm[labels[i]] += u.weightedDegree(i)
		for k, j := range u.neighbors[i] {
			if j < i {
				continue
			}
			if labels[i] == labels[j] {
				intra += u.weights[i][k]
			}
		}
	}
	q := 2 * intra / m2
	for _, d := range degByComm {
		q -= (d / m2) * (d / m2)
	}
	return q
}

// buildCommunityResult renumbers raw labels into dense community ids
// ordered by smallest member id.
func buildCommunityResult(u *undirected, labels []int) *CommunityResult {
	members := make(map[int][]int)
	for i, label := range labels {
		members[label] = append(members[label], i)
	}

	rawLabels := make([]int, 0, len(members))
	for label := range members {
		rawLabels = append(rawLabels, label)
	}
	// Node indexes follow sorted ids, so ordering by smallest member index
	// orders communities by smallest member id.
	sort.Slice(rawLabels, func(i, j int) bool {
		return members[rawLabels[i]][0] < members[rawLabels[j]][0]
	})

	result := &CommunityResult{
		Assignment: make(map[string]int, u.size()),
	}
	for id, label := range rawLabels {
		c := Community{ID: id}
		for _, idx := range members[label] {
			c.Members = append(c.Members, u.ids[idx])
			result.Assignment[u.ids[idx]] = id
		}
		sort.Strings(c.Members)
		result.Communities = append(result.Communities, c)
	}
	return result
}
