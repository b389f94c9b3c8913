package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/types"
	"github.com/tapestry-kg/tapestry/pkg/utils"
)

// CentralityKind names a centrality measure.
type CentralityKind string

const (
	CentralityDegree      CentralityKind = "degree"
	CentralityBetweenness CentralityKind = "betweenness"
	CentralityCloseness   CentralityKind = "closeness"
	CentralityEigenvector CentralityKind = "eigenvector"
	CentralityPageRank    CentralityKind = "pagerank"
)

const (
	pageRankDamping = 0.85
	powerIterTol    = 1e-6
	powerIterMax    = 100
)

// CentralitySpec asks for one measure. Sampled permits pivot sampling when
// the graph exceeds the exact-computation ceiling; it only affects
// betweenness and closeness.
type CentralitySpec struct {
	Kind       CentralityKind `json:"kind"`
	Sampled    bool           `json:"sampled,omitempty"`
	SampleSize int            `json:"sample_size,omitempty"`
}

// DistStats summarizes a score distribution.
type DistStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// CentralityResult carries per-node scores, the descending ranking, and
// distribution statistics. Sampled is set when pivot sampling was used, in
// which case scores are estimates.
type CentralityResult struct {
	Kind       CentralityKind     `json:"kind"`
	Scores     map[string]float64 `json:"scores"`
	Ranking    []string           `json:"ranking"`
	Stats      DistStats          `json:"stats"`
	Sampled    bool               `json:"sampled"`
	SampleSize int                `json:"sample_size,omitempty"`
}

// Centrality computes one centrality measure over the current snapshot.
// Nodes in different components never contribute to each other's scores;
// isolated nodes score zero.
func (e *Engine) Centrality(ctx context.Context, spec CentralitySpec) (*CentralityResult, error) {
	snap := e.store.Snapshot()
	u := buildUndirected(snap)
	n := u.size()

	result := &CentralityResult{Kind: spec.Kind, Scores: make(map[string]float64, n)}
	if n == 0 {
		return result, nil
	}

	var scores []float64
	var err error
	switch spec.Kind {
	case CentralityDegree:
		scores = e.degreeScores(u)
	case CentralityBetweenness, CentralityCloseness:
		pivots, sampled, serr := e.pivotPlan(spec, n)
		if serr != nil {
			return nil, serr
		}
		result.Sampled = sampled
		if sampled {
			result.SampleSize = len(pivots)
		}
		if spec.Kind == CentralityBetweenness {
			scores, err = e.betweennessScores(ctx, u, pivots)
		} else {
			scores, err = e.closenessScores(ctx, u, pivots)
		}
	case CentralityEigenvector:
		scores = e.eigenvectorScores(u)
	case CentralityPageRank:
		scores = e.pageRankScores(u)
	default:
		return nil, fmt.Errorf("centrality: unknown kind %q: %w", spec.Kind, types.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	for i, id := range u.ids {
		result.Scores[id] = scores[i]
	}
	result.Ranking = rankByScore(result.Scores)
	result.Stats = distStats(scores)
	return result, nil
}

// pivotPlan decides which source nodes an O(n*m) algorithm runs from. Exact
// runs use all nodes and are refused past the ceiling.
func (e *Engine) pivotPlan(spec CentralitySpec, n int) ([]int, bool, error) {
	if n <= e.maxExact && !spec.Sampled {
		return samplePivots(n, n), false, nil
	}
	if !spec.Sampled {
		return nil, false, fmt.Errorf("centrality %s: %d nodes exceed ceiling %d: %w",
			spec.Kind, n, e.maxExact, types.ErrTooLargeForExactComputation)
	}
	size := spec.SampleSize
	if size <= 0 {
		size = e.sampleSize
	}
	pivots := samplePivots(n, size)
	return pivots, len(pivots) < n, nil
}

// degreeScores counts distinct neighbors. Raw counts, not normalized, so a
// star center with five leaves scores exactly 5.
func (e *Engine) degreeScores(u *undirected) []float64 {
	scores := make([]float64, u.size())
	for i := range scores {
		scores[i] = float64(len(u.neighbors[i]))
	}
	return scores
}

// betweennessScores runs Brandes' algorithm, one BFS per pivot, fanned out
// over a worker pool. When pivots are a sample, scores are scaled by n/|S|.
func (e *Engine) betweennessScores(ctx context.Context, u *undirected, pivots []int) ([]float64, error) {
	n := u.size()
	pool := utils.NewWorkerPool(e.concurrency, func(ctx context.Context, source int) ([]float64, error) {
		return brandesFromSource(ctx, u, source)
	})
	partials, errs := pool.ProcessItems(ctx, pivots)
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("betweenness: %w", err)
		}
	}

	scores := make([]float64, n)
	for _, partial := range partials {
		for i, v := range partial {
			scores[i] += v
		}
	}
	// Each undirected shortest path is counted from both endpoints.
	scale := 0.5
	if len(pivots) < n {
		scale *= float64(n) / float64(len(pivots))
	}
	// Normalize to [0,1] by the pair count.
	if n > 2 {
		scale /= float64(n-1) * float64(n-2) / 2
	}
	for i := range scores {
		scores[i] *= scale
	}
	return scores, nil
}

// brandesFromSource accumulates the dependency of one source on every other
// node, using unweighted shortest paths.
func brandesFromSource(ctx context.Context, u *undirected, source int) ([]float64, error) {
	n := u.size()
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	for i := range dist {
		dist[i] = -1
	}
	sigma[source] = 1
	dist[source] = 0

	order := make([]int, 0, n)
	queue := []int{source}
	steps := 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, w := range u.neighbors[v] {
			steps++
			if steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}

	partial := make([]float64, n)
	for i := len(order) - 1; i > 0; i-- {
		w := order[i]
		for _, v := range preds[w] {
			delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
		}
		partial[w] += delta[w]
	}
	return partial, nil
}

// closenessScores uses the Wasserman-Faust formulation so nodes in small
// components are not unfairly rewarded. Isolated nodes score zero.
func (e *Engine) closenessScores(ctx context.Context, u *undirected, pivots []int) ([]float64, error) {
	n := u.size()
	pool := utils.NewWorkerPool(e.concurrency, func(ctx context.Context, source int) (float64, error) {
		return closenessFromSource(ctx, u, source)
	})
	partials, errs := pool.ProcessItems(ctx, pivots)
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("closeness: %w", err)
		}
	}

	scores := make([]float64, n)
	for k, source := range pivots {
		scores[source] = partials[k]
	}
	return scores, nil
}

func closenessFromSource(ctx context.Context, u *undirected, source int) (float64, error) {
	n := u.size()
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	dist[source] = 0
	queue := []int{source}
	sum, reach := 0, 1
	steps := 0
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
				sum += dist[w]
				reach++
				queue = append(queue, w)
			}
		}
	}
	if sum == 0 || n < 2 {
		return 0, nil
	}
	frac := float64(reach-1) / float64(n-1)
	return frac * float64(reach-1) / float64(sum), nil
}

// eigenvectorScores runs weighted power iteration. Components with no edges
// stay at zero.
func (e *Engine) eigenvectorScores(u *undirected) []float64 {
	n := u.size()
	x := make([]float64, n)
	next := make([]float64, n)
	for i := range x {
		x[i] = 1
	}

	for iter := 0; iter < powerIterMax; iter++ {
		var norm float64
		for i := range next {
			var sum float64
			for k, j := range u.neighbors[i] {
				sum += u.weights[i][k] * x[j]
			}
			next[i] = sum
			norm += sum * sum
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return next
		}
		var diff float64
		for i := range next {
			next[i] /= norm
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < powerIterTol {
			break
		}
	}
	return x
}

// pageRankScores runs weighted PageRank on the undirected view with the
// standard damping factor. Dangling mass redistributes uniformly.
func (e *Engine) pageRankScores(u *undirected) []float64 {
	n := u.size()
	x := make([]float64, n)
	next := make([]float64, n)
	outW := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
		outW[i] = u.weightedDegree(i)
	}

	for iter := 0; iter < powerIterMax; iter++ {
		var dangling float64
		for i := range next {
			next[i] = 0
		}
		for i := range x {
			if outW[i] == 0 {
				dangling += x[i]
				continue
			}
			share := x[i] / outW[i]
			for k, j := range u.neighbors[i] {
				next[j] += share * u.weights[i][k]
			}
		}

		base := (1-pageRankDamping)/float64(n) + pageRankDamping*dangling/float64(n)
		var diff float64
		for i := range next {
			next[i] = base + pageRankDamping*next[i]
			diff += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if diff < powerIterTol {
			break
		}
	}
	return x
}

// rankByScore orders node ids by descending score, ties broken by id.
func rankByScore(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func distStats(scores []float64) DistStats {
	if len(scores) == 0 {
		return DistStats{}
	}
	stats := DistStats{Min: scores[0], Max: scores[0]}
	var sum float64
	for _, s := range scores {
		if s < stats.Min {
			stats.Min = s
		}
		if s > stats.Max {
			stats.Max = s
		}
		sum += s
	}
	stats.Mean = sum / float64(len(scores))
	var variance float64
	for _, s := range scores {
		d := s - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(scores)))
	return stats
}
