package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// SimilarityMetric names a pairwise node-similarity measure over
// neighborhood structure.
type SimilarityMetric string

const (
	// SimilarityJaccard is shared neighbors over the neighbor union.
	SimilarityJaccard SimilarityMetric = "jaccard"
	// SimilarityOverlap is shared neighbors over the smaller neighborhood.
	SimilarityOverlap SimilarityMetric = "overlap"
	// SimilarityCosine compares weighted neighbor vectors.
	SimilarityCosine SimilarityMetric = "cosine"
	// SimilarityEuclidean is a distance, not a similarity: smaller means
	// more alike. The diagonal is zero.
	SimilarityEuclidean SimilarityMetric = "euclidean"
	// SimilarityPearson is the correlation of weighted neighbor vectors.
	SimilarityPearson SimilarityMetric = "pearson"
)

// SimilaritySpec selects the metric and, optionally, a subset of node ids.
// An empty IDs slice means the whole graph.
type SimilaritySpec struct {
	Metric SimilarityMetric `json:"metric"`
	IDs    []string         `json:"ids,omitempty"`
}

// SimilarityMatrix is a symmetric score matrix. Scores[i][j] relates
// IDs[i] to IDs[j]; IDs are sorted.
type SimilarityMatrix struct {
	Metric SimilarityMetric `json:"metric"`
	IDs    []string         `json:"ids"`
	Scores [][]float64      `json:"scores"`
}

// NodeSimilarity computes the pairwise similarity matrix for the requested
// nodes over the current snapshot.
func (e *Engine) NodeSimilarity(ctx context.Context, spec SimilaritySpec) (*SimilarityMatrix, error) {
	snap := e.store.Snapshot()
	u := buildUndirected(snap)

	var rows []int
	if len(spec.IDs) == 0 {
		rows = make([]int, u.size())
		for i := range rows {
			rows[i] = i
		}
	} else {
		seen := make(map[int]struct{}, len(spec.IDs))
		for _, id := range spec.IDs {
			idx, ok := u.index[id]
			if !ok {
				return nil, fmt.Errorf("node similarity: %q: %w", id, types.ErrNotFound)
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			rows = append(rows, idx)
		}
		sort.Ints(rows)
	}

	pair, diagonal, err := pairScorer(spec.Metric, u)
	if err != nil {
		return nil, err
	}

	m := &SimilarityMatrix{
		Metric: spec.Metric,
		IDs:    make([]string, len(rows)),
		Scores: make([][]float64, len(rows)),
	}
	for i, idx := range rows {
		m.IDs[i] = u.ids[idx]
		m.Scores[i] = make([]float64, len(rows))
	}

	steps := 0
	for i := range rows {
		m.Scores[i][i] = diagonal
		for j := i + 1; j < len(rows); j++ {
			steps++
			if steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("node similarity: %w", err)
				}
			}
			s := pair(rows[i], rows[j])
			m.Scores[i][j] = s
			m.Scores[j][i] = s
		}
	}
	return m, nil
}

// pairScorer returns the scoring function and the diagonal convention for
// one metric.
func pairScorer(metric SimilarityMetric, u *undirected) (func(a, b int) float64, float64, error) {
	switch metric {
	case SimilarityJaccard, "":
		return func(a, b int) float64 {
			inter, union := setCounts(u.neighbors[a], u.neighbors[b])
			if union == 0 {
				return 0
			}
			return float64(inter) / float64(union)
		}, 1, nil
	case SimilarityOverlap:
		return func(a, b int) float64 {
			inter, _ := setCounts(u.neighbors[a], u.neighbors[b])
			smaller := len(u.neighbors[a])
			if len(u.neighbors[b]) < smaller {
				smaller = len(u.neighbors[b])
			}
			if smaller == 0 {
				return 0
			}
			return float64(inter) / float64(smaller)
		}, 1, nil
	case SimilarityCosine:
		return func(a, b int) float64 {
			dot, na, nb := vectorProducts(u, a, b)
			if na == 0 || nb == 0 {
				return 0
			}
			return dot / (math.Sqrt(na) * math.Sqrt(nb))
		}, 1, nil
	case SimilarityEuclidean:
		return func(a, b int) float64 {
			dot, na, nb := vectorProducts(u, a, b)
			return math.Sqrt(na + nb - 2*dot)
		}, 0, nil
	case SimilarityPearson:
		return func(a, b int) float64 {
			return pearson(u, a, b)
		}, 1, nil
	}
	return nil, 0, fmt.Errorf("node similarity: unknown metric %q: %w", metric, types.ErrInvalidInput)
}

// setCounts intersects two sorted index slices.
func setCounts(a, b []int) (inter, union int) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			union++
			i++
			j++
		case a[i] < b[j]:
			union++
			i++
		default:
			union++
			j++
		}
	}
	union += len(a) - i + len(b) - j
	return inter, union
}

// vectorProducts walks two sorted weighted neighbor lists once, returning
// the dot product and both squared norms.
func vectorProducts(u *undirected, a, b int) (dot, na, nb float64) {
	an, bn := u.neighbors[a], u.neighbors[b]
	wa, wb := u.weights[a], u.weights[b]
	i, j := 0, 0
	for i < len(an) && j < len(bn) {
		switch {
		case an[i] == bn[j]:
			dot += wa[i] * wb[j]
			i++
			j++
		case an[i] < bn[j]:
			i++
		default:
			j++
		}
	}
	for _, w := range wa {
		na += w * w
	}
	for _, w := range wb {
		nb += w * w
	}
	return dot, na, nb
}

// pearson correlates the dense weighted neighbor vectors of two nodes over
// all graph dimensions.
func pearson(u *undirected, a, b int) float64 {
	n := float64(u.size())
	if n == 0 {
		return 0
	}
	dot, na, nb := vectorProducts(u, a, b)
	sumA := sumWeights(u, a)
	sumB := sumWeights(u, b)
	meanA, meanB := sumA/n, sumB/n

	cov := dot - n*meanA*meanB
	varA := na - n*meanA*meanA
	varB := nb - n*meanB*meanB
	if varA <= 0 || varB <= 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func sumWeights(u *undirected, i int) float64 {
	var sum float64
	for _, w := range u.weights[i] {
		sum += w
	}
	return sum
}
