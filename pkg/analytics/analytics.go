package analytics

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/tapestry-kg/tapestry/pkg/graph"
)

// checkEvery is how many inner-loop steps pass between context checks.
const checkEvery = 256

const (
	defaultMaxExactNodes = 10000
	defaultSampleSize    = 256
)

// Engine computes analytics over a store. Results that depend only on the
// graph's contents are cached and invalidated by the store's generation
// counter.
type Engine struct {
	store       *graph.Store
	logger      *slog.Logger
	maxExact    int
	sampleSize  int
	concurrency int

	mu         sync.Mutex
	statsGen   uint64
	statsCache *GraphStatistics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxExactNodes sets the node-count ceiling above which exact
// betweenness and closeness refuse to run.
func WithMaxExactNodes(n int) Option {
	return func(e *Engine) { e.maxExact = n }
}

// WithSampleSize sets how many pivot sources sampled centrality uses.
func WithSampleSize(n int) Option {
	return func(e *Engine) { e.sampleSize = n }
}

// WithConcurrency caps the worker parallelism for per-source algorithms.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// New creates an analytics engine over the given store.
func New(store *graph.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		logger:     slog.Default(),
		maxExact:   defaultMaxExactNodes,
		sampleSize: defaultSampleSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// undirected is a compact adjacency view of a snapshot. Every edge is
// traversable in both directions here; parallel edges between the same pair
// collapse into one neighbor entry with their weights summed. Node ids are
// mapped to dense indexes in sorted order so algorithm output is stable.
type undirected struct {
	ids       []string
	index     map[string]int
	neighbors [][]int
	weights   [][]float64
	// self holds each node's self-loop weight, already counted twice the
	// way an undirected loop contributes to degree. Snapshots produce no
	// self-loops; community aggregation does.
	self   []float64
	totalW float64
}

func buildUndirected(snap *graph.Snapshot) *undirected {
	ids := snap.NodeIDs()
	u := &undirected{
		ids:       ids,
		index:     make(map[string]int, len(ids)),
		neighbors: make([][]int, len(ids)),
		weights:   make([][]float64, len(ids)),
		self:      make([]float64, len(ids)),
	}
	for i, id := range ids {
		u.index[id] = i
	}

	type pair struct{ a, b int }
	combined := make(map[pair]float64)
	for _, eid := range snap.EdgeIDs() {
		edge := snap.Edge(eid)
		a, aok := u.index[edge.Source]
		b, bok := u.index[edge.Target]
		if !aok || !bok || a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		combined[pair{a, b}] += edge.Weight
		u.totalW += edge.Weight
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
		u.neighbors[k.a] = append(u.neighbors[k.a], k.b)
		u.weights[k.a] = append(u.weights[k.a], w)
		u.neighbors[k.b] = append(u.neighbors[k.b], k.a)
		u.weights[k.b] = append(u.weights[k.b], w)
	}
	return u
}

func (u *undirected) size() int { return len(u.ids) }

// weightedDegree sums the combined edge weights at one node, including any
// self-loop.
func (u *undirected) weightedDegree(i int) float64 {
	sum := u.self[i]
	for _, w := range u.weights[i] {
		sum += w
	}
	return sum
}

// samplePivots picks n evenly spaced node indexes in sorted-id order, so
// repeated sampled runs over the same graph agree with each other.
func samplePivots(total, n int) []int {
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, n)
	stride := float64(total) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, int(float64(i)*stride))
	}
	return out
}
