// Package index maintains secondary indexes over node properties and
// embeddings. The index registers as a store observer and is updated inside
// the store's exclusive mutation section, so index reads always reflect the
// latest write.
package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/types"
	"github.com/tapestry-kg/tapestry/pkg/utils"
)

// Metric selects the distance function for similarity search.
type Metric string

const (
	// MetricCosine ranks by cosine similarity; scores in [-1, 1], higher is closer.
	MetricCosine Metric = "cosine"
	// MetricEuclidean ranks by negated L2 distance so higher is still closer.
	MetricEuclidean Metric = "euclidean"
)

// Filter narrows a property lookup. Key addresses a node property; Value
// matches text properties exactly and tag sets by membership. From/To bound
// time-valued properties inclusively.
type Filter struct {
	NodeTypes []types.NodeType `json:"node_types,omitempty"`
	Key       string           `json:"key"`
	Value     string           `json:"value,omitempty"`
	From      *time.Time       `json:"from,omitempty"`
	To        *time.Time       `json:"to,omitempty"`
}

// SimilarityMatch is one ranked result of an embedding search.
type SimilarityMatch struct {
	NodeID string  `json:"node_id"`
	Score  float64 `json:"score"`
}

// SimilarityResult carries ranked matches plus degradation notes for items
// skipped during ranking (e.g. an embedding with the wrong dimension).
type SimilarityResult struct {
	Matches  []SimilarityMatch `json:"matches"`
	Degraded []string          `json:"degraded,omitempty"`
}

type timeEntry struct {
	when   time.Time
	nodeID string
}

// Index holds the property and embedding indexes. Safe for concurrent use;
// writes arrive only through the store's observer callbacks.
type Index struct {
	mu     sync.RWMutex
	logger *slog.Logger

	// node type -> property key -> indexed value -> node ids.
	byValue map[types.NodeType]map[string]map[string]map[string]struct{}
	// node type -> property key -> entries sorted by time.
	byTime map[types.NodeType]map[string][]timeEntry

	embeddings map[string][]float32
	nodeTypes  map[string]types.NodeType
}

// New creates an empty index.
func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		logger:     logger,
		byValue:    make(map[types.NodeType]map[string]map[string]map[string]struct{}),
		byTime:     make(map[types.NodeType]map[string][]timeEntry),
		embeddings: make(map[string][]float32),
		nodeTypes:  make(map[string]types.NodeType),
	}
}

// FindByProperty returns the sorted ids of nodes matching every filter.
// Multiple filters form a conjunction; no filters match nothing.
func (ix *Index) FindByProperty(filters ...Filter) []string {
	if len(filters) == 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := ix.matchLocked(filters[0])
	for _, f := range filters[1:] {
		if len(seen) == 0 {
			break
		}
		next := ix.matchLocked(f)
		for id := range seen {
			if _, ok := next[id]; !ok {
				delete(seen, id)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// matchLocked collects the ids matching one filter. Callers hold the lock.
func (ix *Index) matchLocked(filter Filter) map[string]struct{} {
	nodeTypes := filter.NodeTypes
	if len(nodeTypes) == 0 {
		nodeTypes = types.NodeTypes()
	}

	seen := make(map[string]struct{})
	for _, nt := range nodeTypes {
		if filter.From != nil || filter.To != nil {
			for _, entry := range ix.byTime[nt][filter.Key] {
				if filter.From != nil && entry.when.Before(*filter.From) {
					continue
				}
				if filter.To != nil && entry.when.After(*filter.To) {
					break
				}
				seen[entry.nodeID] = struct{}{}
			}
			continue
		}
		for id := range ix.byValue[nt][filter.Key][filter.Value] {
			seen[id] = struct{}{}
		}
	}
	return seen
}

// FindSimilar returns the k nodes whose embeddings are nearest to the query
// vector, ranked best-first, excluding scores below minScore. Nodes whose
// stored embedding cannot be compared to the query are skipped and recorded
// in the result's Degraded list rather than failing the whole search.
func (ix *Index) FindSimilar(vector []float32, k int, minScore float64, metric Metric) (*SimilarityResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("find similar: empty query vector")
	}
	if k <= 0 {
		return nil, fmt.Errorf("find similar: %w", types.ErrInvalidLimit)
	}
	if metric == "" {
		metric = MetricCosine
	}
	if metric == MetricCosine && utils.Magnitude(vector) == 0 {
		return nil, fmt.Errorf("find similar: zero-magnitude query vector")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	result := &SimilarityResult{}
	scored := make([]utils.ScoredItem[string], 0, len(ix.embeddings))
	for nodeID, emb := range ix.embeddings {
		if len(emb) != len(vector) {
			result.Degraded = append(result.Degraded,
				fmt.Sprintf("node %s: embedding dimension %d != query %d", nodeID, len(emb), len(vector)))
			continue
		}
		var score float64
		switch metric {
		case MetricEuclidean:
			score = -utils.EuclideanDistance(vector, emb)
		default:
			score = utils.CosineSimilarity(vector, emb)
		}
		if score < minScore {
			continue
		}
		scored = append(scored, utils.ScoredItem[string]{Item: nodeID, Score: score})
	}

	// Stable ranking: break score ties by node id.
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

	for _, item := range top {
		result.Matches = append(result.Matches, SimilarityMatch{NodeID: item.Item, Score: item.Score})
	}
	sort.Strings(result.Degraded)
	return result, nil
}

// --- graph.Observer implementation ---

// NodeAdded indexes a new node's properties and embedding.
func (ix *Index) NodeAdded(n *types.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.insertLocked(n)
}

// NodeUpdated reindexes a patched node.
func (ix *Index) NodeUpdated(old, updated *types.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(old)
	ix.insertLocked(updated)
}

// NodeRemoved drops a node from all indexes.
func (ix *Index) NodeRemoved(n *types.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(n)
}

// EdgeAdded is a no-op; edge lookups go through the store's adjacency and
// the query engine's filtered scans.
func (ix *Index) EdgeAdded(*types.Edge) {}

// EdgeUpdated is a no-op.
func (ix *Index) EdgeUpdated(_, _ *types.Edge) {}

// EdgeRemoved is a no-op.
func (ix *Index) EdgeRemoved(*types.Edge) {}

func (ix *Index) insertLocked(n *types.Node) {
	ix.nodeTypes[n.ID] = n.Type
	for key, value := range n.Properties {
		switch value.Kind {
		case types.KindText, types.KindInt, types.KindFloat:
			ix.valueSet(n.Type, key, value.String())[n.ID] = struct{}{}
		case types.KindTags:
			for _, tag := range value.Tags {
				ix.valueSet(n.Type, key, tag)[n.ID] = struct{}{}
			}
		case types.KindTime:
			ix.insertTimeLocked(n.Type, key, timeEntry{when: value.Time, nodeID: n.ID})
		}
		// Nested records are not indexed; the query engine scans them.
	}
	if n.Embedding != nil && len(n.Embedding.Vector) > 0 {
		ix.embeddings[n.ID] = append([]float32(nil), n.Embedding.Vector...)
	}
}

func (ix *Index) removeLocked(n *types.Node) {
	delete(ix.nodeTypes, n.ID)
	delete(ix.embeddings, n.ID)
	for key, value := range n.Properties {
		switch value.Kind {
		case types.KindText, types.KindInt, types.KindFloat:
			delete(ix.valueSet(n.Type, key, value.String()), n.ID)
		case types.KindTags:
			for _, tag := range value.Tags {
				delete(ix.valueSet(n.Type, key, tag), n.ID)
			}
		case types.KindTime:
			ix.removeTimeLocked(n.Type, key, n.ID)
		}
	}
}

func (ix *Index) valueSet(nt types.NodeType, key, value string) map[string]struct{} {
	keys, ok := ix.byValue[nt]
	if !ok {
		keys = make(map[string]map[string]map[string]struct{})
		ix.byValue[nt] = keys
	}
	values, ok := keys[key]
	if !ok {
		values = make(map[string]map[string]struct{})
		keys[key] = values
	}
	set, ok := values[value]
	if !ok {
		set = make(map[string]struct{})
		values[value] = set
	}
	return set
}

func (ix *Index) insertTimeLocked(nt types.NodeType, key string, entry timeEntry) {
	keys, ok := ix.byTime[nt]
	if !ok {
		keys = make(map[string][]timeEntry)
		ix.byTime[nt] = keys
	}
	entries := keys[key]
	pos := sort.Search(len(entries), func(i int) bool {
		return entries[i].when.After(entry.when)
	})
	entries = append(entries, timeEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry
	keys[key] = entries
}

func (ix *Index) removeTimeLocked(nt types.NodeType, key, nodeID string) {
	entries := ix.byTime[nt][key]
	for i, entry := range entries {
		if entry.nodeID == nodeID {
			ix.byTime[nt][key] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}
