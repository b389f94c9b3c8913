package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

const (
	defaultTopK             = 10
	defaultThemeThreshold   = 0.25
	defaultOverlapThreshold = 0.5
)

// Engine answers historical queries by replaying the store's journal. It
// never reads the store's live maps, so long-running reconstructions are
// unaffected by concurrent writes.
type Engine struct {
	store  *graph.Store
	logger *slog.Logger

	topK             int
	themeThreshold   float64
	overlapThreshold float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTopK caps the grower/decliner lists in change reports.
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

// WithThemeThreshold sets the normalized-degree level a node must cross to
// count as an emergent or fading theme.
func WithThemeThreshold(v float64) Option {
	return func(e *Engine) { e.themeThreshold = v }
}

// WithOverlapThreshold sets the member-overlap fraction for community
// merger detection.
func WithOverlapThreshold(v float64) Option {
	return func(e *Engine) { e.overlapThreshold = v }
}

// New creates a temporal engine over the given store.
func New(store *graph.Store, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		logger:           slog.Default(),
		topK:             defaultTopK,
		themeThreshold:   defaultThemeThreshold,
		overlapThreshold: defaultOverlapThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TimeSlice reconstructs an immutable snapshot of every node and edge whose
// validity interval intersects [date-window, date+window]. An entity is
// valid from its creation event until its removal event; entities removed
// inside the window are included with their last state.
func (e *Engine) TimeSlice(ctx context.Context, date time.Time, window time.Duration) (*graph.Snapshot, error) {
	if window < 0 {
		return nil, fmt.Errorf("time slice: negative window: %w", types.ErrInvalidInput)
	}
	from := date.Add(-window)
	to := date.Add(window)

	type tracked[T any] struct {
		state     T
		removedAt *time.Time
	}
	nodes := make(map[string]*tracked[*types.Node])
	edges := make(map[string]*tracked[*types.Edge])

	for i, ev := range e.store.Events() {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("time slice: %w", err)
			}
		}
		if ev.Time.After(to) {
			break
		}
		at := ev.Time
		switch ev.Kind {
		case graph.EventNodeAdded, graph.EventNodeUpdated:
			nodes[ev.Node.ID] = &tracked[*types.Node]{state: ev.Node}
		case graph.EventNodeRemoved:
			if tr, ok := nodes[ev.Node.ID]; ok {
				tr.removedAt = &at
			}
		case graph.EventEdgeAdded, graph.EventEdgeUpdated:
			edges[ev.Edge.ID] = &tracked[*types.Edge]{state: ev.Edge}
		case graph.EventEdgeRemoved:
			if tr, ok := edges[ev.Edge.ID]; ok {
				tr.removedAt = &at
			}
		}
	}

	var sliceNodes []*types.Node
	for _, tr := range nodes {
		if tr.removedAt != nil && !tr.removedAt.After(from) {
			continue
		}
		sliceNodes = append(sliceNodes, tr.state.Clone())
	}
	var sliceEdges []*types.Edge
	for _, tr := range edges {
		if tr.removedAt != nil && !tr.removedAt.After(from) {
			continue
		}
		sliceEdges = append(sliceEdges, tr.state.Clone())
	}

	// BuildSnapshot drops edges whose endpoint fell outside the slice.
	return graph.BuildSnapshot(date, sliceNodes, sliceEdges), nil
}
