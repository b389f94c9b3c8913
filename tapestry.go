package tapestry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/analytics"
	"github.com/tapestry-kg/tapestry/pkg/config"
	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/index"
	"github.com/tapestry-kg/tapestry/pkg/logger"
	"github.com/tapestry-kg/tapestry/pkg/query"
	"github.com/tapestry-kg/tapestry/pkg/storage"
	"github.com/tapestry-kg/tapestry/pkg/temporal"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Client is the main implementation of the Engine interface. It wires the
// store, secondary indexes, and the query, analytics, and temporal engines
// together, optionally on top of a persistence backend.
type Client struct {
	config  *config.Config
	logger  *slog.Logger
	store   *graph.Store
	index   *index.Index
	query   *query.Engine
	metrics *analytics.Engine
	history *temporal.Engine
	backend *storage.Backend
}

var _ Engine = (*Client)(nil)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger  *slog.Logger
	backend *storage.Backend
	clock   func() time.Time
	memOnly bool
}

// WithLogger sets the logger for the client and all subsystems.
func WithLogger(log *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = log }
}

// WithBackend uses an already-open persistence backend instead of opening
// one from the configured storage path. The client takes ownership and
// closes it on Close.
func WithBackend(b *storage.Backend) Option {
	return func(o *clientOptions) { o.backend = b }
}

// WithoutPersistence keeps the graph purely in memory regardless of the
// configured storage path.
func WithoutPersistence() Option {
	return func(o *clientOptions) { o.memOnly = true }
}

// WithClock overrides the store's time source.
func WithClock(clock func() time.Time) Option {
	return func(o *clientOptions) { o.clock = clock }
}

// New creates a Client from the given configuration. When a storage path is
// configured the persisted journal is replayed so the graph, including its
// full mutation history, survives restarts.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = logger.NewDefaultLogger(logger.ParseLevel(cfg.Log.Level))
	}

	backend := o.backend
	if backend == nil && !o.memOnly && cfg.Storage.Path != "" {
		var err error
		backend, err = storage.Open(cfg.Storage.Path,
			storage.WithLogger(log),
			storage.WithSyncWrites(cfg.Storage.SyncWrites))
		if err != nil {
			return nil, fmt.Errorf("tapestry: %w", err)
		}
	}

	storeOpts := []graph.Option{graph.WithLogger(log)}
	if o.clock != nil {
		storeOpts = append(storeOpts, graph.WithClock(o.clock))
	}

	var store *graph.Store
	if backend != nil {
		var err error
		store, err = backend.Restore(context.Background(), storeOpts...)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("tapestry: %w", err)
		}
	} else {
		store = graph.NewStore(storeOpts...)
	}

	ix := index.New(log)
	for _, node := range store.Snapshot().Nodes() {
		ix.NodeAdded(node)
	}
	store.RegisterObserver(ix)

	analyticsOpts := []analytics.Option{analytics.WithLogger(log)}
	if cfg.Analytics.MaxExactNodes > 0 {
		analyticsOpts = append(analyticsOpts, analytics.WithMaxExactNodes(cfg.Analytics.MaxExactNodes))
	}
	if cfg.Analytics.SampleSize > 0 {
		analyticsOpts = append(analyticsOpts, analytics.WithSampleSize(cfg.Analytics.SampleSize))
	}
	if cfg.Analytics.Concurrency > 0 {
		analyticsOpts = append(analyticsOpts, analytics.WithConcurrency(cfg.Analytics.Concurrency))
	}

	return &Client{
		config:  cfg,
		logger:  log,
		store:   store,
		index:   ix,
		query:   query.New(store, log),
		metrics: analytics.New(store, analyticsOpts...),
		history: temporal.New(store, temporal.WithLogger(log)),
		backend: backend,
	}, nil
}

// Store exposes the underlying store, mainly for tests and tooling.
func (c *Client) Store() *graph.Store { return c.store }

// Snapshot pins an immutable view of the current graph.
func (c *Client) Snapshot() *graph.Snapshot { return c.store.Snapshot() }

// Close flushes and closes the persistence backend, if any.
func (c *Client) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// --- GraphMutator ---

func (c *Client) AddNode(ctx context.Context, node *types.Node) (*types.Node, error) {
	return c.store.AddNode(ctx, node)
}

func (c *Client) UpdateNode(ctx context.Context, id string, patch types.NodePatch) (*types.Node, error) {
	return c.store.UpdateNode(ctx, id, patch)
}

func (c *Client) DeleteNode(ctx context.Context, id string, cascade bool) error {
	return c.store.DeleteNode(ctx, id, cascade)
}

func (c *Client) AddEdge(ctx context.Context, edge *types.Edge) (*types.Edge, error) {
	return c.store.AddEdge(ctx, edge)
}

func (c *Client) UpdateEdge(ctx context.Context, id string, patch types.EdgePatch) (*types.Edge, error) {
	return c.store.UpdateEdge(ctx, id, patch)
}

func (c *Client) DeleteEdge(ctx context.Context, id string) error {
	return c.store.DeleteEdge(ctx, id)
}

// --- GraphReader ---

func (c *Client) GetNode(ctx context.Context, id string) (*types.Node, error) {
	return c.store.GetNode(ctx, id)
}

func (c *Client) GetEdge(ctx context.Context, id string) (*types.Edge, error) {
	return c.store.GetEdge(ctx, id)
}

func (c *Client) NodeCount() int { return c.store.NodeCount() }

func (c *Client) EdgeCount() int { return c.store.EdgeCount() }

// --- IndexSearcher ---

func (c *Client) FindByProperty(filters ...index.Filter) []string {
	return c.index.FindByProperty(filters...)
}

func (c *Client) FindSimilar(vector []float32, k int, minScore float64, metric index.Metric) (*index.SimilarityResult, error) {
	return c.index.FindSimilar(vector, k, minScore, metric)
}

// --- GraphQuerier ---

func (c *Client) QueryNodes(ctx context.Context, q query.NodeQuery) ([]*types.Node, error) {
	return c.query.QueryNodes(ctx, q)
}

func (c *Client) QueryEdges(ctx context.Context, q query.EdgeQuery) ([]*types.Edge, error) {
	return c.query.QueryEdges(ctx, q)
}

func (c *Client) MatchPattern(ctx context.Context, pattern query.Pattern) ([]query.Match, error) {
	return c.query.MatchPattern(ctx, pattern)
}

func (c *Client) FindPath(ctx context.Context, q query.PathQuery) ([]query.Path, error) {
	return c.query.FindPath(ctx, q)
}

func (c *Client) Traverse(ctx context.Context, spec query.TraversalSpec) ([]query.Visit, error) {
	return c.query.Traverse(ctx, spec)
}

func (c *Client) QuerySubgraph(ctx context.Context, q query.SubgraphQuery) (*query.Subgraph, error) {
	return c.query.QuerySubgraph(ctx, q)
}

// --- Analyzer ---

func (c *Client) Centrality(ctx context.Context, spec analytics.CentralitySpec) (*analytics.CentralityResult, error) {
	return c.metrics.Centrality(ctx, spec)
}

func (c *Client) Communities(ctx context.Context, method analytics.CommunityMethod) (*analytics.CommunityResult, error) {
	return c.metrics.Communities(ctx, method)
}

func (c *Client) NodeSimilarity(ctx context.Context, spec analytics.SimilaritySpec) (*analytics.SimilarityMatrix, error) {
	return c.metrics.NodeSimilarity(ctx, spec)
}

func (c *Client) Statistics(ctx context.Context) (*analytics.GraphStatistics, error) {
	return c.metrics.Statistics(ctx)
}

// --- Historian ---

func (c *Client) TimeSlice(ctx context.Context, date time.Time, window time.Duration) (*graph.Snapshot, error) {
	return c.history.TimeSlice(ctx, date, window)
}

func (c *Client) TrackChange(ctx context.Context, start, end time.Time) (*temporal.ChangeReport, error) {
	return c.history.TrackChange(ctx, start, end)
}

func (c *Client) Evolution(ctx context.Context, nodeID string) (*temporal.Evolution, error) {
	return c.history.Evolution(ctx, nodeID)
}
