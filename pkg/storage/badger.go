package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
	"github.com/tapestry-kg/tapestry/pkg/utils"
)

// Key layout. Event keys embed a zero-padded sequence number so Badger's
// lexicographic iteration order matches journal order.
const (
	nodeKeyPrefix  = "n:"
	edgeKeyPrefix  = "e:"
	eventKeyPrefix = "ev:"
)

// Backend persists the store's journal and the materialized current state.
// It implements graph.JournalObserver, so once registered on a store every
// mutation lands on disk inside the store's exclusive section.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	inMemory   bool
	syncWrites bool
}

// WithLogger sets the backend's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInMemory keeps the database entirely in memory. Tests use this to
// avoid touching disk.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithSyncWrites makes every write fsync before returning.
func WithSyncWrites(sync bool) Option {
	return func(o *options) { o.syncWrites = sync }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Backend, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	badgerOpts := badger.DefaultOptions(path).
		WithInMemory(o.inMemory).
		WithSyncWrites(o.syncWrites).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open storage at %q: %w", path, err)
	}

	return &Backend{db: db, logger: o.logger}, nil
}

// Close flushes and closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// EventAppended implements graph.JournalObserver. It persists the journal
// entry and updates the materialized node or edge record in one
// transaction.
func (b *Backend) EventAppended(ev graph.Event) {
	err := b.db.Update(func(txn *badger.Txn) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", ev.Seq, err)
		}
		if err := txn.Set([]byte(eventKey(ev.Seq)), payload); err != nil {
			return err
		}
		return b.applyState(txn, ev)
	})
	if err != nil {
		// The in-memory store has already applied the mutation; a failed
		// persist is logged loudly rather than silently dropped.
		b.logger.Error("persist journal event failed", "seq", ev.Seq, "kind", ev.Kind, "error", err)
	}
}

func (b *Backend) applyState(txn *badger.Txn, ev graph.Event) error {
	switch ev.Kind {
	case graph.EventNodeAdded, graph.EventNodeUpdated:
		payload, err := json.Marshal(ev.Node)
		if err != nil {
			return err
		}
		return txn.Set([]byte(nodeKeyPrefix+ev.Node.ID), payload)
	case graph.EventNodeRemoved:
		return txn.Delete([]byte(nodeKeyPrefix + ev.Node.ID))
	case graph.EventEdgeAdded, graph.EventEdgeUpdated:
		payload, err := json.Marshal(ev.Edge)
		if err != nil {
			return err
		}
		return txn.Set([]byte(edgeKeyPrefix+ev.Edge.ID), payload)
	case graph.EventEdgeRemoved:
		return txn.Delete([]byte(edgeKeyPrefix + ev.Edge.ID))
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// Events reads the persisted journal back in sequence order.
func (b *Backend) Events(ctx context.Context) ([]graph.Event, error) {
	var events []graph.Event
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ev graph.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return fmt.Errorf("decode event %q: %w", it.Item().Key(), err)
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Nodes reads all materialized node records, in key order.
func (b *Backend) Nodes(ctx context.Context) ([]*types.Node, error) {
	var nodes []*types.Node
	err := b.scan(ctx, nodeKeyPrefix, func(val []byte) error {
		var n types.Node
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		nodes = append(nodes, &n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// Edges reads all materialized edge records, in key order.
func (b *Backend) Edges(ctx context.Context) ([]*types.Edge, error) {
	var edges []*types.Edge
	err := b.scan(ctx, edgeKeyPrefix, func(val []byte) error {
		var e types.Edge
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		edges = append(edges, &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (b *Backend) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return fmt.Errorf("decode %q: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
}

// Restore rebuilds a store from the persisted journal and registers the
// backend on it, so subsequent mutations keep being persisted. Panics while
// replaying malformed on-disk data surface as errors.
func (b *Backend) Restore(ctx context.Context, opts ...graph.Option) (store *graph.Store, err error) {
	defer utils.RecoverAsError(&err)

	events, err := b.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	store, err = graph.Replay(events, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	store.RegisterJournalObserver(b)
	b.logger.Info("store restored from persisted journal", "events", len(events),
		"nodes", store.NodeCount(), "edges", store.EdgeCount())
	return store, nil
}

func eventKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", eventKeyPrefix, seq)
}
