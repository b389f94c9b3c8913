package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := Open("", WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, backend.Close()) })
	return backend
}

func seedStore(t *testing.T, store *graph.Store) {
	t.Helper()
	ctx := context.Background()

	for _, n := range []struct{ id, label string }{
		{"ada", "Ada"}, {"alan", "Alan"}, {"grace", "Grace"},
	} {
		_, err := store.AddNode(ctx, &types.Node{ID: n.id, Type: types.PersonNodeType, Label: n.label})
		require.NoError(t, err)
	}
	_, err := store.AddEdge(ctx, &types.Edge{
		ID: "knows-1", Type: types.RelatedToEdgeType, Source: "ada", Target: "alan", Weight: 2,
	})
	require.NoError(t, err)
	_, err = store.AddEdge(ctx, &types.Edge{
		ID: "knows-2", Type: types.RelatedToEdgeType, Source: "alan", Target: "grace",
	})
	require.NoError(t, err)
}

func TestBackendPersistsJournal(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	store := graph.NewStore()
	store.RegisterJournalObserver(backend)
	seedStore(t, store)

	label := "Grace Hopper"
	_, err := store.UpdateNode(ctx, "grace", types.NodePatch{Label: &label})
	require.NoError(t, err)
	require.NoError(t, store.DeleteEdge(ctx, "knows-2"))

	events, err := backend.Events(ctx)
	require.NoError(t, err)
	require.Equal(t, store.Events(), events)

	nodes, err := backend.Nodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "ada", nodes[0].ID)
	assert.Equal(t, "Grace Hopper", nodes[1].Label)

	edges, err := backend.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "knows-1", edges[0].ID)
	assert.Equal(t, 2.0, edges[0].Weight)
}

func TestBackendRestore(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	store := graph.NewStore()
	store.RegisterJournalObserver(backend)
	seedStore(t, store)
	require.NoError(t, store.DeleteEdge(ctx, "knows-2"))

	restored, err := backend.Restore(ctx)
	require.NoError(t, err)

	assert.Equal(t, store.NodeCount(), restored.NodeCount())
	assert.Equal(t, store.EdgeCount(), restored.EdgeCount())
	assert.Equal(t, store.Events(), restored.Events())

	node, err := restored.GetNode(ctx, "ada")
	require.NoError(t, err)
	want, err := store.GetNode(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, want, node)

	// The restored store keeps persisting through the same backend.
	_, err = restored.AddNode(ctx, &types.Node{ID: "kurt", Type: types.PersonNodeType, Label: "Kurt"})
	require.NoError(t, err)

	events, err := backend.Events(ctx)
	require.NoError(t, err)
	require.Equal(t, restored.Events(), events)
}

func TestBackendReopenFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := Open(dir)
	require.NoError(t, err)
	store := graph.NewStore()
	store.RegisterJournalObserver(backend)
	seedStore(t, store)
	require.NoError(t, backend.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	restored, err := reopened.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.NodeCount())
	assert.Equal(t, 2, restored.EdgeCount())
	assert.Equal(t, store.Events(), restored.Events())
}
