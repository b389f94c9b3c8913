package tapestry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/analytics"
	"github.com/tapestry-kg/tapestry/pkg/config"
	"github.com/tapestry-kg/tapestry/pkg/index"
	"github.com/tapestry-kg/tapestry/pkg/query"
	"github.com/tapestry-kg/tapestry/pkg/storage"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

func newMemoryClient(t *testing.T) *tapestry.Client {
	t.Helper()
	client, err := tapestry.New(nil, tapestry.WithoutPersistence())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, client.Close()) })
	return client
}

func seedTriangle(t *testing.T, client *tapestry.Client) {
	t.Helper()
	ctx := context.Background()
	for _, n := range []struct{ id, label string }{
		{"ada", "Ada"}, {"alan", "Alan"}, {"grace", "Grace"},
	} {
		_, err := client.AddNode(ctx, &types.Node{ID: n.id, Type: types.PersonNodeType, Label: n.label})
		require.NoError(t, err)
	}
	for _, e := range []struct{ id, src, dst string }{
		{"e1", "ada", "alan"}, {"e2", "alan", "grace"}, {"e3", "grace", "ada"},
	} {
		_, err := client.AddEdge(ctx, &types.Edge{
			ID: e.id, Type: types.CollaboratesWithEdgeType, Source: e.src, Target: e.dst,
		})
		require.NoError(t, err)
	}
}

func TestClientEndToEnd(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()
	seedTriangle(t, client)

	assert.Equal(t, 3, client.NodeCount())
	assert.Equal(t, 3, client.EdgeCount())

	node, err := client.GetNode(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", node.Label)

	nodes, err := client.QueryNodes(ctx, query.NodeQuery{
		Types: []types.NodeType{types.PersonNodeType},
	})
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	paths, err := client.FindPath(ctx, query.PathQuery{
		Start: "ada", End: "grace", Type: query.PathShortest,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"ada", "alan", "grace"}, paths[0].Nodes)
	assert.Equal(t, 2.0, paths[0].Weight)

	stats, err := client.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Components)

	result, err := client.Centrality(ctx, analytics.CentralitySpec{Kind: analytics.CentralityDegree})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Scores["ada"])
}

func TestClientIndexStaysInSync(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	_, err := client.AddNode(ctx, &types.Node{
		ID: "ada", Type: types.PersonNodeType, Label: "Ada",
		Properties: map[string]types.PropertyValue{"era": types.TextValue("victorian")},
	})
	require.NoError(t, err)

	ids := client.FindByProperty(index.Filter{Key: "era", Value: "victorian"})
	assert.Equal(t, []string{"ada"}, ids)

	require.NoError(t, client.DeleteNode(ctx, "ada", false))
	assert.Empty(t, client.FindByProperty(index.Filter{Key: "era", Value: "victorian"}))
}

func TestClientTemporal(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	clock := func() time.Time {
		now := now.AddDate(0, 0, step)
		step++
		return now
	}

	client, err := tapestry.New(nil, tapestry.WithoutPersistence(), tapestry.WithClock(clock))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	ctx := context.Background()
	seedTriangle(t, client)

	// Before any edges existed.
	slice, err := client.TimeSlice(ctx, now.AddDate(0, 0, 2), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, slice.NodeCount())
	assert.Equal(t, 0, slice.EdgeCount())

	report, err := client.TrackChange(ctx, now, now.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Len(t, report.AddedEdges, 3)

	evo, err := client.Evolution(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, 2, evo.Samples[len(evo.Samples)-1].Connections)
}

func TestClientPersistenceRoundTrip(t *testing.T) {
	backend, err := storage.Open("", storage.WithInMemory())
	require.NoError(t, err)

	cfg := config.Default()
	first, err := tapestry.New(cfg, tapestry.WithBackend(backend))
	require.NoError(t, err)
	seedTriangle(t, first)

	// Same backend, fresh client: state and history come back.
	second, err := tapestry.New(cfg, tapestry.WithBackend(backend))
	require.NoError(t, err)
	defer func() { require.NoError(t, second.Close()) }()

	assert.Equal(t, 3, second.NodeCount())
	assert.Equal(t, 3, second.EdgeCount())
	assert.Equal(t, first.Store().Events(), second.Store().Events())

	// The rehydrated index answers property lookups.
	node, err := second.GetNode(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", node.Label)
}
