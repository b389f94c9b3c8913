package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// stepClock advances one day per mutation.
func stepClock() func() time.Time {
	step := 0
	return func() time.Time {
		t := epoch.AddDate(0, 0, step)
		step++
		return t
	}
}

func day(n int) time.Time { return epoch.AddDate(0, 0, n) }

func mustAddNode(t *testing.T, store *graph.Store, id string) {
	t.Helper()
	_, err := store.AddNode(context.Background(), &types.Node{
		ID: id, Type: types.ConceptNodeType, Label: id,
	})
	require.NoError(t, err)
}

func mustAddEdge(t *testing.T, store *graph.Store, id, source, target string) {
	t.Helper()
	_, err := store.AddEdge(context.Background(), &types.Edge{
		ID: id, Type: types.RelatedToEdgeType, Source: source, Target: target, Weight: 1,
	})
	require.NoError(t, err)
}

func TestTimeSlice(t *testing.T) {
	store := graph.NewStore(graph.WithClock(stepClock()))
	ctx := context.Background()

	mustAddNode(t, store, "a")                      // day 0
	mustAddNode(t, store, "b")                      // day 1
	mustAddEdge(t, store, "e1", "a", "b")           // day 2
	mustAddNode(t, store, "c")                      // day 3
	require.NoError(t, store.DeleteEdge(ctx, "e1")) // day 4

	t.Run("slice before an entity exists excludes it", func(t *testing.T) {
		snap, err := New(store).TimeSlice(ctx, day(1), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, snap.NodeIDs())
		assert.Equal(t, 0, snap.EdgeCount())
	})

	t.Run("slice while the edge lived includes it", func(t *testing.T) {
		snap, err := New(store).TimeSlice(ctx, day(3), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, snap.NodeIDs())
		assert.Equal(t, []string{"e1"}, snap.EdgeIDs())
	})

	t.Run("slice after removal excludes the edge", func(t *testing.T) {
		snap, err := New(store).TimeSlice(ctx, day(5), 0)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.EdgeCount())
		assert.Equal(t, 3, snap.NodeCount())
	})

	t.Run("window widens the validity intersection", func(t *testing.T) {
		// At day 5 the edge is gone, but the window reaches back before
		// day 4 when the removal happened.
		snap, err := New(store).TimeSlice(ctx, day(5), 36*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1"}, snap.EdgeIDs())
	})

	t.Run("negative window is rejected", func(t *testing.T) {
		_, err := New(store).TimeSlice(ctx, day(1), -time.Hour)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})
}

func TestTimeSliceImmutability(t *testing.T) {
	store := graph.NewStore(graph.WithClock(stepClock()))
	ctx := context.Background()
	mustAddNode(t, store, "a")
	mustAddNode(t, store, "b")
	mustAddEdge(t, store, "e1", "a", "b")

	snap, err := New(store).TimeSlice(ctx, day(10), 0)
	require.NoError(t, err)
	require.Equal(t, 2, snap.NodeCount())

	_, err = store.UpdateNode(ctx, "a", types.NodePatch{Label: strptr("renamed")})
	require.NoError(t, err)
	require.NoError(t, store.DeleteEdge(ctx, "e1"))
	require.NoError(t, store.DeleteNode(ctx, "b", false))

	assert.Equal(t, "a", snap.Node("a").Label)
	assert.True(t, snap.HasNode("b"))
	assert.Equal(t, []string{"e1"}, snap.EdgeIDs())
}

func TestTrackChange(t *testing.T) {
	store := graph.NewStore(graph.WithClock(stepClock()))
	ctx := context.Background()

	mustAddNode(t, store, "a") // day 0
	mustAddNode(t, store, "b") // day 1
	// --- snapshot boundary: day 2 ---
	mustAddNode(t, store, "c")            // day 2
	mustAddEdge(t, store, "e1", "a", "c") // day 3
	mustAddEdge(t, store, "e2", "b", "c") // day 4
	// day 5
	_, err := store.UpdateNode(ctx, "a", types.NodePatch{Label: strptr("renamed")})
	require.NoError(t, err)

	report, err := New(store).TrackChange(ctx, day(1), day(6))
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, report.AddedNodes)
	assert.Empty(t, report.RemovedNodes)
	assert.Equal(t, []string{"a"}, report.UpdatedNodes)
	assert.Equal(t, []string{"e1", "e2"}, report.AddedEdges)

	// c gained two connections, a and b one each.
	require.NotEmpty(t, report.Growers)
	assert.Equal(t, ConnectionDelta{NodeID: "c", Before: 0, After: 2, Delta: 2}, report.Growers[0])
	assert.Empty(t, report.Decliners)

	// a and b were isolated singletons at the start and share one
	// component at the end.
	require.Len(t, report.Mergers, 1)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, report.Mergers[0].Sources)
	assert.Equal(t, []string{"a", "b", "c"}, report.Mergers[0].Merged)

	// With two other nodes, c's normalized degree went from 0 to 1.
	assert.Contains(t, report.EmergentThemes, "c")
	assert.Empty(t, report.FadingThemes)
}

func TestTrackChangeRejectsReversedRange(t *testing.T) {
	store := graph.NewStore(graph.WithClock(stepClock()))
	_, err := New(store).TrackChange(context.Background(), day(5), day(1))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestEvolution(t *testing.T) {
	store := graph.NewStore(graph.WithClock(stepClock()))
	ctx := context.Background()

	mustAddNode(t, store, "hub") // day 0
	for _, other := range []string{"n1", "n2", "n3"} {
		mustAddNode(t, store, other)                   // days 1, 3, 5
		mustAddEdge(t, store, "e"+other, "hub", other) // days 2, 4, 6
	}
	require.NoError(t, store.DeleteEdge(ctx, "en1")) // day 7
	require.NoError(t, store.DeleteEdge(ctx, "en2")) // day 8

	evo, err := New(store).Evolution(ctx, "hub")
	require.NoError(t, err)
	assert.Equal(t, "hub", evo.NodeID)

	// One sample for the node add, three edge adds, two edge removals.
	require.Len(t, evo.Samples, 6)
	assert.Equal(t, 0, evo.Samples[0].Connections)
	assert.Equal(t, 3, evo.Samples[3].Connections)
	assert.Equal(t, 1, evo.Samples[5].Connections)

	require.Len(t, evo.Trends, 2)
	assert.Equal(t, TrendGrowing, evo.Trends[0].Kind)
	assert.Equal(t, TrendDeclining, evo.Trends[1].Kind)
	assert.Equal(t, day(0), evo.Trends[0].Start)
	assert.Equal(t, day(8), evo.Trends[1].End)

	_, err = New(store).Evolution(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func strptr(s string) *string { return &s }
