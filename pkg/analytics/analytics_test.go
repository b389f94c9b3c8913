package analytics

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

func seedStar(t *testing.T, store *graph.Store, hub string, leaves ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := store.AddNode(ctx, &types.Node{ID: hub, Type: types.ConceptNodeType, Label: hub})
	require.NoError(t, err)
	for _, leaf := range leaves {
		_, err := store.AddNode(ctx, &types.Node{ID: leaf, Type: types.ConceptNodeType, Label: leaf})
		require.NoError(t, err)
		_, err = store.AddEdge(ctx, &types.Edge{
			ID: "e-" + hub + "-" + leaf, Type: types.RelatedToEdgeType,
			Source: hub, Target: leaf, Weight: 1,
		})
		require.NoError(t, err)
	}
}

// seedClique wires every pair in ids, returning the edge count added.
func seedClique(t *testing.T, store *graph.Store, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		_, err := store.AddNode(ctx, &types.Node{ID: id, Type: types.PersonNodeType, Label: id})
		require.NoError(t, err)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			_, err := store.AddEdge(ctx, &types.Edge{
				ID: fmt.Sprintf("e-%s-%s", ids[i], ids[j]), Type: types.CollaboratesWithEdgeType,
				Source: ids[i], Target: ids[j], Weight: 1,
			})
			require.NoError(t, err)
		}
	}
}

func TestCentralityStarGraph(t *testing.T) {
	store := graph.NewStore()
	seedStar(t, store, "hub", "l1", "l2", "l3", "l4", "l5")
	eng := New(store)
	ctx := context.Background()

	t.Run("degree", func(t *testing.T) {
		res, err := eng.Centrality(ctx, CentralitySpec{Kind: CentralityDegree})
		require.NoError(t, err)
		assert.Equal(t, "hub", res.Ranking[0])
		assert.Equal(t, 5.0, res.Scores["hub"])
		assert.Equal(t, 1.0, res.Scores["l1"])
		assert.Equal(t, 5.0, res.Stats.Max)
	})

	t.Run("betweenness", func(t *testing.T) {
		res, err := eng.Centrality(ctx, CentralitySpec{Kind: CentralityBetweenness})
		require.NoError(t, err)
		assert.Equal(t, "hub", res.Ranking[0])
		// Every leaf pair routes through the hub; normalized score is 1.
		assert.InDelta(t, 1.0, res.Scores["hub"], 1e-9)
		assert.InDelta(t, 0.0, res.Scores["l1"], 1e-9)
		assert.False(t, res.Sampled)
	})

	t.Run("closeness", func(t *testing.T) {
		res, err := eng.Centrality(ctx, CentralitySpec{Kind: CentralityCloseness})
		require.NoError(t, err)
		assert.Equal(t, "hub", res.Ranking[0])
		assert.InDelta(t, 1.0, res.Scores["hub"], 1e-9)
	})

	t.Run("eigenvector and pagerank prefer the hub", func(t *testing.T) {
		for _, kind := range []CentralityKind{CentralityEigenvector, CentralityPageRank} {
			res, err := eng.Centrality(ctx, CentralitySpec{Kind: kind})
			require.NoError(t, err)
			assert.Equal(t, "hub", res.Ranking[0], string(kind))
			assert.Greater(t, res.Scores["hub"], res.Scores["l1"], string(kind))
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := eng.Centrality(ctx, CentralitySpec{Kind: "nope"})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})
}

func TestCentralitySizeCeiling(t *testing.T) {
	store := graph.NewStore()
	seedStar(t, store, "hub", "l1", "l2", "l3", "l4")
	eng := New(store, WithMaxExactNodes(3))
	ctx := context.Background()

	_, err := eng.Centrality(ctx, CentralitySpec{Kind: CentralityBetweenness})
	require.ErrorIs(t, err, types.ErrTooLargeForExactComputation)

	res, err := eng.Centrality(ctx, CentralitySpec{Kind: CentralityBetweenness, Sampled: true, SampleSize: 3})
	require.NoError(t, err)
	assert.True(t, res.Sampled)
	assert.Equal(t, 3, res.SampleSize)

	// Degree stays exact regardless of size.
	_, err = eng.Centrality(ctx, CentralitySpec{Kind: CentralityDegree})
	assert.NoError(t, err)
}

func TestCentralityEmptyGraph(t *testing.T) {
	eng := New(graph.NewStore())
	res, err := eng.Centrality(context.Background(), CentralitySpec{Kind: CentralityPageRank})
	require.NoError(t, err)
	assert.Empty(t, res.Scores)
	assert.Empty(t, res.Ranking)
}

func TestCommunitiesTwoCliques(t *testing.T) {
	store := graph.NewStore()
	seedClique(t, store, "a1", "a2", "a3", "a4")
	seedClique(t, store, "b1", "b2", "b3", "b4")
	eng := New(store)
	ctx := context.Background()

	for _, method := range []CommunityMethod{
		CommunityConnectedComponents,
		CommunityLabelPropagation,
		CommunityLouvain,
	} {
		t.Run(string(method), func(t *testing.T) {
			res, err := eng.Communities(ctx, method)
			require.NoError(t, err)
			require.Len(t, res.Communities, 2)
			assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, res.Communities[0].Members)
			assert.Equal(t, []string{"b1", "b2", "b3", "b4"}, res.Communities[1].Members)
			assert.Equal(t, 0, res.Assignment["a1"])
			assert.Equal(t, 1, res.Assignment["b3"])
			assert.InDelta(t, 0.5, res.Modularity, 1e-9)
		})
	}
}

func TestCommunitiesSingletons(t *testing.T) {
	store := graph.NewStore()
	ctx := context.Background()
	for _, id := range []string{"x", "y"} {
		_, err := store.AddNode(ctx, &types.Node{ID: id, Type: types.ConceptNodeType, Label: id})
		require.NoError(t, err)
	}
	eng := New(store)

	res, err := eng.Communities(ctx, CommunityConnectedComponents)
	require.NoError(t, err)
	require.Len(t, res.Communities, 2)
	assert.Equal(t, []string{"x"}, res.Communities[0].Members)
	assert.Equal(t, []string{"y"}, res.Communities[1].Members)
}

func TestNodeSimilarity(t *testing.T) {
	store := graph.NewStore()
	// a and b share both neighbors; c shares one with each.
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "n1", "n2"} {
		_, err := store.AddNode(ctx, &types.Node{ID: id, Type: types.ConceptNodeType, Label: id})
		require.NoError(t, err)
	}
	for i, pair := range [][2]string{{"a", "n1"}, {"a", "n2"}, {"b", "n1"}, {"b", "n2"}, {"c", "n1"}} {
		_, err := store.AddEdge(ctx, &types.Edge{
			ID: fmt.Sprintf("e%d", i), Type: types.RelatedToEdgeType,
			Source: pair[0], Target: pair[1], Weight: 1,
		})
		require.NoError(t, err)
	}
	eng := New(store)

	t.Run("jaccard", func(t *testing.T) {
		m, err := eng.NodeSimilarity(ctx, SimilaritySpec{Metric: SimilarityJaccard, IDs: []string{"a", "b", "c"}})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, m.IDs)
		assert.Equal(t, 1.0, m.Scores[0][0])
		assert.Equal(t, 1.0, m.Scores[0][1]) // identical neighborhoods
		assert.Equal(t, 0.5, m.Scores[0][2]) // one shared of two
		assert.Equal(t, m.Scores[0][2], m.Scores[2][0])
	})

	t.Run("cosine", func(t *testing.T) {
		m, err := eng.NodeSimilarity(ctx, SimilaritySpec{Metric: SimilarityCosine, IDs: []string{"a", "b"}})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, m.Scores[0][1], 1e-9)
	})

	t.Run("euclidean diagonal is zero", func(t *testing.T) {
		m, err := eng.NodeSimilarity(ctx, SimilaritySpec{Metric: SimilarityEuclidean, IDs: []string{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.Scores[0][0])
		assert.InDelta(t, 0.0, m.Scores[0][1], 1e-9)
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := eng.NodeSimilarity(ctx, SimilaritySpec{Metric: SimilarityJaccard, IDs: []string{"ghost"}})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestStatisticsDiameterAndTopNodes(t *testing.T) {
	store := graph.NewStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		_, err := store.AddNode(ctx, &types.Node{ID: id, Type: types.ConceptNodeType, Label: id})
		require.NoError(t, err)
	}
	// A four-node path plus a separate pair; the path dominates the diameter.
	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"e", "f"}} {
		_, err := store.AddEdge(ctx, &types.Edge{
			ID: "e-" + pair[0] + pair[1], Type: types.RelatedToEdgeType,
			Source: pair[0], Target: pair[1], Weight: 1,
		})
		require.NoError(t, err)
	}

	stats, err := New(store).Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Diameter)

	require.Len(t, stats.TopNodes, 5)
	assert.Equal(t, NodeRank{NodeID: "b", Score: 2}, stats.TopNodes[0])
	assert.Equal(t, NodeRank{NodeID: "c", Score: 2}, stats.TopNodes[1])
	assert.Equal(t, NodeRank{NodeID: "a", Score: 1}, stats.TopNodes[2])

	// Past the exact ceiling the diameter is skipped, not refused.
	capped, err := New(store, WithMaxExactNodes(2)).Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, capped.Diameter)
	assert.Len(t, capped.TopNodes, 5)
}

func TestStatisticsCachedByGeneration(t *testing.T) {
	store := graph.NewStore()
	seedClique(t, store, "a1", "a2", "a3")
	eng := New(store)
	ctx := context.Background()

	stats, err := eng.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 1, stats.Components)
	assert.Equal(t, 3, stats.LargestComponent)
	assert.InDelta(t, 1.0, stats.Density, 1e-9)
	assert.InDelta(t, 1.0, stats.AvgClustering, 1e-9)
	assert.Equal(t, 3, stats.NodeTypeCounts[types.PersonNodeType])
	assert.Equal(t, 1, stats.Diameter)
	require.Len(t, stats.TopNodes, 3)
	assert.Equal(t, NodeRank{NodeID: "a1", Score: 2}, stats.TopNodes[0])

	again, err := eng.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, again)

	// A mutation invalidates the cache.
	_, err = store.AddNode(ctx, &types.Node{ID: "lone", Type: types.ConceptNodeType, Label: "lone"})
	require.NoError(t, err)
	fresh, err := eng.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Nodes)
	assert.Equal(t, 2, fresh.Components)
}
