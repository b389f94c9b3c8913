package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return NewStore(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
}

func addNode(t *testing.T, s *Store, id string, nt types.NodeType) *types.Node {
	t.Helper()
	n, err := s.AddNode(context.Background(), &types.Node{ID: id, Type: nt, Label: id})
	require.NoError(t, err)
	return n
}

func addEdge(t *testing.T, s *Store, id string, et types.EdgeType, source, target string, weight float64) *types.Edge {
	t.Helper()
	e, err := s.AddEdge(context.Background(), &types.Edge{
		ID: id, Type: et, Source: source, Target: target, Weight: weight,
	})
	require.NoError(t, err)
	return e
}

func TestAddNodeDuplicateID(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "n1", types.PersonNodeType)

	_, err := s.AddNode(context.Background(), &types.Node{ID: "n1", Type: types.PersonNodeType, Label: "again"})
	assert.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestAddNodeGeneratesID(t *testing.T) {
	s := newTestStore(t)
	n, err := s.AddNode(context.Background(), &types.Node{Type: types.ConceptNodeType, Label: "resilience"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, uint64(1), n.Version)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestAddEdgeRejectsDanglingEndpoints(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)

	_, err := s.AddEdge(context.Background(), &types.Edge{
		ID: "e1", Type: types.MentorsEdgeType, Source: "a", Target: "ghost",
	})
	assert.ErrorIs(t, err, types.ErrUnknownNode)

	_, err = s.AddEdge(context.Background(), &types.Edge{
		ID: "e1", Type: types.MentorsEdgeType, Source: "ghost", Target: "a",
	})
	assert.ErrorIs(t, err, types.ErrUnknownNode)
	assert.Equal(t, 0, s.EdgeCount())
}

func TestAddEdgeDefaultsWeight(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)

	e := addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 0)
	assert.Equal(t, 1.0, e.Weight)
}

func TestUpdateNodeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "n1", types.ContentNodeType)

	patch := types.NodePatch{
		Set: map[string]types.PropertyValue{
			"tags":   types.TagsValue("archive", "audio"),
			"region": types.TextValue("delta"),
		},
		Unset: []string{"draft"},
	}

	first, err := s.UpdateNode(context.Background(), "n1", patch)
	require.NoError(t, err)
	second, err := s.UpdateNode(context.Background(), "n1", patch)
	require.NoError(t, err)

	// Same final state apart from the bumped timestamp and version.
	assert.Equal(t, first.Properties, second.Properties)
	assert.Equal(t, first.Label, second.Label)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestUpdateNodeVersionConflict(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "n1", types.ContentNodeType)

	stale := uint64(99)
	_, err := s.UpdateNode(context.Background(), "n1", types.NodePatch{
		ExpectedVersion: &stale,
	})
	assert.ErrorIs(t, err, types.ErrConflict)

	current := uint64(1)
	label := "renamed"
	updated, err := s.UpdateNode(context.Background(), "n1", types.NodePatch{
		Label:           &label,
		ExpectedVersion: &current,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Label)
	assert.Equal(t, uint64(2), updated.Version)
}

func TestUpdateMissingEntities(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateNode(context.Background(), "ghost", types.NodePatch{})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.UpdateEdge(context.Background(), "ghost", types.EdgePatch{})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteNodeBlockedByDependentEdges(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addEdge(t, s, "e1", types.CollaboratesWithEdgeType, "a", "b", 1)

	err := s.DeleteNode(context.Background(), "a", false)
	assert.ErrorIs(t, err, types.ErrHasDependentEdges)
	assert.Equal(t, 2, s.NodeCount())
}

func TestDeleteNodeCascade(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addNode(t, s, "c", types.PersonNodeType)
	addEdge(t, s, "e1", types.CollaboratesWithEdgeType, "a", "b", 1)
	addEdge(t, s, "e2", types.InfluencesEdgeType, "c", "a", 1)

	require.NoError(t, s.DeleteNode(context.Background(), "a", true))

	assert.Equal(t, 2, s.NodeCount())
	assert.Equal(t, 0, s.EdgeCount())

	// Referential integrity: no surviving edge touches the deleted node.
	snap := s.Snapshot()
	for _, e := range snap.Edges() {
		assert.True(t, snap.HasNode(e.Source))
		assert.True(t, snap.HasNode(e.Target))
	}
}

func TestEdgeOccurrencePatch(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addEdge(t, s, "e1", types.CollaboratesWithEdgeType, "a", "b", 1)

	when := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e, err := s.UpdateEdge(context.Background(), "e1", types.EdgePatch{
		Occur:       &when,
		AddEvidence: []string{"interview-12", "interview-12"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Occurrences)
	assert.Equal(t, []string{"interview-12"}, e.Evidence)
	assert.True(t, e.LastOccurrence.Equal(when))
}

func TestEdgeWeightDefaultsToOne(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)

	e, err := s.AddEdge(context.Background(), &types.Edge{
		ID: "e1", Type: types.MentorsEdgeType, Source: "a", Target: "b",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Weight)

	// An explicit zero goes through the patch path.
	zero := 0.0
	e, err = s.UpdateEdge(context.Background(), "e1", types.EdgePatch{Weight: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.Weight)
}

func TestEdgeScoreRange(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)

	_, err := s.AddEdge(context.Background(), &types.Edge{
		ID: "e1", Type: types.MentorsEdgeType, Source: "a", Target: "b",
		Strength: 4.2, Confidence: -0.5,
	})
	assert.ErrorIs(t, err, types.ErrInvalidScore)

	addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 1)
	bad := 1.5
	_, err = s.UpdateEdge(context.Background(), "e1", types.EdgePatch{Strength: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidScore)
	_, err = s.UpdateEdge(context.Background(), "e1", types.EdgePatch{Confidence: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidScore)

	ok := 0.9
	e, err := s.UpdateEdge(context.Background(), "e1", types.EdgePatch{Strength: &ok, Confidence: &ok})
	require.NoError(t, err)
	assert.Equal(t, 0.9, e.Strength)
	assert.Equal(t, 0.9, e.Confidence)
}

func TestSnapshotImmuneToLaterMutations(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 1)

	snap := s.Snapshot()
	require.Equal(t, 2, snap.NodeCount())
	require.Equal(t, 1, snap.EdgeCount())

	label := "changed"
	_, err := s.UpdateNode(context.Background(), "a", types.NodePatch{Label: &label})
	require.NoError(t, err)
	require.NoError(t, s.DeleteNode(context.Background(), "b", true))

	assert.Equal(t, "a", snap.Node("a").Label)
	assert.True(t, snap.HasNode("b"))
	assert.NotNil(t, snap.Edge("e1"))
}

func TestSnapshotStepsHonorDirectionAndBidirectional(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addNode(t, s, "c", types.PersonNodeType)
	addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 1)
	_, err := s.AddEdge(context.Background(), &types.Edge{
		ID: "e2", Type: types.CollaboratesWithEdgeType, Source: "c", Target: "a",
		Bidirectional: true,
	})
	require.NoError(t, err)

	snap := s.Snapshot()

	out := snap.Steps("a", types.DirectionOutgoing, nil)
	require.Len(t, out, 2) // e1 forward, e2 against its direction via bidirectional
	assert.Equal(t, "e1", out[0].Edge.ID)
	assert.Equal(t, "b", out[0].Node)
	assert.Equal(t, "e2", out[1].Edge.ID)
	assert.Equal(t, "c", out[1].Node)

	in := snap.Steps("b", types.DirectionIncoming, nil)
	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].Node)

	typed := snap.Steps("a", types.DirectionBoth, []types.EdgeType{types.MentorsEdgeType})
	require.Len(t, typed, 1)
	assert.Equal(t, "e1", typed[0].Edge.ID)
}

func TestJournalRecordsMutations(t *testing.T) {
	s := newTestStore(t)
	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 1)
	require.NoError(t, s.DeleteEdge(context.Background(), "e1"))

	events := s.Events()
	require.Len(t, events, 4)
	assert.Equal(t, EventNodeAdded, events[0].Kind)
	assert.Equal(t, EventNodeAdded, events[1].Kind)
	assert.Equal(t, EventEdgeAdded, events[2].Kind)
	assert.Equal(t, EventEdgeRemoved, events[3].Kind)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}

type recordingObserver struct {
	added, removed, updated int
}

func (r *recordingObserver) NodeAdded(*types.Node)                { r.added++ }
func (r *recordingObserver) NodeUpdated(_, _ *types.Node)         { r.updated++ }
func (r *recordingObserver) NodeRemoved(*types.Node)              { r.removed++ }
func (r *recordingObserver) EdgeAdded(*types.Edge)                { r.added++ }
func (r *recordingObserver) EdgeUpdated(_, _ *types.Edge)         { r.updated++ }
func (r *recordingObserver) EdgeRemoved(*types.Edge)              { r.removed++ }

func TestObserversSeeEveryMutation(t *testing.T) {
	s := newTestStore(t)
	obs := &recordingObserver{}
	s.RegisterObserver(obs)

	addNode(t, s, "a", types.PersonNodeType)
	addNode(t, s, "b", types.PersonNodeType)
	addEdge(t, s, "e1", types.MentorsEdgeType, "a", "b", 1)
	label := "x"
	_, err := s.UpdateNode(context.Background(), "a", types.NodePatch{Label: &label})
	require.NoError(t, err)
	require.NoError(t, s.DeleteNode(context.Background(), "a", true))

	assert.Equal(t, 3, obs.added)
	assert.Equal(t, 1, obs.updated)
	assert.Equal(t, 2, obs.removed) // edge cascade + node
}
