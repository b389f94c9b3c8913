package temporal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
	"github.com/tapestry-kg/tapestry/pkg/utils"
)

// ConnectionDelta records how a node's connection count moved between two
// snapshots.
type ConnectionDelta struct {
	NodeID string `json:"node_id"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Delta  int    `json:"delta"`
}

// CommunityMerger records start-date communities that collapsed into one
// end-date community.
type CommunityMerger struct {
	Sources [][]string `json:"sources"`
	Merged  []string   `json:"merged"`
}

// ChangeReport is the diff between the graph at two dates.
type ChangeReport struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	AddedNodes   []string `json:"added_nodes"`
	RemovedNodes []string `json:"removed_nodes"`
	UpdatedNodes []string `json:"updated_nodes"`
	AddedEdges   []string `json:"added_edges"`
	RemovedEdges []string `json:"removed_edges"`
	UpdatedEdges []string `json:"updated_edges"`

	Growers   []ConnectionDelta `json:"growers"`
	Decliners []ConnectionDelta `json:"decliners"`

	EmergentThemes []string `json:"emergent_themes"`
	FadingThemes   []string `json:"fading_themes"`

	Mergers []CommunityMerger `json:"mergers"`
}

// TrackChange diffs the snapshots at two dates. Both snapshots are
// reconstructed from the journal up front, so concurrent writes during the
// diff cannot skew the result.
func (e *Engine) TrackChange(ctx context.Context, start, end time.Time) (*ChangeReport, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("track change: end precedes start: %w", types.ErrInvalidInput)
	}
	// The two reconstructions are independent journal replays; run them
	// concurrently.
	slices, errs := utils.ExecuteWithResults(ctx, 2,
		func() (*graph.Snapshot, error) { return e.TimeSlice(ctx, start, 0) },
		func() (*graph.Snapshot, error) { return e.TimeSlice(ctx, end, 0) },
	)
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	before, after := slices[0], slices[1]

	report := &ChangeReport{Start: start, End: end}
	diffEntities(before, after, report)
	e.connectionShifts(before, after, report)
	e.themeShifts(before, after, report)
	e.communityMergers(before, after, report)
	return report, nil
}

func diffEntities(before, after *graph.Snapshot, report *ChangeReport) {
	for _, id := range after.NodeIDs() {
		switch old := before.Node(id); {
		case old == nil:
			report.AddedNodes = append(report.AddedNodes, id)
		case old.Version != after.Node(id).Version:
			report.UpdatedNodes = append(report.UpdatedNodes, id)
		}
	}
	for _, id := range before.NodeIDs() {
		if !after.HasNode(id) {
			report.RemovedNodes = append(report.RemovedNodes, id)
		}
	}
	for _, id := range after.EdgeIDs() {
		switch old := before.Edge(id); {
		case old == nil:
			report.AddedEdges = append(report.AddedEdges, id)
		case old.Version != after.Edge(id).Version:
			report.UpdatedEdges = append(report.UpdatedEdges, id)
		}
	}
	for _, id := range before.EdgeIDs() {
		if after.Edge(id) == nil {
			report.RemovedEdges = append(report.RemovedEdges, id)
		}
	}
}

// connectionShifts ranks nodes by connection-count movement. Ties break by
// node id; nodes absent from one side count zero connections there.
func (e *Engine) connectionShifts(before, after *graph.Snapshot, report *ChangeReport) {
	ids := make(map[string]struct{})
	for _, id := range before.NodeIDs() {
		ids[id] = struct{}{}
	}
	for _, id := range after.NodeIDs() {
		ids[id] = struct{}{}
	}

	var deltas []ConnectionDelta
	for id := range ids {
		_, _, b := before.Degree(id)
		_, _, a := after.Degree(id)
		if a != b {
			deltas = append(deltas, ConnectionDelta{NodeID: id, Before: b, After: a, Delta: a - b})
		}
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Delta != deltas[j].Delta {
			return deltas[i].Delta > deltas[j].Delta
		}
		return deltas[i].NodeID < deltas[j].NodeID
	})

	for _, d := range deltas {
		if d.Delta > 0 && len(report.Growers) < e.topK {
			report.Growers = append(report.Growers, d)
		}
	}
	for i := len(deltas) - 1; i >= 0; i-- {
		d := deltas[i]
		if d.Delta < 0 && len(report.Decliners) < e.topK {
			report.Decliners = append(report.Decliners, d)
		}
	}
	// Decliners were collected from the bottom of the slice; restore
	// most-negative-first order with id tie-break.
	sort.Slice(report.Decliners, func(i, j int) bool {
		if report.Decliners[i].Delta != report.Decliners[j].Delta {
			return report.Decliners[i].Delta < report.Decliners[j].Delta
		}
		return report.Decliners[i].NodeID < report.Decliners[j].NodeID
	})
}

// themeShifts finds nodes whose normalized degree crossed the theme
// threshold in either direction between the two snapshots.
func (e *Engine) themeShifts(before, after *graph.Snapshot, report *ChangeReport) {
	beforeScore := normalizedDegrees(before)
	afterScore := normalizedDegrees(after)

	for _, id := range after.NodeIDs() {
		if beforeScore[id] < e.themeThreshold && afterScore[id] >= e.themeThreshold {
			report.EmergentThemes = append(report.EmergentThemes, id)
		}
	}
	for _, id := range before.NodeIDs() {
		if beforeScore[id] >= e.themeThreshold && afterScore[id] < e.themeThreshold {
			report.FadingThemes = append(report.FadingThemes, id)
		}
	}
}

func normalizedDegrees(snap *graph.Snapshot) map[string]float64 {
	out := make(map[string]float64, snap.NodeCount())
	n := snap.NodeCount()
	if n < 2 {
		return out
	}
	for _, id := range snap.NodeIDs() {
		_, _, total := snap.Degree(id)
		out[id] = float64(total) / float64(n-1)
	}
	return out
}

// communityMergers reports groups of start-date components whose members
// mostly landed in a single end-date component.
func (e *Engine) communityMergers(before, after *graph.Snapshot, report *ChangeReport) {
	startComms := components(before)
	endComms := components(after)

	endOf := make(map[string]int)
	for i, comm := range endComms {
		for _, id := range comm {
			endOf[id] = i
		}
	}

	// For each start community, find the end community holding the largest
	// share of its surviving members.
	absorbed := make(map[int][][]string)
	for _, comm := range startComms {
		counts := make(map[int]int)
		for _, id := range comm {
			if target, ok := endOf[id]; ok {
				counts[target]++
			}
		}
		bestTarget, bestCount := -1, 0
		for target, count := range counts {
			if count > bestCount || (count == bestCount && target < bestTarget) {
				bestTarget, bestCount = target, count
			}
		}
		if bestTarget >= 0 && float64(bestCount) >= e.overlapThreshold*float64(len(comm)) {
			absorbed[bestTarget] = append(absorbed[bestTarget], comm)
		}
	}

	targets := make([]int, 0, len(absorbed))
	for target := range absorbed {
		if len(absorbed[target]) >= 2 {
			targets = append(targets, target)
		}
	}
	sort.Ints(targets)
	for _, target := range targets {
		report.Mergers = append(report.Mergers, CommunityMerger{
			Sources: absorbed[target],
			Merged:  endComms[target],
		})
	}
}

// components partitions a snapshot into connected components, each sorted
// by id, ordered by smallest member.
func components(snap *graph.Snapshot) [][]string {
	assigned := make(map[string]bool)
	var out [][]string
	for _, id := range snap.NodeIDs() {
		if assigned[id] {
			continue
		}
		var comm []string
		queue := []string{id}
		assigned[id] = true
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			comm = append(comm, current)
			for _, next := range snap.NeighborIDs(current, types.DirectionBoth) {
				if !assigned[next] {
					assigned[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(comm)
		out = append(out, comm)
	}
	return out
}
