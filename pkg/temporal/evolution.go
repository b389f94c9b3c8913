package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// TrendKind classifies one stretch of a node's timeline.
type TrendKind string

const (
	TrendGrowing   TrendKind = "growing"
	TrendDeclining TrendKind = "declining"
	TrendStable    TrendKind = "stable"
)

// trendSlopeEpsilon is the regression slope (connections per day) below
// which a segment counts as stable.
const trendSlopeEpsilon = 1e-9

// Sample is one point on a node's timeline, taken at a journal event that
// touched the node or one of its edges.
type Sample struct {
	Time        time.Time `json:"time"`
	Connections int       `json:"connections"`
	Importance  float64   `json:"importance"`
	EdgeEvents  int       `json:"edge_events"`
}

// TrendSegment is a maximal run of samples moving in one direction.
type TrendSegment struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Kind  TrendKind `json:"kind"`
	Slope float64   `json:"slope"`
}

// Evolution is a node's full history.
type Evolution struct {
	NodeID  string         `json:"node_id"`
	Samples []Sample       `json:"samples"`
	Trends  []TrendSegment `json:"trends"`
}

// Evolution replays the journal and returns the timeline of one node: a
// sample per relevant event plus trend segments classified by
// linear-regression slope over the connection counts.
func (e *Engine) Evolution(ctx context.Context, nodeID string) (*Evolution, error) {
	events := e.store.Events()

	result := &Evolution{NodeID: nodeID}
	connections := make(map[string]struct{}) // live incident edge ids
	var importance float64
	edgeEvents := 0
	seen := false

	for i, ev := range events {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("evolution: %w", err)
			}
		}

		relevant := false
		switch ev.Kind {
		case graph.EventNodeAdded, graph.EventNodeUpdated:
			if ev.Node.ID == nodeID {
				seen = true
				importance = ev.Node.Importance
				relevant = true
			}
		case graph.EventNodeRemoved:
			if ev.Node.ID == nodeID {
				relevant = true
			}
		case graph.EventEdgeAdded, graph.EventEdgeUpdated:
			if ev.Edge.Touches(nodeID) {
				connections[ev.Edge.ID] = struct{}{}
				edgeEvents++
				relevant = true
			}
		case graph.EventEdgeRemoved:
			if ev.Edge.Touches(nodeID) {
				delete(connections, ev.Edge.ID)
				edgeEvents++
				relevant = true
			}
		}
		if !relevant {
			continue
		}
		result.Samples = append(result.Samples, Sample{
			Time:        ev.Time,
			Connections: len(connections),
			Importance:  importance,
			EdgeEvents:  edgeEvents,
		})
	}

	if !seen {
		return nil, fmt.Errorf("evolution: node %q: %w", nodeID, types.ErrNotFound)
	}
	result.Trends = classifyTrends(result.Samples)
	return result, nil
}

// classifyTrends splits the samples into maximal runs where the connection
// count moves in one direction, then labels each run by the sign of its
// regression slope. Flat stretches fold into the preceding run.
func classifyTrends(samples []Sample) []TrendSegment {
	if len(samples) < 2 {
		return nil
	}

	segments := [][]Sample{{samples[0]}}
	dir := 0
	for i := 1; i < len(samples); i++ {
		d := sign(samples[i].Connections - samples[i-1].Connections)
		last := segments[len(segments)-1]
		if d != 0 && dir != 0 && d != dir {
			// Direction flipped; the pivot sample ends one run and starts
			// the next.
			segments = append(segments, []Sample{last[len(last)-1]})
			dir = d
		} else if d != 0 {
			dir = d
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], samples[i])
	}

	var out []TrendSegment
	for _, seg := range segments {
		if len(seg) < 2 {
			continue
		}
		slope := regressionSlope(seg)
		kind := TrendStable
		if slope > trendSlopeEpsilon {
			kind = TrendGrowing
		} else if slope < -trendSlopeEpsilon {
			kind = TrendDeclining
		}
		out = append(out, TrendSegment{
			Start: seg[0].Time,
			End:   seg[len(seg)-1].Time,
			Kind:  kind,
			Slope: slope,
		})
	}
	return out
}

// regressionSlope fits connections against time in days.
func regressionSlope(samples []Sample) float64 {
	n := float64(len(samples))
	base := samples[0].Time
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.Time.Sub(base).Hours() / 24
		y := float64(s.Connections)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
