package query

import (
	"context"
	"fmt"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// PatternNode is a named node variable with optional type and property
// constraints.
type PatternNode struct {
	Var        string          `json:"var"`
	Type       *types.NodeType `json:"type,omitempty"`
	Predicates []Predicate     `json:"predicates,omitempty"`
}

// PatternEdge connects two node variables. Direction defaults to outgoing
// (From is the edge source); DirectionBoth matches either orientation.
type PatternEdge struct {
	Var       string          `json:"var,omitempty"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Type      *types.EdgeType `json:"type,omitempty"`
	Direction types.Direction `json:"direction,omitempty"`
}

// Pattern is a small subgraph shape matched exactly against the graph.
// Distinct node variables bind to distinct node ids.
type Pattern struct {
	Nodes []PatternNode `json:"nodes"`
	Edges []PatternEdge `json:"edges"`
}

// Match is one assignment of pattern variables to concrete node and edge ids.
type Match map[string]string

// validate checks the pattern's shape before any matching work starts.
func (p *Pattern) validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("pattern has no node variables: %w", types.ErrInvalidPattern)
	}
	vars := make(map[string]struct{}, len(p.Nodes))
	for _, pn := range p.Nodes {
		if pn.Var == "" {
			return fmt.Errorf("pattern node without a variable name: %w", types.ErrInvalidPattern)
		}
		if _, dup := vars[pn.Var]; dup {
			return fmt.Errorf("duplicate pattern variable %q: %w", pn.Var, types.ErrInvalidPattern)
		}
		if pn.Type != nil && !pn.Type.Valid() {
			return fmt.Errorf("pattern variable %q: unknown node type %q: %w", pn.Var, *pn.Type, types.ErrInvalidPattern)
		}
		vars[pn.Var] = struct{}{}
	}
	edgeVars := make(map[string]struct{}, len(p.Edges))
	for _, pe := range p.Edges {
		if _, ok := vars[pe.From]; !ok {
			return fmt.Errorf("edge references undeclared variable %q: %w", pe.From, types.ErrInvalidPattern)
		}
		if _, ok := vars[pe.To]; !ok {
			return fmt.Errorf("edge references undeclared variable %q: %w", pe.To, types.ErrInvalidPattern)
		}
		if pe.Type != nil && !pe.Type.Valid() {
			return fmt.Errorf("pattern edge: unknown edge type %q: %w", *pe.Type, types.ErrInvalidPattern)
		}
		if pe.Var != "" {
			if _, dup := vars[pe.Var]; dup {
				return fmt.Errorf("edge variable %q collides with a node variable: %w", pe.Var, types.ErrInvalidPattern)
			}
			if _, dup := edgeVars[pe.Var]; dup {
				return fmt.Errorf("duplicate edge variable %q: %w", pe.Var, types.ErrInvalidPattern)
			}
			edgeVars[pe.Var] = struct{}{}
		}
	}
	return nil
}

// MatchPattern finds every assignment of the pattern's variables to concrete
// ids. Matching is backtracking over node bindings with constraint checks at
// each step; rows come back in a deterministic order because candidates are
// tried in sorted-id order.
func (e *Engine) MatchPattern(ctx context.Context, pattern Pattern) ([]Match, error) {
	if err := pattern.validate(); err != nil {
		return nil, err
	}
	snap := e.store.Snapshot()
	return matchPatternSnapshot(ctx, snap, pattern)
}

type patternMatcher struct {
	snap    *graph.Snapshot
	pattern Pattern

	bound     map[string]string // node var -> node id
	usedNodes map[string]struct{}
	matches   []Match
	steps     int
}

func matchPatternSnapshot(ctx context.Context, snap *graph.Snapshot, pattern Pattern) ([]Match, error) {
	m := &patternMatcher{
		snap:      snap,
		pattern:   pattern,
		bound:     make(map[string]string, len(pattern.Nodes)),
		usedNodes: make(map[string]struct{}, len(pattern.Nodes)),
	}
	if err := m.assign(ctx, 0); err != nil {
		return nil, err
	}
	return m.matches, nil
}

// assign binds pattern node variables one at a time, in declaration order.
func (m *patternMatcher) assign(ctx context.Context, idx int) error {
	if idx == len(m.pattern.Nodes) {
		return m.emit()
	}

	pn := m.pattern.Nodes[idx]
	for _, id := range m.snap.NodeIDs() {
		m.steps++
		if m.steps%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("match pattern: %w", err)
			}
		}

		if _, used := m.usedNodes[id]; used {
			continue
		}
		node := m.snap.Node(id)
		if pn.Type != nil && node.Type != *pn.Type {
			continue
		}
		if !matchNode(node, pn.Predicates, nil) {
			continue
		}

		m.bound[pn.Var] = id
		m.usedNodes[id] = struct{}{}
		// Constraint propagation: abandon this binding as soon as any edge
		// constraint between already-bound variables is unsatisfiable.
		if m.edgesSatisfiable() {
			if err := m.assign(ctx, idx+1); err != nil {
				return err
			}
		}
		delete(m.bound, pn.Var)
		delete(m.usedNodes, id)
	}
	return nil
}

// edgesSatisfiable checks every pattern edge whose endpoints are both bound.
func (m *patternMatcher) edgesSatisfiable() bool {
	for _, pe := range m.pattern.Edges {
		from, fromBound := m.bound[pe.From]
		to, toBound := m.bound[pe.To]
		if !fromBound || !toBound {
			continue
		}
		if len(m.candidateEdges(pe, from, to)) == 0 {
			return false
		}
	}
	return true
}

// candidateEdges returns the ids of concrete edges satisfying one pattern
// edge under the current bindings, sorted by edge id.
func (m *patternMatcher) candidateEdges(pe PatternEdge, from, to string) []string {
	direction := pe.Direction
	if direction == "" {
		direction = types.DirectionOutgoing
	}

	var out []string
	for _, step := range m.snap.Steps(from, direction, nil) {
		if step.Node != to {
			continue
		}
		if pe.Type != nil && step.Edge.Type != *pe.Type {
			continue
		}
		out = append(out, step.Edge.ID)
	}
	return out
}

// emit expands one complete node assignment into result rows, one per
// combination of concrete edges, binding edge variables where named.
func (m *patternMatcher) emit() error {
	rows := []Match{copyMatch(m.bound)}
	for _, pe := range m.pattern.Edges {
		candidates := m.candidateEdges(pe, m.bound[pe.From], m.bound[pe.To])
		if len(candidates) == 0 {
			return nil
		}
		if pe.Var == "" {
			// Unnamed edges only need to exist; they do not multiply rows.
			continue
		}
		var next []Match
		for _, row := range rows {
			for _, edgeID := range candidates {
				if conflictsWithRow(row, edgeID) {
					continue
				}
				expanded := copyMatch(row)
				expanded[pe.Var] = edgeID
				next = append(next, expanded)
			}
		}
		rows = next
	}
	m.matches = append(m.matches, rows...)
	return nil
}

// conflictsWithRow prevents two edge variables in one row binding the same
// concrete edge.
func conflictsWithRow(row Match, edgeID string) bool {
	for _, v := range row {
		if v == edgeID {
			return true
		}
	}
	return false
}

func copyMatch(m Match) Match {
	out := make(Match, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
