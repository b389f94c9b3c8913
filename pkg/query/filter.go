package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

// Operator is the comparison applied by a predicate.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpExists      Operator = "exists"
)

// Predicate is one field-operator-value condition. Field addresses either a
// built-in attribute (id, type, label, importance, weight, source, target,
// created_at, updated_at, strength, confidence, occurrences) or a property
// via the "properties." prefix. OpIn matches against Values; OpExists
// ignores the value entirely.
type Predicate struct {
	Field  string                `json:"field"`
	Op     Operator              `json:"op"`
	Value  types.PropertyValue   `json:"value,omitempty"`
	Values []types.PropertyValue `json:"values,omitempty"`
}

// NodeQuery is a filtered scan over nodes: a conjunction (All) and a
// disjunction (Any) of predicates, optionally restricted by type, sorted,
// and paginated.
type NodeQuery struct {
	Types      []types.NodeType `json:"types,omitempty"`
	All        []Predicate      `json:"all,omitempty"`
	Any        []Predicate      `json:"any,omitempty"`
	SortBy     string           `json:"sort_by,omitempty"`
	Descending bool             `json:"descending,omitempty"`
	Offset     int              `json:"offset,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

// EdgeQuery is the edge counterpart of NodeQuery.
type EdgeQuery struct {
	Types      []types.EdgeType `json:"types,omitempty"`
	All        []Predicate      `json:"all,omitempty"`
	Any        []Predicate      `json:"any,omitempty"`
	SortBy     string           `json:"sort_by,omitempty"`
	Descending bool             `json:"descending,omitempty"`
	Offset     int              `json:"offset,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

// nodeField resolves a predicate field against a node. The second return is
// false when the field does not exist on this node.
func nodeField(n *types.Node, field string) (types.PropertyValue, bool) {
	if key, ok := strings.CutPrefix(field, "properties."); ok {
		v, ok := n.Properties[key]
		return v, ok
	}
	switch field {
	case "id":
		return types.TextValue(n.ID), true
	case "type":
		return types.TextValue(string(n.Type)), true
	case "label":
		return types.TextValue(n.Label), true
	case "importance":
		return types.FloatValue(n.Importance), true
	case "created_at":
		return types.TimeValue(n.CreatedAt), true
	case "updated_at":
		return types.TimeValue(n.UpdatedAt), true
	}
	return types.PropertyValue{}, false
}

// edgeField resolves a predicate field against an edge.
func edgeField(e *types.Edge, field string) (types.PropertyValue, bool) {
	if key, ok := strings.CutPrefix(field, "properties."); ok {
		v, ok := e.Properties[key]
		return v, ok
	}
	switch field {
	case "id":
		return types.TextValue(e.ID), true
	case "type":
		return types.TextValue(string(e.Type)), true
	case "source":
		return types.TextValue(e.Source), true
	case "target":
		return types.TextValue(e.Target), true
	case "weight":
		return types.FloatValue(e.Weight), true
	case "strength":
		return types.FloatValue(e.Strength), true
	case "confidence":
		return types.FloatValue(e.Confidence), true
	case "occurrences":
		return types.IntValue(int64(e.Occurrences)), true
	case "created_at":
		return types.TimeValue(e.CreatedAt), true
	case "updated_at":
		return types.TimeValue(e.UpdatedAt), true
	}
	return types.PropertyValue{}, false
}

// evaluate applies one predicate to a resolved field value.
func (p Predicate) evaluate(value types.PropertyValue, exists bool) bool {
	if p.Op == OpExists {
		return exists
	}
	if !exists {
		return false
	}
	switch p.Op {
	case OpEquals:
		return value.Equal(p.Value)
	case OpNotEquals:
		return !value.Equal(p.Value)
	case OpContains:
		return value.Contains(p.Value.Text)
	case OpStartsWith:
		return value.Kind == types.KindText && strings.HasPrefix(value.Text, p.Value.Text)
	case OpGreaterThan:
		cmp, ok := value.Compare(p.Value)
		return ok && cmp > 0
	case OpLessThan:
		cmp, ok := value.Compare(p.Value)
		return ok && cmp < 0
	case OpIn:
		for _, candidate := range p.Values {
			if value.Equal(candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func matchNode(n *types.Node, all, any []Predicate) bool {
	for _, p := range all {
		v, ok := nodeField(n, p.Field)
		if !p.evaluate(v, ok) {
			return false
		}
	}
	if len(any) == 0 {
		return true
	}
	for _, p := range any {
		v, ok := nodeField(n, p.Field)
		if p.evaluate(v, ok) {
			return true
		}
	}
	return false
}

func matchEdge(e *types.Edge, all, any []Predicate) bool {
	for _, p := range all {
		v, ok := edgeField(e, p.Field)
		if !p.evaluate(v, ok) {
			return false
		}
	}
	if len(any) == 0 {
		return true
	}
	for _, p := range any {
		v, ok := edgeField(e, p.Field)
		if p.evaluate(v, ok) {
			return true
		}
	}
	return false
}

func sortNodes(nodes []*types.Node, sortBy string, descending bool) {
	if sortBy == "" {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		a, aok := nodeField(nodes[i], sortBy)
		b, bok := nodeField(nodes[j], sortBy)
		return compareValues(a, aok, b, bok, nodes[i].ID, nodes[j].ID)
	})
}

func sortEdges(edges []*types.Edge, sortBy string, descending bool) {
	if sortBy == "" {
		return
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		a, aok := edgeField(edges[i], sortBy)
		b, bok := edgeField(edges[j], sortBy)
		return compareValues(a, aok, b, bok, edges[i].ID, edges[j].ID)
	})
}

// compareValues orders two resolved fields; missing fields sort last and
// ties fall back to id so result order is total and reproducible.
func compareValues(a types.PropertyValue, aok bool, b types.PropertyValue, bok bool, aID, bID string) bool {
	switch {
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	case !aok && !bok:
		return aID < bID
	}
	if cmp, ok := a.Compare(b); ok {
		if cmp != 0 {
			return cmp < 0
		}
		return aID < bID
	}
	if as, bs := a.String(), b.String(); as != bs {
		return as < bs
	}
	return aID < bID
}

func paginate[T any](items []T, offset, limit int) ([]T, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("pagination: %w", types.ErrInvalidLimit)
	}
	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}
