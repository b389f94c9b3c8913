package query

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/tapestry-kg/tapestry/pkg/graph"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// PathType selects the path-finding strategy.
type PathType string

const (
	// PathShortest finds the minimum-weight path (Dijkstra; plain BFS when
	// every traversable edge has the same weight).
	PathShortest PathType = "shortest"
	// PathAll finds all paths up to the length bound without repeating an
	// edge.
	PathAll PathType = "all"
	// PathAcyclic finds all simple paths (no repeated node) up to the
	// length bound.
	PathAcyclic PathType = "acyclic"
)

// PathConstraints prune the path search.
type PathConstraints struct {
	MaxLength          int              `json:"max_length,omitempty"`
	AllowedNodeTypes   []types.NodeType `json:"allowed_node_types,omitempty"`
	ForbiddenNodeTypes []types.NodeType `json:"forbidden_node_types,omitempty"`
	AllowedEdgeTypes   []types.EdgeType `json:"allowed_edge_types,omitempty"`
	ForbiddenEdgeTypes []types.EdgeType `json:"forbidden_edge_types,omitempty"`
	MinWeight          float64          `json:"min_weight,omitempty"`
	Direction          types.Direction  `json:"direction,omitempty"`
}

// PathQuery finds paths from Start, optionally to End. When End is empty a
// shortest-path query returns one minimum path per reachable node, and an
// all/acyclic query enumerates paths to every reachable node.
type PathQuery struct {
	Start       string          `json:"start"`
	End         string          `json:"end,omitempty"`
	Type        PathType        `json:"type"`
	Constraints PathConstraints `json:"constraints,omitempty"`
	Limit       int             `json:"limit,omitempty"`
}

// Path is an ordered walk through the graph.
type Path struct {
	Nodes  []string `json:"nodes"`
	Edges  []string `json:"edges"`
	Weight float64  `json:"weight"`
}

// defaultPathBound caps enumeration when the caller gives no MaxLength.
const defaultPathBound = 6

// FindPath answers a path query against a pinned snapshot.
func (e *Engine) FindPath(ctx context.Context, q PathQuery) ([]Path, error) {
	snap := e.store.Snapshot()
	return findPathSnapshot(ctx, snap, q)
}

func findPathSnapshot(ctx context.Context, snap *graph.Snapshot, q PathQuery) ([]Path, error) {
	if !snap.HasNode(q.Start) {
		return nil, fmt.Errorf("find path: start %q: %w", q.Start, types.ErrNotFound)
	}
	if q.End != "" && !snap.HasNode(q.End) {
		return nil, fmt.Errorf("find path: end %q: %w", q.End, types.ErrNotFound)
	}

	pc := newPathContext(snap, q.Constraints)
	switch q.Type {
	case PathShortest, "":
		return pc.shortest(ctx, q.Start, q.End)
	case PathAll:
		return pc.enumerate(ctx, q.Start, q.End, q.Limit, false)
	case PathAcyclic:
		return pc.enumerate(ctx, q.Start, q.End, q.Limit, true)
	}
	return nil, fmt.Errorf("find path: unknown path type %q", q.Type)
}

type pathContext struct {
	snap      *graph.Snapshot
	direction types.Direction
	maxLength int
	minWeight float64

	allowedNodes, forbiddenNodes map[types.NodeType]struct{}
	allowedEdges, forbiddenEdges map[types.EdgeType]struct{}
}

func newPathContext(snap *graph.Snapshot, c PathConstraints) *pathContext {
	pc := &pathContext{
		snap:      snap,
		direction: c.Direction,
		maxLength: c.MaxLength,
		minWeight: c.MinWeight,
	}
	if pc.direction == "" {
		pc.direction = types.DirectionOutgoing
	}
	if len(c.AllowedNodeTypes) > 0 {
		pc.allowedNodes = make(map[types.NodeType]struct{})
		for _, t := range c.AllowedNodeTypes {
			pc.allowedNodes[t] = struct{}{}
		}
	}
	if len(c.ForbiddenNodeTypes) > 0 {
		pc.forbiddenNodes = make(map[types.NodeType]struct{})
		for _, t := range c.ForbiddenNodeTypes {
			pc.forbiddenNodes[t] = struct{}{}
		}
	}
	if len(c.AllowedEdgeTypes) > 0 {
		pc.allowedEdges = make(map[types.EdgeType]struct{})
		for _, t := range c.AllowedEdgeTypes {
			pc.allowedEdges[t] = struct{}{}
		}
	}
	if len(c.ForbiddenEdgeTypes) > 0 {
		pc.forbiddenEdges = make(map[types.EdgeType]struct{})
		for _, t := range c.ForbiddenEdgeTypes {
			pc.forbiddenEdges[t] = struct{}{}
		}
	}
	return pc
}

func (pc *pathContext) edgeAllowed(e *types.Edge) bool {
	if pc.allowedEdges != nil {
		if _, ok := pc.allowedEdges[e.Type]; !ok {
			return false
		}
	}
	if pc.forbiddenEdges != nil {
		if _, ok := pc.forbiddenEdges[e.Type]; ok {
			return false
		}
	}
	return e.Weight >= pc.minWeight
}

func (pc *pathContext) nodeAllowed(id string) bool {
	node := pc.snap.Node(id)
	if pc.allowedNodes != nil {
		if _, ok := pc.allowedNodes[node.Type]; !ok {
			return false
		}
	}
	if pc.forbiddenNodes != nil {
		if _, ok := pc.forbiddenNodes[node.Type]; ok {
			return false
		}
	}
	return true
}

// pqItem is a frontier entry in the shortest-path search. Ties on distance
// are broken by the lexicographically lowest edge-id sequence so results
// are reproducible.
type pqItem struct {
	node  string
	dist  float64
	nodes []string
	edges []string
}

type pathPQ []*pqItem

func (pq pathPQ) Len() int { return len(pq) }
func (pq pathPQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return lessEdgeSeq(pq[i].edges, pq[j].edges)
}
func (pq pathPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *pathPQ) Push(x any)   { *pq = append(*pq, x.(*pqItem)) }
func (pq *pathPQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

func lessEdgeSeq(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// shortest runs Dijkstra from start. With no end node it returns the best
// path to every reachable node, in target-id order.
func (pc *pathContext) shortest(ctx context.Context, start, end string) ([]Path, error) {
	settled := make(map[string]*pqItem)
	pq := pathPQ{{node: start, dist: 0, nodes: []string{start}}}
	heap.Init(&pq)

	steps := 0
	for pq.Len() > 0 {
		steps++
		if steps%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("shortest path: %w", err)
			}
		}

		item := heap.Pop(&pq).(*pqItem)
		if _, done := settled[item.node]; done {
			continue
		}
		settled[item.node] = item
		if end != "" && item.node == end {
			break
		}
		if pc.maxLength > 0 && len(item.edges) >= pc.maxLength {
			continue
		}

		for _, step := range pc.snap.Steps(item.node, pc.direction, nil) {
			if !pc.edgeAllowed(step.Edge) || !pc.nodeAllowed(step.Node) {
				continue
			}
			if _, done := settled[step.Node]; done {
				continue
			}
			heap.Push(&pq, &pqItem{
				node:  step.Node,
				dist:  item.dist + step.Edge.Weight,
				nodes: append(append([]string(nil), item.nodes...), step.Node),
				edges: append(append([]string(nil), item.edges...), step.Edge.ID),
			})
		}
	}

	if end != "" {
		item, ok := settled[end]
		if !ok {
			return nil, nil
		}
		return []Path{{Nodes: item.nodes, Edges: item.edges, Weight: item.dist}}, nil
	}

	var out []Path
	for _, id := range pc.snap.NodeIDs() {
		if item, ok := settled[id]; ok && id != start {
			out = append(out, Path{Nodes: item.nodes, Edges: item.edges, Weight: item.dist})
		}
	}
	return out, nil
}

// enumerate lists paths by depth-first search in edge-id order; simple
// restricts to paths that never revisit a node, otherwise only edge reuse
// is forbidden.
func (pc *pathContext) enumerate(ctx context.Context, start, end string, limit int, simple bool) ([]Path, error) {
	bound := pc.maxLength
	if bound <= 0 {
		bound = defaultPathBound
	}

	var out []Path
	onPathNodes := map[string]int{start: 1}
	onPathEdges := make(map[string]struct{})
	nodes := []string{start}
	edges := []string{}
	var weight float64
	steps := 0

	var dfs func(current string) error
	dfs = func(current string) error {
		steps++
		if steps%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("enumerate paths: %w", err)
			}
		}
		if limit > 0 && len(out) >= limit {
			return nil
		}
		if len(edges) > 0 && (end == "" || current == end) {
			out = append(out, Path{
				Nodes:  append([]string(nil), nodes...),
				Edges:  append([]string(nil), edges...),
				Weight: weight,
			})
			if end != "" {
				// Paths continuing through the end node are not wanted.
				return nil
			}
		}
		if len(edges) >= bound {
			return nil
		}

		for _, step := range pc.snap.Steps(current, pc.direction, nil) {
			if !pc.edgeAllowed(step.Edge) || !pc.nodeAllowed(step.Node) {
				continue
			}
			if _, used := onPathEdges[step.Edge.ID]; used {
				continue
			}
			if simple && onPathNodes[step.Node] > 0 {
				continue
			}

			onPathEdges[step.Edge.ID] = struct{}{}
			onPathNodes[step.Node]++
			nodes = append(nodes, step.Node)
			edges = append(edges, step.Edge.ID)
			weight += step.Edge.Weight

			if err := dfs(step.Node); err != nil {
				return err
			}

			delete(onPathEdges, step.Edge.ID)
			onPathNodes[step.Node]--
			nodes = nodes[:len(nodes)-1]
			edges = edges[:len(edges)-1]
			weight -= step.Edge.Weight
		}
		return nil
	}

	if err := dfs(start); err != nil {
		return nil, err
	}
	return out, nil
}
