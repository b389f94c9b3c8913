package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/index"
	"github.com/tapestry-kg/tapestry/pkg/query"
	"github.com/tapestry-kg/tapestry/pkg/server/dto"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// QueryHandler handles query and traversal requests
type QueryHandler struct {
	engine tapestry.Engine
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(engine tapestry.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// QueryNodes handles POST /query/nodes
func (h *QueryHandler) QueryNodes(c *gin.Context) {
	var q query.NodeQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, err)
		return
	}

	nodes, err := h.engine.QueryNodes(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nodes)
}

// QueryEdges handles POST /query/edges
func (h *QueryHandler) QueryEdges(c *gin.Context) {
	var q query.EdgeQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, err)
		return
	}

	edges, err := h.engine.QueryEdges(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, edges)
}

// MatchPattern handles POST /query/pattern
func (h *QueryHandler) MatchPattern(c *gin.Context) {
	var pattern query.Pattern
	if err := c.ShouldBindJSON(&pattern); err != nil {
		respondBadRequest(c, err)
		return
	}

	matches, err := h.engine.MatchPattern(c.Request.Context(), pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, matches)
}

// FindPath handles POST /query/path
func (h *QueryHandler) FindPath(c *gin.Context) {
	var q query.PathQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, err)
		return
	}

	paths, err := h.engine.FindPath(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, paths)
}

// Traverse handles POST /query/traverse
func (h *QueryHandler) Traverse(c *gin.Context) {
	var spec query.TraversalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondBadRequest(c, err)
		return
	}

	visits, err := h.engine.Traverse(c.Request.Context(), spec)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, visits)
}

// Subgraph handles POST /query/subgraph
func (h *QueryHandler) Subgraph(c *gin.Context) {
	var q query.SubgraphQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, err)
		return
	}

	sub, err := h.engine.QuerySubgraph(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sub)
}

// FindSimilar handles POST /query/similar
func (h *QueryHandler) FindSimilar(c *gin.Context) {
	var req dto.SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondBadRequest(c, err)
		return
	}

	k := req.K
	if k == 0 {
		k = 10
	}
	metric := index.Metric(req.Metric)
	if metric == "" {
		metric = index.MetricCosine
	}

	result, err := h.engine.FindSimilar(req.Vector, k, req.MinScore, metric)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// FindByProperty handles GET /query/property
func (h *QueryHandler) FindByProperty(c *gin.Context) {
	filter := index.Filter{
		Key:   c.Query("key"),
		Value: c.Query("value"),
	}
	if raw := c.Query("node_types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.NodeTypes = append(filter.NodeTypes, types.NodeType(t))
		}
	}

	respondOK(c, h.engine.FindByProperty(filter))
}
