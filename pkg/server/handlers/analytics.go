package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/analytics"
)

// AnalyticsHandler handles whole-graph analytics requests
type AnalyticsHandler struct {
	engine tapestry.Engine
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(engine tapestry.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine}
}

// Centrality handles POST /analytics/centrality
func (h *AnalyticsHandler) Centrality(c *gin.Context) {
	var spec analytics.CentralitySpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.engine.Centrality(c.Request.Context(), spec)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Communities handles POST /analytics/communities
func (h *AnalyticsHandler) Communities(c *gin.Context) {
	var req struct {
		Method analytics.CommunityMethod `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.engine.Communities(c.Request.Context(), req.Method)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Similarity handles POST /analytics/similarity
func (h *AnalyticsHandler) Similarity(c *gin.Context) {
	var spec analytics.SimilaritySpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondBadRequest(c, err)
		return
	}

	matrix, err := h.engine.NodeSimilarity(c.Request.Context(), spec)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, matrix)
}

// Statistics handles GET /analytics/statistics
func (h *AnalyticsHandler) Statistics(c *gin.Context) {
	stats, err := h.engine.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
