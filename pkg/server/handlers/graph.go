package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/server/dto"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// GraphHandler handles node and edge CRUD requests
type GraphHandler struct {
	engine tapestry.Engine
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(engine tapestry.Engine) *GraphHandler {
	return &GraphHandler{engine: engine}
}

// CreateNode handles POST /nodes
func (h *GraphHandler) CreateNode(c *gin.Context) {
	var node types.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		respondBadRequest(c, err)
		return
	}

	created, err := h.engine.AddNode(c.Request.Context(), &node)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(created))
}

// GetNode handles GET /nodes/:id
func (h *GraphHandler) GetNode(c *gin.Context) {
	node, err := h.engine.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, node)
}

// UpdateNode handles PATCH /nodes/:id
func (h *GraphHandler) UpdateNode(c *gin.Context) {
	var patch types.NodePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, err)
		return
	}

	updated, err := h.engine.UpdateNode(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DeleteNode handles DELETE /nodes/:id. The cascade query parameter removes
// incident edges along with the node.
func (h *GraphHandler) DeleteNode(c *gin.Context) {
	cascade := c.Query("cascade") == "true"
	if err := h.engine.DeleteNode(c.Request.Context(), c.Param("id"), cascade); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": c.Param("id")})
}

// CreateEdge handles POST /edges
func (h *GraphHandler) CreateEdge(c *gin.Context) {
	var edge types.Edge
	if err := c.ShouldBindJSON(&edge); err != nil {
		respondBadRequest(c, err)
		return
	}

	created, err := h.engine.AddEdge(c.Request.Context(), &edge)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(created))
}

// GetEdge handles GET /edges/:id
func (h *GraphHandler) GetEdge(c *gin.Context) {
	edge, err := h.engine.GetEdge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, edge)
}

// UpdateEdge handles PATCH /edges/:id
func (h *GraphHandler) UpdateEdge(c *gin.Context) {
	var patch types.EdgePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, err)
		return
	}

	updated, err := h.engine.UpdateEdge(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DeleteEdge handles DELETE /edges/:id
func (h *GraphHandler) DeleteEdge(c *gin.Context) {
	if err := h.engine.DeleteEdge(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": c.Param("id")})
}
