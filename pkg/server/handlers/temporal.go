package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tapestry-kg/tapestry"
	"github.com/tapestry-kg/tapestry/pkg/server/dto"
)

// TemporalHandler handles historical reconstruction requests
type TemporalHandler struct {
	engine tapestry.Engine
}

// NewTemporalHandler creates a new temporal handler
func NewTemporalHandler(engine tapestry.Engine) *TemporalHandler {
	return &TemporalHandler{engine: engine}
}

// TimeSlice handles POST /temporal/slice
func (h *TemporalHandler) TimeSlice(c *gin.Context) {
	var req dto.TimeSliceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondBadRequest(c, err)
		return
	}

	slice, err := h.engine.TimeSlice(c.Request.Context(), req.Date, req.Window())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"at":    slice.At,
		"nodes": slice.Nodes(),
		"edges": slice.Edges(),
	})
}

// TrackChange handles POST /temporal/changes
func (h *TemporalHandler) TrackChange(c *gin.Context) {
	var req dto.TrackChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondBadRequest(c, err)
		return
	}

	report, err := h.engine.TrackChange(c.Request.Context(), req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}

// Evolution handles GET /temporal/evolution/:id
func (h *TemporalHandler) Evolution(c *gin.Context) {
	evo, err := h.engine.Evolution(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, evo)
}
