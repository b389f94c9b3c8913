package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tapestry-kg/tapestry/pkg/server/dto"
	"github.com/tapestry-kg/tapestry/pkg/types"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateID),
		errors.Is(err, types.ErrConflict),
		errors.Is(err, types.ErrHasDependentEdges):
		return http.StatusConflict
	case errors.Is(err, types.ErrUnknownNode),
		errors.Is(err, types.ErrInvalidPattern),
		errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrInvalidLimit),
		errors.Is(err, types.ErrEmptyID),
		errors.Is(err, types.ErrEmptyLabel),
		errors.Is(err, types.ErrInvalidType),
		errors.Is(err, types.ErrInvalidWeight),
		errors.Is(err, types.ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrTooLargeForExactComputation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), dto.Error(err.Error()))
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.Error(err.Error()))
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Success(data))
}
