package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// respondError maps the typed domain errors onto HTTP statuses. Anything
// untyped is a server fault and gets logged with the request path.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch err.(type) {
	case *apperrors.ErrValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case *apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case *apperrors.ErrConflict, *apperrors.ErrInvalidStateTransition, *apperrors.ErrCouponExpired:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case *apperrors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case *apperrors.ErrGateway:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case *apperrors.ErrUpstreamUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
