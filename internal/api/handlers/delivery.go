package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api/middleware"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/order"
	"github.com/greenbasket/orderapi/internal/repository"
	"github.com/greenbasket/orderapi/internal/tracking"
)

// UpdateDeliveryStatus advances an assigned order along the delivery
// chain. Only the forward transitions are reachable here; cancellation
// has its own endpoint and rules.
func UpdateDeliveryStatus(orders *order.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		updated, err := orders.UpdateStatus(c.Request.Context(), account, orderID, domain.OrderStatus(req.Status))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// ReportLocation stores the partner's latest position. Latest value
// wins; there is no history.
func ReportLocation(locations tracking.LocationStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		var req struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "coordinates out of range"})
			return
		}

		if err := locations.Set(c.Request.Context(), account.ID, req.Latitude, req.Longitude); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

// ListAssignedOrders returns the orders assigned to the authenticated
// delivery partner.
func ListAssignedOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)
		limit, offset := parsePagination(c)

		found, err := repos.Order.ListByPartner(c.Request.Context(), account.ID, limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": found,
			"count":  len(found),
		})
	}
}
