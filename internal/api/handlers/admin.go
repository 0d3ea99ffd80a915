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
)

// AdminListOrders returns all orders, optionally filtered by status
func AdminListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := parsePagination(c)

		var (
			found []*domain.Order
			err   error
		)
		if raw := c.Query("status"); raw != "" {
			status := domain.OrderStatus(raw)
			if !status.IsValid() {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid status filter"})
				return
			}
			found, err = repos.Order.ListByStatus(c.Request.Context(), status, limit, offset)
		} else {
			found, err = repos.Order.List(c.Request.Context(), limit, offset)
		}
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

// ConfirmOrder moves a pending COD order into the delivery pipeline
func ConfirmOrder(orders *order.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		confirmed, err := orders.UpdateStatus(c.Request.Context(), account, orderID, domain.OrderStatusConfirmed)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, confirmed)
	}
}

// AssignPartner attaches a delivery partner to a confirmed order
func AssignPartner(orders *order.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		var req struct {
			PartnerID string `json:"partnerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		partnerID, err := uuid.Parse(req.PartnerID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid partner id"})
			return
		}

		assigned, err := orders.AssignPartner(c.Request.Context(), account, orderID, partnerID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, assigned)
	}
}
