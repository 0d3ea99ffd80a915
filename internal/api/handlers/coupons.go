package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/coupon"
)

// ApplyCoupon validates a code against the current cart and attaches it.
// The response carries the refetched cart so the caller replaces its
// state wholesale instead of patching totals locally.
func ApplyCoupon(engine *coupon.Engine, guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := engine.Apply(c.Request.Context(), scope.ledger, scope.cartID, scope.role, req.Code)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"coupon":  view.AppliedCoupon,
			"pricing": view.Breakdown,
			"cart":    view,
		})
	}
}

// RemoveCoupon detaches the applied coupon, if any
func RemoveCoupon(engine *coupon.Engine, guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := engine.Remove(c.Request.Context(), scope.ledger, scope.cartID, scope.role)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"pricing": view.Breakdown,
			"cart":    view,
		})
	}
}
