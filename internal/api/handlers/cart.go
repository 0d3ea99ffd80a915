package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api/middleware"
	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/domain"
)

// cartScope binds a request to the backing cart it operates on: the
// account's remote cart when authenticated, the device's guest cart
// otherwise.
type cartScope struct {
	ledger *cart.Ledger
	cartID string
	role   domain.Role
}

func resolveCartScope(c *gin.Context, guest, user *cart.Ledger) (*cartScope, bool) {
	if account, ok := middleware.GetAccountFromContext(c); ok {
		return &cartScope{
			ledger: user,
			cartID: account.ID.String(),
			role:   account.Role,
		}, true
	}

	deviceID := strings.TrimSpace(c.GetHeader(middleware.DeviceIDHeader))
	if deviceID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "X-Device-ID header is required for guest cart access",
		})
		return nil, false
	}

	return &cartScope{
		ledger: guest,
		cartID: deviceID,
		role:   domain.RoleCustomer,
	}, true
}

// GetCart returns the authoritative cart state
func GetCart(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.Fetch(c.Request.Context(), scope.cartID, scope.role)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// AddCartItem puts count units of a product into the cart
func AddCartItem(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID string `json:"productId" binding:"required"`
			Count     int    `json:"count" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid product id"})
			return
		}

		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.AddItem(c.Request.Context(), scope.cartID, scope.role, productID, req.Count)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// UpdateCartItem sets an existing line's quantity
func UpdateCartItem(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := uuid.Parse(c.Param("itemId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid item id"})
			return
		}

		var req struct {
			Count int `json:"count"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.UpdateQuantity(c.Request.Context(), scope.cartID, scope.role, productID, req.Count)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// RemoveCartItem deletes a line from the cart
func RemoveCartItem(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := uuid.Parse(c.Param("itemId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid item id"})
			return
		}

		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.RemoveItem(c.Request.Context(), scope.cartID, scope.role, productID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// ClearCart empties the cart entirely
func ClearCart(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.Clear(c.Request.Context(), scope.cartID, scope.role)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// SetGiftWrap toggles gift wrapping and its card message
func SetGiftWrap(guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Enabled bool   `json:"enabled"`
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		scope, ok := resolveCartScope(c, guest, user)
		if !ok {
			return
		}

		view, err := scope.ledger.SetGiftWrap(c.Request.Context(), scope.cartID, scope.role, domain.GiftWrap{
			Enabled: req.Enabled,
			Message: req.Message,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// MergeCart migrates the device's guest cart into the authenticated
// account's cart. Called once after login; repeat calls are no-ops.
func MergeCart(guard cart.MergeGuard, guest, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := middleware.GetAccountFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		deviceID := strings.TrimSpace(c.GetHeader(middleware.DeviceIDHeader))
		if deviceID == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "X-Device-ID header is required to merge a guest cart",
			})
			return
		}

		view, err := cart.MergeGuestCart(c.Request.Context(), guard, guest, user,
			deviceID, account.ID.String(), account.Role, logger)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}
