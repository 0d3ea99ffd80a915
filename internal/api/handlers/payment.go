package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api/middleware"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/payment"
)

type checkoutBody struct {
	Address  domain.Address  `json:"address"`
	GiftWrap domain.GiftWrap `json:"giftWrap"`
	Type     string          `json:"type"`
}

func (b checkoutBody) toRequest() payment.CheckoutRequest {
	return payment.CheckoutRequest{
		Address:  b.Address,
		GiftWrap: b.GiftWrap,
		Type:     domain.OrderType(b.Type),
	}
}

// CreateRazorpayOrder registers a gateway transaction for the current
// cart total. The amount is computed server-side; no order row exists
// until the payment is verified.
func CreateRazorpayOrder(reconciler *payment.Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		var req checkoutBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		gatewayOrder, err := reconciler.CreateGatewayOrder(c.Request.Context(), account, account.ID.String(), req.toRequest())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"razorpayOrderId": gatewayOrder.ID,
			"amount":          gatewayOrder.Amount,
			"currency":        gatewayOrder.Currency,
		})
	}
}

// VerifyAndCreateOrder validates the gateway's signed confirmation and
// freezes the cart into a confirmed order.
func VerifyAndCreateOrder(reconciler *payment.Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		var req struct {
			RazorpayOrderID   string       `json:"razorpayOrderId"`
			RazorpayPaymentID string       `json:"razorpayPaymentId"`
			RazorpaySignature string       `json:"razorpaySignature"`
			Checkout          checkoutBody `json:"checkout"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		created, err := reconciler.VerifyAndCreateOrder(c.Request.Context(), account, account.ID.String(), payment.VerifyRequest{
			GatewayOrderID: req.RazorpayOrderID,
			PaymentID:      req.RazorpayPaymentID,
			Signature:      req.RazorpaySignature,
			Checkout:       req.Checkout.toRequest(),
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

// RecordPaymentFailure notes a gateway-reported failure so a later
// status poll resolves to cancelled instead of hanging on pending.
func RecordPaymentFailure(reconciler *payment.Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RazorpayOrderID string `json:"razorpayOrderId"`
			Reason          string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		if err := reconciler.RecordFailure(c.Request.Context(), req.RazorpayOrderID, req.Reason); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"recorded": true})
	}
}

// PaymentStatus answers the pending-payment poll for one gateway order
func PaymentStatus(reconciler *payment.Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := reconciler.Status(c.Request.Context(), c.Param("gatewayOrderId"))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}
