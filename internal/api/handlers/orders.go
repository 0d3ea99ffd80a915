package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api/middleware"
	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/coupon"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/order"
	"github.com/greenbasket/orderapi/internal/payment"
	"github.com/greenbasket/orderapi/internal/repository"
	"github.com/greenbasket/orderapi/internal/tracking"
)

// CreateOrder is the cash-on-delivery checkout. Online payments go
// through the payment endpoints instead; this path never touches the
// gateway. An optional couponCode is applied to the cart first, and a
// stale code rejects the checkout rather than silently dropping the
// discount.
func CreateOrder(reconciler *payment.Reconciler, engine *coupon.Engine, user *cart.Ledger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		var req struct {
			PaymentMethod string          `json:"paymentMethod"`
			Address       domain.Address  `json:"address"`
			GiftWrap      domain.GiftWrap `json:"giftWrap"`
			Type          string          `json:"type"`
			CouponCode    string          `json:"couponCode"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		if domain.PaymentMethod(req.PaymentMethod) != domain.PaymentMethodCOD {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "only COD orders are created here; online payments go through /payment",
			})
			return
		}

		cartID := account.ID.String()
		if code := strings.TrimSpace(req.CouponCode); code != "" {
			if _, err := engine.Apply(c.Request.Context(), user, cartID, account.Role, code); err != nil {
				respondError(c, logger, err)
				return
			}
		}

		created, err := reconciler.CreateCashOrder(c.Request.Context(), account, cartID, payment.CheckoutRequest{
			Address:  req.Address,
			GiftWrap: req.GiftWrap,
			Type:     domain.OrderType(req.Type),
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

// GetOrder returns one order with its item snapshot
func GetOrder(orders *order.Service, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		found, err := orders.Get(c.Request.Context(), account, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		items, err := repos.Order.GetItems(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"order": found,
			"items": items,
		})
	}
}

// ListOrders returns the authenticated account's order history,
// newest first.
func ListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)
		limit, offset := parsePagination(c)

		found, err := repos.Order.ListByAccount(c.Request.Context(), account.ID, limit, offset)
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

// CancelOrder cancels a pending or confirmed order with a mandatory
// reason.
func CancelOrder(orders *order.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		cancelled, err := orders.Cancel(c.Request.Context(), account, orderID, req.Reason)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, cancelled)
	}
}

func trackingPayload(snap *tracking.Snapshot) gin.H {
	return gin.H{
		"orderId": snap.OrderID,
		"status":  snap.Status,
		"deliveryPartner": gin.H{
			"liveLocation": snap.PartnerLocation,
		},
		"destination": snap.Destination,
		"distanceKm":  snap.DistanceKm,
		"etaMinutes":  snap.EtaMinutes,
	}
}

// TrackOrder returns one tracking snapshot for an order that is out
// for delivery.
func TrackOrder(orders *order.Service, tracker *tracking.Tracker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		// Visibility check happens before any tracking work
		if _, err := orders.Get(c.Request.Context(), account, orderID); err != nil {
			respondError(c, logger, err)
			return
		}

		snap, err := tracker.Snapshot(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, trackingPayload(snap))
	}
}

// TrackOrderLive streams tracking snapshots over server-sent events
// until the order leaves a trackable state or the client disconnects.
func TrackOrderLive(orders *order.Service, tracker *tracking.Tracker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := middleware.GetAccountFromContext(c)

		orderID, err := uuid.Parse(c.Param("orderId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order id"})
			return
		}

		if _, err := orders.Get(c.Request.Context(), account, orderID); err != nil {
			respondError(c, logger, err)
			return
		}

		feed := tracking.NewFeed(tracker, orderID, tracking.DefaultFeedInterval, logger)
		go feed.Run(c.Request.Context())
		defer feed.Stop()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			snap, ok := <-feed.Snapshots()
			if !ok {
				return false
			}
			c.SSEvent("tracking", trackingPayload(snap))
			return true
		})
	}
}
