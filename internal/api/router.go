package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api/handlers"
	"github.com/greenbasket/orderapi/internal/api/middleware"
	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/config"
	"github.com/greenbasket/orderapi/internal/coupon"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/order"
	"github.com/greenbasket/orderapi/internal/payment"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository"
	"github.com/greenbasket/orderapi/internal/tracking"
)

// Deps carries everything the HTTP surface needs
type Deps struct {
	Config     *config.Config
	Repos      *repository.Repositories
	GuestCart  *cart.Ledger
	UserCart   *cart.Ledger
	MergeGuard cart.MergeGuard
	Coupons    *coupon.Engine
	Orders     *order.Service
	Payments   *payment.Reconciler
	Tracker    *tracking.Tracker
	Locations  tracking.LocationStore
	Delivery   *pricing.ConfigSource
	Logger     *zap.Logger
}

// NewRouter wires all routes and middleware
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))

	corsConfig := cors.DefaultConfig()
	if len(d.Config.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = d.Config.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.DeviceIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/config/public", handlers.PublicConfig(d.Delivery))

	// Cart and coupon routes work for guests (device header) and
	// authenticated accounts alike
	open := v1.Group("")
	open.Use(middleware.OptionalAuth(d.Repos, d.Logger))
	{
		open.GET("/cart", handlers.GetCart(d.GuestCart, d.UserCart, d.Logger))
		open.POST("/cart/add", handlers.AddCartItem(d.GuestCart, d.UserCart, d.Logger))
		open.PUT("/cart/update/:itemId", handlers.UpdateCartItem(d.GuestCart, d.UserCart, d.Logger))
		open.DELETE("/cart/remove/:itemId", handlers.RemoveCartItem(d.GuestCart, d.UserCart, d.Logger))
		open.DELETE("/cart/clear", handlers.ClearCart(d.GuestCart, d.UserCart, d.Logger))
		open.PUT("/cart/giftwrap", handlers.SetGiftWrap(d.GuestCart, d.UserCart, d.Logger))

		open.POST("/coupons/apply", handlers.ApplyCoupon(d.Coupons, d.GuestCart, d.UserCart, d.Logger))
		open.DELETE("/coupons/remove", handlers.RemoveCoupon(d.Coupons, d.GuestCart, d.UserCart, d.Logger))
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(d.Repos, d.Logger))
	{
		authed.POST("/cart/merge", handlers.MergeCart(d.MergeGuard, d.GuestCart, d.UserCart, d.Logger))

		authed.POST("/orders/create", handlers.CreateOrder(d.Payments, d.Coupons, d.UserCart, d.Logger))
		authed.GET("/orders", handlers.ListOrders(d.Repos, d.Logger))
		authed.GET("/orders/:orderId", handlers.GetOrder(d.Orders, d.Repos, d.Logger))
		authed.POST("/orders/:orderId/cancel", handlers.CancelOrder(d.Orders, d.Logger))
		authed.GET("/orders/:orderId/track", handlers.TrackOrder(d.Orders, d.Tracker, d.Logger))
		authed.GET("/orders/:orderId/track/live", handlers.TrackOrderLive(d.Orders, d.Tracker, d.Logger))

		authed.POST("/payment/create-razorpay-order", handlers.CreateRazorpayOrder(d.Payments, d.Logger))
		authed.POST("/payment/verify-and-create-order", handlers.VerifyAndCreateOrder(d.Payments, d.Logger))
		authed.POST("/payment/failure", handlers.RecordPaymentFailure(d.Payments, d.Logger))
		authed.GET("/payment/status/:gatewayOrderId", handlers.PaymentStatus(d.Payments, d.Logger))
	}

	delivery := v1.Group("/delivery")
	delivery.Use(middleware.RequireAuth(d.Repos, d.Logger))
	delivery.Use(middleware.RequireRole(domain.RoleDeliveryPartner))
	{
		delivery.PUT("/orders/:orderId/status", handlers.UpdateDeliveryStatus(d.Orders, d.Logger))
		delivery.PUT("/location", handlers.ReportLocation(d.Locations, d.Logger))
		delivery.GET("/orders", handlers.ListAssignedOrders(d.Repos, d.Logger))
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAuth(d.Repos, d.Logger))
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/orders", handlers.AdminListOrders(d.Repos, d.Logger))
		admin.POST("/orders/:orderId/confirm", handlers.ConfirmOrder(d.Orders, d.Logger))
		admin.POST("/orders/:orderId/assign", handlers.AssignPartner(d.Orders, d.Logger))
	}

	return router
}
