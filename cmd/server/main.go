package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/api"
	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/config"
	"github.com/greenbasket/orderapi/internal/coupon"
	"github.com/greenbasket/orderapi/internal/events"
	"github.com/greenbasket/orderapi/internal/order"
	"github.com/greenbasket/orderapi/internal/payment"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository/postgres"
	"github.com/greenbasket/orderapi/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	repos := postgres.NewRepositories(db, logger)
	delivery := pricing.NewConfigSource(cfg.Delivery)

	bus := events.NewRedisBus(redisClient, logger)
	notifier := events.NewAdminNotifier(bus, logger)
	go func() {
		if err := notifier.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Admin notifier stopped", zap.Error(err))
		}
	}()

	// Guest carts stay in process memory; account carts live in Redis and
	// re-resolve catalog prices on every read
	guestCart := cart.NewLedger(cart.NewMemoryBackend(), repos.Product, delivery, false, logger)
	userCart := cart.NewLedger(cart.NewRedisBackend(redisClient), repos.Product, delivery, true, logger)
	mergeGuard := cart.NewRedisMergeGuard(redisClient)

	coupons := coupon.NewEngine(repos.Coupon, logger)
	orders := order.NewService(repos, coupons, delivery, bus, logger)

	gateway := payment.NewRazorpayClient(cfg.Razorpay, logger)
	attempts := payment.NewRedisAttemptStore(redisClient)
	payments := payment.NewReconciler(gateway, userCart, orders, repos.Order, delivery, attempts, logger)

	locations := tracking.NewRedisLocationStore(redisClient)
	geocoder := tracking.NewHTTPGeocoder(cfg.Geocoder, logger)
	tracker := tracking.NewTracker(locations, geocoder, repos.Order, logger)

	router := api.NewRouter(api.Deps{
		Config:     cfg,
		Repos:      repos,
		GuestCart:  guestCart,
		UserCart:   userCart,
		MergeGuard: mergeGuard,
		Coupons:    coupons,
		Orders:     orders,
		Payments:   payments,
		Tracker:    tracker,
		Locations:  locations,
		Delivery:   delivery,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
