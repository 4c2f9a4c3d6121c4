package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-booking-api/api/swagger"
	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	"github.com/noah-isme/tutor-booking-api/internal/router"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/pkg/cache"
	"github.com/noah-isme/tutor-booking-api/pkg/checkout"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutor-booking-api/pkg/storage"
)

// @title Tutor Booking API
// @version 1.0.0
// @description Booking eligibility, pricing and checkout for tutoring lessons
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Redis backs an optional cache and the redirect replay guard; both degrade to no-ops.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	loc := cfg.Booking.Location()
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	profiles := repository.NewTeacherProfileRepository(db)
	bookings := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	redirects := repository.NewRedirectRepository(redisClient)

	signer := storage.NewSignedURLSigner(cfg.Checkout.SigningSecret, cfg.Checkout.RedirectTTL)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.AvailabilityTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	profileSvc := service.NewTeacherProfileService(profiles, cacheSvc, cfg.Cache.AvailabilityTTL, validate, logr, loc)
	pricing := service.NewPricingPolicy(cfg.Checkout.Currency)
	bookingSvc := service.NewBookingService(bookings, profileSvc, pricing, redirects, signer, metrics, validate, logr, service.BookingServiceConfig{
		ReplayTTL: cfg.Checkout.ReplayTTL,
	})
	intents := service.NewBookingIntentBuilder(pricing, loc, time.Now)
	checkoutSvc := service.NewCheckoutService(profileSvc, intents, bookingSvc, newGateway(cfg.Checkout, logr), signer, metrics, logr, service.CheckoutConfig{
		FrontendBaseURL: cfg.Checkout.FrontendBaseURL,
	})
	receiptSvc := service.NewReceiptService(bookingSvc, export.NewPDFExporter(), loc, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	router.Register(r, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Teachers: handler.NewTeacherProfileHandler(profileSvc),
		Bookings: handler.NewBookingHandler(checkoutSvc, bookingSvc, receiptSvc),
		Metrics:  handler.NewMetricsHandler(metrics, checks),
	}, router.Options{
		APIPrefix: cfg.APIPrefix,
		Tokens:    authSvc,
		Metrics:   metrics,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "checkout_provider", cfg.Checkout.Provider)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newGateway(cfg config.CheckoutConfig, logr *zap.Logger) checkout.Gateway {
	switch cfg.Provider {
	case config.CheckoutProviderMidtrans:
		if cfg.ServerKey == "" {
			logr.Warn("midtrans selected without a server key, checkout disabled")
			return checkout.DisabledGateway{}
		}
		return checkout.NewMidtransGateway(cfg.ServerKey, cfg.Production)
	default:
		return checkout.DisabledGateway{}
	}
}

func redisPinger(client *redis.Client) handler.PingerFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
