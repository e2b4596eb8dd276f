package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"inkmirror-ai/internal/config"
	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/services"
	"inkmirror-ai/internal/infrastructure/cache"
	"inkmirror-ai/internal/infrastructure/database"
	"inkmirror-ai/internal/infrastructure/entitlement"
	"inkmirror-ai/internal/infrastructure/imaging"
	"inkmirror-ai/internal/interfaces/http/handlers"
	"inkmirror-ai/internal/interfaces/http/middleware"
)

func main() {
	cfg := config.Load()

	stripe.Key = cfg.Billing.StripeSecret
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	ledgerRepo := database.NewLedgerRepository(db)
	deviceRepo := database.NewDeviceRepository(db)
	remoteStore := cache.NewRemoteLedgerStore(redisClient)
	entitlements := entitlement.NewStripeClient(logger)
	imageClient := imaging.NewClient(&cfg.Imaging)

	plans := models.DefaultPlanTable()
	tokenService := services.NewTokenService(cfg.Token.Secret, cfg.Token.Expiration)
	identityService := services.NewIdentityService(deviceRepo, ledgerRepo, remoteStore, tokenService, logger)
	ledgerService := services.NewLedgerService(ledgerRepo, remoteStore, plans, cfg.Credits.FreeGrant, logger)
	syncService := services.NewSyncService(ledgerService, remoteStore, entitlements, plans, logger)
	generationService := services.NewGenerationService(ledgerService, imageClient, logger)

	identityHandler := handlers.NewIdentityHandler(identityService, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, syncService, logger)
	generationHandler := handlers.NewGenerationHandler(generationService, logger)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": db,
		"redis":    redisClient,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", healthHandler.Health)

	router.POST("/api/devices/register", identityHandler.RegisterDevice)

	authed := router.Group("/api", middleware.DeviceAuth(identityService))
	{
		authed.GET("/credits", ledgerHandler.GetCredits)
		authed.POST("/purchases/confirm", ledgerHandler.ConfirmPurchase)
		authed.POST("/sync", ledgerHandler.Sync)
		authed.POST("/generations", generationHandler.Generate)
		authed.DELETE("/devices", identityHandler.WipeDevice)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Ledger Service stopped")
}
