package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutorin-api/api/swagger"
	"github.com/noah-isme/tutorin-api/internal/handler"
	"github.com/noah-isme/tutorin-api/internal/middleware"
	"github.com/noah-isme/tutorin-api/internal/repository"
	"github.com/noah-isme/tutorin-api/internal/service"
	"github.com/noah-isme/tutorin-api/pkg/cache"
	"github.com/noah-isme/tutorin-api/pkg/config"
	"github.com/noah-isme/tutorin-api/pkg/database"
	"github.com/noah-isme/tutorin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutorin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutorin-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutorin-api/pkg/realtime"
	"github.com/noah-isme/tutorin-api/pkg/storage"
)

// @title Tutorin API
// @version 0.1.0
// @description Tutoring marketplace backend: availability, slot matching and bookings
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades gracefully without Redis; slot lists are just
		// computed on every request.
		logr.Sugar().Warnw("redis unavailable, slot caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutorin-api",
	})

	metricsService := service.NewMetricsService()
	hub := realtime.NewHub(logr)

	notificationService := service.NewNotificationService(service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		WebhookURL: cfg.Notifications.WebhookURL,
		Timeout:    cfg.Notifications.Timeout,
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		BaseDelay:  cfg.Notifications.BaseDelay,
		MaxDelay:   cfg.Notifications.MaxDelay,
	}, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	notificationService.Start(rootCtx)
	defer notificationService.Stop()

	tutorService := service.NewTutorService(tutorRepo, cacheRepo, userRepo, metricsService, validate, logr, service.TutorServiceConfig{
		SlotsCacheTTL: cfg.Booking.SlotsCacheTTL,
	})
	bookingService := service.NewBookingService(bookingRepo, tutorRepo, userRepo, notificationService, hub, metricsService, validate, logr, service.BookingServiceConfig{
		MinDurationHours:      cfg.Booking.MinDurationHours,
		MaxDurationHours:      cfg.Booking.MaxDurationHours,
		BlockUnavailableSlots: cfg.Booking.BlockUnavailableSlots,
	})

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(bookingRepo, tutorRepo, exportStore, signer, logr)

		// Recap files are only reachable through their signed link, so once
		// the link TTL has passed the file can go too.
		retention := cfg.Exports.SignedURLTTL
		if retention <= 0 {
			retention = 24 * time.Hour
		}
		go func() {
			ticker := time.NewTicker(retention)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					deleted, err := exportStore.CleanupOlderThan(retention)
					if err != nil {
						logr.Sugar().Warnw("export cleanup failed", "error", err)
						continue
					}
					if len(deleted) > 0 {
						logr.Sugar().Infow("expired export files removed", "count", len(deleted))
					}
				}
			}
		}()
	}

	authHandler := handler.NewAuthHandler(authService)
	tutorHandler := handler.NewTutorHandler(tutorService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/ws", hub.Serve)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		}

		tutors := api.Group("/tutors")
		{
			tutors.GET("", tutorHandler.List)
			tutors.GET("/:id", tutorHandler.Get)
			tutors.POST("", middleware.JWT(authService), middleware.RBAC("ADMIN"), tutorHandler.Create)

			tutors.GET("/:id/availability", tutorHandler.GetAvailability)
			tutors.GET("/:id/slots", tutorHandler.Slots)

			edit := tutors.Group("", middleware.JWT(authService), middleware.RBAC("ADMIN", "TUTOR"))
			{
				edit.POST("/:id/availability/toggle-day", tutorHandler.ToggleDay)
				edit.POST("/:id/availability/toggle-hour", tutorHandler.ToggleHour)
				edit.PUT("/:id/availability", tutorHandler.SetSchedule)
			}
		}

		bookings := api.Group("/bookings", middleware.JWT(authService))
		{
			bookings.POST("/preview", bookingHandler.Preview)
			bookings.POST("", middleware.RBAC("STUDENT", "PARENT"), bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.PATCH("/:id/status", bookingHandler.UpdateStatus)
		}

		if exportService != nil {
			exportHandler := handler.NewExportHandler(exportService)
			api.POST("/tutors/:id/recap", middleware.JWT(authService), middleware.RBAC("ADMIN", "TUTOR"), exportHandler.GenerateRecap)
			api.GET("/exports/download", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped", zap.Int("open_ws_clients", hub.ClientCount()))
}
