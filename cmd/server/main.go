// Package main runs the foundation website HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brightpath-foundation/backend/config"
	"github.com/brightpath-foundation/backend/internal/analytics"
	"github.com/brightpath-foundation/backend/internal/auth"
	"github.com/brightpath-foundation/backend/internal/emaillogs"
	"github.com/brightpath-foundation/backend/internal/events"
	"github.com/brightpath-foundation/backend/internal/formfields"
	"github.com/brightpath-foundation/backend/internal/gallery"
	"github.com/brightpath-foundation/backend/internal/middleware"
	"github.com/brightpath-foundation/backend/internal/pages"
	"github.com/brightpath-foundation/backend/internal/posts"
	"github.com/brightpath-foundation/backend/internal/registrations"
	"github.com/brightpath-foundation/backend/internal/settings"
	"github.com/brightpath-foundation/backend/pkg/database"
	"github.com/brightpath-foundation/backend/pkg/queue"
	"github.com/brightpath-foundation/backend/pkg/redis"
	"github.com/brightpath-foundation/backend/pkg/response"
	"github.com/brightpath-foundation/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	sink := analytics.NewQueueSink(jobQueue, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events and registration forms
	eventRepo := events.NewRepository(pool)
	formRepo := formfields.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, formRepo, logger)
	formHandler := formfields.NewHandler(formRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	var uploader registrations.Uploader
	if s3Client != nil {
		uploader = s3Client
	}
	registrationHandler := registrations.NewHandler(
		registrationRepo, eventRepo, formRepo, jobQueue, uploader, sink, cfg.Email.FromName, logger)

	// Funnel analytics
	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, eventRepo, registrationRepo, logger)

	// Content
	postRepo := posts.NewRepository(pool)
	postHandler := posts.NewHandler(postRepo, logger)
	pageRepo := pages.NewRepository(pool)
	pageHandler := pages.NewHandler(pageRepo, logger)
	galleryRepo := gallery.NewRepository(pool)
	var galleryUploader gallery.Uploader
	if s3Client != nil {
		galleryUploader = s3Client
	}
	galleryHandler := gallery.NewHandler(galleryRepo, galleryUploader, logger)
	settingRepo := settings.NewRepository(pool)
	settingHandler := settings.NewHandler(settingRepo, logger)

	// Email logs
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public site
	public := router.Group("/public")
	{
		public.GET("/events", eventHandler.List)
		public.GET("/events/:slug", eventHandler.GetBySlug)
		public.POST("/events/:slug/register", registrationHandler.Submit)
		public.POST("/events/:slug/register-legacy", registrationHandler.SubmitLegacy)
		public.POST("/events/:slug/attachments", registrationHandler.UploadAttachment)
		public.POST("/events/:slug/track", registrationHandler.Track)
		public.GET("/posts", postHandler.ListPublished)
		public.GET("/posts/:slug", postHandler.GetBySlug)
		public.GET("/pages/:slug", pageHandler.GetBySlug)
		public.GET("/gallery", galleryHandler.List)
		public.GET("/settings/:key", settingHandler.Get)
	}

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// Admin panel API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)
		api.POST("/auth/register", middleware.RequireRole("admin"), authHandler.Register)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("admin"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.Get)
		api.PUT("/events/:id", middleware.RequireRole("admin"), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole("admin"), eventHandler.Delete)
		api.GET("/events/:id/capacity", eventHandler.Capacity)
		api.GET("/events/:id/analytics", middleware.RequireRole("admin"), analyticsHandler.GetByEvent)

		// Registration form builder
		api.GET("/events/:id/registration-form", formHandler.GetForm)
		api.PUT("/events/:id/registration-form", middleware.RequireRole("admin"), formHandler.UpdateForm)
		api.POST("/registration-forms/:formID/fields", middleware.RequireRole("admin"), formHandler.AddField)
		api.PUT("/registration-forms/:formID/fields/:fieldID", middleware.RequireRole("admin"), formHandler.UpdateField)
		api.DELETE("/registration-forms/:formID/fields/:fieldID", middleware.RequireRole("admin"), formHandler.DeleteField)
		api.POST("/registration-forms/:formID/fields/:fieldID/reorder", middleware.RequireRole("admin"), formHandler.ReorderField)

		// Registrations
		api.GET("/events/:id/registrations", registrationHandler.List)
		api.GET("/events/:id/registrations/export", registrationHandler.ExportCSV)
		api.GET("/registrations/:subID/files/:fieldID", registrationHandler.AttachmentURL)
		api.GET("/events/:id/emails", middleware.RequireRole("admin"), emailLogsHandler.ListByEvent)
		api.POST("/emails/:id/resend", middleware.RequireRole("admin"), emailLogsHandler.Resend)

		// Content (editors and admins)
		api.GET("/posts", postHandler.List)
		api.POST("/posts", postHandler.Create)
		api.GET("/posts/:id", postHandler.Get)
		api.PUT("/posts/:id", postHandler.Update)
		api.DELETE("/posts/:id", postHandler.Delete)
		api.GET("/pages", pageHandler.List)
		api.PUT("/pages/:slug", pageHandler.Upsert)
		api.DELETE("/pages/:id", middleware.RequireRole("admin"), pageHandler.Delete)
		api.POST("/gallery", galleryHandler.Upload)
		api.PATCH("/gallery/:id", galleryHandler.UpdateCaption)
		api.DELETE("/gallery/:id", galleryHandler.Delete)
		api.GET("/settings", settingHandler.List)
		api.PUT("/settings/:key", middleware.RequireRole("admin"), settingHandler.Set)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
