// Package main runs the background job worker (confirmation emails, funnel
// analytics persistence).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brightpath-foundation/backend/config"
	"github.com/brightpath-foundation/backend/internal/analytics"
	"github.com/brightpath-foundation/backend/internal/emaillogs"
	"github.com/brightpath-foundation/backend/internal/worker"
	"github.com/brightpath-foundation/backend/pkg/database"
	"github.com/brightpath-foundation/backend/pkg/mailer"
	"github.com/brightpath-foundation/backend/pkg/queue"
	"github.com/brightpath-foundation/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	smtp := mailer.New(cfg.Email)
	if smtp == nil {
		logger.Warn("SMTP_HOST not set; emails will be logged as failed")
	}

	emailLogsRepo := emaillogs.NewRepository(pool)
	analyticsRepo := analytics.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(emailLogsRepo, analyticsRepo, smtp, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
