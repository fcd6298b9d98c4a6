package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/queue/tasks"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/pkg/config"
	"github.com/reelwork/marketplace/pkg/database"
	"github.com/reelwork/marketplace/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Name: "main", MaxOpenConns: 5})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	identityDB, err := database.OpenPostgres(ctx, cfg.IdentityDatabaseURL, database.Options{Name: "identity", MaxOpenConns: 5})
	if err != nil {
		log.Fatal("failed to open identity database", zap.Error(err))
	}
	defer database.Close(identityDB)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.L().Error("cleanup task failed",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	handler := tasks.NewCleanupTaskHandler(repository.NewUserRepository(db), identity.NewGormProvider(identityDB))
	handler.Register(mux)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	srv.Shutdown()
}
