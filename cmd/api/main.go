package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/api"
	"github.com/reelwork/marketplace/internal/api/handlers"
	mw "github.com/reelwork/marketplace/internal/api/middleware"
	"github.com/reelwork/marketplace/internal/auth"
	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/payments"
	"github.com/reelwork/marketplace/internal/queue/tasks"
	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/internal/services"
	"github.com/reelwork/marketplace/internal/session"
	"github.com/reelwork/marketplace/pkg/config"
	"github.com/reelwork/marketplace/pkg/database"
	"github.com/reelwork/marketplace/pkg/logger"
	"github.com/reelwork/marketplace/pkg/metrics"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting marketplace API",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Name: "main", Verbose: cfg.IsDevelopment()})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	identityDB, err := database.OpenPostgres(ctx, cfg.IdentityDatabaseURL, database.Options{Name: "identity", MaxOpenConns: 10})
	if err != nil {
		log.Fatal("Failed to connect to identity database", zap.Error(err))
	}
	defer database.Close(identityDB)
	log.Info("Databases connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()

	if cfg.StripeAPIKey == "" || cfg.StripeWebhookSecret == "" {
		log.Warn("Stripe credentials not set; payment endpoints will fail")
	}

	m := metrics.New()
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	sessions := session.NewRedisStore(rdb)
	identities := identity.NewGormProvider(identityDB)
	broker := realtime.NewRedisBroker(rdb)
	gateway := payments.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret, nil)
	enqueuer := tasks.NewEnqueuer(queue)

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobPostRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	authSvc := services.NewAuthService(userRepo, identities, sessions, tokens, enqueuer, m, cfg.SessionTTL)
	jobSvc := services.NewJobService(jobRepo, applicationRepo, broker, m)
	messageSvc := services.NewMessageService(messageRepo, userRepo, broker)
	profileSvc := services.NewProfileService(userRepo, identities, sessions, enqueuer)
	paymentSvc := services.NewPaymentService(paymentRepo, jobRepo, gateway, broker, m, cfg.PaymentCurrency)

	router := api.NewRouter(api.Dependencies{
		Authenticator:  mw.NewAuthenticator(tokens, sessions, cfg.SessionCookieName),
		Metrics:        m,
		Limiter:        mw.NewKeyLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Check{
			"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"identity": func(ctx context.Context) error { return database.Ping(ctx, identityDB) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		AuthHandler: handlers.NewAuthHandler(authSvc, handlers.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.CookieSecure,
		}),
		JobsHandler:     handlers.NewJobsHandler(jobSvc),
		MessagesHandler: handlers.NewMessagesHandler(messageSvc),
		UsersHandler:    handlers.NewUsersHandler(profileSvc),
		PaymentsHandler: handlers.NewPaymentsHandler(paymentSvc),
		EventsHandler:   handlers.NewEventsHandler(broker, handlers.DefaultHeartbeat),
	})

	// WriteTimeout is lifted per request by the event stream.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
