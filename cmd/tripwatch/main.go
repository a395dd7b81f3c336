// Command tripwatch runs the flight-lifecycle orchestration engine: the
// HTTP ingress, the polling engine's tick loop, and the event scheduler,
// all wired from a single process the way the teacher's per-service
// main.go wires its controllers and background services.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tripwatch/tripwatch/internal/config"
	"github.com/tripwatch/tripwatch/internal/flightdata"
	"github.com/tripwatch/tripwatch/internal/ingress"
	"github.com/tripwatch/tripwatch/internal/metrics"
	"github.com/tripwatch/tripwatch/internal/notify"
	"github.com/tripwatch/tripwatch/internal/orchestrator"
	"github.com/tripwatch/tripwatch/internal/polling"
	"github.com/tripwatch/tripwatch/internal/scheduler"
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/store/migrations"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

const pollTickInterval = 1 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	db, err := store.Connect(store.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		TimeZone: cfg.Database.TimeZone,
	})
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		sugar.Fatalw("failed to run migrations", "error", err)
	}
	if err := store.CreateIndexes(db); err != nil {
		sugar.Warnw("failed to create supplementary indexes", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		sugar.Fatalw("failed to get underlying sql.DB for constraint migrations", "error", err)
	}
	if err := migrations.Run(sqlDB); err != nil {
		sugar.Fatalw("failed to apply constraint migrations", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		sugar.Warnw("redis connection failed, falling back to local-only trip locking", "error", err)
		redisClient = nil
	}

	m := metrics.New()

	tripStore := store.New(db)
	resolver := timezone.NewResolver(sugar)
	flightClient := flightdata.NewClient(flightdata.Config{
		BaseURL: cfg.FlightData.BaseURL,
		APIKey:  cfg.FlightData.APIKey,
	}, sugar)
	messagingClient := notify.NewMessagingClient(notify.MessagingConfig{
		BaseURL: cfg.Messaging.BaseURL,
		APIKey:  cfg.Messaging.APIKey,
	}, sugar)
	dispatcher := notify.NewDispatcher(tripStore, messagingClient, resolver, m, sugar)
	retryService := notify.NewRetryService(tripStore, messagingClient, sugar)
	tripLock := polling.NewTripLock(redisClient)

	engine := polling.NewEngine(polling.EngineConfig{
		Store:    tripStore,
		Flight:   flightClient,
		Dispatch: dispatcher,
		Resolver: resolver,
		Lock:     tripLock,
		Workers:  cfg.Polling.Workers,
		Metrics:  m,
		Logger:   sugar,
	})

	sched := scheduler.New(tripStore, dispatcher, resolver, sugar)
	if err := sched.Start(); err != nil {
		sugar.Fatalw("failed to start event scheduler", "error", err)
	}

	orch := orchestrator.New(tripStore, dispatcher, resolver, engine, sched, sugar)

	pollTicker := time.NewTicker(pollTickInterval)
	defer pollTicker.Stop()
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	go func() {
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-pollTicker.C:
				orch.OnPollTick(pollCtx)
			}
		}
	}()

	retryTicker := time.NewTicker(1 * time.Minute)
	defer retryTicker.Stop()
	go func() {
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-retryTicker.C:
				retryService.RunOnce(pollCtx)
			}
		}
	}()

	ctrl := ingress.NewController(orch, sched, sugar)
	router := ingress.NewRouter(ctrl, []byte(cfg.Server.JWTSecret))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infow("tripwatch listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("http server failed", "error", err)
		}
	}()

	<-quit
	sugar.Info("shutdown signal received")

	cancelPoll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("http server forced shutdown", "error", err)
	}

	orch.OnShutdown(shutdownCtx)

	if err := store.Close(db); err != nil {
		sugar.Errorw("error closing database", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			sugar.Errorw("error closing redis", "error", err)
		}
	}

	sugar.Info("tripwatch stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
