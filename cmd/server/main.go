// Command server starts the interview coach HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/quotastore"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(observability.SetupLogger(cfg))
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		slog.Info("migrations applied", slog.Any("versions", applied))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("op=redis.parse_url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
	}

	var ledger domain.QuotaLedger = postgres.NewQuotaRepo(pool)
	if cfg.RedisQuota() {
		ledger = quotastore.NewRedisLedger(rdb)
		slog.Info("quota ledger in redis")
	}

	var events domain.EventPublisher = redpanda.Noop{}
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				slog.Error("failed to close event publisher", slog.Any("error", err))
			}
		}()
		events = pub
	}

	var limiter *ratelimiter.TokenBucket
	if rdb != nil {
		limiter = ratelimiter.NewTokenBucket(rdb, nil)
	}
	scoring, err := ai.NewScoringBackendFromConfig(ctx, cfg, limiter)
	if err != nil {
		return err
	}
	if scoring == nil {
		slog.Warn("no scoring provider configured; answers are graded by the lexical fallback")
	} else {
		slog.Info("scoring provider ready", slog.String("provider", scoring.Provider().Name()), slog.String("model", scoring.Provider().Model()))
	}

	svcs := app.BuildServices(cfg, app.Deps{
		Content:    postgres.NewContentRepo(pool),
		Interviews: postgres.NewInterviewRepo(pool),
		Ledger:     observability.InstrumentedLedger{Next: ledger},
		Scoring:    scoring,
		Events:     observability.InstrumentedPublisher{Next: events},
		Observer:   observability.NewEvaluationRecorder(observability.NewScoreDriftMonitor(0, 0)),
	})

	if cfg.LedgerRetentionDays > 0 {
		cleanup := postgres.NewLedgerCleanup(pool, cfg.LedgerRetentionDays)
		go cleanup.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("ledger cleanup started", slog.Int("retention_days", cfg.LedgerRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	var dbCheck, redisCheck func(context.Context) error
	if rdb != nil {
		dbCheck, redisCheck = app.BuildReadinessChecks(pool, rdb)
	} else {
		dbCheck, redisCheck = app.BuildReadinessChecks(pool, nil)
	}
	srv := httpserver.NewServer(cfg, svcs.Content, svcs.Sessions, svcs.Queries, dbCheck, redisCheck)

	var auth *httpserver.TokenAuth
	if cfg.AuthJWTSecret != "" {
		auth = httpserver.NewTokenAuth(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	} else {
		if cfg.IsProd() {
			return errors.New("AUTH_JWT_SECRET is required in prod")
		}
		slog.Warn("AUTH_JWT_SECRET not set; interview routes run as the local user", slog.String("user_id", cfg.LocalUser()))
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv, auth),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return srvHTTP.Shutdown(shutdownCtx)
}
