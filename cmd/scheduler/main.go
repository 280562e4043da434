package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"claimdesk_backend/internal/claims"
	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/email"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/internal/notification"
	"claimdesk_backend/internal/scheduler"
	"claimdesk_backend/platform/ai"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/db"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	llm, err := ai.NewLLM(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize language model", "error", err)
		panic("failed to initialize language model: " + err.Error())
	}
	prompts, err := agent.LoadPrompts()
	if err != nil {
		panic("failed to load prompts: " + err.Error())
	}

	// Worker-side events reach API instances through the Redis relay only.
	broadcaster := dashboard.NewBroadcaster(log)
	redisClient := newRedisClient(cfg.GetRedisURL(), log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		broadcaster.Subscribe(dashboard.NewRelay(redisClient, cfg.GetDashboardRelayChannel(), nil, log))
	}

	// Worker-side policy refinement wiring (no HTTP handlers required).
	claimsModule := claims.NewModule(claims.Deps{
		Pool:      pool,
		Gateway:   agent.NewGateway(llm),
		Prompts:   prompts,
		Stats:     dashboard.NewStats(),
		Dashboard: broadcaster,
		Bus:       eventBus,
		Validator: validator.New(),
		Log:       log,
	})

	notificationModule := notification.New(claimsModule.Repository(), email.NewSender(cfg), cfg, log)
	notificationModule.SetDashboard(broadcaster)
	notificationModule.RegisterHandlers(eventBus)

	backlogInterval := getDurationEnv("PENDING_BACKLOG_INTERVAL", time.Minute)
	go scheduler.NewPendingBacklog(claimsModule.Repository(), log, backlogInterval).Run(ctx)

	worker, err := scheduler.NewWorker(cfg, claimsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	broadcaster.Wait()
	eventBus.Wait()
}

func newRedisClient(redisURL string, log *logger.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error("invalid REDIS_URL; dashboard relay disabled", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
