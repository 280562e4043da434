package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claimdesk_backend/internal/adapters/storage"
	"claimdesk_backend/internal/auth"
	"claimdesk_backend/internal/claims"
	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/email"
	"claimdesk_backend/internal/events"
	apphttp "claimdesk_backend/internal/http"
	"claimdesk_backend/internal/http/router"
	"claimdesk_backend/internal/notification"
	"claimdesk_backend/internal/notification/sse"
	"claimdesk_backend/internal/scheduler"
	"claimdesk_backend/platform/ai"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/db"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying the evidence bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc *storage.MinIOService, bucket string) {
	if err := withRetry(ctx, log, "ensure evidence bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	llm, err := ai.NewLLM(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize language model", "error", err)
		panic("failed to initialize language model: " + err.Error())
	}
	prompts, err := agent.LoadPrompts()
	if err != nil {
		panic("failed to load prompts: " + err.Error())
	}
	gateway := agent.NewGateway(llm)
	log.Info("language service initialized", "provider", cfg.GetAIProvider(), "model", llm.Name())

	// Evidence storage is optional; without it photos are analyzed but not kept.
	var evidence storage.EvidenceStore
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, cfg.GetMinioBucketEvidence())
		evidence = storageSvc
		log.Info("storage service initialized", "evidenceBucket", cfg.GetMinioBucketEvidence())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; evidence photos will not be stored")
	}

	// ========================================================================
	// Dashboard
	// ========================================================================

	stats := dashboard.NewStats()
	broadcaster := dashboard.NewBroadcaster(log)
	stream := sse.New(log)
	broadcaster.Subscribe(stream)

	if closeRelay := initDashboardRelay(ctx, cfg, broadcaster, stream, log); closeRelay != nil {
		defer closeRelay()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	claimsModule := claims.NewModule(claims.Deps{
		Pool:      pool,
		Gateway:   gateway,
		Prompts:   prompts,
		Stats:     stats,
		Dashboard: broadcaster,
		Bus:       eventBus,
		Validator: val,
		Evidence:  evidence,
		Log:       log,
	})
	authModule := auth.NewModule(claimsModule.Repository(), cfg, val, log)
	dashboardModule := dashboard.NewModule(stats, stream.Handler())

	notificationModule := notification.New(claimsModule.Repository(), email.NewSender(cfg), cfg, log)
	notificationModule.SetDashboard(broadcaster)
	notificationModule.RegisterHandlers(eventBus)

	refinementQueue, closeScheduler := initRefinementQueue(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	if refinementQueue != nil {
		scheduler.NewDeferredRefinements(refinementQueue, log).RegisterHandlers(eventBus)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			claimsModule,
			dashboardModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		stream.Close()
		waitWithTimeout(10*time.Second, broadcaster.Wait, eventBus.Wait)
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

type relayConfig interface {
	config.SchedulerConfig
	config.DashboardConfig
}

// initDashboardRelay connects the broadcaster to Redis pub/sub so every API
// instance streams events produced by any of them.
func initDashboardRelay(ctx context.Context, cfg relayConfig, broadcaster *dashboard.Broadcaster, local dashboard.Subscriber, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dashboard events stay on this instance")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; dashboard relay disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opt)

	relay := dashboard.NewRelay(client, cfg.GetDashboardRelayChannel(), local, log)
	broadcaster.Subscribe(relay)
	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("dashboard relay stopped", "error", err)
		}
	}()

	return func() {
		_ = client.Close()
	}
}

func initRefinementQueue(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.RefinementQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deferred policy refinements disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func waitWithTimeout(timeout time.Duration, waits ...func()) {
	done := make(chan struct{})
	go func() {
		for _, wait := range waits {
			wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
