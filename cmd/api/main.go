package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/adapters/storage"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/agents"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/email"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/http/router"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/followup"
	leadrepo "github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leadsources"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/notification"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/scheduler"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/webhook"
	"github.com/phillipshepard1/internal-re-crm-sub000/migrations"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/db"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

const (
	distributorLockTTL  = 10 * time.Second
	distributorLockWait = 5 * time.Second
)

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
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	locker, closeRedis := initLocker(ctx, cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	appMetrics := metrics.New()

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	archiver := initArchiver(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	agentsModule := agents.NewModule(pool, log)

	sourcesModule := leadsources.NewModule(pool, log)
	if err := sourcesModule.Start(ctx, cfg.GetLeadSourcesFile()); err != nil {
		log.Error("failed to load lead sources", "error", err)
		panic("failed to load lead sources: " + err.Error())
	}

	leadsModule := leads.NewModule(leads.Deps{
		Pool:      pool,
		Agents:    agentsModule.Repository(),
		Locker:    locker,
		Reminders: reminderScheduler,
		Bus:       eventBus,
		Metrics:   appMetrics,
		Log:       log,
	})

	intakeModule := intake.NewModule(intake.Deps{
		Classifier: sourcesModule.Registry(),
		Leads:      leadsModule.Repository(),
		Dedup:      leadsModule.Dedup(),
		Assigner:   leadsModule.Lifecycle(),
		Archiver:   archiver,
		Bus:        eventBus,
		Metrics:    appMetrics,
		Log:        log,
	}, intake.Options{
		AutoAssign:  cfg.GetAutoAssign(),
		PhoneRegion: cfg.GetDefaultPhoneRegion(),
	})

	webhookModule := webhook.NewModule(pool, intakeModule.Pipeline(), log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(leadsModule, agentsModule.Repository(), email.NewSender(cfg), notification.Options{
		LeadNotFound:  leadrepo.ErrNotFound,
		AgentNotFound: agents.ErrNotFound,
	}, log.WithComponent("notification"))
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Metrics:  appMetrics.Handler(),
		Modules: []apphttp.Module{
			agentsModule,
			sourcesModule,
			leadsModule,
			intakeModule,
			webhookModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initLocker returns a Redis lock for the distributor when Redis is
// configured. Without Redis the lock is process-local.
func initLocker(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (distribution.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; distributor lock is process-local")
		return distribution.NewLocalLocker(), nil
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	return distribution.NewRedisLocker(client, distributorLockTTL, distributorLockWait), func() {
		_ = client.Close()
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (followup.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

// initArchiver returns nil when MinIO is not configured.
func initArchiver(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) intake.Archiver {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; raw message archive disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinIOBucketRawMessages()
	if err := withRetry(ctx, log, "ensure raw-messages bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "rawMessagesBucket", bucket)

	return intake.NewObjectArchiver(storageSvc, bucket)
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
