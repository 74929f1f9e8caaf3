package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/adapters/storage"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/agents"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/email"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads"
	leadrepo "github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leadsources"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/notification"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/scheduler"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/db"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

const followUpSweepTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
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

	var redisClient *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		redisClient = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	eventBus := events.NewInMemoryBus(log)
	appMetrics := metrics.New()

	// Worker-side lead wiring (no HTTP handlers required).
	agentsModule := agents.NewModule(pool, log)
	sourcesModule := leadsources.NewModule(pool, log)
	if err := sourcesModule.Start(ctx, ""); err != nil {
		log.Error("failed to load lead sources", "error", err)
		panic("failed to load lead sources: " + err.Error())
	}

	leadsModule := leads.NewModule(leads.Deps{
		Pool:      pool,
		Agents:    agentsModule.Repository(),
		Locker:    distribution.NewRedisLocker(redisClient, 10*time.Second, 5*time.Second),
		Reminders: queue,
		Bus:       eventBus,
		Metrics:   appMetrics,
		Log:       log,
	})

	var archiver intake.Archiver
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		archiver = intake.NewObjectArchiver(storageSvc, cfg.GetMinIOBucketRawMessages())
	}

	pipeline := intake.New(intake.Deps{
		Classifier: sourcesModule.Registry(),
		Leads:      leadsModule.Repository(),
		Dedup:      leadsModule.Dedup(),
		Assigner:   leadsModule.Lifecycle(),
		Archiver:   archiver,
		Bus:        eventBus,
		Metrics:    appMetrics,
		Log:        log.WithComponent("intake"),
	}, intake.Options{
		AutoAssign:  cfg.GetAutoAssign(),
		PhoneRegion: cfg.GetDefaultPhoneRegion(),
	})

	notificationModule := notification.New(leadsModule, agentsModule.Repository(), email.NewSender(cfg), notification.Options{
		LeadNotFound:  leadrepo.ErrNotFound,
		AgentNotFound: agents.ErrNotFound,
	}, log.WithComponent("notification"))
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, &scheduler.TaskHandlers{
		Pipeline:  pipeline,
		FollowUps: leadsModule.Repository(),
		Bus:       eventBus,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	jobs := scheduler.NewJobs(log.WithComponent("cron"))
	sweep := scheduler.NewFollowUpSweep(leadsModule.Repository(), queue, log.WithComponent("followup-sweep"))
	if err := jobs.Add(ctx, "followup-sweep", cfg.GetFollowUpSweepSchedule(), followUpSweepTimeout, sweep.Run); err != nil {
		panic("invalid FOLLOWUP_SWEEP_SCHEDULE: " + err.Error())
	}

	if cfg.IsMailboxEnabled() {
		mailbox := scheduler.NewIMAPMailbox(cfg)
		poller := scheduler.NewMailboxPoller(
			mailbox,
			scheduler.NewRedisCursor(redisClient, mailbox.Folder()),
			queue,
			cfg.GetMailboxBatchSize(),
			appMetrics,
			log.WithComponent("mailbox"),
		)
		poll := func(ctx context.Context) error {
			_, err := poller.Poll(ctx)
			return err
		}
		if err := jobs.Add(ctx, "mailbox-poll", cfg.GetMailboxPollSchedule(), scheduler.MailboxPollTimeout, poll); err != nil {
			panic("invalid MAILBOX_POLL_SCHEDULE: " + err.Error())
		}
	} else {
		log.Warn("IMAP_HOST not configured; mailbox intake disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		if gctx.Err() == nil {
			return errors.New("worker stopped")
		}
		return nil
	})
	g.Go(func() error {
		jobs.Run(gctx)
		return nil
	})
	_ = g.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
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
