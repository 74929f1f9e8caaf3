package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Jobs runs named functions on cron schedules until the context ends.
type Jobs struct {
	cron *cron.Cron
	log  *logger.Logger
}

func NewJobs(log *logger.Logger) *Jobs {
	return &Jobs{cron: cron.New(), log: log}
}

// Add schedules fn under spec. Each run gets its own timeout.
func (j *Jobs) Add(ctx context.Context, name, spec string, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := j.cron.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		if err := fn(runCtx); err != nil {
			j.log.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		j.log.Debug("scheduled job finished", "job", name, "duration", time.Since(start).String())
	})
	if err != nil {
		return err
	}
	j.log.Info("scheduled job registered", "job", name, "schedule", spec)
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs.
func (j *Jobs) Run(ctx context.Context) {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
}
