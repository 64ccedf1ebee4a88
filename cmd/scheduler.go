package cmd

import (
	"context"
	"fmt"
	"time"

	"library-service/internal/usecase"
	"library-service/pkg/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sessionPurgeSchedule = "@daily"

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs the periodic jobs. Every tick starts an independent run.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler registers the overdue scan, payment reconciliation and session purge jobs.
func NewScheduler(ctx context.Context, service *usecase.Service, config utils.SchedulerConfig, logger *zap.Logger) (*Scheduler, error) {
	log := logger.With(zap.String("component", "scheduler"))

	// a run that has started finishes even when shutdown begins
	jobCtx := context.WithoutCancel(ctx)
	cl := cronLogger{log: log.Sugar()}

	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context)
	}{
		{"overdue_scan", config.OverdueScan, service.Overdue.Run},
		{"payment_reconcile", config.PaymentReconcile, func(ctx context.Context) {
			if err := service.Payment.ReconcileAll(ctx); err != nil {
				log.Error("Payment reconciliation failed", zap.Error(err))
			}
		}},
		{"session_purge", sessionPurgeSchedule, func(ctx context.Context) {
			if _, err := service.Auth.PurgeExpiredSessions(ctx); err != nil {
				log.Error("Session purge failed", zap.Error(err))
			}
		}},
	}

	for _, job := range jobs {
		if _, err := c.AddFunc(job.schedule, func() {
			log.Info("Job started", zap.String("job", job.name))
			job.run(jobCtx)
		}); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.name, job.schedule, err)
		}
		log.Info("Job scheduled", zap.String("job", job.name), zap.String("schedule", job.schedule))
	}

	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits up to timeout for running jobs to finish.
func (s *Scheduler) Stop(timeout time.Duration) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.log.Warn("Scheduler jobs still running at shutdown")
	}
}
