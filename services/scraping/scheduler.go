package scraping

import (
	"context"
	"fmt"
	"log/slog"

	"pathwise-backend/lib/timezone"

	"github.com/robfig/cron/v3"
)

type ScheduledJob struct {
	Spec     string `json:"spec"`
	Query    string `json:"query"`
	Domain   string `json:"domain"`
	MaxPages int    `json:"max_pages"`
}

type ScheduleConfig struct {
	Jobs []ScheduledJob `json:"jobs"`
	// cron spec for the stale resource cleanup, empty disables it
	CleanupSpec string `json:"cleanup_spec"`
	// defaults to 30
	CleanupOlderThanDays int `json:"cleanup_older_than_days"`
}

// Scheduler runs scraping jobs and cleanups on cron specs.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(ctx context.Context, service *Service, config ScheduleConfig) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithLocation(timezone.Location),
		),
		service: service,
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, job := range config.Jobs {
		job := job
		_, err := s.cron.AddFunc(job.Spec, func() {
			s.runJob(job)
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("schedule %q (%s): %w", job.Query, job.Spec, err)
		}
	}

	if config.CleanupSpec != "" {
		days := config.CleanupOlderThanDays
		if days <= 0 {
			days = 30
		}
		_, err := s.cron.AddFunc(config.CleanupSpec, func() {
			s.cleanup(days)
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("schedule cleanup (%s): %w", config.CleanupSpec, err)
		}
	}

	return s, nil
}

func (s *Scheduler) runJob(job ScheduledJob) {
	result, err := s.service.RunJob(s.ctx, job.Query, job.Domain, JobOptions{MaxPages: job.MaxPages})
	if err != nil {
		slog.ErrorContext(s.ctx, "failed to start scheduled job", "query", job.Query, "err", err)
		return
	}
	slog.InfoContext(
		s.ctx, "scheduled job finished",
		"job", result.JobID,
		"success", result.Success,
		"added", result.ResourcesAdded,
	)
}

func (s *Scheduler) cleanup(days int) {
	_, err := s.service.Cleanup(s.ctx, days, false)
	if err != nil {
		slog.ErrorContext(s.ctx, "scheduled cleanup failed", "err", err)
	}
}

// Entries is the number of scheduled functions.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(fmt.Sprintf("cron: %s", msg), append([]any{"err", err}, keysAndValues...)...)
}
