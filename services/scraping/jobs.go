package scraping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/scraper/sources"
	"pathwise-backend/services/scraping/db"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobNotCancelable = errors.New("job is not pending or running")
	ErrNoFetcher        = errors.New("no fetcher configured")
	errJobCancelled     = errors.New("job cancelled")
)

type JobOptions struct {
	// links followed per source, defaults to 5
	MaxPages int
}

type JobConfiguration struct {
	MaxPages  int    `json:"maxPages"`
	Delay     int64  `json:"delay"`
	UserAgent string `json:"userAgent"`
	Timeout   int64  `json:"timeout"`
}

type JobMetadata struct {
	TotalPages         int `json:"totalPages"`
	ProcessedPages     int `json:"processedPages"`
	SkippedPages       int `json:"skippedPages"`
	DuplicateResources int `json:"duplicateResources"`
}

type JobError struct {
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Job struct {
	ID               string           `json:"id"`
	Source           string           `json:"source"`
	Status           string           `json:"status"`
	StartedAt        time.Time        `json:"startedAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	Duration         *int64           `json:"duration,omitempty"`
	ResourcesFound   int64            `json:"resourcesFound"`
	ResourcesAdded   int64            `json:"resourcesAdded"`
	ResourcesUpdated int64            `json:"resourcesUpdated"`
	Configuration    JobConfiguration `json:"configuration"`
	Metadata         JobMetadata      `json:"metadata"`
	Errors           []JobError       `json:"errors"`
}

func jobFromRow(row db.ScrapingJob) (Job, error) {
	job := Job{
		ID:               row.ID,
		Source:           row.Source,
		Status:           row.Status,
		StartedAt:        time.UnixMilli(row.StartedAt),
		ResourcesFound:   row.ResourcesFound,
		ResourcesAdded:   row.ResourcesAdded,
		ResourcesUpdated: row.ResourcesUpdated,
		Errors:           []JobError{},
	}
	if row.CompletedAt.Valid {
		completed := time.UnixMilli(row.CompletedAt.Int64)
		job.CompletedAt = &completed
	}
	if row.Duration.Valid {
		duration := row.Duration.Int64
		job.Duration = &duration
	}
	err := json.Unmarshal([]byte(row.Configuration), &job.Configuration)
	if err != nil {
		return Job{}, fmt.Errorf("decode configuration of %s: %w", row.ID, err)
	}
	err = json.Unmarshal([]byte(row.Metadata), &job.Metadata)
	if err != nil {
		return Job{}, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
	}
	return job, nil
}

type JobResult struct {
	Success          bool   `json:"success"`
	JobID            string `json:"jobId"`
	ResourcesAdded   int    `json:"resourcesAdded"`
	ResourcesUpdated int    `json:"resourcesUpdated"`
	TotalFound       int    `json:"totalFound"`
	Errors           int    `json:"errors"`
	Error            string `json:"error,omitempty"`
}

func (s *Service) newJobID() (string, error) {
	suffix, err := random.String(9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("job-%d-%s", s.now().UnixMilli(), strings.ToLower(suffix)), nil
}

func (s *Service) createJob(ctx context.Context, opts JobOptions) (string, error) {
	id, err := s.newJobID()
	if err != nil {
		return "", err
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	configuration, err := json.Marshal(JobConfiguration{
		MaxPages:  maxPages,
		Delay:     s.config.SourceDelay.Milliseconds(),
		UserAgent: s.config.UserAgent,
		Timeout:   30000,
	})
	if err != nil {
		return "", err
	}

	now := s.now().UnixMilli()
	err = s.jobs.CreateJob(ctx, db.CreateJobParams{
		ID:            id,
		Source:        "multi-source",
		Status:        StatusPending,
		StartedAt:     now,
		Configuration: string(configuration),
		Metadata:      "{}",
		CreatedAt:     now,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) addJobError(ctx context.Context, id, message, url string) {
	err := s.jobs.AddJobError(ctx, db.ScrapingJobError{
		JobID:     id,
		Message:   message,
		Url:       sql.NullString{String: url, Valid: url != ""},
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record job error", "job", id, "err", err)
	}
}

func (s *Service) cancelled(ctx context.Context, id string) bool {
	status, err := s.jobs.GetJobStatus(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to read job status", "job", id, "err", err)
		return false
	}
	return status == StatusCancelled
}

func (s *Service) scrapeLinkSource(ctx context.Context, source sources.LinkSource, query, domain string, limit int) ([]scraper.Candidate, error) {
	doc, _, err := scraper.FetchDocument(ctx, s.fetcher, source.SearchPage(query, domain))
	if err != nil {
		return nil, err
	}
	links := sources.ExtractLinks(doc, source)
	if len(links) > limit {
		links = links[:limit]
	}

	resourceDomain := domain
	if resourceDomain == "" {
		resourceDomain = source.Domain
	}

	var found []scraper.Candidate
	for _, link := range links {
		page, _, err := scraper.FetchDocument(ctx, s.fetcher, link)
		if err != nil {
			slog.WarnContext(ctx, "failed to scrape resource", "url", link, "err", err)
		} else {
			c := scraper.ExtractResource(page, link)
			c.Domain = resourceDomain
			c.Skill = query
			c.Type = source.Type
			c.Difficulty = source.Difficulty
			c.Source = source.Name
			found = append(found, c)
		}

		err = s.sleep(ctx, s.config.LinkDelay)
		if err != nil {
			return found, err
		}
	}
	return found, nil
}

func (s *Service) failJob(ctx context.Context, id string, cause error) {
	s.addJobError(ctx, id, cause.Error(), "")
	affected, err := s.jobs.FinishJob(ctx, id, StatusFailed, s.now().UnixMilli())
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark job failed", "job", id, "err", err)
		return
	}
	if affected == 0 {
		slog.InfoContext(ctx, "job already finished, keeping its status", "job", id)
	}
}

func (s *Service) executeJob(ctx context.Context, id, query, domain string, opts JobOptions) JobResult {
	ctx, span := tracer.Start(ctx, "executeJob")
	defer span.End()
	span.SetAttributes(attribute.String("job", id), attribute.String("query", query))

	fail := func(err error) JobResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		slog.ErrorContext(ctx, "scraping job failed", "job", id, "err", err)
		// the job row is still updated if the caller went away
		s.failJob(context.WithoutCancel(ctx), id, err)
		return JobResult{JobID: id, Error: err.Error()}
	}

	if s.cancelled(ctx, id) {
		return JobResult{JobID: id, Error: errJobCancelled.Error()}
	}
	if s.fetcher == nil {
		return fail(ErrNoFetcher)
	}
	started, err := s.jobs.StartJob(ctx, id, s.now().UnixMilli())
	if err != nil {
		return fail(err)
	}
	if started == 0 {
		return JobResult{JobID: id, Error: errJobCancelled.Error()}
	}

	limit := opts.MaxPages
	if limit <= 0 {
		limit = 5
	}

	slog.InfoContext(ctx, "starting resource scraping job", "job", id, "query", query)

	var (
		all    []scraper.Candidate
		failed int
	)
	for _, source := range s.linkSources {
		if s.cancelled(ctx, id) {
			slog.InfoContext(ctx, "scraping job cancelled", "job", id)
			return JobResult{JobID: id, Error: errJobCancelled.Error()}
		}

		slog.InfoContext(ctx, "scraping link source", "job", id, "source", source.Name)
		found, err := s.scrapeLinkSource(ctx, source, query, domain, limit)
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to scrape link source", "job", id, "source", source.Name, "err", err)
			failed++
			s.addJobError(ctx, id, fmt.Sprintf("Failed to scrape %s: %s", source.Name, err.Error()), source.SearchPage(query, domain))
			continue
		}
		slog.InfoContext(ctx, "found resources", "job", id, "source", source.Name, "count", len(found))
		all = append(all, found...)

		err = s.sleep(ctx, s.config.JobDelay)
		if err != nil {
			return fail(err)
		}
	}

	outcome, err := s.ProcessAndSave(ctx, all, domain, ProcessOptions{})
	if err != nil {
		return fail(err)
	}

	added := len(outcome.Added)
	metadata, err := json.Marshal(JobMetadata{
		TotalPages:         len(s.linkSources),
		ProcessedPages:     len(s.linkSources) - failed,
		SkippedPages:       failed,
		DuplicateResources: len(all) - added - outcome.Updated,
	})
	if err != nil {
		return fail(err)
	}
	err = s.jobs.SetJobCounts(ctx, db.SetJobCountsParams{
		ID:               id,
		ResourcesFound:   int64(len(all)),
		ResourcesAdded:   int64(added),
		ResourcesUpdated: int64(outcome.Updated),
		Metadata:         string(metadata),
		UpdatedAt:        s.now().UnixMilli(),
	})
	if err != nil {
		return fail(err)
	}

	finished, err := s.jobs.FinishJob(ctx, id, StatusCompleted, s.now().UnixMilli())
	if err != nil {
		return fail(err)
	}
	if finished == 0 {
		slog.InfoContext(ctx, "scraping job cancelled", "job", id)
		return JobResult{JobID: id, Error: errJobCancelled.Error()}
	}

	slog.InfoContext(ctx, "scraping job completed", "job", id, "added", added, "updated", outcome.Updated)
	return JobResult{
		Success:          true,
		JobID:            id,
		ResourcesAdded:   added,
		ResourcesUpdated: outcome.Updated,
		TotalFound:       len(all),
		Errors:           failed,
	}
}

// RunJob scrapes every link source for query under a tracked job and
// waits for it to finish.
func (s *Service) RunJob(ctx context.Context, query, domain string, opts JobOptions) (JobResult, error) {
	id, err := s.createJob(ctx, opts)
	if err != nil {
		return JobResult{}, err
	}
	return s.executeJob(ctx, id, query, domain, opts), nil
}

// StartJob creates a job and runs it in the background, returning its id.
func (s *Service) StartJob(ctx context.Context, query, domain string, opts JobOptions) (string, error) {
	id, err := s.createJob(ctx, opts)
	if err != nil {
		return "", err
	}

	jobCtx := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.executeJob(jobCtx, id, query, domain, opts)
	}()
	return id, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (Job, error) {
	ctx, span := tracer.Start(ctx, "GetJob")
	defer span.End()

	row, err := s.jobs.GetJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get job")
		return Job{}, err
	}
	job, err := jobFromRow(row)
	if err != nil {
		return Job{}, err
	}

	errs, err := s.jobs.GetJobErrors(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get job errors")
		return Job{}, err
	}
	for _, e := range errs {
		job.Errors = append(job.Errors, JobError{
			Message:   e.Message,
			URL:       e.Url.String,
			Timestamp: time.UnixMilli(e.Timestamp),
		})
	}
	return job, nil
}

// ListJobs returns the most recently started jobs without their errors.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	ctx, span := tracer.Start(ctx, "ListJobs")
	defer span.End()

	rows, err := s.jobs.ListJobs(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list jobs")
		return nil, err
	}
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		job, err := jobFromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type JobStat struct {
	Status         string  `json:"_id"`
	Count          int64   `json:"count"`
	AvgDuration    float64 `json:"avgDuration"`
	TotalResources int64   `json:"totalResources"`
}

func (s *Service) JobStats(ctx context.Context) ([]JobStat, error) {
	ctx, span := tracer.Start(ctx, "JobStats")
	defer span.End()

	rows, err := s.jobs.JobStats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to aggregate jobs")
		return nil, err
	}
	stats := make([]JobStat, len(rows))
	for i, row := range rows {
		stats[i] = JobStat{
			Status:         row.Status,
			Count:          row.Count,
			AvgDuration:    row.AvgDuration.Float64,
			TotalResources: row.TotalResources,
		}
	}
	return stats, nil
}

type ScrapingStats struct {
	TotalResources int64     `json:"totalResources"`
	JobStats       []JobStat `json:"jobStats"`
	RecentJobs     []Job     `json:"recentJobs"`
}

func (s *Service) ScrapingStats(ctx context.Context) (ScrapingStats, error) {
	total, err := s.resources.CountActiveResources(ctx)
	if err != nil {
		return ScrapingStats{}, err
	}
	stats, err := s.JobStats(ctx)
	if err != nil {
		return ScrapingStats{}, err
	}
	recent, err := s.ListJobs(ctx, 10)
	if err != nil {
		return ScrapingStats{}, err
	}
	return ScrapingStats{
		TotalResources: total,
		JobStats:       stats,
		RecentJobs:     recent,
	}, nil
}

// CancelJob stops a pending or running job. A running job notices between
// sources.
func (s *Service) CancelJob(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "CancelJob")
	defer span.End()

	affected, err := s.jobs.CancelJob(ctx, id, s.now().UnixMilli())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to cancel job")
		return err
	}
	if affected > 0 {
		return nil
	}

	_, err = s.jobs.GetJobStatus(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return ErrJobNotCancelable
}
