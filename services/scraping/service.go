package scraping

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/lib/scraper/sources"
	"pathwise-backend/services/resources"
	resourcesdb "pathwise-backend/services/resources/db"
	"pathwise-backend/services/scraping/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scraping")

type Mode string

const (
	// ModeMock generates placeholder resources instead of touching the
	// network.
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

type Config struct {
	// defaults to mock
	Mode Mode
	// between sources of a query scrape, defaults to 2s
	SourceDelay time.Duration
	// between the queries of a bulk scrape, defaults to 1s
	QueryDelay time.Duration
	// between the links and sources of a job, default to 500ms and 1s
	LinkDelay    time.Duration
	JobDelay     time.Duration
	UserAgent    string
	NearDupeRate float64
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeMock
	}
	if c.SourceDelay == 0 {
		c.SourceDelay = 2 * time.Second
	}
	if c.QueryDelay == 0 {
		c.QueryDelay = time.Second
	}
	if c.LinkDelay == 0 {
		c.LinkDelay = 500 * time.Millisecond
	}
	if c.JobDelay == 0 {
		c.JobDelay = time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = scraper.DefaultUserAgent
	}
	return c
}

type Options struct {
	Config Config
	// query scrapers used in live mode
	Sources []sources.Source
	// fetches single pages in live mode and for jobs
	Fetcher     scraper.Fetcher
	LinkSources []sources.LinkSource
}

type Service struct {
	db        *sql.DB
	resources *resourcesdb.Queries
	jobs      *db.Queries

	config      Config
	sources     []sources.Source
	fetcher     scraper.Fetcher
	linkSources []sources.LinkSource

	rngLock sync.Mutex
	rng     *rand.Rand

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	background sync.WaitGroup
}

func NewService(database *sql.DB, opts Options) *Service {
	linkSources := opts.LinkSources
	if linkSources == nil {
		linkSources = sources.LinkSources
	}
	return &Service{
		db:          database,
		resources:   resourcesdb.New(database),
		jobs:        db.New(database),
		config:      opts.Config.withDefaults(),
		sources:     opts.Sources,
		fetcher:     opts.Fetcher,
		linkSources: linkSources,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sources lists the query scrapers for display.
func (s *Service) Sources() []sources.CatalogEntry {
	return sources.Catalog(s.sources)
}

// Wait blocks until background jobs have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) mode(override Mode) Mode {
	if override != "" {
		return override
	}
	return s.config.Mode
}

type QueryOptions struct {
	// defaults to 50
	MaxResults      int
	IncludeVideo    bool
	IncludeArticles bool
	// overrides the configured mode when set
	Mode Mode
}

func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		MaxResults:      50,
		IncludeVideo:    true,
		IncludeArticles: true,
	}
}

func filterTypes(candidates []scraper.Candidate, opts QueryOptions) []scraper.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if !opts.IncludeVideo && c.Type == scraper.TypeVideo {
			continue
		}
		if !opts.IncludeArticles && c.Type == scraper.TypeArticle {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) gather(ctx context.Context, query, domain string, max int) ([]scraper.Candidate, error) {
	if len(s.sources) == 0 {
		return nil, nil
	}
	perSource := (max + len(s.sources) - 1) / len(s.sources)

	var all []scraper.Candidate
	for _, source := range s.sources {
		slog.InfoContext(ctx, "scraping source", "source", source.Name(), "query", query)
		found, err := source.Scrape(ctx, query, domain, perSource)
		if err != nil {
			slog.ErrorContext(ctx, "failed to scrape source", "source", source.Name(), "err", err)
		} else {
			slog.InfoContext(ctx, "found resources", "source", source.Name(), "count", len(found))
			all = append(all, found...)
		}

		err = s.sleep(ctx, s.config.SourceDelay)
		if err != nil {
			return nil, err
		}
	}
	return all, nil
}

// ScrapeQuery discovers resources for query and stores them, returning the
// resources that were newly added.
func (s *Service) ScrapeQuery(ctx context.Context, query, domain string, opts QueryOptions) ([]resources.Resource, error) {
	ctx, span := tracer.Start(ctx, "ScrapeQuery")
	defer span.End()

	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	mode := s.mode(opts.Mode)
	span.SetAttributes(
		attribute.String("query", query),
		attribute.String("domain", domain),
		attribute.String("mode", string(mode)),
	)
	start := s.now()
	slog.InfoContext(ctx, "starting resource scrape", "query", query, "domain", domain, "mode", mode)

	var candidates []scraper.Candidate
	switch mode {
	case ModeLive:
		var err error
		candidates, err = s.gather(ctx, query, domain, opts.MaxResults)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to gather candidates")
			return nil, err
		}
	default:
		s.rngLock.Lock()
		candidates = scraper.GenerateMock(query, domain, opts.MaxResults, s.rng)
		s.rngLock.Unlock()
	}
	candidates = filterTypes(candidates, opts)

	outcome, err := s.ProcessAndSave(ctx, candidates, domain, ProcessOptions{
		NearDuplicateThreshold: s.config.NearDupeRate,
		MaxTitle:               50,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save resources")
		return nil, err
	}

	slog.InfoContext(
		ctx, "resource scrape completed",
		"query", query,
		"added", len(outcome.Added),
		"updated", outcome.Updated,
		"duplicates", outcome.Duplicates,
		"duration", s.now().Sub(start),
	)
	return outcome.Added, nil
}

// ScrapeURL stores the resource found at pageUrl.
func (s *Service) ScrapeURL(ctx context.Context, pageUrl, domain, skill string, mode Mode) ([]resources.Resource, error) {
	ctx, span := tracer.Start(ctx, "ScrapeURL")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	var candidate scraper.Candidate
	switch s.mode(mode) {
	case ModeLive:
		if s.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for live scraping")
		}
		doc, _, err := scraper.FetchDocument(ctx, s.fetcher, pageUrl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch page")
			return nil, err
		}
		candidate = scraper.ExtractResource(doc, pageUrl)
		candidate.Type = scraper.TypeArticle
		candidate.Difficulty = scraper.Intermediate
		candidate.Duration = "10 min"
		candidate.Domain = domain
		if candidate.Domain == "" {
			candidate.Domain = scraper.InferDomain(candidate.Title, candidate.Description)
		}
		candidate.Skill = skill
		if candidate.Skill == "" {
			candidate.Skill = scraper.GeneralDomain
		}
		now := s.now()
		candidate.Metadata.ScrapedAt = &now
		candidate.Metadata.DirectScrape = true
	default:
		var err error
		candidate, err = scraper.MockURLResource(pageUrl, domain, skill)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid url")
			return nil, err
		}
	}

	outcome, err := s.ProcessAndSave(ctx, []scraper.Candidate{candidate}, domain, ProcessOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save resource")
		return nil, err
	}
	return outcome.Added, nil
}

type BulkResult struct {
	Query          string               `json:"query"`
	ResourcesFound int                  `json:"resourcesFound"`
	Resources      []resources.Resource `json:"resources"`
	Error          string               `json:"error,omitempty"`
}

// BulkScrape runs ScrapeQuery for every query in turn. A failed query is
// reported in its entry and does not stop the others.
func (s *Service) BulkScrape(ctx context.Context, queries []string, domain string, maxPerQuery int) ([]BulkResult, int, error) {
	ctx, span := tracer.Start(ctx, "BulkScrape")
	defer span.End()
	span.SetAttributes(attribute.Int("queries", len(queries)))

	opts := DefaultQueryOptions()
	opts.MaxResults = maxPerQuery

	results := make([]BulkResult, 0, len(queries))
	total := 0
	for i, query := range queries {
		if i > 0 {
			err := s.sleep(ctx, s.config.QueryDelay)
			if err != nil {
				return results, total, err
			}
		}

		added, err := s.ScrapeQuery(ctx, query, domain, opts)
		if err != nil {
			slog.ErrorContext(ctx, "failed to scrape query", "query", query, "err", err)
			results = append(results, BulkResult{
				Query:     query,
				Error:     err.Error(),
				Resources: []resources.Resource{},
			})
			continue
		}

		preview := added
		if len(preview) > 5 {
			preview = preview[:5]
		}
		results = append(results, BulkResult{
			Query:          query,
			ResourcesFound: len(added),
			Resources:      preview,
		})
		total += len(added)
	}
	return results, total, nil
}

type SourceStat struct {
	Source      string    `json:"_id"`
	Count       int64     `json:"count"`
	LastScraped time.Time `json:"lastScraped"`
}

type SourceStats struct {
	TotalResources  int64        `json:"totalResources"`
	RecentlyScraped int64        `json:"recentlyScraped"`
	Sources         []SourceStat `json:"sourceStats"`
}

func (s *Service) SourceStats(ctx context.Context) (SourceStats, error) {
	ctx, span := tracer.Start(ctx, "SourceStats")
	defer span.End()

	rows, err := s.resources.SourceStats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to group resources by source")
		return SourceStats{}, err
	}
	total, err := s.resources.CountActiveResources(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count resources")
		return SourceStats{}, err
	}
	recent, err := s.resources.CountScrapedSince(ctx, s.now().Add(-24*time.Hour).UnixMilli(), false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count recent resources")
		return SourceStats{}, err
	}

	stats := SourceStats{
		TotalResources:  total,
		RecentlyScraped: recent,
		Sources:         make([]SourceStat, len(rows)),
	}
	for i, row := range rows {
		stats.Sources[i] = SourceStat{
			Source:      row.Source,
			Count:       row.Count,
			LastScraped: time.UnixMilli(row.LastScraped),
		}
	}
	return stats, nil
}

type CleanupResult struct {
	Count  int64
	Cutoff time.Time
	DryRun bool
}

// Cleanup removes resources that are inactive or were last scraped before
// now minus olderThanDays. A dry run only counts them.
func (s *Service) Cleanup(ctx context.Context, olderThanDays int, dryRun bool) (CleanupResult, error) {
	ctx, span := tracer.Start(ctx, "Cleanup")
	defer span.End()
	span.SetAttributes(
		attribute.Int("olderThanDays", olderThanDays),
		attribute.Bool("dryRun", dryRun),
	)

	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	result := CleanupResult{Cutoff: cutoff, DryRun: dryRun}

	var err error
	if dryRun {
		result.Count, err = s.resources.CountStaleResources(ctx, cutoff.UnixMilli())
	} else {
		result.Count, err = s.resources.DeleteStaleResources(ctx, cutoff.UnixMilli())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to clean up resources")
		return CleanupResult{}, err
	}

	if !dryRun {
		slog.InfoContext(ctx, "deleted stale resources", "count", result.Count, "cutoff", cutoff)
	}
	return result, nil
}
