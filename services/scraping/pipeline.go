package scraping

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/services/resources"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ProcessOptions struct {
	// Jaro-Winkler similarity at or above which a title is a near
	// duplicate of an earlier title from the same source, 0 disables the
	// check.
	NearDuplicateThreshold float64
	// truncates the title part of generated ids, 0 keeps it whole
	MaxTitle int
}

type Outcome struct {
	// only resources that did not exist before
	Added      []resources.Resource
	Updated    int
	Duplicates int
	Failed     int
}

type nearDuplicates struct {
	threshold float64
	bySource  map[string][]string
}

func (n *nearDuplicates) seen(source, title string) bool {
	if n.threshold <= 0 {
		return false
	}
	title = strings.ToLower(title)
	for _, kept := range n.bySource[source] {
		if matchr.JaroWinkler(kept, title, false) >= n.threshold {
			return true
		}
	}
	n.bySource[source] = append(n.bySource[source], title)
	return false
}

func (s *Service) buildResource(c scraper.Candidate, domain string, opts ProcessOptions) resources.Resource {
	now := s.now()

	kind := c.Type
	if kind == "" {
		kind = scraper.TypeTutorial
	}
	difficulty := c.Difficulty
	if difficulty == "" {
		difficulty = scraper.Beginner
	}
	duration := c.Duration
	if duration == "" {
		duration = "30 min"
	}
	resourceDomain := c.Domain
	if resourceDomain == "" {
		resourceDomain = domain
	}
	if resourceDomain == "" {
		resourceDomain = scraper.GeneralDomain
	}
	skill := c.Skill
	if skill == "" {
		skill = scraper.GeneralDomain
	}
	tags := c.Tags
	if !c.PageTags {
		tags = scraper.ExtractTags(c.Title, c.Description)
	}
	rating := c.Rating
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}

	return resources.Resource{
		UID:         uuid.NewString(),
		ID:          scraper.ResourceID(c.Source, c.Title, now, opts.MaxTitle),
		Title:       scraper.CleanTitle(c.Title),
		Description: scraper.CleanDescription(c.Description),
		URL:         c.URL,
		Type:        string(kind),
		Difficulty:  string(difficulty),
		Duration:    duration,
		Domain:      resourceDomain,
		Skill:       skill,
		Source:      c.Source,
		Color:       scraper.ColorForType(kind),
		Tags:        tags,
		Rating:      rating,
		IsActive:    true,
		LastScraped: now,
		Metadata:    c.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// upsert stores r by url, returning true when it was newly created.
func (s *Service) upsert(ctx context.Context, r resources.Resource) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	txqry := s.resources.WithTx(tx)

	row, err := r.Row()
	if err != nil {
		return false, err
	}

	existing, err := txqry.GetResourceByUrl(ctx, r.URL)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = txqry.CreateResource(ctx, row)
		created = true
	case err != nil:
		return false, err
	default:
		row.Uid = existing.Uid
		err = txqry.UpdateResource(ctx, row)
	}
	if err != nil {
		return false, err
	}

	return created, tx.Commit()
}

// ProcessAndSave normalizes candidates and upserts them by url. A record
// that fails to save is logged and skipped.
func (s *Service) ProcessAndSave(ctx context.Context, candidates []scraper.Candidate, domain string, opts ProcessOptions) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "ProcessAndSave")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	outcome := Outcome{Added: []resources.Resource{}}
	seenUrls := map[string]bool{}
	near := &nearDuplicates{
		threshold: opts.NearDuplicateThreshold,
		bySource:  map[string][]string{},
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context done while saving")
			return outcome, err
		}

		if seenUrls[c.URL] {
			outcome.Duplicates++
			continue
		}
		seenUrls[c.URL] = true

		r := s.buildResource(c, domain, opts)
		if near.seen(r.Source, r.Title) {
			slog.DebugContext(ctx, "skipping near duplicate", "title", r.Title, "source", r.Source)
			outcome.Duplicates++
			continue
		}

		created, err := s.upsert(ctx, r)
		if err != nil {
			slog.ErrorContext(ctx, "failed to save resource", "title", r.Title, "url", r.URL, "err", err)
			span.RecordError(err)
			outcome.Failed++
			continue
		}
		if created {
			slog.DebugContext(ctx, "created resource", "id", r.ID, "url", r.URL)
			outcome.Added = append(outcome.Added, r)
			continue
		}
		slog.DebugContext(ctx, "updated resource", "url", r.URL)
		outcome.Updated++
	}

	span.SetAttributes(
		attribute.Int("added", len(outcome.Added)),
		attribute.Int("updated", outcome.Updated),
		attribute.Int("duplicates", outcome.Duplicates),
		attribute.Int("failed", outcome.Failed),
	)
	return outcome, nil
}
