package resources

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"pathwise-backend/services/resources/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("services/resources")

var ErrNotFound = errors.New("resource not found")

type Service struct {
	db  *sql.DB
	qry *db.Queries
	now func() time.Time
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
		now: time.Now,
	}
}

type Filter struct {
	Domain     string
	Type       string
	Difficulty string
}

func (f Filter) row() db.ResourceFilter {
	filter := db.ResourceFilter{
		Type:       f.Type,
		Difficulty: f.Difficulty,
	}
	if f.Domain != "" {
		filter.DomainLike = db.LikeContains(f.Domain)
	}
	return filter
}

// MatchExpression turns free text into an fts5 query matching any of its
// words. It returns "" when the text has no words.
func MatchExpression(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, `"`+strings.ToLower(w)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

type ListParams struct {
	Filter
	Search string
	Limit  int
	Offset int
}

type ListResult struct {
	Resources []Resource
	// counts the filters without the text search
	Total int64
}

func (s Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	filter := params.Filter.row()

	var (
		rows []db.Resource
		err  error
	)
	if params.Search != "" {
		match := MatchExpression(params.Search)
		if match != "" {
			rows, err = s.qry.SearchResources(ctx, match, filter, int64(params.Limit), int64(params.Offset))
		}
	} else {
		rows, err = s.qry.ListResources(ctx, filter, int64(params.Limit), int64(params.Offset))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list resources")
		return ListResult{}, err
	}

	total, err := s.qry.CountResources(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count resources")
		return ListResult{}, err
	}

	resources, err := fromRows(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode resources")
		return ListResult{}, err
	}
	return ListResult{Resources: resources, Total: total}, nil
}

func (s Service) Search(ctx context.Context, query string, filter Filter, limit int) ([]Resource, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	match := MatchExpression(query)
	if match == "" {
		return []Resource{}, nil
	}
	rows, err := s.qry.SearchResources(ctx, match, filter.row(), int64(limit), 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to search resources")
		return nil, err
	}
	return fromRows(rows)
}

// Get finds an active resource by `_id` or `id` and counts a view.
func (s Service) Get(ctx context.Context, key string) (Resource, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return Resource{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	row, err := txqry.GetActiveResource(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get resource")
		return Resource{}, err
	}

	row.Views, err = txqry.IncrementResourceViews(ctx, row.Uid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to increment views")
		return Resource{}, err
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return Resource{}, err
	}

	return FromRow(row)
}

type Stats struct {
	TotalResources  int64            `json:"totalResources"`
	RecentlyScraped int64            `json:"recentlyScraped"`
	ByType          map[string]int64 `json:"byType"`
	ByDifficulty    map[string]int64 `json:"byDifficulty"`
	ByDomain        map[string]int64 `json:"byDomain"`
}

func toMap(counts []db.KeyCount) map[string]int64 {
	out := make(map[string]int64, len(counts))
	for _, c := range counts {
		out[c.Key] = c.Count
	}
	return out
}

func (s Service) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	var (
		stats                    Stats
		byType, byDiff, byDomain []db.KeyCount
	)
	dayAgo := s.now().Add(-24 * time.Hour).UnixMilli()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		stats.TotalResources, err = s.qry.CountActiveResources(gctx)
		return err
	})
	group.Go(func() (err error) {
		stats.RecentlyScraped, err = s.qry.CountScrapedSince(gctx, dayAgo, true)
		return err
	})
	group.Go(func() (err error) {
		byType, err = s.qry.CountActiveByType(gctx)
		return err
	})
	group.Go(func() (err error) {
		byDiff, err = s.qry.CountActiveByDifficulty(gctx)
		return err
	})
	group.Go(func() (err error) {
		byDomain, err = s.qry.CountActiveByDomain(gctx)
		return err
	})
	err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute stats")
		return Stats{}, err
	}

	stats.ByType = toMap(byType)
	stats.ByDifficulty = toMap(byDiff)
	stats.ByDomain = toMap(byDomain)
	return stats, nil
}
