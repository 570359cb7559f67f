package db

import (
	"context"
	"strings"
)

const resourceColumns = `uid, id, title, description, url, type, difficulty, duration,
domain, skill, source, color, tags, rating, views, is_active, last_scraped,
metadata, created_at, updated_at`

// resourceColumns qualified with the resources alias for joins.
const joinedResourceColumns = `r.uid, r.id, r.title, r.description, r.url, r.type, r.difficulty, r.duration,
r.domain, r.skill, r.source, r.color, r.tags, r.rating, r.views, r.is_active, r.last_scraped,
r.metadata, r.created_at, r.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (Resource, error) {
	var i Resource
	err := row.Scan(
		&i.Uid,
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Url,
		&i.Type,
		&i.Difficulty,
		&i.Duration,
		&i.Domain,
		&i.Skill,
		&i.Source,
		&i.Color,
		&i.Tags,
		&i.Rating,
		&i.Views,
		&i.IsActive,
		&i.LastScraped,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryResources(ctx context.Context, query string, args ...any) ([]Resource, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Resource
	for rows.Next() {
		i, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) queryKeyCounts(ctx context.Context, query string, args ...any) ([]KeyCount, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []KeyCount
	for rows.Next() {
		var i KeyCount
		if err := rows.Scan(&i.Key, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LikeContains turns s into a `like` pattern matching any text containing
// s, with `\` as the escape character.
func LikeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const createResource = `-- name: CreateResource :exec
insert into resources(
    uid, id, title, description, url, type, difficulty, duration,
    domain, skill, source, color, tags, rating, views, is_active,
    last_scraped, metadata, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateResource(ctx context.Context, arg Resource) error {
	_, err := q.db.ExecContext(ctx, createResource,
		arg.Uid,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Url,
		arg.Type,
		arg.Difficulty,
		arg.Duration,
		arg.Domain,
		arg.Skill,
		arg.Source,
		arg.Color,
		arg.Tags,
		arg.Rating,
		arg.Views,
		arg.IsActive,
		arg.LastScraped,
		arg.Metadata,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateResource = `-- name: UpdateResource :exec
update resources set
    title = ?,
    description = ?,
    url = ?,
    type = ?,
    difficulty = ?,
    duration = ?,
    domain = ?,
    skill = ?,
    source = ?,
    color = ?,
    tags = ?,
    rating = ?,
    is_active = ?,
    last_scraped = ?,
    metadata = ?,
    updated_at = ?
where uid = ?
`

// UpdateResource overwrites every field of a resource except its ids, views
// and creation time.
func (q *Queries) UpdateResource(ctx context.Context, arg Resource) error {
	_, err := q.db.ExecContext(ctx, updateResource,
		arg.Title,
		arg.Description,
		arg.Url,
		arg.Type,
		arg.Difficulty,
		arg.Duration,
		arg.Domain,
		arg.Skill,
		arg.Source,
		arg.Color,
		arg.Tags,
		arg.Rating,
		arg.IsActive,
		arg.LastScraped,
		arg.Metadata,
		arg.UpdatedAt,
		arg.Uid,
	)
	return err
}

const getResourceByUrl = `-- name: GetResourceByUrl :one
select ` + resourceColumns + ` from resources where url = ?
`

func (q *Queries) GetResourceByUrl(ctx context.Context, url string) (Resource, error) {
	return scanResource(q.db.QueryRowContext(ctx, getResourceByUrl, url))
}

const getActiveResource = `-- name: GetActiveResource :one
select ` + resourceColumns + ` from resources
where (uid = ?1 or id = ?1) and is_active = true
`

func (q *Queries) GetActiveResource(ctx context.Context, key string) (Resource, error) {
	return scanResource(q.db.QueryRowContext(ctx, getActiveResource, key))
}

const incrementResourceViews = `-- name: IncrementResourceViews :one
update resources set views = views + 1 where uid = ? returning views
`

func (q *Queries) IncrementResourceViews(ctx context.Context, uid string) (int64, error) {
	row := q.db.QueryRowContext(ctx, incrementResourceViews, uid)
	var views int64
	err := row.Scan(&views)
	return views, err
}

type ResourceFilter struct {
	// `like` pattern, empty matches anything
	DomainLike string
	Type       string
	Difficulty string
}

const filterClause = `is_active = true
    and (?1 = '' or domain like ?1 escape '\')
    and (?2 = '' or type = ?2)
    and (?3 = '' or difficulty = ?3)`

const listResources = `-- name: ListResources :many
select ` + resourceColumns + ` from resources
where ` + filterClause + `
order by last_scraped desc, created_at desc
limit ?4 offset ?5
`

func (q *Queries) ListResources(ctx context.Context, filter ResourceFilter, limit, offset int64) ([]Resource, error) {
	return q.queryResources(ctx, listResources,
		filter.DomainLike,
		filter.Type,
		filter.Difficulty,
		limit,
		offset,
	)
}

const countResources = `-- name: CountResources :one
select count(*) from resources where ` + filterClause + `
`

func (q *Queries) CountResources(ctx context.Context, filter ResourceFilter) (int64, error) {
	row := q.db.QueryRowContext(ctx, countResources,
		filter.DomainLike,
		filter.Type,
		filter.Difficulty,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const searchResources = `-- name: SearchResources :many
select ` + joinedResourceColumns + ` from resources_fts
join resources r on r.rowid = resources_fts.rowid
where resources_fts match ?6 and r.` + filterClause + `
order by bm25(resources_fts)
limit ?4 offset ?5
`

// SearchResources runs an fts5 match expression, best matches first.
func (q *Queries) SearchResources(ctx context.Context, match string, filter ResourceFilter, limit, offset int64) ([]Resource, error) {
	return q.queryResources(ctx, searchResources,
		filter.DomainLike,
		filter.Type,
		filter.Difficulty,
		limit,
		offset,
		match,
	)
}

const countActiveResources = `-- name: CountActiveResources :one
select count(*) from resources where is_active = true
`

func (q *Queries) CountActiveResources(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveResources)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countScrapedSince = `-- name: CountScrapedSince :one
select count(*) from resources
where last_scraped >= ?1 and (?2 = false or is_active = true)
`

func (q *Queries) CountScrapedSince(ctx context.Context, since int64, activeOnly bool) (int64, error) {
	row := q.db.QueryRowContext(ctx, countScrapedSince, since, activeOnly)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countActiveByType = `-- name: CountActiveByType :many
select type, count(*) as count from resources
where is_active = true group by type order by count desc
`

func (q *Queries) CountActiveByType(ctx context.Context) ([]KeyCount, error) {
	return q.queryKeyCounts(ctx, countActiveByType)
}

const countActiveByDifficulty = `-- name: CountActiveByDifficulty :many
select difficulty, count(*) as count from resources
where is_active = true group by difficulty order by count desc
`

func (q *Queries) CountActiveByDifficulty(ctx context.Context) ([]KeyCount, error) {
	return q.queryKeyCounts(ctx, countActiveByDifficulty)
}

const countActiveByDomain = `-- name: CountActiveByDomain :many
select domain, count(*) as count from resources
where is_active = true group by domain order by count desc
`

func (q *Queries) CountActiveByDomain(ctx context.Context) ([]KeyCount, error) {
	return q.queryKeyCounts(ctx, countActiveByDomain)
}

type SourceStat struct {
	Source      string
	Count       int64
	LastScraped int64
}

const sourceStats = `-- name: SourceStats :many
select source, count(*) as count, max(last_scraped) from resources
group by source order by count desc, source
`

func (q *Queries) SourceStats(ctx context.Context) ([]SourceStat, error) {
	rows, err := q.db.QueryContext(ctx, sourceStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SourceStat
	for rows.Next() {
		var i SourceStat
		if err := rows.Scan(&i.Source, &i.Count, &i.LastScraped); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countStaleResources = `-- name: CountStaleResources :one
select count(*) from resources where is_active = false or last_scraped < ?
`

func (q *Queries) CountStaleResources(ctx context.Context, cutoff int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countStaleResources, cutoff)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteStaleResources = `-- name: DeleteStaleResources :execrows
delete from resources where is_active = false or last_scraped < ?
`

func (q *Queries) DeleteStaleResources(ctx context.Context, cutoff int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteStaleResources, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setResourceActive = `-- name: SetResourceActive :exec
update resources set is_active = ?, updated_at = ? where uid = ?
`

func (q *Queries) SetResourceActive(ctx context.Context, uid string, active bool, now int64) error {
	_, err := q.db.ExecContext(ctx, setResourceActive, active, now, uid)
	return err
}
