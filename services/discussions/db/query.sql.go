package db

import (
	"context"
)

const discussionColumns = `id, title, description, author, author_id, category, views, likes,
created_at, updated_at`

const commentColumns = `id, discussion_id, text, author, author_id, likes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDiscussion(row scanner) (Discussion, error) {
	var i Discussion
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Author,
		&i.AuthorID,
		&i.Category,
		&i.Views,
		&i.Likes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanComment(row scanner) (Comment, error) {
	var i Comment
	err := row.Scan(
		&i.ID,
		&i.DiscussionID,
		&i.Text,
		&i.Author,
		&i.AuthorID,
		&i.Likes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryDiscussions(ctx context.Context, query string, args ...any) ([]Discussion, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Discussion
	for rows.Next() {
		i, err := scanDiscussion(rows)
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

func (q *Queries) queryComments(ctx context.Context, query string, args ...any) ([]Comment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Comment
	for rows.Next() {
		i, err := scanComment(rows)
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

func (q *Queries) queryCount(ctx context.Context, query string, args ...any) (int64, error) {
	row := q.db.QueryRowContext(ctx, query, args...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createDiscussion = `-- name: CreateDiscussion :exec
insert into discussions (` + discussionColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateDiscussion(ctx context.Context, arg Discussion) error {
	_, err := q.db.ExecContext(ctx, createDiscussion,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Author,
		arg.AuthorID,
		arg.Category,
		arg.Views,
		arg.Likes,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getDiscussion = `-- name: GetDiscussion :one
select ` + discussionColumns + ` from discussions where id = ?
`

func (q *Queries) GetDiscussion(ctx context.Context, id string) (Discussion, error) {
	return scanDiscussion(q.db.QueryRowContext(ctx, getDiscussion, id))
}

const listDiscussions = `-- name: ListDiscussions :many
select ` + discussionColumns + ` from discussions
where ?1 = '' or category = ?1
order by created_at desc, rowid desc
`

// ListDiscussions lists the discussions of category, or all of them when
// category is empty.
func (q *Queries) ListDiscussions(ctx context.Context, category string) ([]Discussion, error) {
	return q.queryDiscussions(ctx, listDiscussions, category)
}

const listRecentDiscussions = `-- name: ListRecentDiscussions :many
select ` + discussionColumns + ` from discussions
order by created_at desc, rowid desc limit ?
`

func (q *Queries) ListRecentDiscussions(ctx context.Context, limit int64) ([]Discussion, error) {
	return q.queryDiscussions(ctx, listRecentDiscussions, limit)
}

const incrementViews = `-- name: IncrementViews :execrows
update discussions set views = views + 1 where id = ?
`

func (q *Queries) IncrementViews(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementViews, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementLikes = `-- name: IncrementLikes :one
update discussions set likes = likes + 1 where id = ? returning likes
`

func (q *Queries) IncrementLikes(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, incrementLikes, id)
	var likes int64
	err := row.Scan(&likes)
	return likes, err
}

const deleteAllDiscussions = `-- name: DeleteAllDiscussions :execrows
delete from discussions
`

func (q *Queries) DeleteAllDiscussions(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllDiscussions)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllComments = `-- name: DeleteAllComments :exec
delete from discussion_comments
`

func (q *Queries) DeleteAllComments(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllComments)
	return err
}

const createComment = `-- name: CreateComment :exec
insert into discussion_comments (` + commentColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateComment(ctx context.Context, arg Comment) error {
	_, err := q.db.ExecContext(ctx, createComment,
		arg.ID,
		arg.DiscussionID,
		arg.Text,
		arg.Author,
		arg.AuthorID,
		arg.Likes,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const touchDiscussion = `-- name: TouchDiscussion :exec
update discussions set updated_at = ? where id = ?
`

func (q *Queries) TouchDiscussion(ctx context.Context, id string, now int64) error {
	_, err := q.db.ExecContext(ctx, touchDiscussion, now, id)
	return err
}

const listComments = `-- name: ListComments :many
select ` + commentColumns + ` from discussion_comments
where discussion_id = ?
order by created_at asc, rowid asc
`

func (q *Queries) ListComments(ctx context.Context, discussionId string) ([]Comment, error) {
	return q.queryComments(ctx, listComments, discussionId)
}

const listCommentsByCategory = `-- name: ListCommentsByCategory :many
select ` + commentColumns + ` from discussion_comments
where discussion_id in (
    select id from discussions where ?1 = '' or category = ?1
)
order by created_at asc, rowid asc
`

// ListCommentsByCategory lists the comments of every discussion that
// ListDiscussions would return for category.
func (q *Queries) ListCommentsByCategory(ctx context.Context, category string) ([]Comment, error) {
	return q.queryComments(ctx, listCommentsByCategory, category)
}

const countDiscussions = `-- name: CountDiscussions :one
select count(*) from discussions
`

func (q *Queries) CountDiscussions(ctx context.Context) (int64, error) {
	return q.queryCount(ctx, countDiscussions)
}

const countDiscussionsCreatedSince = `-- name: CountDiscussionsCreatedSince :one
select count(*) from discussions where created_at >= ?
`

func (q *Queries) CountDiscussionsCreatedSince(ctx context.Context, since int64) (int64, error) {
	return q.queryCount(ctx, countDiscussionsCreatedSince, since)
}

const countDiscussionsByDay = `-- name: CountDiscussionsByDay :many
select strftime('%Y-%m-%d', created_at / 1000, 'unixepoch') as day, count(*)
from discussions where created_at >= ?
group by day order by day
`

func (q *Queries) CountDiscussionsByDay(ctx context.Context, since int64) ([]DayCount, error) {
	rows, err := q.db.QueryContext(ctx, countDiscussionsByDay, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DayCount
	for rows.Next() {
		var i DayCount
		if err := rows.Scan(&i.Day, &i.Count); err != nil {
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
