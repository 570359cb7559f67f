package db

import (
	"context"
	"database/sql"
	"strings"
)

const userColumns = `id, first_name, last_name, email, password,
google_id, google_email, github_id, github_username, linkedin_id, linkedin_email,
role, is_admin, is_active, last_login,
full_name, phone, location, summary,
skills, education, experience, projects, certifications, languages, preferences,
created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.Password,
		&i.GoogleID,
		&i.GoogleEmail,
		&i.GithubID,
		&i.GithubUsername,
		&i.LinkedinID,
		&i.LinkedinEmail,
		&i.Role,
		&i.IsAdmin,
		&i.IsActive,
		&i.LastLogin,
		&i.FullName,
		&i.Phone,
		&i.Location,
		&i.Summary,
		&i.Skills,
		&i.Education,
		&i.Experience,
		&i.Projects,
		&i.Certifications,
		&i.Languages,
		&i.Preferences,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
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

const createUser = `-- name: CreateUser :exec
insert into users(` + userColumns + `) values (
    ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
`

func (q *Queries) CreateUser(ctx context.Context, arg User) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Password,
		arg.GoogleID,
		arg.GoogleEmail,
		arg.GithubID,
		arg.GithubUsername,
		arg.LinkedinID,
		arg.LinkedinEmail,
		arg.Role,
		arg.IsAdmin,
		arg.IsActive,
		arg.LastLogin,
		arg.FullName,
		arg.Phone,
		arg.Location,
		arg.Summary,
		arg.Skills,
		arg.Education,
		arg.Experience,
		arg.Projects,
		arg.Certifications,
		arg.Languages,
		arg.Preferences,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateUser = `-- name: UpdateUser :exec
update users set
    first_name = ?,
    last_name = ?,
    email = ?,
    password = ?,
    google_id = ?,
    google_email = ?,
    github_id = ?,
    github_username = ?,
    linkedin_id = ?,
    linkedin_email = ?,
    role = ?,
    is_admin = ?,
    is_active = ?,
    last_login = ?,
    full_name = ?,
    phone = ?,
    location = ?,
    summary = ?,
    skills = ?,
    education = ?,
    experience = ?,
    projects = ?,
    certifications = ?,
    languages = ?,
    preferences = ?,
    updated_at = ?
where id = ?
`

// UpdateUser overwrites every field of a user except its id and creation
// time.
func (q *Queries) UpdateUser(ctx context.Context, arg User) error {
	_, err := q.db.ExecContext(ctx, updateUser,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Password,
		arg.GoogleID,
		arg.GoogleEmail,
		arg.GithubID,
		arg.GithubUsername,
		arg.LinkedinID,
		arg.LinkedinEmail,
		arg.Role,
		arg.IsAdmin,
		arg.IsActive,
		arg.LastLogin,
		arg.FullName,
		arg.Phone,
		arg.Location,
		arg.Summary,
		arg.Skills,
		arg.Education,
		arg.Experience,
		arg.Projects,
		arg.Certifications,
		arg.Languages,
		arg.Preferences,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const getUser = `-- name: GetUser :one
select ` + userColumns + ` from users where id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
select ` + userColumns + ` from users where email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const findOAuthUser = `-- name: FindOAuthUser :one
select ` + userColumns + ` from users
where google_id = ?1 or github_id = ?2 or linkedin_id = ?3 or email = ?4
order by email = ?4 asc
limit 1
`

type FindOAuthUserParams struct {
	GoogleID   sql.NullString
	GithubID   sql.NullString
	LinkedinID sql.NullString
	Email      string
}

// FindOAuthUser finds the user linked to a provider id, falling back to
// the user with the same email.
func (q *Queries) FindOAuthUser(ctx context.Context, arg FindOAuthUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, findOAuthUser,
		arg.GoogleID,
		arg.GithubID,
		arg.LinkedinID,
		arg.Email,
	))
}

const setLastLogin = `-- name: SetLastLogin :exec
update users set last_login = ? where id = ?
`

func (q *Queries) SetLastLogin(ctx context.Context, id string, now int64) error {
	_, err := q.db.ExecContext(ctx, setLastLogin, now, id)
	return err
}

const deleteUser = `-- name: DeleteUser :execrows
delete from users where id = ?
`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const emailTaken = `-- name: EmailTaken :one
select exists(select 1 from users where email = ? and id != ?)
`

// EmailTaken reports whether another user than exceptId has email.
func (q *Queries) EmailTaken(ctx context.Context, email, exceptId string) (bool, error) {
	row := q.db.QueryRowContext(ctx, emailTaken, email, exceptId)
	var taken bool
	err := row.Scan(&taken)
	return taken, err
}

const hasAdmin = `-- name: HasAdmin :one
select exists(select 1 from users where role = 'admin' or is_admin = true)
`

func (q *Queries) HasAdmin(ctx context.Context) (bool, error) {
	row := q.db.QueryRowContext(ctx, hasAdmin)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countUsers = `-- name: CountUsers :one
select count(*) from users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	return q.queryCount(ctx, countUsers)
}

const countActiveUsers = `-- name: CountActiveUsers :one
select count(*) from users where is_active = true
`

func (q *Queries) CountActiveUsers(ctx context.Context) (int64, error) {
	return q.queryCount(ctx, countActiveUsers)
}

const countUsersCreatedSince = `-- name: CountUsersCreatedSince :one
select count(*) from users where created_at >= ?
`

func (q *Queries) CountUsersCreatedSince(ctx context.Context, since int64) (int64, error) {
	return q.queryCount(ctx, countUsersCreatedSince, since)
}

const countUsersByRole = `-- name: CountUsersByRole :many
select role, count(*) as count from users group by role order by count desc, role
`

func (q *Queries) CountUsersByRole(ctx context.Context) ([]KeyCount, error) {
	rows, err := q.db.QueryContext(ctx, countUsersByRole)
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

const listRecentUsers = `-- name: ListRecentUsers :many
select ` + userColumns + ` from users order by created_at desc, rowid desc limit ?
`

func (q *Queries) ListRecentUsers(ctx context.Context, limit int64) ([]User, error) {
	return q.queryUsers(ctx, listRecentUsers, limit)
}

type UserFilter struct {
	// a LIKE pattern matched against names and email, empty matches all
	SearchLike string
	Role       string
	// nil matches both
	Active *bool
}

func (f UserFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.SearchLike != "" {
		clauses = append(clauses, `(first_name like ? escape '\' or last_name like ? escape '\' or email like ? escape '\')`)
		args = append(args, f.SearchLike, f.SearchLike, f.SearchLike)
	}
	if f.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, f.Role)
	}
	if f.Active != nil {
		clauses = append(clauses, "is_active = ?")
		args = append(args, *f.Active)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " where " + strings.Join(clauses, " and "), args
}

// LikeContains builds a case-insensitive LIKE pattern matching s anywhere.
func LikeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// -- name: ListUsers :many
func (q *Queries) ListUsers(ctx context.Context, filter UserFilter, limit, offset int64) ([]User, error) {
	where, args := filter.where()
	query := `select ` + userColumns + ` from users` + where +
		` order by created_at desc, rowid desc limit ? offset ?`
	return q.queryUsers(ctx, query, append(args, limit, offset)...)
}

// -- name: CountFilteredUsers :one
func (q *Queries) CountFilteredUsers(ctx context.Context, filter UserFilter) (int64, error) {
	where, args := filter.where()
	return q.queryCount(ctx, `select count(*) from users`+where, args...)
}

const listLoginsSince = `-- name: ListLoginsSince :many
select ` + userColumns + ` from users where last_login >= ? order by last_login desc limit ?
`

func (q *Queries) ListLoginsSince(ctx context.Context, since, limit int64) ([]User, error) {
	return q.queryUsers(ctx, listLoginsSince, since, limit)
}

const listProfileUpdatesSince = `-- name: ListProfileUpdatesSince :many
select ` + userColumns + ` from users
where updated_at >= ?1 and updated_at - created_at > ?2
order by updated_at desc limit ?3
`

// ListProfileUpdatesSince lists users updated since `since` at least
// minAge ms after they were created.
func (q *Queries) ListProfileUpdatesSince(ctx context.Context, since, minAge, limit int64) ([]User, error) {
	return q.queryUsers(ctx, listProfileUpdatesSince, since, minAge, limit)
}

const countUsersByDay = `-- name: CountUsersByDay :many
select strftime('%Y-%m-%d', created_at / 1000, 'unixepoch') as day, count(*)
from users where created_at >= ?
group by day order by day
`

func (q *Queries) CountUsersByDay(ctx context.Context, since int64) ([]DayCount, error) {
	rows, err := q.db.QueryContext(ctx, countUsersByDay, since)
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
