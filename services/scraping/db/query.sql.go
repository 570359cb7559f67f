package db

import (
	"context"
	"database/sql"
)

const jobColumns = `id, source, status, started_at, completed_at, duration,
resources_found, resources_added, resources_updated, configuration, metadata,
created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (ScrapingJob, error) {
	var i ScrapingJob
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.Status,
		&i.StartedAt,
		&i.CompletedAt,
		&i.Duration,
		&i.ResourcesFound,
		&i.ResourcesAdded,
		&i.ResourcesUpdated,
		&i.Configuration,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createJob = `-- name: CreateJob :exec
insert into scraping_jobs(
    id, source, status, started_at, configuration, metadata, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateJobParams struct {
	ID            string
	Source        string
	Status        string
	StartedAt     int64
	Configuration string
	Metadata      string
	CreatedAt     int64
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) error {
	_, err := q.db.ExecContext(ctx, createJob,
		arg.ID,
		arg.Source,
		arg.Status,
		arg.StartedAt,
		arg.Configuration,
		arg.Metadata,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const startJob = `-- name: StartJob :execrows
update scraping_jobs set status = 'running', updated_at = ?1
where id = ?2 and status = 'pending'
`

// StartJob moves a pending job to running. Zero rows means the job was
// cancelled or already started.
func (q *Queries) StartJob(ctx context.Context, id string, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, startJob, now, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const finishJob = `-- name: FinishJob :execrows
update scraping_jobs set
    status = ?1,
    completed_at = ?2,
    duration = ?2 - started_at,
    updated_at = ?2
where id = ?3 and status in ('pending', 'running')
`

// FinishJob moves a live job to a final status and records its duration.
// Jobs that already reached a final status are left alone and report zero
// rows.
func (q *Queries) FinishJob(ctx context.Context, id, status string, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, finishJob, status, now, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cancelJob = `-- name: CancelJob :execrows
update scraping_jobs set
    status = 'cancelled',
    completed_at = ?1,
    duration = ?1 - started_at,
    updated_at = ?1
where id = ?2 and status in ('pending', 'running')
`

func (q *Queries) CancelJob(ctx context.Context, id string, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelJob, now, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setJobCounts = `-- name: SetJobCounts :exec
update scraping_jobs set
    resources_found = ?,
    resources_added = ?,
    resources_updated = ?,
    metadata = ?,
    updated_at = ?
where id = ?
`

type SetJobCountsParams struct {
	ID               string
	ResourcesFound   int64
	ResourcesAdded   int64
	ResourcesUpdated int64
	Metadata         string
	UpdatedAt        int64
}

func (q *Queries) SetJobCounts(ctx context.Context, arg SetJobCountsParams) error {
	_, err := q.db.ExecContext(ctx, setJobCounts,
		arg.ResourcesFound,
		arg.ResourcesAdded,
		arg.ResourcesUpdated,
		arg.Metadata,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const addJobError = `-- name: AddJobError :exec
insert into scraping_job_errors(job_id, message, url, timestamp) values (?, ?, ?, ?)
`

func (q *Queries) AddJobError(ctx context.Context, arg ScrapingJobError) error {
	_, err := q.db.ExecContext(ctx, addJobError,
		arg.JobID,
		arg.Message,
		arg.Url,
		arg.Timestamp,
	)
	return err
}

const getJob = `-- name: GetJob :one
select ` + jobColumns + ` from scraping_jobs where id = ?
`

func (q *Queries) GetJob(ctx context.Context, id string) (ScrapingJob, error) {
	return scanJob(q.db.QueryRowContext(ctx, getJob, id))
}

const getJobStatus = `-- name: GetJobStatus :one
select status from scraping_jobs where id = ?
`

func (q *Queries) GetJobStatus(ctx context.Context, id string) (string, error) {
	row := q.db.QueryRowContext(ctx, getJobStatus, id)
	var status string
	err := row.Scan(&status)
	return status, err
}

const listJobs = `-- name: ListJobs :many
select ` + jobColumns + ` from scraping_jobs order by started_at desc, rowid desc limit ?
`

func (q *Queries) ListJobs(ctx context.Context, limit int64) ([]ScrapingJob, error) {
	rows, err := q.db.QueryContext(ctx, listJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScrapingJob
	for rows.Next() {
		i, err := scanJob(rows)
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

const getJobErrors = `-- name: GetJobErrors :many
select job_id, message, url, timestamp from scraping_job_errors
where job_id = ? order by timestamp, rowid
`

func (q *Queries) GetJobErrors(ctx context.Context, jobID string) ([]ScrapingJobError, error) {
	rows, err := q.db.QueryContext(ctx, getJobErrors, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScrapingJobError
	for rows.Next() {
		var i ScrapingJobError
		if err := rows.Scan(&i.JobID, &i.Message, &i.Url, &i.Timestamp); err != nil {
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

type JobStatRow struct {
	Status         string
	Count          int64
	AvgDuration    sql.NullFloat64
	TotalResources int64
}

const jobStats = `-- name: JobStats :many
select status, count(*), avg(duration), coalesce(sum(resources_added), 0)
from scraping_jobs group by status order by status
`

func (q *Queries) JobStats(ctx context.Context) ([]JobStatRow, error) {
	rows, err := q.db.QueryContext(ctx, jobStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []JobStatRow
	for rows.Next() {
		var i JobStatRow
		if err := rows.Scan(&i.Status, &i.Count, &i.AvgDuration, &i.TotalResources); err != nil {
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
