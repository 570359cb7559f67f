package db

import "database/sql"

type ScrapingJob struct {
	ID               string
	Source           string
	Status           string
	StartedAt        int64
	CompletedAt      sql.NullInt64
	Duration         sql.NullInt64
	ResourcesFound   int64
	ResourcesAdded   int64
	ResourcesUpdated int64
	Configuration    string
	Metadata         string
	CreatedAt        int64
	UpdatedAt        int64
}

type ScrapingJobError struct {
	JobID     string
	Message   string
	Url       sql.NullString
	Timestamp int64
}
