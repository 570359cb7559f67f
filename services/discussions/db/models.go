package db

import "database/sql"

type Discussion struct {
	ID          string
	Title       string
	Description string
	Author      string
	AuthorID    sql.NullString
	Category    string
	Views       int64
	Likes       int64
	CreatedAt   int64
	UpdatedAt   int64
}

type Comment struct {
	ID           string
	DiscussionID string
	Text         string
	Author       string
	AuthorID     sql.NullString
	Likes        int64
	CreatedAt    int64
	UpdatedAt    int64
}

type DayCount struct {
	// YYYY-MM-DD in UTC
	Day   string
	Count int64
}
