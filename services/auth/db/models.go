package db

import "database/sql"

type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Password       string
	GoogleID       sql.NullString
	GoogleEmail    sql.NullString
	GithubID       sql.NullString
	GithubUsername sql.NullString
	LinkedinID     sql.NullString
	LinkedinEmail  sql.NullString
	Role           string
	IsAdmin        bool
	IsActive       bool
	LastLogin      int64
	FullName       string
	Phone          string
	Location       string
	Summary        string
	Skills         string
	Education      string
	Experience     string
	Projects       string
	Certifications string
	Languages      string
	Preferences    string
	CreatedAt      int64
	UpdatedAt      int64
}

type KeyCount struct {
	Key   string
	Count int64
}

type DayCount struct {
	// YYYY-MM-DD in UTC
	Day   string
	Count int64
}
