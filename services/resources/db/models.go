package db

type Resource struct {
	Uid         string
	ID          string
	Title       string
	Description string
	Url         string
	Type        string
	Difficulty  string
	Duration    string
	Domain      string
	Skill       string
	Source      string
	Color       string
	Tags        string
	Rating      float64
	Views       int64
	IsActive    bool
	LastScraped int64
	Metadata    string
	CreatedAt   int64
	UpdatedAt   int64
}

type KeyCount struct {
	Key   string
	Count int64
}
