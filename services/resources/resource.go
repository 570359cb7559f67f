package resources

import (
	"encoding/json"
	"fmt"
	"time"

	"pathwise-backend/lib/scraper"
	"pathwise-backend/services/resources/db"
)

// Resource is a catalog entry as served to clients.
type Resource struct {
	UID               string           `json:"_id"`
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	URL               string           `json:"url"`
	Type              string           `json:"type"`
	Difficulty        string           `json:"difficulty"`
	Duration          string           `json:"duration"`
	FormattedDuration string           `json:"formattedDuration"`
	Domain            string           `json:"domain"`
	Skill             string           `json:"skill"`
	Source            string           `json:"source"`
	Color             string           `json:"color"`
	Tags              []string         `json:"tags"`
	Rating            float64          `json:"rating"`
	Views             int64            `json:"views"`
	IsActive          bool             `json:"isActive"`
	LastScraped       time.Time        `json:"lastScraped"`
	Metadata          scraper.Metadata `json:"metadata"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func FromRow(row db.Resource) (Resource, error) {
	r := Resource{
		UID:               row.Uid,
		ID:                row.ID,
		Title:             row.Title,
		Description:       row.Description,
		URL:               row.Url,
		Type:              row.Type,
		Difficulty:        row.Difficulty,
		Duration:          row.Duration,
		FormattedDuration: row.Duration,
		Domain:            row.Domain,
		Skill:             row.Skill,
		Source:            row.Source,
		Color:             row.Color,
		Tags:              []string{},
		Rating:            row.Rating,
		Views:             row.Views,
		IsActive:          row.IsActive,
		LastScraped:       time.UnixMilli(row.LastScraped).UTC(),
		CreatedAt:         time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt:         time.UnixMilli(row.UpdatedAt).UTC(),
	}
	err := json.Unmarshal([]byte(row.Tags), &r.Tags)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s tags: %w", row.Uid, err)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	err = json.Unmarshal([]byte(row.Metadata), &r.Metadata)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s metadata: %w", row.Uid, err)
	}
	return r, nil
}

func (r Resource) Row() (db.Resource, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	serializedTags, err := json.Marshal(tags)
	if err != nil {
		return db.Resource{}, err
	}
	serializedMeta, err := json.Marshal(r.Metadata)
	if err != nil {
		return db.Resource{}, err
	}
	return db.Resource{
		Uid:         r.UID,
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Url:         r.URL,
		Type:        r.Type,
		Difficulty:  r.Difficulty,
		Duration:    r.Duration,
		Domain:      r.Domain,
		Skill:       r.Skill,
		Source:      r.Source,
		Color:       r.Color,
		Tags:        string(serializedTags),
		Rating:      r.Rating,
		Views:       r.Views,
		IsActive:    r.IsActive,
		LastScraped: r.LastScraped.UnixMilli(),
		Metadata:    string(serializedMeta),
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.UpdatedAt.UnixMilli(),
	}, nil
}

func fromRows(rows []db.Resource) ([]Resource, error) {
	out := make([]Resource, 0, len(rows))
	for _, row := range rows {
		r, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
