package discussions

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"pathwise-backend/services/discussions/db"

	"github.com/google/uuid"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed seed.json5
var seedData []byte

type seedComment struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Likes  int64  `json:"likes"`
}

type seedDiscussion struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Author      string        `json:"author"`
	Category    string        `json:"category"`
	Views       int64         `json:"views"`
	Likes       int64         `json:"likes"`
	Comments    []seedComment `json:"comments"`
}

func loadSeed() ([]seedDiscussion, error) {
	var out []seedDiscussion
	err := json5.Unmarshal(seedData, &out)
	if err != nil {
		return nil, fmt.Errorf("parse seed discussions: %w", err)
	}
	return out, nil
}

// Seed loads the sample discussions. Without replace it does nothing when
// discussions already exist, with replace existing discussions are removed
// first. It returns the number of discussions inserted.
func (s Service) Seed(ctx context.Context, replace bool) (int, error) {
	ctx, span := tracer.Start(ctx, "Seed")
	defer span.End()
	span.SetAttributes(attribute.Bool("replace", replace))

	seeds, err := loadSeed()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load seed")
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	if replace {
		err = txqry.DeleteAllComments(ctx)
		if err != nil {
			return 0, err
		}
		removed, err := txqry.DeleteAllDiscussions(ctx)
		if err != nil {
			return 0, err
		}
		if removed > 0 {
			slog.InfoContext(ctx, "cleared existing discussions", "count", removed)
		}
	} else {
		count, err := txqry.CountDiscussions(ctx)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			slog.InfoContext(ctx, "discussions already exist, skipping seed", "count", count)
			return 0, nil
		}
	}

	// the first seed is the newest, each following one an hour older
	now := s.now()
	for i, seed := range seeds {
		created := now.Add(-time.Duration(i) * time.Hour)
		row := db.Discussion{
			ID:          uuid.NewString(),
			Title:       seed.Title,
			Description: seed.Description,
			Author:      seed.Author,
			Category:    seed.Category,
			Views:       seed.Views,
			Likes:       seed.Likes,
			CreatedAt:   created.UnixMilli(),
			UpdatedAt:   created.UnixMilli(),
		}
		err = txqry.CreateDiscussion(ctx, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert seed discussion")
			return 0, fmt.Errorf("seed %q: %w", seed.Title, err)
		}

		for j, c := range seed.Comments {
			commented := created.Add(time.Duration(j+1) * time.Minute)
			err = txqry.CreateComment(ctx, db.Comment{
				ID:           uuid.NewString(),
				DiscussionID: row.ID,
				Text:         c.Text,
				Author:       c.Author,
				Likes:        c.Likes,
				CreatedAt:    commented.UnixMilli(),
				UpdatedAt:    commented.UnixMilli(),
			})
			if err != nil {
				return 0, fmt.Errorf("seed comment on %q: %w", seed.Title, err)
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "seeded discussions", "count", len(seeds))
	return len(seeds), nil
}
