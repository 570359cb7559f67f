package discussions

import (
	"context"
	"testing"
	"time"

	"pathwise-backend/lib/testutil"
	"pathwise-backend/services/discussions/db"

	"github.com/stretchr/testify/require"
)

// clock advances a millisecond every call so rows keep a stable order.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func setup(t testing.TB, schema string) (Service, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/discussions",
		DbSchema: schema,
	})
	s := NewService(res.DB)
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, cleanup
}

var ada = Author{ID: "user-1", Name: "Ada Lovelace"}

func TestCreateAndList(t *testing.T) {
	s, cleanup := setup(t, db.Schema)
	defer cleanup()
	ctx := context.Background()

	_, err := s.Create(ctx, CreateParams{Title: " ", Description: "body", Author: ada})
	require.ErrorIs(t, err, ErrMissingFields)
	_, err = s.Create(ctx, CreateParams{Title: "t", Description: "d", Category: "Cooking", Author: ada})
	require.ErrorIs(t, err, ErrInvalidCategory)

	first, err := s.Create(ctx, CreateParams{Title: "Go generics", Description: "When to use them?", Author: ada})
	require.NoError(t, err)
	require.Equal(t, DefaultCategory, first.Category)
	require.Equal(t, "Ada Lovelace", first.Author)
	require.Equal(t, []Comment{}, first.Comments)
	require.Zero(t, first.Views)

	second, err := s.Create(ctx, CreateParams{
		Title:       "Pandas or Polars",
		Description: "Which one?",
		Category:    "Data Science",
		Author:      ada,
	})
	require.NoError(t, err)

	_, err = s.AddComment(ctx, first.ID, "  ", ada)
	require.ErrorIs(t, err, ErrEmptyComment)
	_, err = s.AddComment(ctx, "missing", "hello", ada)
	require.ErrorIs(t, err, ErrNotFound)

	c1, err := s.AddComment(ctx, first.ID, "When the types repeat.", ada)
	require.NoError(t, err)
	c2, err := s.AddComment(ctx, first.ID, "Rarely.", Author{ID: "user-2", Name: "Grace Hopper"})
	require.NoError(t, err)
	require.Zero(t, c2.Likes)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, first.ID, all[1].ID)
	require.Equal(t, 2, all[1].Replies)
	require.Equal(t, []string{c1.ID, c2.ID}, []string{all[1].Comments[0].ID, all[1].Comments[1].ID})
	require.Equal(t, []Comment{}, all[0].Comments)

	data, err := s.List(ctx, "Data Science")
	require.NoError(t, err)
	require.Len(t, data, 1)
	require.Equal(t, second.ID, data[0].ID)
}

func TestViewAndLike(t *testing.T) {
	s, cleanup := setup(t, db.Schema)
	defer cleanup()
	ctx := context.Background()

	d, err := s.Create(ctx, CreateParams{Title: "t", Description: "d", Author: ada})
	require.NoError(t, err)

	viewed, err := s.View(ctx, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, viewed.Views)
	viewed, err = s.View(ctx, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, viewed.Views)

	_, err = s.View(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	likes, err := s.Like(ctx, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, likes)
	likes, err = s.Like(ctx, d.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, likes)

	_, err = s.Like(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeed(t *testing.T) {
	s, cleanup := setup(t, db.Schema)
	defer cleanup()
	ctx := context.Background()

	seeds, err := loadSeed()
	require.NoError(t, err)
	require.Len(t, seeds, 10)
	for _, seed := range seeds {
		require.True(t, ValidCategory(seed.Category), seed.Category)
	}

	count, err := s.Seed(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 10, count)

	// existing discussions are kept without replace
	count, err = s.Seed(ctx, false)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = s.Create(ctx, CreateParams{Title: "extra", Description: "d", Author: ada})
	require.NoError(t, err)

	count, err = s.Seed(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 10, count)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 10)
	require.Equal(t, seeds[0].Title, all[0].Title)
	require.Equal(t, "Sarah Chen", all[0].Author)
	require.EqualValues(t, 1247, all[0].Views)
	require.Len(t, all[0].Comments, 2)
	require.Equal(t, "David Martinez", all[0].Comments[0].Author)

	counts, err := s.Count(ctx, s.now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 10, counts.Total)
	require.EqualValues(t, 10, counts.CreatedSince)
}
