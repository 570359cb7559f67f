package discussions

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pathwise-backend/services/discussions/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/discussions")

const DefaultCategory = "Web Development"

var Categories = []string{
	"Web Development",
	"Data Science",
	"Career Advice",
	"Development",
	"Mobile Development",
	"DevOps",
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

var (
	ErrNotFound        = errors.New("discussion not found")
	ErrMissingFields   = errors.New("title and description are required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyComment    = errors.New("comment text is required")
)

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int64     `json:"likes"`
}

type Discussion struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Replies     int       `json:"replies"`
	Views       int64     `json:"views"`
	Category    string    `json:"category"`
	Likes       int64     `json:"likes"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
}

func commentFromRow(row db.Comment) Comment {
	return Comment{
		ID:        row.ID,
		Text:      row.Text,
		Author:    row.Author,
		CreatedAt: time.UnixMilli(row.CreatedAt),
		Likes:     row.Likes,
	}
}

func discussionFromRow(row db.Discussion, comments []db.Comment) Discussion {
	d := Discussion{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Author:      row.Author,
		Views:       row.Views,
		Category:    row.Category,
		Likes:       row.Likes,
		Comments:    make([]Comment, len(comments)),
		CreatedAt:   time.UnixMilli(row.CreatedAt),
	}
	for i, c := range comments {
		d.Comments[i] = commentFromRow(c)
	}
	d.Replies = len(d.Comments)
	return d
}

// Author identifies the signed in user writing a discussion or comment.
type Author struct {
	ID   string
	Name string
}

// AuthorName formats a user's name the way it is shown on posts.
func AuthorName(firstName, lastName string) string {
	return strings.TrimSpace(firstName + " " + lastName)
}

type Service struct {
	db  *sql.DB
	qry *db.Queries
	now func() time.Time
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
		now: time.Now,
	}
}

// List returns the discussions of category (all when empty), newest first.
func (s Service) List(ctx context.Context, category string) ([]Discussion, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	rows, err := s.qry.ListDiscussions(ctx, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list discussions")
		return nil, err
	}
	comments, err := s.qry.ListCommentsByCategory(ctx, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list comments")
		return nil, err
	}

	byDiscussion := make(map[string][]db.Comment, len(rows))
	for _, c := range comments {
		byDiscussion[c.DiscussionID] = append(byDiscussion[c.DiscussionID], c)
	}

	out := make([]Discussion, len(rows))
	for i, row := range rows {
		out[i] = discussionFromRow(row, byDiscussion[row.ID])
	}
	return out, nil
}

// View counts a view of a discussion and returns it with the new count.
func (s Service) View(ctx context.Context, id string) (Discussion, error) {
	ctx, span := tracer.Start(ctx, "View")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Discussion{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	updated, err := txqry.IncrementViews(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to increment views")
		return Discussion{}, err
	}
	if updated == 0 {
		return Discussion{}, ErrNotFound
	}
	row, err := txqry.GetDiscussion(ctx, id)
	if err != nil {
		return Discussion{}, err
	}
	comments, err := txqry.ListComments(ctx, id)
	if err != nil {
		return Discussion{}, err
	}
	err = tx.Commit()
	if err != nil {
		return Discussion{}, err
	}
	return discussionFromRow(row, comments), nil
}

type CreateParams struct {
	Title       string
	Description string
	Category    string
	Author      Author
}

func (s Service) Create(ctx context.Context, params CreateParams) (Discussion, error) {
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if title == "" || description == "" {
		return Discussion{}, ErrMissingFields
	}
	category := strings.TrimSpace(params.Category)
	if category == "" {
		category = DefaultCategory
	}
	if !ValidCategory(category) {
		return Discussion{}, ErrInvalidCategory
	}

	now := s.now().UnixMilli()
	row := db.Discussion{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Author:      params.Author.Name,
		AuthorID:    sql.NullString{String: params.Author.ID, Valid: params.Author.ID != ""},
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.qry.CreateDiscussion(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create discussion")
		return Discussion{}, err
	}
	return discussionFromRow(row, nil), nil
}

func (s Service) AddComment(ctx context.Context, discussionId, text string, author Author) (Comment, error) {
	ctx, span := tracer.Start(ctx, "AddComment")
	defer span.End()
	span.SetAttributes(attribute.String("id", discussionId))

	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyComment
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Comment{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	_, err = txqry.GetDiscussion(ctx, discussionId)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, err
	}

	now := s.now().UnixMilli()
	row := db.Comment{
		ID:           uuid.NewString(),
		DiscussionID: discussionId,
		Text:         text,
		Author:       author.Name,
		AuthorID:     sql.NullString{String: author.ID, Valid: author.ID != ""},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = txqry.CreateComment(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create comment")
		return Comment{}, err
	}
	err = txqry.TouchDiscussion(ctx, discussionId, now)
	if err != nil {
		return Comment{}, err
	}
	err = tx.Commit()
	if err != nil {
		return Comment{}, err
	}
	return commentFromRow(row), nil
}

// Like adds a like to a discussion and returns the new count.
func (s Service) Like(ctx context.Context, id string) (int64, error) {
	ctx, span := tracer.Start(ctx, "Like")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	likes, err := s.qry.IncrementLikes(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to like discussion")
		return 0, err
	}
	return likes, nil
}

// Recent returns the latest discussions without their comments.
func (s Service) Recent(ctx context.Context, limit int) ([]Discussion, error) {
	rows, err := s.qry.ListRecentDiscussions(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Discussion, len(rows))
	for i, row := range rows {
		out[i] = discussionFromRow(row, nil)
	}
	return out, nil
}

type Counts struct {
	Total        int64
	CreatedSince int64
}

// Count returns the number of discussions and how many were created since
// the given time.
func (s Service) Count(ctx context.Context, since time.Time) (Counts, error) {
	total, err := s.qry.CountDiscussions(ctx)
	if err != nil {
		return Counts{}, err
	}
	recent, err := s.qry.CountDiscussionsCreatedSince(ctx, since.UnixMilli())
	if err != nil {
		return Counts{}, err
	}
	return Counts{Total: total, CreatedSince: recent}, nil
}

// CountByDay returns the number of discussions created per UTC day since
// the given time, keyed by YYYY-MM-DD.
func (s Service) CountByDay(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.qry.CountDiscussionsByDay(ctx, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Day] = r.Count
	}
	return out, nil
}
