package admin

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/lib/textutil"
	"pathwise-backend/lib/timezone"
	"pathwise-backend/services/auth"
	authdb "pathwise-backend/services/auth/db"
	"pathwise-backend/services/discussions"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("services/admin")

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDeleteSelf   = errors.New("cannot delete your own account")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidEmail = errors.New("invalid email")
	ErrEmailTaken   = errors.New("email is used by another account")
)

type Options struct {
	// shown as the database name on the health page
	DatabaseName string
	Probes       []Probe
}

type Service struct {
	db          *sql.DB
	users       *authdb.Queries
	discussions discussions.Service
	monitor     *Monitor
	options     Options
	started     time.Time
	now         func() time.Time
}

func NewService(database *sql.DB, discussionService discussions.Service, monitor *Monitor, options Options) Service {
	if monitor == nil {
		monitor = NewMonitor(nil, options.Probes)
	}
	return Service{
		db:          database,
		users:       authdb.New(database),
		discussions: discussionService,
		monitor:     monitor,
		options:     options,
		started:     time.Now(),
		now:         timezone.Now,
	}
}

type UserStats struct {
	Total        int64            `json:"total"`
	Active       int64            `json:"active"`
	NewThisMonth int64            `json:"newThisMonth"`
	ByRole       map[string]int64 `json:"byRole"`
}

type DiscussionStats struct {
	Total          int64 `json:"total"`
	ActiveThisWeek int64 `json:"activeThisWeek"`
}

type RecentUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Stats struct {
	Users       UserStats       `json:"users"`
	Discussions DiscussionStats `json:"discussions"`
	RecentUsers []RecentUser    `json:"recentUsers"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

func (s Service) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	now := s.now()
	stats := Stats{
		Users:       UserStats{ByRole: map[string]int64{}},
		RecentUsers: []RecentUser{},
		LastUpdated: now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Users.Total, err = s.users.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Users.Active, err = s.users.CountActiveUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Users.NewThisMonth, err = s.users.CountUsersCreatedSince(gctx, timezone.StartOfMonth(now).UnixMilli())
		return err
	})
	g.Go(func() error {
		counts, err := s.discussions.Count(gctx, now.Add(-7*24*time.Hour))
		if err != nil {
			return err
		}
		stats.Discussions = DiscussionStats{Total: counts.Total, ActiveThisWeek: counts.CreatedSince}
		return nil
	})
	g.Go(func() error {
		roles, err := s.users.CountUsersByRole(gctx)
		if err != nil {
			return err
		}
		for _, r := range roles {
			stats.Users.ByRole[r.Key] = r.Count
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.users.ListRecentUsers(gctx, 10)
		if err != nil {
			return err
		}
		for _, r := range rows {
			stats.RecentUsers = append(stats.RecentUsers, RecentUser{
				ID:        r.ID,
				FirstName: r.FirstName,
				LastName:  r.LastName,
				Email:     r.Email,
				Role:      r.Role,
				IsActive:  r.IsActive,
				CreatedAt: timezone.FromMillis(r.CreatedAt),
			})
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute admin stats")
		return Stats{}, err
	}
	return stats, nil
}

type UserQuery struct {
	Page   int
	Limit  int
	Search string
	Role   string
	// "active", "inactive" or empty for both
	Status string
}

type UserPage struct {
	Users       []auth.User `json:"users"`
	TotalPages  int64       `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Total       int64       `json:"total"`
}

func (s Service) ListUsers(ctx context.Context, query UserQuery) (UserPage, error) {
	ctx, span := tracer.Start(ctx, "ListUsers")
	defer span.End()

	filter := authdb.UserFilter{Role: query.Role}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.SearchLike = authdb.LikeContains(search)
	}
	switch query.Status {
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		active := false
		filter.Active = &active
	}

	offset := int64((query.Page - 1) * query.Limit)
	rows, err := s.users.ListUsers(ctx, filter, int64(query.Limit), offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list users")
		return UserPage{}, err
	}
	total, err := s.users.CountFilteredUsers(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count users")
		return UserPage{}, err
	}

	page := UserPage{
		Users:       make([]auth.User, 0, len(rows)),
		TotalPages:  (total + int64(query.Limit) - 1) / int64(query.Limit),
		CurrentPage: query.Page,
		Total:       total,
	}
	for _, row := range rows {
		user, err := auth.FromRow(row)
		if err != nil {
			return UserPage{}, err
		}
		page.Users = append(page.Users, user)
	}
	return page, nil
}

// UserUpdate holds the account fields an admin may change, nil fields are
// left unchanged.
type UserUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"isActive"`
}

func (s Service) UpdateUser(ctx context.Context, id string, update UserUpdate) (auth.User, error) {
	ctx, span := tracer.Start(ctx, "UpdateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", id))

	if update.Role != nil && !auth.ValidRole(*update.Role) {
		return auth.User{}, ErrInvalidRole
	}
	if update.Email != nil {
		email := textutil.NormalizeEmail(*update.Email)
		if !httputil.IsEmail(email) {
			return auth.User{}, ErrInvalidEmail
		}
		update.Email = &email
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.User{}, err
	}
	defer tx.Rollback()
	txqry := s.users.WithTx(tx)

	row, err := txqry.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, err
	}

	if update.Email != nil && *update.Email != row.Email {
		taken, err := txqry.EmailTaken(ctx, *update.Email, id)
		if err != nil {
			return auth.User{}, err
		}
		if taken {
			return auth.User{}, ErrEmailTaken
		}
		row.Email = *update.Email
	}
	if update.FirstName != nil {
		row.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		row.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Role != nil {
		row.Role = *update.Role
	}
	if update.IsActive != nil {
		row.IsActive = *update.IsActive
	}
	row.UpdatedAt = s.now().UnixMilli()

	err = txqry.UpdateUser(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update user")
		return auth.User{}, err
	}
	err = tx.Commit()
	if err != nil {
		return auth.User{}, err
	}
	return auth.FromRow(row)
}

// DeleteUser removes the account id on behalf of the admin actorId.
func (s Service) DeleteUser(ctx context.Context, actorId, id string) error {
	ctx, span := tracer.Start(ctx, "DeleteUser")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", id))

	if actorId == id {
		return ErrDeleteSelf
	}
	deleted, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete user")
		return err
	}
	if deleted == 0 {
		return ErrUserNotFound
	}
	return nil
}

type Activity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Severity  string         `json:"severity"`
}

const (
	activityWindow  = 7 * 24 * time.Hour
	registrationAge = time.Minute
)

// Activity merges the latest registrations, discussions, logins and
// profile updates into one feed, newest first.
func (s Service) Activity(ctx context.Context, adminEmail string, limit int) ([]Activity, error) {
	ctx, span := tracer.Start(ctx, "Activity")
	defer span.End()

	per := limit / 3
	if per < 5 {
		per = 5
	}
	now := s.now()
	since := now.Add(-activityWindow).UnixMilli()

	var (
		registered []authdb.User
		posted     []discussions.Discussion
		loggedIn   []authdb.User
		updated    []authdb.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		registered, err = s.users.ListRecentUsers(gctx, int64(per))
		return err
	})
	g.Go(func() (err error) {
		posted, err = s.discussions.Recent(gctx, per)
		return err
	})
	g.Go(func() (err error) {
		loggedIn, err = s.users.ListLoginsSince(gctx, since, int64(per))
		return err
	})
	g.Go(func() (err error) {
		updated, err = s.users.ListProfileUpdatesSince(gctx, since, registrationAge.Milliseconds(), int64(per))
		return err
	})
	err := g.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read activity")
		return nil, err
	}

	name := func(u authdb.User) string {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}

	feed := make([]Activity, 0, len(registered)+len(posted)+len(loggedIn)+len(updated)+1)
	for _, u := range registered {
		feed = append(feed, Activity{
			ID:        "reg_" + u.ID,
			Type:      "user_registration",
			Message:   "New user registered: " + name(u),
			Timestamp: timezone.FromMillis(u.CreatedAt),
			Data:      map[string]any{"userId": u.ID, "email": u.Email},
			Severity:  "info",
		})
	}
	for _, d := range posted {
		author := d.Author
		if author == "" {
			author = "Unknown"
		}
		feed = append(feed, Activity{
			ID:        "disc_" + d.ID,
			Type:      "discussion_created",
			Message:   `New discussion: "` + d.Title + `"`,
			Timestamp: d.CreatedAt.In(timezone.Location),
			Data:      map[string]any{"discussionId": d.ID, "author": author},
			Severity:  "info",
		})
	}
	for _, u := range loggedIn {
		feed = append(feed, Activity{
			ID:        "login_" + u.ID + "_" + strconv.FormatInt(u.LastLogin, 10),
			Type:      "user_login",
			Message:   "User login: " + name(u),
			Timestamp: timezone.FromMillis(u.LastLogin),
			Data:      map[string]any{"userId": u.ID, "email": u.Email},
			Severity:  "success",
		})
	}
	for _, u := range updated {
		role := u.Role
		if role == "" {
			role = auth.RoleUser
		}
		feed = append(feed, Activity{
			ID:        "update_" + u.ID + "_" + strconv.FormatInt(u.UpdatedAt, 10),
			Type:      "admin_action",
			Message:   "User profile updated: " + name(u) + " (" + role + ")",
			Timestamp: timezone.FromMillis(u.UpdatedAt),
			Data:      map[string]any{"userId": u.ID, "email": u.Email, "role": u.Role},
			Severity:  "warning",
		})
	}
	feed = append(feed, Activity{
		ID:        "system_" + strconv.FormatInt(now.UnixMilli(), 10),
		Type:      "system_event",
		Message:   "Admin dashboard accessed",
		Timestamp: now,
		Data:      map[string]any{"component": "dashboard", "admin": adminEmail},
		Severity:  "info",
	})

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

type GrowthPoint struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

type Analytics struct {
	UserGrowth       []GrowthPoint `json:"userGrowth"`
	DiscussionGrowth []GrowthPoint `json:"discussionGrowth"`
}

func growth(counts map[string]int64) ([]GrowthPoint, error) {
	out := make([]GrowthPoint, 0, len(counts))
	for day, count := range counts {
		date, err := time.ParseInLocation(time.DateOnly, day, timezone.Location)
		if err != nil {
			return nil, err
		}
		out = append(out, GrowthPoint{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// Analytics counts users and discussions created per UTC day over the
// last `days` days. Days without any are omitted.
func (s Service) Analytics(ctx context.Context, days int) (Analytics, error) {
	ctx, span := tracer.Start(ctx, "Analytics")
	defer span.End()
	span.SetAttributes(attribute.Int("days", days))

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	var users, posts map[string]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.users.CountUsersByDay(gctx, since.UnixMilli())
		if err != nil {
			return err
		}
		users = make(map[string]int64, len(rows))
		for _, r := range rows {
			users[r.Day] = r.Count
		}
		return nil
	})
	g.Go(func() (err error) {
		posts, err = s.discussions.CountByDay(gctx, since)
		return err
	})
	err := g.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute analytics")
		return Analytics{}, err
	}

	var out Analytics
	out.UserGrowth, err = growth(users)
	if err != nil {
		return Analytics{}, err
	}
	out.DiscussionGrowth, err = growth(posts)
	if err != nil {
		return Analytics{}, err
	}
	return out, nil
}
