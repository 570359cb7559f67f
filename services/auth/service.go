package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pathwise-backend/lib/auth"
	"pathwise-backend/lib/oauth"
	"pathwise-backend/lib/textutil"
	"pathwise-backend/services/auth/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/auth")

var (
	ErrUserExists         = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// IdentityVerifier checks a token issued by an identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (oauth.Profile, error)
}

// CodeExchanger trades an authorization code for the provider's profile.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (oauth.Profile, error)
}

type WelcomeMailer interface {
	SendWelcome(ctx context.Context, to, firstName string) error
}

type Options struct {
	Issuer auth.TokenIssuer
	// nil providers count as unconfigured
	Google   IdentityVerifier
	GitHub   CodeExchanger
	LinkedIn CodeExchanger
	// optional, welcome emails are skipped when nil
	Mailer WelcomeMailer
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	options Options
	now     func() time.Time

	// tracks welcome emails in flight
	mail chan struct{}
}

func NewService(database *sql.DB, options Options) Service {
	return Service{
		db:      database,
		qry:     db.New(database),
		options: options,
		now:     time.Now,
		mail:    make(chan struct{}, 8),
	}
}

type Session struct {
	Token string
	User  User
}

func (s Service) session(ctx context.Context, row db.User) (Session, error) {
	user, err := FromRow(row)
	if err != nil {
		return Session{}, err
	}
	token, err := s.options.Issuer.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func (s Service) Register(ctx context.Context, params RegisterParams) (Session, error) {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	email := textutil.NormalizeEmail(params.Email)
	span.SetAttributes(attribute.String("email", email))

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash password")
		return Session{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	_, err = txqry.GetUserByEmail(ctx, email)
	if err == nil {
		span.SetStatus(codes.Error, "email taken")
		return Session{}, ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up email")
		return Session{}, err
	}

	row, err := s.newUserRow(strings.TrimSpace(params.FirstName), strings.TrimSpace(params.LastName), email)
	if err != nil {
		return Session{}, err
	}
	row.Password = hash
	err = txqry.CreateUser(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create user")
		return Session{}, err
	}
	err = tx.Commit()
	if err != nil {
		return Session{}, err
	}

	session, err := s.session(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to issue token")
		return Session{}, err
	}
	s.sendWelcome(ctx, session.User)
	return session, nil
}

func (s Service) newUserRow(firstName, lastName, email string) (db.User, error) {
	now := s.now()
	user := User{
		ID:          uuid.NewString(),
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Role:        RoleUser,
		IsActive:    true,
		LastLogin:   now,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	row := db.User{
		ID:        user.ID,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	err := user.applyTo(&row)
	return row, err
}

func (s Service) sendWelcome(ctx context.Context, user User) {
	if s.options.Mailer == nil || !user.Preferences.EmailNotifications {
		return
	}
	select {
	case s.mail <- struct{}{}:
	default:
		slog.WarnContext(ctx, "too many welcome emails in flight, skipping", "email", user.Email)
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() { <-s.mail }()
		err := s.options.Mailer.SendWelcome(ctx, user.Email, user.FirstName)
		if err != nil {
			slog.WarnContext(ctx, "failed to send welcome email", "email", user.Email, "err", err)
		}
	}()
}

func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	email = textutil.NormalizeEmail(email)
	row, err := s.qry.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "unknown email")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up user")
		return Session{}, err
	}
	if !auth.ComparePassword(row.Password, password) {
		span.SetStatus(codes.Error, "wrong password")
		return Session{}, ErrInvalidCredentials
	}
	// the verifier rejects tokens of deactivated users anyway
	if !row.IsActive {
		span.SetStatus(codes.Error, "inactive user")
		return Session{}, ErrInvalidCredentials
	}

	row.LastLogin = s.now().UnixMilli()
	err = s.qry.SetLastLogin(ctx, row.ID, row.LastLogin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update last login")
		return Session{}, err
	}
	return s.session(ctx, row)
}

// providerFields points at the id and secondary column of a provider.
func providerFields(row *db.User, provider string) (id *sql.NullString, extra *sql.NullString, err error) {
	switch provider {
	case "google":
		return &row.GoogleID, &row.GoogleEmail, nil
	case "github":
		return &row.GithubID, &row.GithubUsername, nil
	case "linkedin":
		return &row.LinkedinID, &row.LinkedinEmail, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", provider)
}

func providerExtra(profile oauth.Profile) string {
	if profile.Provider == "github" {
		return profile.Username
	}
	return profile.Email
}

func valid(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// OAuthLogin signs in the user a provider vouched for. The account is
// found by provider id or email, created when missing and linked when it
// was not linked yet.
func (s Service) OAuthLogin(ctx context.Context, profile oauth.Profile) (Session, error) {
	ctx, span := tracer.Start(ctx, "OAuthLogin")
	defer span.End()
	span.SetAttributes(attribute.String("provider", profile.Provider))

	email := textutil.NormalizeEmail(profile.Email)
	if email == "" {
		return Session{}, oauth.ErrEmailRequired
	}
	firstName := strings.TrimSpace(profile.FirstName)
	if firstName == "" {
		firstName = "User"
	}
	lastName := strings.TrimSpace(profile.LastName)

	lookup := db.FindOAuthUserParams{Email: email}
	{
		probe := db.User{}
		id, _, err := providerFields(&probe, profile.Provider)
		if err != nil {
			return Session{}, err
		}
		*id = valid(profile.ID)
		lookup.GoogleID = probe.GoogleID
		lookup.GithubID = probe.GithubID
		lookup.LinkedinID = probe.LinkedinID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := s.now()
	row, err := txqry.FindOAuthUser(ctx, lookup)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		row, err = s.newUserRow(firstName, lastName, email)
		if err != nil {
			return Session{}, err
		}
		id, extra, _ := providerFields(&row, profile.Provider)
		*id = valid(profile.ID)
		*extra = valid(providerExtra(profile))
		err = txqry.CreateUser(ctx, row)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up user")
		return Session{}, err
	default:
		id, extra, _ := providerFields(&row, profile.Provider)
		if !id.Valid {
			*id = valid(profile.ID)
			*extra = valid(providerExtra(profile))
			if row.FirstName == "" {
				row.FirstName = firstName
			}
			if row.LastName == "" {
				row.LastName = lastName
			}
		}
		row.LastLogin = now.UnixMilli()
		row.UpdatedAt = now.UnixMilli()
		err = txqry.UpdateUser(ctx, row)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save user")
		return Session{}, err
	}

	err = tx.Commit()
	if err != nil {
		return Session{}, err
	}
	return s.session(ctx, row)
}

func (s Service) Get(ctx context.Context, id string) (User, error) {
	row, err := s.qry.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return FromRow(row)
}

// update loads a user, applies change and saves it in one transaction.
func (s Service) update(ctx context.Context, id string, change func(u *User) error) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	row, err := txqry.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	user, err := FromRow(row)
	if err != nil {
		return User{}, err
	}

	err = change(&user)
	if err != nil {
		return User{}, err
	}
	user.UpdatedAt = s.now()

	err = user.applyTo(&row)
	if err != nil {
		return User{}, err
	}
	row.UpdatedAt = user.UpdatedAt.UnixMilli()
	err = txqry.UpdateUser(ctx, row)
	if err != nil {
		return User{}, err
	}
	err = tx.Commit()
	if err != nil {
		return User{}, err
	}
	return user, nil
}
