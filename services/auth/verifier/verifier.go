package verifier

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"pathwise-backend/lib/auth"
	"pathwise-backend/lib/timezone"
	"pathwise-backend/services/auth/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/auth/verifier")
var meter = otel.Meter("services/auth/verifier")

var uniqueLoginCounter, _ = meter.Int64Counter("auth_service.unique_login_counter")

var (
	loginLock     sync.Mutex
	loggedInToday = map[string]struct{}{}
	todaysDate    = timezone.DayKey(timezone.Now())
)

func countLogin(ctx context.Context, userId string) {
	loginLock.Lock()
	defer loginLock.Unlock()

	today := timezone.DayKey(timezone.Now())
	if today != todaysDate {
		loggedInToday = map[string]struct{}{}
		todaysDate = today
	}
	_, alreadyLoggedIn := loggedInToday[userId]
	if alreadyLoggedIn {
		return
	}
	uniqueLoginCounter.Add(ctx, 1)
	loggedInToday[userId] = struct{}{}
}

// ErrInvalidToken covers bad signatures, expired tokens and tokens of users
// that no longer exist or were deactivated.
var ErrInvalidToken = errors.New("invalid token")

type Verifier struct {
	qry    *db.Queries
	issuer auth.TokenIssuer
}

func NewVerifier(database *sql.DB, issuer auth.TokenIssuer) Verifier {
	return Verifier{qry: db.New(database), issuer: issuer}
}

// VerifyToken resolves a session token to its active user.
func (v Verifier) VerifyToken(ctx context.Context, token string) (db.User, error) {
	ctx, span := tracer.Start(ctx, "VerifyToken")
	defer span.End()

	userId, err := v.issuer.Parse(token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return db.User{}, ErrInvalidToken
	}
	span.SetAttributes(attribute.String("user", userId))

	user, err := v.qry.GetUser(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "unknown user")
		return db.User{}, ErrInvalidToken
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "got unexpected error while reading user")
		return db.User{}, err
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "inactive user")
		return db.User{}, ErrInvalidToken
	}

	countLogin(ctx, user.ID)

	return user, nil
}
