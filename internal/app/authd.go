package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"pathwise-backend/lib/mailer"
	"pathwise-backend/lib/oauth"
	"pathwise-backend/lib/restyutil"
	"pathwise-backend/services/admin"
	"pathwise-backend/services/auth"
	authdb "pathwise-backend/services/auth/db"
	"pathwise-backend/services/auth/verifier"
	"pathwise-backend/services/discussions"
	discussionsdb "pathwise-backend/services/discussions/db"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

// AuthdSchema holds the users, discussions and comments tables, they live
// in one database since discussions reference their authors.
var AuthdSchema = authdb.Schema + "\n" + discussionsdb.Schema

func OpenAuthdDB(ctx context.Context, cfg AuthdConfig) (*sql.DB, error) {
	return cfg.Database.OpenAndMigrate(ctx, AuthdSchema)
}

type Authd struct {
	DB          *sql.DB
	Auth        auth.Service
	Verifier    verifier.Verifier
	Discussions discussions.Service
	Admin       admin.Service
}

// NewAuthd opens the database and builds every service authd serves.
// `output` receives dumps of outgoing provider requests, it may be nil.
func NewAuthd(ctx context.Context, cfg AuthdConfig, output restyutil.InstrumentOutput) (Authd, error) {
	issuer, err := cfg.Issuer()
	if err != nil {
		return Authd{}, err
	}

	slog.InfoContext(ctx, "opening database...", "database", cfg.Database.Name())
	database, err := OpenAuthdDB(ctx, cfg)
	if err != nil {
		return Authd{}, err
	}

	providerClient := resty.New().SetTimeout(10 * time.Second)
	restyutil.InstrumentClient(providerClient, otel.Tracer("pathwise/oauth"), output)

	options := auth.Options{
		Issuer: issuer,
		Google: oauth.NewGoogle(cfg.OAuth.Google.ClientId, providerClient),
		GitHub: oauth.NewGitHub(
			cfg.OAuth.GitHub.ClientId,
			cfg.OAuth.GitHub.ClientSecret,
			providerClient,
		),
		LinkedIn: oauth.NewLinkedIn(
			cfg.OAuth.LinkedIn.ClientId,
			cfg.OAuth.LinkedIn.ClientSecret,
			cfg.OAuth.LinkedIn.RedirectUri,
			providerClient,
		),
	}
	if cfg.Email.Configured() {
		options.Mailer = mailer.New(cfg.Email)
	} else {
		slog.WarnContext(ctx, "email is not configured, welcome emails are disabled")
	}

	monitorClient := resty.New().SetTimeout(5 * time.Second)
	restyutil.InstrumentClient(monitorClient, otel.Tracer("pathwise/health"), output)

	discussionService := discussions.NewService(database)
	return Authd{
		DB:          database,
		Auth:        auth.NewService(database, options),
		Verifier:    verifier.NewVerifier(database, issuer),
		Discussions: discussionService,
		Admin: admin.NewService(
			database,
			discussionService,
			admin.NewMonitor(monitorClient, cfg.Probes),
			admin.Options{
				DatabaseName: cfg.Database.Name(),
				Probes:       cfg.Probes,
			},
		),
	}, nil
}

func (a Authd) Close() error {
	return a.DB.Close()
}
