package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "pathwise-backend/dev/env"
	"pathwise-backend/internal/app"
	"pathwise-backend/pkg/migrations"

	"github.com/mazen160/go-random"
)

func createDb(ctx context.Context, filename, schema string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
	} else {
		fmt.Println("creating database at", path)
	}

	// schemas are idempotent, existing databases pick up new tables
	db, err := migrations.OpenAndMigrateDB(ctx, schema, path)
	if err != nil {
		return err
	}
	return db.Close()
}

func CreateServiceDBs(ctx context.Context) error {
	err := createDb(ctx, "pathwise-auth.db", app.AuthdSchema)
	if err != nil {
		return err
	}
	return createDb(ctx, "pathwise-resources.db", app.ResourcesdSchema)
}

const authdTemplate = `{
  port: 5000,
  database: { path: "<dev_state>/pathwise-auth.db" },
  jwt: { secret: %q, expire: "24h" },
  // oauth: { google: { client_id: "" }, github: { client_id: "", client_secret: "" } },
  // email: { server: "smtp.example.com", port: 587, email_address: "", password: "" },
}
`

const resourcesdTemplate = `{
  port: 8001,
  database: { path: "<dev_state>/pathwise-resources.db" },
  scraping: {
    mode: "mock",
    cache: { dir: "<dev_state>/page-cache", ttl_seconds: 3600 },
    // schedule: { jobs: [{ spec: "@daily", query: "react", domain: "Web Development" }] },
  },
}
`

func writeIfMissing(path, contents string) error {
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("config already exists at", path)
		return nil
	}
	fmt.Println("writing config to", path)
	return os.WriteFile(path, []byte(contents), 0666)
}

// WriteLocalConfigs writes development configs to the repository root,
// authd gets a random jwt secret.
func WriteLocalConfigs() error {
	secret, err := random.String(48)
	if err != nil {
		return err
	}
	err = writeIfMissing(app.AuthdConfigFile, fmt.Sprintf(authdTemplate, secret))
	if err != nil {
		return err
	}
	return writeIfMissing(app.ResourcesdConfigFile, resourcesdTemplate)
}

func PrintConfigLocations() {
	slog.Info(
		"configs are read from the working directory, put overrides in <name>.local.json5 or .env",
		"authd", app.AuthdConfigFile,
		"resourcesd", app.ResourcesdConfigFile,
	)
}
