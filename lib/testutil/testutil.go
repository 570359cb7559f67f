package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	devenv "pathwise-backend/dev/env"
	"pathwise-backend/lib/telemetry"
	"pathwise-backend/pkg/migrations"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService opens a database with the service schema applied. The
// returned cleanup closes it.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" && params.DbPath != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(params.DbPath)
		if err != nil {
			t.Fatal(err)
		}
	}

	if params.DbSchema == "" {
		return ServiceResult{}, cleanupTelemetry
	}

	db, err := migrations.OpenAndMigrateDB(context.Background(), params.DbSchema, dbpath)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		cleanupTelemetry()
	}
}
