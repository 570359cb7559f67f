package configlibsql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	devenv "pathwise-backend/dev/env"
	"pathwise-backend/pkg/migrations"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Config selects either a local sqlite file or a remote libsql database.
type Config struct {
	// local database file, may be prefixed with <dev_state>.
	Path string `json:"path"`
	// remote libsql url, takes priority over Path when set.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Name() string {
	if c.Url != "" {
		parsed, err := url.Parse(c.Url)
		if err == nil {
			return parsed.Host
		}
		return c.Url
	}
	return c.Path
}

func (c Config) OpenDB() (*sql.DB, error) {
	if c.Url != "" {
		values := url.Values{}
		if c.AuthToken != "" {
			values.Add("authToken", c.AuthToken)
		}
		return sql.Open("libsql", c.Url+"?"+values.Encode())
	}

	if c.Path == "" {
		return nil, fmt.Errorf("neither a database path or url was specified")
	}
	dbpath, err := devenv.ResolvePath(c.Path)
	if err != nil {
		return nil, err
	}
	return migrations.OpenDB(dbpath)
}

// OpenAndMigrate opens the database and applies the given schema.
func (c Config) OpenAndMigrate(ctx context.Context, schema string) (*sql.DB, error) {
	db, err := c.OpenDB()
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(ctx, db, schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
