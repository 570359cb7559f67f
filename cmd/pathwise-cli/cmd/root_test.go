package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pathwise-backend/pkg/migrations"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
}

func writeConfig(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0666))
	return path
}

func TestSeed(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "auth.db")
	config := writeConfig(t, dir, "authd.json5", fmt.Sprintf(`{ database: { path: %q } }`, dbPath))

	run(t, "--config", config, "seed", "admin")
	run(t, "--config", config, "seed", "admin")
	run(t, "--config", config, "seed", "discussions")

	db, err := migrations.OpenDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var admins, discussions int
	require.NoError(t, db.QueryRow("select count(*) from users where role = 'admin'").Scan(&admins))
	require.NoError(t, db.QueryRow("select count(*) from discussions").Scan(&discussions))
	require.Equal(t, 1, admins)
	require.Greater(t, discussions, 0)
}

func TestScrapeStatsCleanup(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	dir := t.TempDir()
	config := writeConfig(t, dir, "resourcesd.json5", fmt.Sprintf(`{
		database: { path: %q },
		scraping: { cache: { disabled: true } },
	}`, filepath.Join(dir, "resources.db")))

	run(t, "--config", config, "scrape", "query", "python", "basics", "--max", "5")
	run(t, "--config", config, "stats")
	run(t, "--config", config, "stats", "sources")
	run(t, "--config", config, "stats", "jobs")
	run(t, "--config", config, "cleanup", "--dry-run")

	rootCmd.SetArgs([]string{"--config", config, "cleanup", "--older-than", "0"})
	require.Error(t, rootCmd.ExecuteContext(context.Background()))
}
