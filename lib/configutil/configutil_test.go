package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port   int    `json:"port"`
	Secret string `json:"secret"`
	Nested struct {
		Origin string `json:"origin"`
	} `json:"nested"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "svc.json5"), []byte(`{
		// comments are allowed
		port: 5000,
		secret: "base",
		nested: { origin: "http://localhost:5173" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "svc.local.json5"), []byte(`{secret: "local"}`), 0600)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "svc.json5"))
	require.NoError(t, err)
	require.Equal(t, 5000, config.Port)
	require.Equal(t, "local", config.Secret)
	require.Equal(t, "http://localhost:5173", config.Nested.Origin)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	defaults := testConfig{Port: 8001, Secret: "default"}

	config, err := ReadWithDefaults(filepath.Join(dir, "none.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, config)

	err = os.WriteFile(filepath.Join(dir, "svc.json5"), []byte(`{port: 9000}`), 0600)
	require.NoError(t, err)
	config, err = ReadWithDefaults(filepath.Join(dir, "svc.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, 9000, config.Port)
	require.Equal(t, "default", config.Secret)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PATHWISE_TEST_PORT", "6000")
	t.Setenv("PATHWISE_TEST_WINDOW", "60000")
	t.Setenv("PATHWISE_TEST_SECRET", "shh")

	port := 5000
	require.NoError(t, EnvInt(&port, "PATHWISE_TEST_PORT"))
	require.Equal(t, 6000, port)

	window := 15 * time.Minute
	require.NoError(t, EnvMillis(&window, "PATHWISE_TEST_WINDOW"))
	require.Equal(t, time.Minute, window)

	secret := ""
	EnvString(&secret, "PATHWISE_TEST_SECRET")
	require.Equal(t, "shh", secret)

	t.Setenv("PATHWISE_TEST_BAD", "abc")
	require.Error(t, EnvInt(&port, "PATHWISE_TEST_BAD"))
}

func TestLoadDotenvIgnoresMissing(t *testing.T) {
	require.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PATHWISE_DOTENV_VALUE=from-file\n"), 0600))
	t.Setenv("PATHWISE_DOTENV_VALUE", "")
	os.Unsetenv("PATHWISE_DOTENV_VALUE")
	require.NoError(t, LoadDotenv(path))
	require.Equal(t, "from-file", os.Getenv("PATHWISE_DOTENV_VALUE"))
}
