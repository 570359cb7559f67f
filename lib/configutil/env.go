package configutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotenv loads the given env files (or `.env` when none are given) into
// the process environment, missing files are ignored and variables that are
// already set are never overwritten.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func EnvString(dst *string, key string) {
	v, ok := os.LookupEnv(key)
	if ok && v != "" {
		*dst = v
	}
}

func EnvInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = n
	return nil
}

// EnvMillis reads an integer amount of milliseconds, the format node services
// conventionally use for durations.
func EnvMillis(dst *time.Duration, key string) error {
	var ms int
	err := EnvInt(&ms, key)
	if err != nil {
		return err
	}
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}
