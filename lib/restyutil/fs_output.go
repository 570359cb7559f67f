package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "pathwise-backend/dev/env"
)

// FilesystemOutput writes each exchange to <directory>/<message id>.http
// so a verbose scrape leaves one file per fetched page.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears and recreates dir. dir may use the
// <dev_state> prefix.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	// stale dumps from an earlier run would share message ids
	err = os.RemoveAll(dir)
	if err == nil {
		err = os.MkdirAll(dir, 0777)
	}
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("prepare dump dir %s: %w", dir, err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.directory, id+".http")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("dump exchange", "path", path, "err", err)
	}
}
