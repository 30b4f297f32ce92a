// Package sqlitepath finds an existing promptsmith history database when no
// store is configured.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no candidate database exists.
var ErrNotFound = errors.New("could not find a promptsmith history database; pass --sqlite or --postgres")

// ResolveSQLitePath returns override when set, then PROMPTSMITH_DB, then the
// first candidate file that exists.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("PROMPTSMITH_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}

func sqliteCandidates() []string {
	candidates := []string{
		"promptsmith.db",
		filepath.Join(".promptsmith", "history.db"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".promptsmith", "history.db"))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "promptsmith", "history.db"))
	}

	return candidates
}
