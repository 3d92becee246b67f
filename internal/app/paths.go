package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName     = "keeptrack"
	dbFileName     = "keeptrack.db"
	legacyFileName = "keeptrack.json"
)

func DefaultDBPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, dbFileName), nil
}

// DefaultLegacyPath is where the pre-SQLite flat-file store lived.
func DefaultLegacyPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, legacyFileName), nil
}

func EnsureDBDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
