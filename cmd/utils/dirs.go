package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetDataDir returns the directory holding the persisted session key and the
// debug log. STORESEO_DATA_DIR overrides the default of ~/.storeseo.
func GetDataDir() (string, error) {
	if dataDir := os.Getenv("STORESEO_DATA_DIR"); dataDir != "" {
		return dataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getDataDir: could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".storeseo"), nil
}

const sessionKeyFile = "session_key"

// ReadSessionKey returns the key persisted by a previous run, or "" if none.
func ReadSessionKey() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, sessionKeyFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteSessionKey persists key with owner-only permissions.
func WriteSessionKey(key string) error {
	dir, err := GetDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return os.WriteFile(filepath.Join(dir, sessionKeyFile), []byte(key+"\n"), 0o600)
}
