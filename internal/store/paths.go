package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project (and per-user) metakg state directory.
const DirName = ".metakg"

// DBFileName is the SQLite database file inside DirName.
const DBFileName = "metakg.db"

// GlobalMetaKGPath returns the path to the user-level .metakg directory.
// On Unix: ~/.metakg
// On Windows: %USERPROFILE%\.metakg
func GlobalMetaKGPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalMetaKGPath returns the .metakg directory for the given project root.
func LocalMetaKGPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// DefaultDBPath returns the database path used when no override is configured.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(LocalMetaKGPath(projectRoot), DBFileName)
}
