package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.planqa/logs, or a temp-dir equivalent when the
// home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".planqa", "logs")
	}
	return filepath.Join(home, ".planqa", "logs")
}

// DefaultLogPath returns the main log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "planqa.log")
}

// FindLogFile resolves the file `planqa logs` should read: explicit when
// given, otherwise DefaultLogPath.
func FindLogFile(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return "", fmt.Errorf("no log file yet at %s; run a planqa command first", path)
	}
	return path, nil
}
