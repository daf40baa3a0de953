package util

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// FileExists returns true if the file at path exists. This works for
// directories too.
func FileExists(pathToFile string) bool {
	_, err := os.Stat(pathToFile)
	return !os.IsNotExist(err)
}

// ExpandTilde expands the tilde in a file path to the current user's
// home directory. Paths without a leading tilde come back unchanged.
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, strings.TrimPrefix(filePath, "~")), nil
}

// LooksSafeToDelete returns true if the path we're about to delete looks
// like a legitimate deletion target. minLength is the minimum length of
// the path and minSeparators is the minimum number of path separators.
// This guards against deleting filesystem roots when a config setting
// comes through empty or mangled.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separators := strings.Count(dir, string(os.PathSeparator))
	return len(dir) >= minLength && separators >= minSeparators
}

// ProjectRoot returns the project root directory. Tests use this to find
// the .env files and fixtures in the repo.
func ProjectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	absPath, err := filepath.Abs(path.Join(thisFile, "..", ".."))
	if err != nil {
		return ""
	}
	return absPath
}
