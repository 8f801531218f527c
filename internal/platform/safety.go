package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun checks if the current process is running via `go run` or `go test`.
// It relies on the fact that these commands build binaries in temporary
// directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	// "go run" builds binaries in the system temp directory.
	tempDir := os.TempDir()
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(tempDir)) {
		return true
	}

	// "go test" binaries carry a .test suffix.
	if strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe") {
		return true
	}

	return false
}

// ResolveSitePath determines the actual path for the site based on safety
// rules. If forceTemp is true, it re-roots the path into a temporary
// directory to avoid polluting the user's workspace/host repo.
func ResolveSitePath(userPath string, forceTemp bool) string {
	if !forceTemp {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	// EXCEPTION: If the userPath is ALREADY inside the system temp directory,
	// we assume it is safe (e.g. created by t.TempDir() or explicit intent).
	cleanUserPath := filepath.Clean(userPath)
	tempRoot := os.TempDir()

	rel, err := filepath.Rel(tempRoot, cleanUserPath)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return cleanUserPath
	}

	// Otherwise, force it into our namespaced dev directory.
	baseTemp := filepath.Join(os.TempDir(), "mulch-dev")
	var subName string

	if userPath == "" || userPath == "." || userPath == "./" {
		subName = "default"
	} else {
		subName = filepath.Base(userPath)
		if subName == "." || subName == string(os.PathSeparator) {
			subName = "default"
		}
	}

	return filepath.Join(baseTemp, subName)
}
