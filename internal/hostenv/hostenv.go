package hostenv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform is the closed set of host categories discovery branches on.
// Identifiers outside the windows family pass through unchanged.
type Platform string

const (
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
	Windows Platform = "windows"
)

var windowsFamily = map[string]struct{}{
	"windows": {},
	"win32":   {},
	"cygwin":  {},
	"msys":    {},
	"mingw":   {},
}

// Classify maps an operating-system identifier to a Platform.
func Classify(goos string) Platform {
	if _, ok := windowsFamily[strings.ToLower(strings.TrimSpace(goos))]; ok {
		return Windows
	}
	return Platform(goos)
}

// Env is the injected view of the host.
type Env struct {
	Platform Platform
	Home     string
	// UID is the invoking user's numeric id, or -1 where none exists.
	UID    int
	Getenv func(string) string
}

// Current builds an Env from the running process.
func Current() (Env, error) {
	home, err := resolveHomeDir()
	if err != nil {
		return Env{}, err
	}
	return Env{
		Platform: Classify(runtime.GOOS),
		Home:     home,
		UID:      currentUID(),
		Getenv:   os.Getenv,
	}, nil
}

// IsWindows reports whether the env describes a windows host.
func (e Env) IsWindows() bool {
	return e.Platform == Windows
}

// Lookup returns the trimmed value of key, or "" when unset.
func (e Env) Lookup(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return strings.TrimSpace(e.Getenv(key))
}

// resolveHomeDir evaluates HOME-style environment variables on each call to
// avoid relying on os.UserHomeDir's cached value, which can be stale in tests
// that mutate the process environment.
func resolveHomeDir() (string, error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		drive := strings.TrimSpace(os.Getenv("HOMEDRIVE"))
		path := strings.TrimSpace(os.Getenv("HOMEPATH"))
		if drive != "" && path != "" {
			home = filepath.Join(drive, path)
		} else {
			home = strings.TrimSpace(os.Getenv("USERPROFILE"))
		}
	}
	if home != "" {
		return filepath.Clean(home), nil
	}

	resolved, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(resolved) == "" {
		if err == nil {
			err = fmt.Errorf("home directory not found")
		}
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Clean(resolved), nil
}
