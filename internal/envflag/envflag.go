// Package envflag reads boolean toggles from DEVSHELL_* environment
// variables.
package envflag

import (
	"os"
	"strings"
)

const (
	Verbose    = "DEVSHELL_VERBOSE"
	Traces     = "DEVSHELL_OTEL_TRACES"
	Metrics    = "DEVSHELL_OTEL_METRICS"
	ProbeImage = "DEVSHELL_PROBE_IMAGE"
	ConfigHome = "DEVSHELL_HOME"
)

// Enabled reports whether the named environment variable holds a truthy
// value.
func Enabled(key string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return IsTruthy(value)
}

// IsTruthy returns true when the provided value matches an accepted truthy
// form.
func IsTruthy(value string) bool {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "1", "t", "true", "on", "yes":
		return true
	default:
		return false
	}
}
