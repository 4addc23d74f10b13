package envflag

import "testing"

func TestIsTruthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		expected bool
	}{
		{value: "", expected: false},
		{value: "0", expected: false},
		{value: "false", expected: false},
		{value: "nope", expected: false},
		{value: "1", expected: true},
		{value: "t", expected: true},
		{value: "T", expected: true},
		{value: "true", expected: true},
		{value: "TRUE", expected: true},
		{value: " True ", expected: true},
		{value: "on", expected: true},
		{value: "yes", expected: true},
	}

	for _, tt := range tests {
		if got := IsTruthy(tt.value); got != tt.expected {
			t.Fatalf("IsTruthy(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestEnabledReadsEnvironment(t *testing.T) {
	// Avoid t.Parallel because environment variables are process-wide.
	t.Setenv(Verbose, "1")
	if !Enabled(Verbose) {
		t.Fatalf("Enabled(%s) = false with value 1", Verbose)
	}

	t.Setenv(Verbose, "off")
	if Enabled(Verbose) {
		t.Fatalf("Enabled(%s) = true with value off", Verbose)
	}

	if Enabled("DEVSHELL_TEST_UNSET_TOGGLE") {
		t.Fatal("Enabled returned true for an unset variable")
	}
}
