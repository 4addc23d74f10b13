package runner

import "testing"

func TestQuoteShellArg(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: "''"},
		{input: "run", want: "run"},
		{input: "/var/run/docker.sock:/var/run/docker.sock", want: "/var/run/docker.sock:/var/run/docker.sock"},
		{input: "EXTERNAL_IP=192.168.1.20", want: "EXTERNAL_IP=192.168.1.20"},
		{input: "/Users/dev/My Keys/.ssh:/root/.ssh:ro", want: "'/Users/dev/My Keys/.ssh:/root/.ssh:ro'"},
		{input: "O'Brien", want: "'O'\"'\"'Brien'"},
		{input: "$HOME", want: "'$HOME'"},
		{input: `C:\Users\dev\.ssh`, want: `'C:\Users\dev\.ssh'`},
		{input: "a;b", want: "'a;b'"},
	}

	for _, tt := range tests {
		if got := quoteShellArg(tt.input); got != tt.want {
			t.Fatalf("quoteShellArg(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote(nil); got != "" {
		t.Fatalf("shellQuote(nil) = %q, want empty", got)
	}
	got := shellQuote([]string{"build", "-t", "devshell:latest", "/src/dev shell"})
	want := "build -t devshell:latest '/src/dev shell'"
	if got != want {
		t.Fatalf("shellQuote = %q, want %q", got, want)
	}
}
