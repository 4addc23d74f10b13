package runner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/strongdm/devshell/internal/configstore"
)

func writeProfile(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, profileFileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	dir := t.TempDir()

	p, err := loadProfile(dir)
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if p.Image != defaultImage {
		t.Fatalf("Image = %q, want %q", p.Image, defaultImage)
	}
	if !reflect.DeepEqual(p.Volumes, defaultVolumes()) {
		t.Fatalf("Volumes = %v, want defaults", p.Volumes)
	}
	if len(p.Ports) != 0 || p.EnvFile != "" || p.Workdir != "" {
		t.Fatalf("unexpected optional values: %+v", p)
	}
}

func TestLoadProfilePicksUpDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FOO=bar\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	p, err := loadProfile(dir)
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if p.EnvFile != envPath {
		t.Fatalf("EnvFile = %q, want %q", p.EnvFile, envPath)
	}

	writeProfile(t, dir, "env_file = \"\"\n")
	p, err = loadProfile(dir)
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if p.EnvFile != "" {
		t.Fatalf("explicit empty env_file should disable it, got %q", p.EnvFile)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dev.env"), []byte("A=1\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	writeProfile(t, dir, `
image = "ghcr.io/example/dev:1.2"
ports = ["8080:8080", " 2222:22 "]
env_file = "dev.env"
workdir = "/workspace"

[volumes]
devshell-home = "/home/dev"
`)

	p, err := loadProfile(dir)
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	want := Profile{
		Image:   "ghcr.io/example/dev:1.2",
		Ports:   []string{"8080:8080", "2222:22"},
		Volumes: map[string]string{"devshell-home": "/home/dev"},
		EnvFile: filepath.Join(dir, "dev.env"),
		Workdir: "/workspace",
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("profile = %+v, want %+v", p, want)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		parse   bool
		wantMsg string
	}{
		{name: "malformed", body: "image = \n", parse: true},
		{name: "unknown key", body: "imgae = \"x\"\n", parse: true, wantMsg: "unknown keys"},
		{name: "wrong type", body: "ports = 8080\n", parse: true},
		{name: "empty image", body: "image = \" \"\n", wantMsg: "image must not be empty"},
		{name: "relative volume", body: "[volumes]\ncache = \"var/cache\"\n", wantMsg: "absolute container path"},
		{name: "relative workdir", body: "workdir = \"src\"\n", wantMsg: "workdir"},
		{name: "missing env file", body: "env_file = \"nope.env\"\n", wantMsg: "env_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProfile(t, dir, tt.body)

			_, err := loadProfile(dir)
			if err == nil {
				t.Fatalf("expected error")
			}
			var parseErr *configstore.ParseError
			if got := errors.As(err, &parseErr); got != tt.parse {
				t.Fatalf("ParseError = %v, want %v (err: %v)", got, tt.parse, err)
			}
			if tt.parse && parseErr.Path != filepath.Join(dir, profileFileName) {
				t.Fatalf("ParseError.Path = %q", parseErr.Path)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q missing %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
