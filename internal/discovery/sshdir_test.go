package discovery

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/strongdm/devshell/internal/hostenv"
)

func TestSSHDirPosixChecksHomeOnly(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	d := &Discoverer{Env: hostenv.Env{
		Platform: hostenv.Linux,
		Home:     home,
		Getenv:   func(string) string { return "/elsewhere" },
	}}
	if got := d.SSHCandidates(); !reflect.DeepEqual(got, []string{filepath.Join(home, ".ssh")}) {
		t.Fatalf("SSHCandidates = %#v", got)
	}
	if _, ok := d.SSHDir(); ok {
		t.Fatal("expected no ssh dir before it exists")
	}

	mustMkdirAll(t, filepath.Join(home, ".ssh"))
	got, ok := d.SSHDir()
	if !ok || got != filepath.Join(home, ".ssh") {
		t.Fatalf("SSHDir = %q, %v", got, ok)
	}
}

func TestSSHDirIgnoresRegularFiles(t *testing.T) {
	t.Parallel()

	d := &Discoverer{
		Env:      hostenv.Env{Platform: hostenv.Linux, Home: "/home/dev"},
		StatFunc: statOnly(map[string]bool{filepath.Join("/home/dev", ".ssh"): false}),
	}
	if _, ok := d.SSHDir(); ok {
		t.Fatal("a regular file must not count as the ssh directory")
	}
}

func TestSSHDirWindowsOrder(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"USERPROFILE": `D:\profiles\dev`,
		"HOMEDRIVE":   `E:`,
		"HOMEPATH":    `\home\dev`,
		"USERNAME":    "dev",
	}
	env := hostenv.Env{
		Platform: hostenv.Windows,
		Home:     `F:\dev`,
		Getenv:   func(k string) string { return vars[k] },
	}
	want := []string{
		filepath.Join(`F:\dev`, ".ssh"),
		filepath.Join(`D:\profiles\dev`, ".ssh"),
		filepath.Join(`E:\home\dev`, ".ssh"),
		filepath.Join(`C:\Users`, "dev", ".ssh"),
	}
	d := &Discoverer{Env: env}
	if got := d.SSHCandidates(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SSHCandidates = %#v, want %#v", got, want)
	}

	d.StatFunc = statOnly(map[string]bool{want[2]: true, want[3]: true})
	got, ok := d.SSHDir()
	if !ok || got != want[2] {
		t.Fatalf("SSHDir = %q, %v, want %q", got, ok, want[2])
	}
}
