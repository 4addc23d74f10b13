package discovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/strongdm/devshell/internal/probe"
)

type runnerCall struct {
	timeout time.Duration
	name    string
	args    []string
}

func (c runnerCall) line() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// scriptedRunner answers commands by their first word, then by the full line.
type scriptedRunner struct {
	calls   []runnerCall
	respond func(call runnerCall) (string, error)
}

func (r *scriptedRunner) Run(_ context.Context, timeout time.Duration, name string, args ...string) (probe.Result, error) {
	call := runnerCall{timeout: timeout, name: name, args: append([]string(nil), args...)}
	r.calls = append(r.calls, call)
	if r.respond == nil {
		return probe.Result{ExitCode: 1}, errors.New("no script")
	}
	out, err := r.respond(call)
	if err != nil {
		return probe.Result{Output: out, ExitCode: 1}, err
	}
	return probe.Result{Output: out}, nil
}

func (r *scriptedRunner) callsTo(name string) []runnerCall {
	var out []runnerCall
	for _, c := range r.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

var errExit = errors.New("exit status 1")

type fakeDirInfo struct {
	name string
	dir  bool
}

func (f fakeDirInfo) Name() string       { return f.name }
func (f fakeDirInfo) Size() int64        { return 0 }
func (f fakeDirInfo) Mode() fs.FileMode  { return 0o700 }
func (f fakeDirInfo) ModTime() time.Time { return time.Time{} }
func (f fakeDirInfo) IsDir() bool        { return f.dir }
func (f fakeDirInfo) Sys() any           { return nil }

func statOnly(entries map[string]bool) func(string) (os.FileInfo, error) {
	return func(path string) (os.FileInfo, error) {
		dir, ok := entries[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return fakeDirInfo{name: path, dir: dir}, nil
	}
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o700); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
