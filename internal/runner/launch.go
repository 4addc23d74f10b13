package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/strongdm/devshell/internal/configstore"
	"github.com/strongdm/devshell/internal/discovery"
)

const (
	dockerfileName = "Dockerfile"

	containerSSHPath = "/root/.ssh"
	externalIPEnv    = "EXTERNAL_IP"

	imageInspectTimeout = 5 * time.Second

	// failureOutputLines caps how much captured output a LaunchError keeps
	// per attempt.
	failureOutputLines = 20
)

// Exit codes reserved by the runtime CLI itself: daemon error, command not
// executable and command not found. Anything else came from the container.
var runtimeFailureCodes = map[int]bool{125: true, 126: true, 127: true}

// LaunchAttempt records one runtime that failed to build or start the image.
type LaunchAttempt struct {
	Runtime  string
	Stage    string
	ExitCode int
	Output   string
	Err      error
}

// LaunchError reports that no runtime could launch the image.
type LaunchError struct {
	Image    string
	Attempts []LaunchAttempt
}

func (e *LaunchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not launch %s with any container runtime", e.Image)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s %s: ", a.Runtime, a.Stage)
		if a.Err != nil {
			b.WriteString(a.Err.Error())
		} else {
			fmt.Fprintf(&b, "exit code %d", a.ExitCode)
		}
		if out := tailLines(strings.TrimSpace(a.Output), failureOutputLines); out != "" {
			b.WriteString("\n")
			b.WriteString(indentLines(out, "    "))
		}
	}
	return b.String()
}

// Unwrap exposes per-attempt errors to errors.Is and errors.As.
func (e *LaunchError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

type launcher struct {
	runner       *runner
	config       configstore.Config
	buildContext string
	profile      Profile
	preferred    string
}

// launch makes sure the image exists and runs it, falling back to the next
// runtime when the current one cannot build or start the container. The
// returned code is the container's exit status.
func (l *launcher) launch(ctx context.Context) (int, error) {
	order := runtimeOrder(l.preferred, l.config.DockerSocket)
	var attempts []LaunchAttempt
	for _, rt := range order {
		code, failed := l.launchWith(ctx, rt)
		if failed == nil {
			return code, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		attempts = append(attempts, *failed)
		if len(attempts) < len(order) {
			l.runner.logger.Printf("%s could not %s %s; trying next runtime", rt, failed.Stage, l.profile.Image)
		}
	}
	return 0, &LaunchError{Image: l.profile.Image, Attempts: attempts}
}

func (l *launcher) launchWith(ctx context.Context, rt string) (int, *LaunchAttempt) {
	if !l.imageExists(ctx, rt) {
		l.runner.logger.Printf("Building %s with %s from %s...", l.profile.Image, rt, l.buildContext)
		args := buildArgs(l.profile.Image, l.buildContext)
		l.runner.debugf("%s %s", rt, shellQuote(args))
		code, output, err := streamCommand(ctx, nil, rt, args...)
		if err != nil || code != 0 {
			return 0, &LaunchAttempt{Runtime: rt, Stage: "build", ExitCode: code, Output: output, Err: err}
		}
	}

	args := runArgs(l.config, l.profile, l.runner.tty)
	l.runner.debugf("%s %s", rt, shellQuote(args))
	// The session owns the terminal; interrupts reach the container directly.
	code, output, err := streamCommand(context.WithoutCancel(ctx), l.runner.stdin, rt, args...)
	if err != nil || runtimeFailureCodes[code] {
		return 0, &LaunchAttempt{Runtime: rt, Stage: "run", ExitCode: code, Output: output, Err: err}
	}
	return code, nil
}

func (l *launcher) imageExists(ctx context.Context, rt string) bool {
	_, err := l.runner.probes.Run(ctx, imageInspectTimeout, rt, "image", "inspect", l.profile.Image)
	if err != nil {
		l.runner.debugf("%s image inspect %s: %v", rt, l.profile.Image, err)
		return false
	}
	return true
}

// runtimeOrder puts the runtime that validated the socket first. Without a
// discovery result, a podman socket path selects podman.
func runtimeOrder(preferred, socket string) []string {
	if preferred == "" && strings.Contains(strings.ToLower(socket), discovery.RuntimePodman) {
		preferred = discovery.RuntimePodman
	}
	order := make([]string, 0, len(discovery.Runtimes))
	for _, rt := range discovery.Runtimes {
		if rt == preferred {
			order = append(order, rt)
		}
	}
	for _, rt := range discovery.Runtimes {
		if rt != preferred {
			order = append(order, rt)
		}
	}
	return order
}

func buildArgs(image, buildContext string) []string {
	return []string{"build", "-t", image, buildContext}
}

func runArgs(cfg configstore.Config, p Profile, tty bool) []string {
	args := []string{"run", "-i"}
	if tty {
		args[1] = "-it"
	}
	args = append(args, "--rm", "-v", cfg.DockerSocket+":"+discovery.ContainerSocketPath)
	if ssh := cfg.SSHDir(); ssh != "" {
		args = append(args, "-v", ssh+":"+containerSSHPath+":ro")
	}
	for _, name := range sortedKeys(p.Volumes) {
		args = append(args, "-v", name+":"+p.Volumes[name])
	}
	for _, port := range p.Ports {
		args = append(args, "-p", port)
	}
	args = append(args, "-e", externalIPEnv+"="+cfg.ExternalIP)
	if p.EnvFile != "" {
		args = append(args, "--env-file", p.EnvFile)
	}
	if p.Workdir != "" {
		args = append(args, "-w", p.Workdir)
	}
	return append(args, p.Image)
}

// locateBuildContext finds the directory holding the Dockerfile, searching
// upward from the executable's directory and then the working directory.
func locateBuildContext() (string, error) {
	var starts []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		starts = append(starts, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		starts = append(starts, wd)
	}
	if dir, ok := findBuildContext(starts, os.Stat); ok {
		return dir, nil
	}
	return "", fmt.Errorf("no %s found above %s", dockerfileName, strings.Join(starts, " or "))
}

func findBuildContext(starts []string, stat func(string) (os.FileInfo, error)) (string, bool) {
	for _, start := range starts {
		dir := filepath.Clean(start)
		for {
			if info, err := stat(filepath.Join(dir, dockerfileName)); err == nil && info.Mode().IsRegular() {
				return dir, true
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return "", false
}

var streamCommand = streamCommandImpl

// streamCommandImpl runs name attached to the terminal while keeping a copy
// of stderr. err is set only when the process could not be started.
func streamCommandImpl(ctx context.Context, stdin io.Reader, name string, args ...string) (int, string, error) {
	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = io.MultiWriter(os.Stderr, &captured)
	err := cmd.Run()
	if err == nil {
		return 0, captured.String(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), captured.String(), nil
	}
	return -1, captured.String(), fmt.Errorf("%s: %w", name, err)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func tailLines(text string, n int) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func shellQuote(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quoteShellArg(p)
	}
	return strings.Join(quoted, " ")
}

func quoteShellArg(s string) string {
	if s == "" {
		return "''"
	}
	if isSafeShellWord(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

func isSafeShellWord(s string) bool {
	for _, r := range s {
		if !isSafeShellRune(r) {
			return false
		}
	}
	return true
}

func isSafeShellRune(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	if r >= 'A' && r <= 'Z' {
		return true
	}
	if r >= '0' && r <= '9' {
		return true
	}
	switch r {
	case '@', '%', '_', '+', '=', ':', ',', '.', '/', '-':
		return true
	}
	return false
}
