package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/strongdm/devshell/internal/hostenv"
	"github.com/strongdm/devshell/internal/probe"
)

const (
	RuntimeDocker = "docker"
	RuntimePodman = "podman"

	// ContainerSocketPath is where the runtime socket is bind-mounted inside
	// containers.
	ContainerSocketPath = "/var/run/docker.sock"
)

// Runtimes lists the supported runtime executables, preferred first.
var Runtimes = []string{RuntimeDocker, RuntimePodman}

// SocketResult is a socket path that completed a round-trip through Runtime.
type SocketResult struct {
	Runtime string
	Path    string
}

// SelectRuntime returns the first supported runtime executable on the host.
func (d *Discoverer) SelectRuntime(ctx context.Context) (string, bool) {
	for _, name := range Runtimes {
		if probe.ToolAvailable(ctx, d.Env, d.Runner, name) {
			return name, true
		}
		d.logf("runtime %s not found on PATH", name)
	}
	return "", false
}

// SocketCandidates returns the conventional runtime socket locations for env,
// in the order they should be tried.
func SocketCandidates(env hostenv.Env) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if path == "" {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	hasUID := env.UID >= 0 && !env.IsWindows()
	userRun := func(parts ...string) string {
		if !hasUID {
			return ""
		}
		return filepath.Join(append([]string{"/run/user", fmt.Sprint(env.UID)}, parts...)...)
	}
	desktop := ""
	if strings.TrimSpace(env.Home) != "" {
		desktop = filepath.Join(env.Home, ".docker", "run", "docker.sock")
	}

	if env.IsWindows() {
		add("//./pipe/docker_engine")
		add("/var/run/docker.sock")
		add(desktop)
		return out
	}

	add("/var/run/docker.sock")
	add(userRun("docker.sock"))
	add(desktop)
	if env.Platform == hostenv.Darwin {
		add("/opt/homebrew/var/run/docker.sock")
	} else {
		add("/var/snap/docker/common/run/docker.sock")
	}
	add(userRun("podman", "podman.sock"))
	return out
}

// ValidateSocket reports whether a disposable container started by runtime
// can reach the engine through path. Only a zero exit counts; a socket file
// left behind by a stopped daemon fails here.
func (d *Discoverer) ValidateSocket(ctx context.Context, runtime, path string) bool {
	if strings.TrimSpace(runtime) == "" || strings.TrimSpace(path) == "" || d.Runner == nil {
		return false
	}
	image := d.probeImage()
	// The image is pulled up front by ensureProbeImage; a pull here would not
	// fit in SocketTimeout.
	args := []string{"run", "--rm", "--pull=never"}
	if d.NewID != nil {
		args = append(args, "--name", "devshell-probe-"+d.NewID())
	}
	args = append(args,
		"-v", path+":"+ContainerSocketPath,
		image,
		"docker", "version",
	)
	if _, err := d.Runner.Run(ctx, SocketTimeout, runtime, args...); err != nil {
		d.logf("socket %s rejected: %v", path, err)
		return false
	}
	return true
}

func (d *Discoverer) probeImage() string {
	if image := strings.TrimSpace(d.ProbeImage); image != "" {
		return image
	}
	return DefaultProbeImage
}

// ensureProbeImage makes sure the probe image is present locally, pulling it
// once with ProbeImagePullTimeout when it is not.
func (d *Discoverer) ensureProbeImage(ctx context.Context, runtime string) bool {
	image := d.probeImage()
	if _, err := d.Runner.Run(ctx, SocketTimeout, runtime, "image", "inspect", image); err == nil {
		return true
	}
	d.logf("pulling probe image %s with %s", image, runtime)
	if _, err := d.Runner.Run(ctx, ProbeImagePullTimeout, runtime, "pull", image); err != nil {
		d.logf("pull of probe image %s failed: %v (set DEVSHELL_PROBE_IMAGE to a local image)", image, err)
		return false
	}
	return true
}

// FindSocket walks the candidate list and returns the first socket that
// validates. ok is false when no runtime is installed or no candidate
// answers.
func (d *Discoverer) FindSocket(ctx context.Context) (SocketResult, bool) {
	runtime, ok := d.SelectRuntime(ctx)
	if !ok {
		return SocketResult{}, false
	}
	// Candidates are still tried without the image; each fails fast.
	d.ensureProbeImage(ctx, runtime)
	for _, candidate := range SocketCandidates(d.Env) {
		if ctx.Err() != nil {
			return SocketResult{}, false
		}
		if d.ValidateSocket(ctx, runtime, candidate) {
			d.logf("socket %s validated with %s", candidate, runtime)
			return SocketResult{Runtime: runtime, Path: candidate}, true
		}
	}
	return SocketResult{}, false
}
