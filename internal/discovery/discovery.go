// Package discovery probes the host for the values devshell needs before it
// can launch a container: a live runtime socket, an externally reachable
// IPv4 address and an SSH credential directory.
//
// Every probe absorbs its own failures. Results are reported as (value, ok)
// pairs or booleans so callers fall through to the next candidate or ask the
// user; nothing here returns an error.
package discovery

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/strongdm/devshell/internal/hostenv"
	"github.com/strongdm/devshell/internal/probe"
)

const (
	// SocketTimeout bounds one socket round-trip through the runtime.
	SocketTimeout = 3 * time.Second
	// ProbeImagePullTimeout bounds the one-time pull of the probe image.
	ProbeImagePullTimeout = 2 * time.Minute
	// CommandTimeout bounds one network diagnostic command.
	CommandTimeout = 3 * time.Second
	// PingTimeout bounds the single echo request of AddressAvailable.
	PingTimeout = 2 * time.Second

	// DefaultProbeImage runs the docker CLI against the bind-mounted socket.
	DefaultProbeImage = "docker:cli"
)

// Discoverer runs discovery probes against one host.
type Discoverer struct {
	Env    hostenv.Env
	Runner probe.Runner
	Logger *log.Logger

	// ProbeImage is the image used for socket round-trips.
	ProbeImage string
	// Interfaces enumerates network interfaces; defaults to the host's.
	Interfaces InterfaceLister
	// StatFunc defaults to os.Stat.
	StatFunc func(string) (os.FileInfo, error)
	// NewID names disposable probe containers.
	NewID func() string
}

// New returns a Discoverer wired to the real host facilities.
func New(env hostenv.Env, runner probe.Runner, logger *log.Logger) *Discoverer {
	return &Discoverer{
		Env:        env,
		Runner:     runner,
		Logger:     logger,
		ProbeImage: DefaultProbeImage,
		Interfaces: HostInterfaces,
		StatFunc:   os.Stat,
		NewID:      uuid.NewString,
	}
}

func (d *Discoverer) logf(format string, args ...any) {
	d.logger().Printf(format, args...)
}

func (d *Discoverer) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return d.Logger
}

func (d *Discoverer) stat(path string) (os.FileInfo, error) {
	if d.StatFunc != nil {
		return d.StatFunc(path)
	}
	return os.Stat(path)
}
