package configstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/strongdm/devshell/internal/discovery"
)

var (
	// ErrMissingSocket means no runtime socket was discovered or supplied.
	ErrMissingSocket = errors.New("a container runtime socket is required")
	// ErrMissingAddress means no external address was discovered or supplied.
	ErrMissingAddress = errors.New("an external IP address is required")
	// ErrInvalidAddress means the user kept supplying malformed addresses.
	ErrInvalidAddress = errors.New("external IP address must be a dotted-quad IPv4 address")
)

// maxAddressAttempts caps how often a malformed address is asked again.
const maxAddressAttempts = 3

// SaveFunc persists the provided configuration snapshot.
type SaveFunc func(Config) error

// Prompter drives interactive questions. Ask returns defaultValue when the
// user enters an empty line.
type Prompter interface {
	Ask(ctx context.Context, question, defaultValue string) (string, error)
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
}

// Discoverer supplies default values for prompts.
type Discoverer interface {
	FindSocket(ctx context.Context) (discovery.SocketResult, bool)
	ExternalAddress(ctx context.Context) (string, bool)
	AddressAvailable(ctx context.Context, ip string) bool
	SSHDir() (string, bool)
}

// Outcome captures the result of Reconcile.
type Outcome struct {
	Config Config
	// Runtime is the executable that validated the socket, when discovery
	// ran and succeeded.
	Runtime         string
	Gathered        []string
	Persisted       bool
	SaveError       error
	AddressReplaced bool
}

// Reconciler merges persisted configuration with discovered values.
type Reconciler struct {
	Prompter  Prompter
	Discovery Discoverer
	SaveFunc  SaveFunc
	Logger    *log.Logger
}

// Reconcile fills missing fields of loaded, persists newly gathered values and
// revalidates the external address. found reports whether loaded came from
// disk.
func (r *Reconciler) Reconcile(ctx context.Context, loaded Config, found bool) (Outcome, error) {
	if r == nil || r.Prompter == nil || r.Discovery == nil {
		return Outcome{}, errors.New("reconciler misconfigured: prompter and discovery required")
	}

	out := Outcome{Config: loaded.Clone()}
	if !found {
		r.logf("no saved configuration; discovering host settings")
	}

	if !out.Config.Complete() {
		if err := r.gather(ctx, &out); err != nil {
			return Outcome{}, err
		}
	}
	// Gathered values must survive an aborted revalidation prompt.
	if len(out.Gathered) > 0 {
		r.persist(&out)
	}

	replaced, err := r.revalidateAddress(ctx, &out)
	if err != nil {
		return Outcome{}, err
	}
	out.AddressReplaced = replaced
	if replaced {
		r.persist(&out)
	}
	return out, nil
}

func (r *Reconciler) gather(ctx context.Context, out *Outcome) error {
	cfg := &out.Config

	if strings.TrimSpace(cfg.DockerSocket) == "" {
		found, ok := r.Discovery.FindSocket(ctx)
		if !ok {
			r.logf("no working container runtime socket found")
		}
		answer, err := r.Prompter.Ask(ctx, "Container runtime socket path", found.Path)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return ErrMissingSocket
		}
		if ok && answer == found.Path {
			out.Runtime = found.Runtime
		}
		cfg.DockerSocket = answer
		out.Gathered = append(out.Gathered, FieldDockerSocket)
	}

	if cfg.SSHKeysDir == nil {
		dir, err := r.askSSHDir(ctx)
		if err != nil {
			return err
		}
		if dir != "" {
			cfg.SSHKeysDir = stringPtr(dir)
			out.Gathered = append(out.Gathered, FieldSSHKeysDir)
		}
	}

	if !discovery.ValidIPv4(cfg.ExternalIP) {
		found, _ := r.Discovery.ExternalAddress(ctx)
		ip, err := r.askAddress(ctx, "External IP address", found)
		if err != nil {
			return err
		}
		cfg.ExternalIP = ip
		out.Gathered = append(out.Gathered, FieldExternalIP)
	}
	return nil
}

// askSSHDir returns the directory to mount, or "" when the user skips the
// feature. A discovered directory is offered as a yes/no choice.
func (r *Reconciler) askSSHDir(ctx context.Context) (string, error) {
	if found, ok := r.Discovery.SSHDir(); ok && found != "" {
		mount, err := r.Prompter.Confirm(ctx, fmt.Sprintf("Mount SSH keys from %s?", found), true)
		if err != nil || !mount {
			return "", err
		}
		return found, nil
	}
	answer, err := r.Prompter.Ask(ctx, "SSH keys directory (leave empty to skip)", "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// revalidateAddress asks for a replacement when the configured address
// answers on the network.
func (r *Reconciler) revalidateAddress(ctx context.Context, out *Outcome) (bool, error) {
	current := out.Config.ExternalIP
	if r.Discovery.AddressAvailable(ctx, current) {
		return false, nil
	}
	r.logf("external IP %s is already in use on the network", current)

	replace, err := r.Prompter.Confirm(ctx, fmt.Sprintf("External IP %s answered a ping. Choose a different address?", current), true)
	if err != nil {
		return false, err
	}
	if !replace {
		return false, nil
	}

	suggested, _ := r.Discovery.ExternalAddress(ctx)
	question := fmt.Sprintf("Replacement for external IP %s", current)
	ip, err := r.askAddress(ctx, question, suggested)
	if err != nil {
		return false, err
	}
	out.Config.ExternalIP = ip
	return ip != current, nil
}

func (r *Reconciler) askAddress(ctx context.Context, question, suggested string) (string, error) {
	for attempt := 0; attempt < maxAddressAttempts; attempt++ {
		answer, err := r.Prompter.Ask(ctx, question, suggested)
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return "", ErrMissingAddress
		}
		if discovery.ValidIPv4(answer) {
			return answer, nil
		}
		r.logf("%q is not a valid IPv4 address", answer)
	}
	return "", ErrInvalidAddress
}

func (r *Reconciler) persist(out *Outcome) {
	saveFn := r.SaveFunc
	if saveFn == nil {
		saveFn = Save
	}
	if err := saveFn(out.Config.Clone()); err != nil {
		out.SaveError = err
		r.logf("failed to save configuration: %v", err)
		return
	}
	out.SaveError = nil
	out.Persisted = true
}

func (r *Reconciler) logf(format string, args ...any) {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf(format, args...)
}
