package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/strongdm/devshell/internal/configstore"
	"github.com/strongdm/devshell/internal/discovery"
	"github.com/strongdm/devshell/internal/envflag"
	"github.com/strongdm/devshell/internal/hostenv"
	"github.com/strongdm/devshell/internal/probe"
	"github.com/strongdm/devshell/internal/telemetry/otel"
)

const telemetryShutdownTimeout = 2 * time.Second

type runner struct {
	env     hostenv.Env
	verbose bool
	logger  *log.Logger
	probes  probe.Runner

	stdin io.Reader
	tty   bool
}

// ExitCodeError propagates the exit status of the container session. Main
// callers unwrap it and exit with the same code instead of flattening every
// failure to 1.
type ExitCodeError struct {
	code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("container exited with code %d", e.code)
}

func (e *ExitCodeError) ExitCode() int {
	return e.code
}

// Main runs discovery, reconciles the saved host configuration and launches
// the development container. When args is empty, os.Args is used.
func Main(args []string) error {
	if len(args) == 0 {
		args = os.Args
	}
	name := commandName(args)
	if len(args) > 1 {
		return fmt.Errorf("%s takes no arguments; configuration lives in %s", name, configLocation())
	}
	return execute(name)
}

func execute(cmdName string) error {
	logger := log.New(os.Stderr, "", 0)
	verbose := envflag.Enabled(envflag.Verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	var interrupted int32
	go func() {
		for range sigCh {
			if atomic.CompareAndSwapInt32(&interrupted, 0, 1) {
				cancel()
				continue
			}
			os.Exit(1)
		}
	}()

	tel, err := otel.Setup(ctx, otel.LoadConfigFromEnv())
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer done()
		if err := tel.Shutdown(shutdownCtx); err != nil && verbose {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	env, err := hostenv.Current()
	if err != nil {
		return err
	}

	r := &runner{
		env:     env,
		verbose: verbose,
		logger:  logger,
		probes:  tel.WrapRunner(probe.ExecRunner{}),
		stdin:   os.Stdin,
		tty:     isTerminal(os.Stdin) && isTerminal(os.Stdout),
	}
	r.debugf("%s %s on %s (home %s)", cmdName, versionTag(), env.Platform, env.Home)

	err = r.run(ctx)
	if tel.Enabled() {
		if summary, sumErr := tel.ProbeSummary(context.Background()); sumErr == nil {
			r.debugf("probes: %d attempts, %d failed", summary.Attempts, summary.Failures)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && atomic.LoadInt32(&interrupted) == 1 {
			return &ExitCodeError{code: 1}
		}
		return err
	}
	return nil
}

func (r *runner) run(ctx context.Context) error {
	loaded, found, err := configstore.Load()
	if err != nil {
		return err
	}
	if found {
		r.debugf("loaded configuration from %s", configLocation())
	}

	rec := &configstore.Reconciler{
		Prompter:  r.newPrompter(),
		Discovery: r.newDiscoverer(),
		SaveFunc:  configstore.Save,
		Logger:    r.logger,
	}
	outcome, err := rec.Reconcile(ctx, loaded, found)
	if err != nil {
		return err
	}
	if outcome.Persisted {
		r.debugf("saved configuration to %s", configLocation())
	}

	buildCtx, err := locateBuildContext()
	if err != nil {
		return err
	}
	profile, err := loadProfile(buildCtx)
	if err != nil {
		return err
	}

	l := &launcher{
		runner:       r,
		config:       outcome.Config,
		buildContext: buildCtx,
		profile:      profile,
		preferred:    outcome.Runtime,
	}
	code, err := l.launch(ctx)
	if err != nil {
		return err
	}
	if code != 0 {
		// Not wrapped: callers unwrap ExitCodeError to exit with code.
		return &ExitCodeError{code: code}
	}
	return nil
}

func (r *runner) newDiscoverer() *discovery.Discoverer {
	var debug *log.Logger
	if r.verbose {
		debug = r.logger
	}
	d := discovery.New(r.env, r.probes, debug)
	if img := r.env.Lookup(envflag.ProbeImage); img != "" {
		d.ProbeImage = img
	}
	return d
}

func (r *runner) newPrompter() configstore.Prompter {
	if r.tty && isTerminal(os.Stderr) && canUseBubbleTea(os.Stdin, os.Stderr) {
		return newBubbleTeaPrompter(os.Stdin, os.Stderr)
	}
	return newTerminalPrompter(r.stdin, os.Stderr)
}

func (r *runner) debugf(format string, args ...interface{}) {
	if r.verbose {
		r.logger.Printf(format, args...)
	}
}

func configLocation() string {
	_, path, err := configstore.GetConfigPath()
	if err != nil {
		return "the devshell config directory"
	}
	return path
}

func commandName(args []string) string {
	if len(args) == 0 {
		return "devshell"
	}
	name := strings.TrimSpace(args[0])
	if name == "" {
		return "devshell"
	}
	return filepath.Base(name)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
