package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/strongdm/devshell/internal/configstore"
)

const (
	profileFileName = "devshell.toml"
	defaultImage    = "devshell:latest"
	defaultEnvFile  = ".env"
)

// Profile describes how the development container is started. It is read
// from devshell.toml next to the Dockerfile.
type Profile struct {
	Image   string
	Ports   []string
	Volumes map[string]string
	EnvFile string
	Workdir string
}

type profileFile struct {
	Image   *string           `toml:"image"`
	Ports   []string          `toml:"ports"`
	Volumes map[string]string `toml:"volumes"`
	EnvFile *string           `toml:"env_file"`
	Workdir string            `toml:"workdir"`
}

func defaultVolumes() map[string]string {
	return map[string]string{
		"devshell-root":  "/root",
		"devshell-cache": "/var/cache",
	}
}

// loadProfile reads the launch profile from buildCtx, applying defaults for
// anything the file leaves out. A missing file yields the defaults.
func loadProfile(buildCtx string) (Profile, error) {
	file := filepath.Join(buildCtx, profileFileName)
	var raw profileFile
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return Profile{}, &configstore.ParseError{Path: file, Err: describeTOMLError(err)}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Profile{}, fmt.Errorf("read %s: %w", file, err)
	}
	return resolveProfile(buildCtx, raw, file)
}

func resolveProfile(buildCtx string, raw profileFile, file string) (Profile, error) {
	p := Profile{
		Image:   defaultImage,
		Volumes: defaultVolumes(),
		Workdir: strings.TrimSpace(raw.Workdir),
	}
	if raw.Image != nil {
		img := strings.TrimSpace(*raw.Image)
		if img == "" {
			return Profile{}, fmt.Errorf("%s: image must not be empty", file)
		}
		p.Image = img
	}
	for _, port := range raw.Ports {
		port = strings.TrimSpace(port)
		if port == "" {
			return Profile{}, fmt.Errorf("%s: ports entries must not be empty", file)
		}
		p.Ports = append(p.Ports, port)
	}
	if raw.Volumes != nil {
		p.Volumes = make(map[string]string, len(raw.Volumes))
		for name, target := range raw.Volumes {
			name = strings.TrimSpace(name)
			target = strings.TrimSpace(target)
			if name == "" || !path.IsAbs(target) {
				return Profile{}, fmt.Errorf("%s: volume %q needs an absolute container path, got %q", file, name, target)
			}
			p.Volumes[name] = target
		}
	}
	if p.Workdir != "" && !path.IsAbs(p.Workdir) {
		return Profile{}, fmt.Errorf("%s: workdir %q must be an absolute container path", file, p.Workdir)
	}

	envFile, err := resolveEnvFile(buildCtx, raw.EnvFile)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", file, err)
	}
	p.EnvFile = envFile
	return p, nil
}

// resolveEnvFile picks up .env implicitly when present; an explicit entry
// must exist and an explicit empty string disables it.
func resolveEnvFile(buildCtx string, configured *string) (string, error) {
	if configured == nil {
		candidate := filepath.Join(buildCtx, defaultEnvFile)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		return "", nil
	}
	name := strings.TrimSpace(*configured)
	if name == "" {
		return "", nil
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(buildCtx, name)
	}
	info, err := os.Stat(name)
	if err != nil {
		return "", fmt.Errorf("env_file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("env_file %s is a directory", name)
	}
	return name, nil
}

func describeTOMLError(err error) error {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Errorf("line %d, column %d: %w", row, col, err)
	}
	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		return fmt.Errorf("unknown keys: %s", strings.TrimSpace(strictErr.String()))
	}
	return err
}
