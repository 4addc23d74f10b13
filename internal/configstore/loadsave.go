package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ParseError reports a config file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the persisted config from the default location. found is false
// when no file exists, which is not an error.
func Load() (cfg Config, found bool, err error) {
	_, file, err := GetConfigPath()
	if err != nil {
		return Config{}, false, err
	}
	return LoadFile(file)
}

// LoadFile reads the config stored at path.
func LoadFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}
	cfg, err := decodeConfig(data, path)
	if err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

// decodeConfig accepts any JSON object. Known keys holding a value of the
// wrong type are dropped so they get gathered again; unknown keys are
// ignored.
func decodeConfig(data []byte, path string) (Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}
	if raw == nil {
		return Config{}, &ParseError{Path: path, Err: errors.New("expected a JSON object, got null")}
	}

	var cfg Config
	if s, ok := stringField(raw, FieldDockerSocket); ok {
		cfg.DockerSocket = s
	}
	if s, ok := stringField(raw, FieldSSHKeysDir); ok {
		cfg.SSHKeysDir = stringPtr(s)
	}
	if s, ok := stringField(raw, FieldExternalIP); ok {
		cfg.ExternalIP = s
	}
	return cfg, nil
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	value, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", false
	}
	return s, true
}

// Save atomically writes the configuration to the default location.
func Save(cfg Config) error {
	_, file, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(file, cfg)
}

// SaveFile atomically replaces the file at path with cfg.
func SaveFile(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleaned := false
	defer func() {
		if !cleaned {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	data, err := encodeConfig(cfg)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}
	cleaned = true
	return nil
}

func encodeConfig(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
