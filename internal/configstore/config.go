package configstore

import (
	"strings"

	"github.com/strongdm/devshell/internal/discovery"
)

// Config represents the persisted host configuration.
type Config struct {
	DockerSocket string  `json:"dockerSocket"`
	SSHKeysDir   *string `json:"sshKeysDir"`
	ExternalIP   string  `json:"externalIP"`
}

// Field names as they appear in the persisted file.
const (
	FieldDockerSocket = "dockerSocket"
	FieldSSHKeysDir   = "sshKeysDir"
	FieldExternalIP   = "externalIP"
)

// Clone produces a copy that shares no pointers with c.
func (c Config) Clone() Config {
	out := c
	if c.SSHKeysDir != nil {
		out.SSHKeysDir = stringPtr(*c.SSHKeysDir)
	}
	return out
}

// SSHDir returns the SSH key directory, or "" when the feature is skipped.
func (c Config) SSHDir() string {
	if c.SSHKeysDir == nil {
		return ""
	}
	return strings.TrimSpace(*c.SSHKeysDir)
}

// MissingRequired lists required fields that are absent or invalid.
func (c Config) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(c.DockerSocket) == "" {
		missing = append(missing, FieldDockerSocket)
	}
	if !discovery.ValidIPv4(c.ExternalIP) {
		missing = append(missing, FieldExternalIP)
	}
	return missing
}

// Complete reports whether every required field is present and valid.
func (c Config) Complete() bool {
	return len(c.MissingRequired()) == 0
}

func stringPtr(s string) *string {
	return &s
}
