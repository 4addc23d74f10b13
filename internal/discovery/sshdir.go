package discovery

import (
	"path/filepath"
	"strings"
)

// SSHCandidates returns the conventional SSH credential directories for the
// host, most preferred first.
func (d *Discoverer) SSHCandidates() []string {
	var out []string
	add := func(dir string) {
		if strings.TrimSpace(dir) == "" {
			return
		}
		for _, existing := range out {
			if existing == dir {
				return
			}
		}
		out = append(out, dir)
	}

	if d.Env.Home != "" {
		add(filepath.Join(d.Env.Home, ".ssh"))
	}
	if !d.Env.IsWindows() {
		return out
	}

	if profile := d.Env.Lookup("USERPROFILE"); profile != "" {
		add(filepath.Join(profile, ".ssh"))
	}
	drive, path := d.Env.Lookup("HOMEDRIVE"), d.Env.Lookup("HOMEPATH")
	if drive != "" && path != "" {
		add(filepath.Join(drive+path, ".ssh"))
	}
	if user := d.Env.Lookup("USERNAME"); user != "" {
		add(filepath.Join(`C:\Users`, user, ".ssh"))
	}
	return out
}

// SSHDir returns the first candidate that exists as a directory.
func (d *Discoverer) SSHDir() (string, bool) {
	for _, dir := range d.SSHCandidates() {
		info, err := d.stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		return dir, true
	}
	return "", false
}
