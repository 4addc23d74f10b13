// Package configstore persists the devshell host configuration (runtime
// socket, SSH key directory and external address) in an XDG-compliant
// location and reconciles it with freshly discovered values. Discovery only
// runs for fields that are missing or invalid; the caller prompts the user
// with discovered values as defaults.
package configstore
