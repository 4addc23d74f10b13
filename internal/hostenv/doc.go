// Package hostenv captures the parts of the host identity that drive
// discovery: the platform category, the home directory, the numeric user id
// and environment lookups. Discovery code receives an Env value instead of
// reading process globals so tests can substitute a fixed host.
package hostenv
