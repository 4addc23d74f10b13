//go:build unix

package hostenv

import "golang.org/x/sys/unix"

func currentUID() int {
	return unix.Getuid()
}
