//go:build !unix

package hostenv

func currentUID() int {
	return -1
}
