//go:build unix

package platform

import "golang.org/x/sys/unix"

// IsPrivileged reports whether the process may open the msr and block devices
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}
