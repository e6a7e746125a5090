//go:build !unix && !windows

package platform

// IsPrivileged is always false where no register backend exists
func IsPrivileged() bool { return false }
