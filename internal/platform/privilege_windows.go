//go:build windows

package platform

import "golang.org/x/sys/windows"

// IsPrivileged reports whether the process token is elevated, which the
// WinRing0 driver and PhysicalDrive handles require.
func IsPrivileged() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
