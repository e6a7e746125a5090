//go:build !linux && !windows

package smart

func newPlatformDeviceControl() (DeviceControl, error) {
	return nil, ErrUnsupported
}

// DevicePath always fails on platforms without pass-through
func DevicePath(drive int) (string, bool) {
	return "", false
}
