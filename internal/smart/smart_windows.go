//go:build windows

package smart

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const fileAttributeDevice = 0x00000040

// windowsDeviceControl sends the envelopes to \\.\PhysicalDriveN with DeviceIoControl
type windowsDeviceControl struct{}

func newPlatformDeviceControl() (DeviceControl, error) {
	return windowsDeviceControl{}, nil
}

// DevicePath returns the device path of the drive with the given index
func DevicePath(drive int) (string, bool) {
	if drive < 0 {
		return "", false
	}
	return fmt.Sprintf(`\\.\PhysicalDrive%d`, drive), true
}

func (windowsDeviceControl) Open(drive int) Handle {
	path, ok := DevicePath(drive)
	if !ok {
		return InvalidHandle
	}
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return InvalidHandle
	}
	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		fileAttributeDevice,
		0,
	)
	if err != nil {
		return InvalidHandle
	}
	return Handle(h)
}

func (windowsDeviceControl) Close(h Handle) {
	_ = windows.CloseHandle(windows.Handle(h))
}

func (windowsDeviceControl) Control(h Handle, code ControlCode, request []byte, responseSize int) ([]byte, bool) {
	response := make([]byte, responseSize)
	var in *byte
	if len(request) > 0 {
		in = &request[0]
	}

	var returned uint32
	err := windows.DeviceIoControl(
		windows.Handle(h),
		uint32(code),
		in,
		uint32(len(request)),
		&response[0],
		uint32(responseSize),
		&returned,
		nil,
	)
	if err != nil {
		return nil, false
	}
	return response, true
}
