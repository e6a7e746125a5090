//go:build linux

package smart

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Legacy IDE ioctls, still translated to ATA pass-through by libata
const (
	hdioDriveTask = 0x031E
	hdioDriveCmd  = 0x031F
)

// linuxDeviceControl serves the pass-through envelopes with HDIO ioctls on /dev/sdX
type linuxDeviceControl struct{}

func newPlatformDeviceControl() (DeviceControl, error) {
	return linuxDeviceControl{}, nil
}

// DevicePath returns the block device of the drive with the given index
func DevicePath(drive int) (string, bool) {
	if drive < 0 || drive >= 26 {
		return "", false
	}
	return fmt.Sprintf("/dev/sd%c", 'a'+drive), true
}

func (linuxDeviceControl) Open(drive int) Handle {
	path, ok := DevicePath(drive)
	if !ok {
		return InvalidHandle
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return InvalidHandle
	}
	return Handle(fd)
}

func (linuxDeviceControl) Close(h Handle) {
	_ = unix.Close(int(h))
}

func (linuxDeviceControl) Control(h Handle, code ControlCode, request []byte, responseSize int) ([]byte, bool) {
	if code == GetVersion {
		return nil, false
	}
	p, ok := DecodeCommand(request)
	if !ok {
		return nil, false
	}
	regs := p.Registers

	if code == SendDriveCommand && Command(regs.Command) == SMARTCommand && Feature(regs.Features) == ReturnStatus {
		return driveTask(h, regs, responseSize)
	}
	return driveCmd(h, regs, responseSize)
}

// driveTask issues HDIO_DRIVE_TASK, which hands back the task file registers
func driveTask(h Handle, regs CommandBlockRegisters, responseSize int) ([]byte, bool) {
	args := [7]byte{regs.Command, regs.Features, regs.SectorCount, regs.LBALow, regs.LBAMid, regs.LBAHigh, regs.Device}
	if err := ioctl(h, hdioDriveTask, &args[0]); err != nil {
		return nil, false
	}

	out := regs
	out.LBAMid, out.LBAHigh = args[4], args[5]
	payload := make([]byte, registersSize)
	out.put(payload)
	return NewResult(responseSize, DriverStatus{}, payload), true
}

// driveCmd issues HDIO_DRIVE_CMD with a one-sector buffer when the envelope
// expects data back.
func driveCmd(h Handle, regs CommandBlockRegisters, responseSize int) ([]byte, bool) {
	sectors := 0
	if responseSize-resultHeaderSize >= sectorSize {
		sectors = 1
	}

	buf := make([]byte, 4+sectors*sectorSize)
	buf[0] = regs.Command
	buf[1] = regs.SectorCount
	if Command(regs.Command) == SMARTCommand {
		buf[1] = regs.LBALow
	}
	buf[2] = regs.Features
	buf[3] = byte(sectors)

	if err := ioctl(h, hdioDriveCmd, &buf[0]); err != nil {
		return nil, false
	}

	data := buf[4:]
	if Command(regs.Command) == SMARTCommand {
		// the sector carries offline and self-test data after the attribute table
		switch Feature(regs.Features) {
		case ReadData, ReadThresholds:
			data = data[:attributeTableSize]
		}
	}
	return NewResult(responseSize, DriverStatus{IDEError: buf[1]}, data), true
}

func ioctl(h Handle, req uintptr, arg *byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h), req, uintptr(unsafe.Pointer(arg)))
	if errno != 0 {
		return errno
	}
	return nil
}
