//go:build windows

package ring0

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// WinRing0 library names by pointer size
const (
	winRing0DLL64 = "WinRing0x64.dll"
	winRing0DLL32 = "WinRing0.dll"
)

// WindowsPort reads registers through the WinRing0 driver library
type WindowsPort struct {
	dll          *windows.LazyDLL
	initialize   *windows.LazyProc
	deinitialize *windows.LazyProc
	rdmsrTx      *windows.LazyProc
	logger       zerolog.Logger
}

// newPlatformPort loads WinRing0 and initializes its driver
func newPlatformPort(logger zerolog.Logger) (Port, error) {
	name := winRing0DLL64
	if unsafe.Sizeof(uintptr(0)) == 4 {
		name = winRing0DLL32
	}

	dll := windows.NewLazyDLL(name)
	if err := dll.Load(); err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrUnsupported, name, err)
	}

	p := &WindowsPort{
		dll:          dll,
		initialize:   dll.NewProc("InitializeOls"),
		deinitialize: dll.NewProc("DeinitializeOls"),
		rdmsrTx:      dll.NewProc("RdmsrTx"),
		logger:       logger.With().Str("component", "ring0").Logger(),
	}

	ret, _, err := p.initialize.Call()
	if ret == 0 {
		return nil, fmt.Errorf("%w: initialize %s driver: %v", ErrUnsupported, name, err)
	}

	return p, nil
}

// ReadMSR reads a register with the thread affinity set to affinity
func (p *WindowsPort) ReadMSR(index uint32, affinity uint64) (uint32, uint32, bool) {
	if affinity == 0 {
		return 0, 0, false
	}

	var eax, edx uint32
	ret, _, _ := p.rdmsrTx.Call(
		uintptr(index),
		uintptr(unsafe.Pointer(&eax)),
		uintptr(unsafe.Pointer(&edx)),
		uintptr(affinity),
	)
	if ret == 0 {
		p.logger.Trace().Uint32("msr", index).Uint64("affinity", affinity).Msg("msr read failed")
		return 0, 0, false
	}
	return eax, edx, true
}

// Close shuts the driver down
func (p *WindowsPort) Close() error {
	if p.deinitialize != nil {
		p.deinitialize.Call()
	}
	return nil
}
