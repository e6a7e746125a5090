// Package ring0 gives access to privileged processor registers through a
// kernel driver. Reads never return errors: a failed read only reports ok=false.
package ring0

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Model-specific registers used by the Intel sampling engine
const (
	MSRTimeStampCounter   uint32 = 0x10
	MSRPlatformInfo       uint32 = 0xCE
	IA32PerfStatus        uint32 = 0x198
	IA32ThermStatus       uint32 = 0x19C
	IA32TemperatureTarget uint32 = 0x1A2
)

// ErrUnsupported is returned by Open when no register driver exists for this platform
var ErrUnsupported = errors.New("ring0: register access not supported on this platform")

// Port is the register access driver
type Port interface {
	// ReadMSR reads a model-specific register on the logical processor
	// selected by affinity and returns its low (eax) and high (edx) halves.
	ReadMSR(index uint32, affinity uint64) (eax, edx uint32, ok bool)
	Close() error
}

// Open loads the register driver for the current platform
func Open(logger zerolog.Logger) (Port, error) {
	return newPlatformPort(logger)
}

// Mask returns the affinity mask selecting one logical processor.
// Processors beyond the 64-bit mask yield 0, which no driver accepts.
func Mask(thread int) uint64 {
	if thread < 0 || thread > 63 {
		return 0
	}
	return 1 << uint(thread)
}

// Synchronized wraps a port so that only one read is in flight at a time.
// Directing a read to a processor is a system-wide operation.
func Synchronized(port Port) Port {
	if s, ok := port.(*syncPort); ok {
		return s
	}
	return &syncPort{port: port}
}

type syncPort struct {
	mu   sync.Mutex
	port Port
}

func (s *syncPort) ReadMSR(index uint32, affinity uint64) (uint32, uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.ReadMSR(index, affinity)
}

func (s *syncPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
