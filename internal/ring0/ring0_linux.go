//go:build linux

package ring0

import (
	"fmt"
	"math/bits"

	"github.com/fearful-symmetry/gomsr"
	"github.com/rs/zerolog"
)

// LinuxPort reads registers through the msr kernel module (/dev/cpu/N/msr)
type LinuxPort struct {
	devices map[int]gomsr.MSRDev
	logger  zerolog.Logger
}

// newPlatformPort opens the msr device of processor 0 to verify access
func newPlatformPort(logger zerolog.Logger) (Port, error) {
	dev, err := gomsr.MSR(0)
	if err != nil {
		return nil, fmt.Errorf("%w: open /dev/cpu/0/msr (is the msr module loaded and are we root?): %v", ErrUnsupported, err)
	}

	p := &LinuxPort{
		devices: map[int]gomsr.MSRDev{0: dev},
		logger:  logger.With().Str("component", "ring0").Logger(),
	}
	return p, nil
}

// ReadMSR reads a register on the lowest processor selected by affinity
func (p *LinuxPort) ReadMSR(index uint32, affinity uint64) (uint32, uint32, bool) {
	if affinity == 0 {
		return 0, 0, false
	}
	cpu := bits.TrailingZeros64(affinity)

	dev, ok := p.devices[cpu]
	if !ok {
		var err error
		dev, err = gomsr.MSR(cpu)
		if err != nil {
			p.logger.Trace().Err(err).Int("cpu", cpu).Msg("msr device unavailable")
			return 0, 0, false
		}
		p.devices[cpu] = dev
	}

	value, err := dev.Read(int64(index))
	if err != nil {
		p.logger.Trace().Err(err).Int("cpu", cpu).Uint32("msr", index).Msg("msr read failed")
		return 0, 0, false
	}
	return uint32(value), uint32(value >> 32), true
}

// Close releases every opened msr device
func (p *LinuxPort) Close() error {
	var firstErr error
	for cpu, dev := range p.devices {
		if err := dev.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close msr device of cpu %d: %w", cpu, err)
		}
		delete(p.devices, cpu)
	}
	return firstErr
}
