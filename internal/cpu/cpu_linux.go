//go:build linux

package cpu

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// platformFrequency averages the live "cpu MHz" of every logical processor
func platformFrequency(_ context.Context, stats []cpu.InfoStat) float64 {
	var sum float64
	n := 0
	for _, s := range stats {
		if s.Mhz > 0 {
			sum += s.Mhz
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
