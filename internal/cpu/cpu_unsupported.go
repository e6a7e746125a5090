//go:build !linux && !windows

package cpu

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// platformFrequency returns the rated clock gopsutil reports
func platformFrequency(_ context.Context, stats []cpu.InfoStat) float64 {
	return stats[0].Mhz
}
