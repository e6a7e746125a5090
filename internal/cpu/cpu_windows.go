//go:build windows

package cpu

import (
	"context"

	"github.com/StackExchange/wmi"
	"github.com/shirou/gopsutil/v3/cpu"
)

type win32ProcessorClock struct {
	CurrentClockSpeed uint32
}

// platformFrequency reads the current clock from Win32_Processor, falling
// back to the rated clock gopsutil reports.
func platformFrequency(_ context.Context, stats []cpu.InfoStat) float64 {
	var rows []win32ProcessorClock
	if err := wmi.Query("SELECT CurrentClockSpeed FROM Win32_Processor", &rows); err == nil && len(rows) > 0 && rows[0].CurrentClockSpeed > 0 {
		return float64(rows[0].CurrentClockSpeed)
	}
	return stats[0].Mhz
}
