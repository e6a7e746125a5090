//go:build linux

package cpuid

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
)

// detectPlatform reads /proc/cpuinfo through gopsutil
func detectPlatform(ctx context.Context) ([]*Identity, error) {
	stats, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cpu info: %w", err)
	}
	return fromInfoStats(stats)
}
