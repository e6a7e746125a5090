//go:build windows

package cpuid

import (
	"context"
	"fmt"

	"github.com/StackExchange/wmi"
)

const win32ProcessorQuery = "SELECT Name, Manufacturer, ProcessorId, NumberOfCores, " +
	"NumberOfLogicalProcessors, MaxClockSpeed FROM Win32_Processor"

// detectPlatform queries Win32_Processor
func detectPlatform(ctx context.Context) ([]*Identity, error) {
	var rows []win32Processor
	if err := wmi.Query(win32ProcessorQuery, &rows); err != nil {
		return nil, fmt.Errorf("query Win32_Processor: %w", err)
	}
	return fromWin32Processors(rows)
}
