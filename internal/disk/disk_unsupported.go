//go:build !linux && !windows

package disk

import (
	"context"

	"github.com/CristiGvl/picoRing0/internal/smart"
)

// enumerateDrives returns an error for unsupported platforms
func enumerateDrives(ctx context.Context) ([]int, error) {
	return nil, smart.ErrUnsupported
}

func drivePartitions(ctx context.Context, drive int) []*Partition {
	return nil
}
