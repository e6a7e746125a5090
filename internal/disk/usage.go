package disk

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

const mb = 1024 * 1024

// usage reads filesystem usage of a mounted partition
func usage(ctx context.Context, device, mountpoint, fstype string) (*Partition, bool) {
	u, err := disk.UsageWithContext(ctx, mountpoint)
	if err != nil {
		return nil, false
	}
	return &Partition{
		Device:     device,
		Mountpoint: mountpoint,
		Filesystem: fstype,
		Total:      u.Total / mb,
		Used:       u.Used / mb,
		Available:  u.Free / mb,
		Usage:      u.UsedPercent,
	}, true
}
