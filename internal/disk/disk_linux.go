//go:build linux

package disk

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

var ataDevice = regexp.MustCompile(`^sd([a-z])$`)

// enumerateDrives lists /dev/sd[a-z] block devices known to the kernel
func enumerateDrives(ctx context.Context) ([]int, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var drives []int
	for name := range counters {
		if m := ataDevice.FindStringSubmatch(name); m != nil {
			drives = append(drives, int(m[1][0]-'a'))
		}
	}
	sort.Ints(drives)
	return drives, nil
}

// drivePartitions returns the mounted partitions of /dev/sdX
func drivePartitions(ctx context.Context, drive int) []*Partition {
	if drive < 0 || drive >= 26 {
		return nil
	}
	prefix := "/dev/sd" + string(rune('a'+drive))

	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil
	}

	var out []*Partition
	for _, p := range partitions {
		if !strings.HasPrefix(p.Device, prefix) {
			continue
		}
		if part, ok := usage(ctx, p.Device, p.Mountpoint, p.Fstype); ok {
			out = append(out, part)
		}
	}
	return out
}
