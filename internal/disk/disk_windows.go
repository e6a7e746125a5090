//go:build windows

package disk

import (
	"context"
	"fmt"

	"github.com/StackExchange/wmi"
)

type win32DiskDrive struct {
	Index         uint32
	InterfaceType string
}

type win32DiskPartition struct {
	DeviceID string
}

type win32LogicalDisk struct {
	DeviceID   string
	FileSystem string
}

// enumerateDrives lists physical drive indices from Win32_DiskDrive
func enumerateDrives(ctx context.Context) ([]int, error) {
	var rows []win32DiskDrive
	if err := wmi.Query("SELECT Index, InterfaceType FROM Win32_DiskDrive", &rows); err != nil {
		return nil, fmt.Errorf("query Win32_DiskDrive: %w", err)
	}

	var drives []int
	for _, row := range rows {
		if row.InterfaceType == "USB" {
			continue
		}
		drives = append(drives, int(row.Index))
	}
	return drives, nil
}

// drivePartitions follows Win32_DiskPartition to the logical disks mounted on it
func drivePartitions(ctx context.Context, drive int) []*Partition {
	var partitions []win32DiskPartition
	q := fmt.Sprintf("SELECT DeviceID FROM Win32_DiskPartition WHERE DiskIndex = %d", drive)
	if err := wmi.Query(q, &partitions); err != nil {
		return nil
	}

	var out []*Partition
	for _, p := range partitions {
		var volumes []win32LogicalDisk
		q := fmt.Sprintf("ASSOCIATORS OF {Win32_DiskPartition.DeviceID='%s'} WHERE AssocClass = Win32_LogicalDiskToPartition", p.DeviceID)
		if err := wmi.Query(q, &volumes); err != nil {
			continue
		}
		for _, v := range volumes {
			if part, ok := usage(ctx, v.DeviceID, v.DeviceID+`\`, v.FileSystem); ok {
				out = append(out, part)
			}
		}
	}
	return out
}
