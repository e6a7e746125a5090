// Package platform reports what the host can offer the register readers.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// SupportedOS represents supported operating systems
type SupportedOS string

const (
	Linux   SupportedOS = "linux"
	Windows SupportedOS = "windows"
)

// GetOS returns the current operating system
func GetOS() SupportedOS {
	return SupportedOS(runtime.GOOS)
}

// IsSupported returns true if the current OS has register and SMART backends
func IsSupported() bool {
	os := GetOS()
	return os == Linux || os == Windows
}

// ValidateSupport returns an error if the current OS is not supported
func ValidateSupport() error {
	if !IsSupported() {
		return fmt.Errorf("unsupported operating system: %s. Supported: linux, windows", runtime.GOOS)
	}
	return nil
}

// Info describes the host the monitor runs on
type Info struct {
	OS           SupportedOS `json:"os"`
	Arch         string      `json:"arch"`
	Hostname     string      `json:"hostname"`
	Platform     string      `json:"platform"`
	Version      string      `json:"platform_version"`
	Kernel       string      `json:"kernel_version"`
	Uptime       uint64      `json:"uptime_seconds"`
	Privileged   bool        `json:"privileged"`
	Virtualized  bool        `json:"virtualized"`
	Virtualizing string      `json:"virtualization_system,omitempty"`
}

// GetInfo gathers host details. Model-specific registers are rarely exposed
// to guests, so the virtualization role is reported alongside privilege.
func GetInfo(ctx context.Context) (*Info, error) {
	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}
	return &Info{
		OS:           GetOS(),
		Arch:         runtime.GOARCH,
		Hostname:     stat.Hostname,
		Platform:     stat.Platform,
		Version:      stat.PlatformVersion,
		Kernel:       stat.KernelVersion,
		Uptime:       stat.Uptime,
		Privileged:   IsPrivileged(),
		Virtualized:  stat.VirtualizationRole == "guest",
		Virtualizing: stat.VirtualizationSystem,
	}, nil
}
