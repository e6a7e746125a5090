// Package temps groups temperature readings by source: processor registers,
// drive SMART data and whatever the operating system exposes.
package temps

import (
	"context"
	"strings"

	"github.com/CristiGvl/picoRing0/internal/cpu"
	"github.com/CristiGvl/picoRing0/internal/disk"
	"github.com/CristiGvl/picoRing0/internal/sensor"
)

// Sensor represents a temperature sensor
type Sensor struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Temperature float64 `json:"temperature_celsius"`
	Critical    float64 `json:"critical_celsius,omitempty"`
	Max         float64 `json:"max_celsius,omitempty"`
}

// Info represents temperature information
type Info struct {
	CPU    []*Sensor `json:"cpu"`
	System []*Sensor `json:"system"`
	Drives []*Sensor `json:"drives"`
}

// Reader interface for temperature monitoring
type Reader interface {
	GetInfo(ctx context.Context) (*Info, error)
}

// NewReader creates a temperature reader over the sensor registry and the
// platform's own thermal sources.
func NewReader(registry *sensor.Registry) Reader {
	return &reader{registry: registry, system: systemSensors}
}

type reader struct {
	registry *sensor.Registry
	system   func(ctx context.Context) ([]*Sensor, error)
}

// GetInfo returns temperature information. Platform sources that fail are
// left out; register and drive sensors are always reported.
func (r *reader) GetInfo(ctx context.Context) (*Info, error) {
	info := &Info{
		CPU:    fromRegistry(r.registry, cpu.HardwareClass, "TjMax"),
		System: []*Sensor{},
		Drives: fromRegistry(r.registry, disk.HardwareClass, ""),
	}

	system, err := r.system(ctx)
	if err != nil && len(info.CPU) == 0 && len(info.Drives) == 0 {
		return nil, err
	}
	registerCPU := len(r.registry.Select(cpu.HardwareClass, sensor.Temperature)) > 0
	for _, s := range system {
		key := strings.ToLower(s.Name)
		switch {
		case containsAny(key, "cpu", "core", "processor", "package", "k10temp"):
			// register readings take precedence over the OS view of the same die
			if !registerCPU {
				info.CPU = append(info.CPU, s)
			}
		case containsAny(key, "drive", "disk", "nvme", "sda", "sdb", "storage"):
			info.Drives = append(info.Drives, s)
		default:
			info.System = append(info.System, s)
		}
	}
	return info, nil
}

// fromRegistry lists known temperature values of one hardware class. When
// critical names a parameter, its value is reported as the critical limit.
func fromRegistry(registry *sensor.Registry, hardware, critical string) []*Sensor {
	out := []*Sensor{}
	for _, s := range registry.Select(hardware, sensor.Temperature) {
		v, ok := s.Value()
		if !ok {
			continue
		}
		entry := &Sensor{
			Name:        s.ID(),
			Label:       s.Name(),
			Temperature: float64(v),
		}
		if critical != "" {
			entry.Critical = float64(s.Parameter(critical))
		}
		out = append(out, entry)
	}
	return out
}

func containsAny(str string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(str, substr) {
			return true
		}
	}
	return false
}
