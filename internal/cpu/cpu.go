// Package cpu classifies Intel processors, decodes their thermal and clock
// registers and reports host CPU load alongside the decoded values.
package cpu

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Info represents CPU information
type Info struct {
	Model      string   `json:"model"`
	Cores      int      `json:"cores"`
	Threads    int      `json:"threads"`
	Usage      float64  `json:"usage_percent"`
	Frequency  float64  `json:"frequency_mhz"`
	Processors []Status `json:"processors,omitempty"`
}

// Reader interface for CPU monitoring
type Reader interface {
	GetInfo(ctx context.Context) (*Info, error)
	GetUsage(ctx context.Context) (float64, error)
}

// NewReader creates a CPU reader that merges host load with the sampled
// state of the given processors.
func NewReader(processors ...*IntelCPU) Reader {
	return &hostReader{processors: processors, sampleWindow: time.Second}
}

type hostReader struct {
	processors   []*IntelCPU
	sampleWindow time.Duration
}

// GetInfo returns CPU information
func (r *hostReader) GetInfo(ctx context.Context) (*Info, error) {
	stats, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cpu info: %w", err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("read cpu info: no processors reported")
	}

	threads, err := cpu.CountsWithContext(ctx, true)
	if err != nil || threads == 0 {
		threads = len(stats)
	}
	cores, err := cpu.CountsWithContext(ctx, false)
	if err != nil || cores == 0 {
		cores = threads
	}

	usage, err := r.GetUsage(ctx)
	if err != nil {
		usage = 0
	}

	info := &Info{
		Model:     stats[0].ModelName,
		Cores:     cores,
		Threads:   threads,
		Usage:     usage,
		Frequency: platformFrequency(ctx, stats),
	}
	for _, p := range r.processors {
		info.Processors = append(info.Processors, p.Status())
	}
	return info, nil
}

// GetUsage returns CPU usage percentage
func (r *hostReader) GetUsage(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, r.sampleWindow, false)
	if err != nil {
		return 0, fmt.Errorf("sample cpu usage: %w", err)
	}
	if len(percentages) == 0 {
		return 0, nil
	}
	return percentages[0], nil
}
