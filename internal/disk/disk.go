// Package disk reports ATA drive health from SMART and publishes drive
// temperatures as sensors.
package disk

import (
	"context"
	"fmt"
	"sync"

	"github.com/CristiGvl/picoRing0/internal/sensor"
	"github.com/CristiGvl/picoRing0/internal/smart"
	"github.com/rs/zerolog"
)

// HardwareClass is the identifier prefix of drive sensors
const HardwareClass = "hdd"

// Attribute is one SMART attribute joined with its threshold
type Attribute struct {
	ID        byte   `json:"id"`
	Name      string `json:"name"`
	Flags     uint16 `json:"flags"`
	Value     byte   `json:"value"`
	Worst     byte   `json:"worst"`
	Threshold byte   `json:"threshold"`
	Raw       uint64 `json:"raw"`
	Failing   bool   `json:"failing"`
}

// Partition represents a mounted filesystem on a drive
type Partition struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Filesystem string  `json:"filesystem"`
	Total      uint64  `json:"total_mb"`
	Used       uint64  `json:"used_mb"`
	Available  uint64  `json:"available_mb"`
	Usage      float64 `json:"usage_percent"`
}

// Info represents the health of one drive
type Info struct {
	Index             int            `json:"index"`
	Device            string         `json:"device"`
	Model             string         `json:"model"`
	Serial            string         `json:"serial,omitempty"`
	Firmware          string         `json:"firmware,omitempty"`
	SMART             bool           `json:"smart"`
	Driver            *smart.Version `json:"driver,omitempty"`
	ThresholdExceeded *bool          `json:"threshold_exceeded"`
	Temperature       *float32       `json:"temperature_celsius"`
	Attributes        []Attribute    `json:"attributes"`
	Partitions        []*Partition   `json:"partitions"`
}

// Reader interface for disk monitoring
type Reader interface {
	GetInfo(ctx context.Context) ([]*Info, error)
}

// NoDrives is the reader used when SMART access is unavailable
type NoDrives struct{}

// GetInfo returns an empty drive list
func (NoDrives) GetInfo(context.Context) ([]*Info, error) { return []*Info{}, nil }

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithDrives restricts the monitor to the given drive indices instead of enumerating
func WithDrives(indices ...int) Option {
	return func(m *Monitor) {
		if len(indices) > 0 {
			m.fixed = append([]int(nil), indices...)
		}
	}
}

// Monitor polls drives through a SMART client and keeps the latest results
type Monitor struct {
	client     *smart.Client
	sink       sensor.Sink
	logger     zerolog.Logger
	fixed      []int
	enumerate  func(ctx context.Context) ([]int, error)
	partitions func(ctx context.Context, drive int) []*Partition

	pollMu       sync.Mutex
	mu           sync.RWMutex
	last         []*Info
	updated      bool
	temperatures map[int]*sensor.Sensor
}

// NewMonitor creates a drive monitor for the current platform
func NewMonitor(client *smart.Client, sink sensor.Sink, opts ...Option) *Monitor {
	m := &Monitor{
		client:       client,
		sink:         sink,
		logger:       zerolog.Nop(),
		enumerate:    enumerateDrives,
		partitions:   drivePartitions,
		temperatures: map[int]*sensor.Sensor{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", HardwareClass).Logger()
	return m
}

// GetInfo returns the latest drive results, polling once if none exist yet
func (m *Monitor) GetInfo(ctx context.Context) ([]*Info, error) {
	m.mu.RLock()
	last, updated := m.last, m.updated
	m.mu.RUnlock()
	if updated {
		return last, nil
	}
	if err := m.Update(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, nil
}

// Update polls every drive once
func (m *Monitor) Update(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	drives := m.fixed
	if drives == nil {
		var err error
		drives, err = m.enumerate(ctx)
		if err != nil {
			return fmt.Errorf("enumerate drives: %w", err)
		}
	}

	infos := make([]*Info, 0, len(drives))
	for _, drive := range drives {
		if err := ctx.Err(); err != nil {
			return err
		}
		info := m.poll(drive)
		info.Partitions = m.partitions(ctx, drive)
		infos = append(infos, info)
	}

	m.mu.Lock()
	m.last = infos
	m.updated = true
	m.mu.Unlock()
	return nil
}

// poll runs the SMART command sequence against one drive
func (m *Monitor) poll(drive int) *Info {
	info := &Info{Index: drive, Attributes: []Attribute{}}
	if path, ok := smart.DevicePath(drive); ok {
		info.Device = path
	}

	h := m.client.Open(drive)
	if h == smart.InvalidHandle {
		m.setTemperature(drive, nil)
		return info
	}
	defer m.client.Close(h)

	if v, ok := m.client.ReadVersion(h); ok {
		info.Driver = &v
	}
	enabled := m.client.Enable(h, drive)
	if id, ok := m.client.ReadIdentify(h, drive); ok {
		info.Model, info.Serial, info.Firmware = id.Model, id.Serial, id.Firmware
	}

	if !enabled {
		m.logger.Debug().Int("drive", drive).Msg("SMART enable failed")
		m.setTemperature(drive, nil)
		return info
	}

	attrs := m.client.ReadData(h, drive)
	if len(attrs) == 0 {
		m.setTemperature(drive, nil)
		return info
	}
	info.SMART = true
	info.Attributes = joinThresholds(attrs, m.client.ReadThresholds(h, drive))

	if exceeded, ok := m.client.ReadStatus(h, drive); ok {
		info.ThresholdExceeded = &exceeded
	}
	if t, ok := Temperature(attrs); ok {
		info.Temperature = &t
		m.setTemperature(drive, &t)
	} else {
		m.setTemperature(drive, nil)
	}
	return info
}

// setTemperature publishes a drive temperature; the sensor is created and
// activated the first time a value is known.
func (m *Monitor) setTemperature(drive int, t *float32) {
	s, ok := m.temperatures[drive]
	if t == nil {
		if ok {
			s.SetUnknown()
		}
		return
	}
	if !ok {
		s = sensor.New(HardwareClass, drive, sensor.Temperature, 0, "Temperature")
		m.temperatures[drive] = s
	}
	s.SetValue(*t)
	m.sink.Activate(s)
}

func joinThresholds(attrs []smart.AttributeValue, thresholds []smart.ThresholdValue) []Attribute {
	byID := make(map[byte]byte, len(thresholds))
	for _, t := range thresholds {
		byID[t.ID] = t.Threshold
	}

	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		threshold := byID[a.ID]
		out = append(out, Attribute{
			ID:        a.ID,
			Name:      smart.AttributeName(a.ID),
			Flags:     a.Flags,
			Value:     a.Value,
			Worst:     a.Worst,
			Threshold: threshold,
			Raw:       a.RawValue(),
			Failing:   threshold != 0 && a.Value <= threshold,
		})
	}
	return out
}

// Temperature extracts the drive temperature from raw byte 0 of attribute
// 0xC2, or of 0xBE when the drive only reports airflow temperature.
func Temperature(attrs []smart.AttributeValue) (float32, bool) {
	for _, id := range []byte{smart.Temperature, smart.AirflowTemperature} {
		for _, a := range attrs {
			if a.ID == id && a.Raw[0] != 0 {
				return float32(a.Raw[0]), true
			}
		}
	}
	return 0, false
}
