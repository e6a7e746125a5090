package disk

import (
	"context"
	"errors"
	"testing"

	"github.com/CristiGvl/picoRing0/internal/sensor"
	"github.com/CristiGvl/picoRing0/internal/smart"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrive struct {
	id         smart.Identify
	enable     bool
	exceeded   bool
	attrs      []smart.AttributeValue
	thresholds []smart.ThresholdValue
}

// fakeDevices answers pass-through envelopes from in-memory drives
type fakeDevices struct {
	drives  map[int]*fakeDrive
	version *smart.Version
	closed  int
}

func (f *fakeDevices) Open(drive int) smart.Handle {
	if _, ok := f.drives[drive]; !ok {
		return smart.InvalidHandle
	}
	return smart.Handle(100 + drive)
}

func (f *fakeDevices) Close(smart.Handle) { f.closed++ }

func (f *fakeDevices) Control(h smart.Handle, code smart.ControlCode, request []byte, size int) ([]byte, bool) {
	if code == smart.GetVersion {
		if f.version == nil {
			return nil, false
		}
		return smart.EncodeVersion(*f.version), true
	}
	d := f.drives[int(h)-100]
	p, ok := smart.DecodeCommand(request)
	if d == nil || !ok {
		return nil, false
	}
	respond := func(payload []byte) ([]byte, bool) {
		return smart.NewResult(size, smart.DriverStatus{}, payload), true
	}

	regs := p.Registers
	switch {
	case smart.Command(regs.Command) == smart.IdentifyCommand:
		return respond(smart.EncodeIdentify(d.id))
	case code == smart.SendDriveCommand && smart.Feature(regs.Features) == smart.EnableOperations:
		if !d.enable {
			return nil, false
		}
		return respond(nil)
	case code == smart.SendDriveCommand && smart.Feature(regs.Features) == smart.ReturnStatus:
		mid, hi := byte(0x4F), byte(0xC2)
		if d.exceeded {
			mid, hi = 0xF4, 0x2C
		}
		return respond([]byte{0xDA, 0, 0, mid, hi, 0, 0xB0, 0})
	case smart.Feature(regs.Features) == smart.ReadData:
		return respond(smart.EncodeAttributes(0x10, d.attrs))
	case smart.Feature(regs.Features) == smart.ReadThresholds:
		return respond(smart.EncodeThresholds(0x10, d.thresholds))
	}
	return nil, false
}

func raw(b0 byte) [6]byte { return [6]byte{b0} }

func newTestMonitor(devices *fakeDevices, reg *sensor.Registry, opts ...Option) *Monitor {
	client := smart.NewClient(devices, zerolog.Nop())
	m := NewMonitor(client, reg, opts...)
	m.partitions = func(context.Context, int) []*Partition { return nil }
	return m
}

func TestUpdate(t *testing.T) {
	devices := &fakeDevices{drives: map[int]*fakeDrive{
		0: {
			id:     smart.Identify{Model: "ST31000524AS", Serial: "9VPC1234", Firmware: "JC45"},
			enable: true,
			attrs: []smart.AttributeValue{
				{ID: 0x05, Value: 30, Worst: 30, Raw: raw(200)},
				{ID: 0xC2, Value: 38, Worst: 52, Raw: raw(38)},
			},
			thresholds: []smart.ThresholdValue{{ID: 0x05, Threshold: 36}},
		},
		1: {id: smart.Identify{Model: "VBOX HARDDISK"}},
	}}
	reg := sensor.NewRegistry()
	m := newTestMonitor(devices, reg, WithDrives(0, 1, 2))

	require.NoError(t, m.Update(context.Background()))
	infos, err := m.GetInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)

	healthy := infos[0]
	assert.True(t, healthy.SMART)
	assert.Equal(t, "ST31000524AS", healthy.Model)
	assert.Equal(t, "9VPC1234", healthy.Serial)
	require.NotNil(t, healthy.ThresholdExceeded)
	assert.False(t, *healthy.ThresholdExceeded)
	require.NotNil(t, healthy.Temperature)
	assert.Equal(t, float32(38), *healthy.Temperature)
	require.Len(t, healthy.Attributes, 2)
	assert.Equal(t, Attribute{ID: 0x05, Name: "Reallocated Sectors Count", Value: 30, Worst: 30, Threshold: 36, Raw: 200, Failing: true}, healthy.Attributes[0])
	assert.False(t, healthy.Attributes[1].Failing)

	noSMART := infos[1]
	assert.False(t, noSMART.SMART)
	assert.Equal(t, "VBOX HARDDISK", noSMART.Model)
	assert.Empty(t, noSMART.Attributes)
	assert.Nil(t, noSMART.Temperature)

	missing := infos[2]
	assert.False(t, missing.SMART)
	assert.Empty(t, missing.Model)

	assert.Equal(t, 2, devices.closed)

	s, ok := reg.Get("/hdd/0/temperature/0")
	require.True(t, ok)
	v, ok := s.Value()
	require.True(t, ok)
	assert.Equal(t, float32(38), v)
	assert.False(t, reg.IsActive("/hdd/1/temperature/0"))
}

func TestTemperatureBecomesUnknownWhenDriveStopsReporting(t *testing.T) {
	drive := &fakeDrive{enable: true, attrs: []smart.AttributeValue{{ID: 0xC2, Value: 40, Raw: raw(40)}}}
	devices := &fakeDevices{drives: map[int]*fakeDrive{0: drive}}
	reg := sensor.NewRegistry()
	m := newTestMonitor(devices, reg, WithDrives(0))

	require.NoError(t, m.Update(context.Background()))
	s, ok := reg.Get("/hdd/0/temperature/0")
	require.True(t, ok)

	drive.enable = false
	require.NoError(t, m.Update(context.Background()))
	_, ok = s.Value()
	assert.False(t, ok)
	assert.True(t, reg.IsActive(s.ID()))
}

func TestEnumeration(t *testing.T) {
	devices := &fakeDevices{drives: map[int]*fakeDrive{}}
	m := newTestMonitor(devices, sensor.NewRegistry())
	m.enumerate = func(context.Context) ([]int, error) { return []int{3}, nil }

	infos, err := m.GetInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 3, infos[0].Index)

	m = newTestMonitor(devices, sensor.NewRegistry())
	m.enumerate = func(context.Context) ([]int, error) { return nil, errors.New("boom") }
	_, err = m.GetInfo(context.Background())
	assert.ErrorContains(t, err, "enumerate drives")
}

func TestUpdateHonoursCancellation(t *testing.T) {
	devices := &fakeDevices{drives: map[int]*fakeDrive{0: {enable: true}}}
	m := newTestMonitor(devices, sensor.NewRegistry(), WithDrives(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Update(ctx), context.Canceled)
}

func TestTemperature(t *testing.T) {
	_, ok := Temperature(nil)
	assert.False(t, ok)

	v, ok := Temperature([]smart.AttributeValue{{ID: 0xBE, Raw: raw(31)}})
	require.True(t, ok)
	assert.Equal(t, float32(31), v)

	v, ok = Temperature([]smart.AttributeValue{{ID: 0xBE, Raw: raw(31)}, {ID: 0xC2, Raw: raw(35)}})
	require.True(t, ok)
	assert.Equal(t, float32(35), v)
}

func TestNoDrives(t *testing.T) {
	infos, err := NoDrives{}.GetInfo(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestDriverVersion(t *testing.T) {
	version := smart.Version{Version: 1, Revision: 1, IDEDeviceMap: 0x01, Capabilities: 0x07}
	devices := &fakeDevices{
		drives:  map[int]*fakeDrive{0: {enable: true}},
		version: &version,
	}
	m := newTestMonitor(devices, sensor.NewRegistry(), WithDrives(0, 1))

	infos, err := m.GetInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.NotNil(t, infos[0].Driver)
	assert.Equal(t, version, *infos[0].Driver)
	assert.Nil(t, infos[1].Driver, "drive that does not open has no handle to query")

	devices.version = nil
	require.NoError(t, m.Update(context.Background()))
	infos, err = m.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Nil(t, infos[0].Driver)
}
