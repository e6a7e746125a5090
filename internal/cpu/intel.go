package cpu

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CristiGvl/picoRing0/internal/cpuid"
	"github.com/CristiGvl/picoRing0/internal/ring0"
	"github.com/CristiGvl/picoRing0/internal/sensor"
	"github.com/rs/zerolog"
)

// HardwareClass is the identifier prefix of sensors published by IntelCPU
const HardwareClass = "intelcpu"

const slopeFormula = "Temperature = TjMax - TSlope * Value."

// DefaultTSlope is the default scale of the digital thermal sensor readout
const DefaultTSlope float32 = 1

// IntelCPU samples temperature and clock registers of one Intel processor package
type IntelCPU struct {
	id          *cpuid.Identity
	port        ring0.Port
	sink        sensor.Sink
	logger      zerolog.Logger
	pause       func()
	calibration Calibration
	tscMHz      float64
	tscSet      bool

	coreTemperatures []*sensor.Sensor
	coreClocks       []*sensor.Sensor
	busClock         *sensor.Sensor
}

// Option configures an IntelCPU
type Option func(*IntelCPU)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *IntelCPU) { c.logger = logger }
}

// WithPause replaces the delay inserted before each core clock read
func WithPause(pause func()) Option {
	return func(c *IntelCPU) { c.pause = pause }
}

// WithTSCFrequency sets the time-stamp counter frequency in MHz instead of measuring it
func WithTSCFrequency(mhz float64) Option {
	return func(c *IntelCPU) {
		c.tscMHz = mhz
		c.tscSet = true
	}
}

// NewIntelCPU resolves the calibration of a processor package, creates its
// sensors, activates those backed by a capability and samples once.
func NewIntelCPU(id *cpuid.Identity, port ring0.Port, sink sensor.Sink, opts ...Option) *IntelCPU {
	c := &IntelCPU{
		id:     id,
		port:   ring0.Synchronized(port),
		sink:   sink,
		logger: zerolog.Nop(),
		pause:  func() { time.Sleep(time.Millisecond) },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", HardwareClass).Int("processor", id.Index).Logger()

	c.calibration = Resolve(id, c.port, c.logger)
	if !c.tscSet {
		c.tscMHz = DefaultTSCEstimator.Estimate(c.port, id)
	}

	if id.HasDTS {
		for i := range id.Cores {
			s := sensor.New(HardwareClass, id.Index, sensor.Temperature, i, coreName(i),
				sensor.ParameterDescription{
					Name:        "TjMax",
					Unit:        "°C",
					Description: "TjMax temperature of the core. " + slopeFormula,
					Default:     c.calibration.TjMax[i],
				},
				sensor.ParameterDescription{
					Name:        "TSlope",
					Unit:        "°C",
					Description: "Temperature slope of the digital thermal sensor. " + slopeFormula,
					Default:     DefaultTSlope,
				},
			)
			c.coreTemperatures = append(c.coreTemperatures, s)
			sink.Activate(s)
		}
	}

	if id.HasTSC {
		c.busClock = sensor.New(HardwareClass, id.Index, sensor.Clock, 0, "Bus Speed")
		for i := range id.Cores {
			s := sensor.New(HardwareClass, id.Index, sensor.Clock, i+1, coreName(i))
			c.coreClocks = append(c.coreClocks, s)
			sink.Activate(s)
		}
	}

	c.logger.Info().
		Str("name", id.Name).
		Stringer("microarchitecture", c.calibration.Microarchitecture).
		Int("cores", id.CoreCount()).
		Float64("tsc_mhz", c.tscMHz).
		Float64("tsc_multiplier", c.calibration.TSCMultiplier).
		Interface("tjmax", c.calibration.TjMax).
		Msg("processor calibrated")

	c.Update()
	return c
}

// NewIntelCPUs builds one engine per processor package. Every engine shares a
// single synchronized port, so reads directed at different packages never
// overlap.
func NewIntelCPUs(ids []*cpuid.Identity, port ring0.Port, sink sensor.Sink, opts ...Option) []*IntelCPU {
	shared := ring0.Synchronized(port)
	out := make([]*IntelCPU, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewIntelCPU(id, shared, sink, opts...))
	}
	return out
}

func coreName(i int) string {
	return "CPU Core #" + strconv.Itoa(i+1)
}

// Identity returns the processor identification
func (c *IntelCPU) Identity() *cpuid.Identity { return c.id }

// Calibration returns the constants resolved at construction
func (c *IntelCPU) Calibration() Calibration { return c.calibration }

// TSCFrequency returns the time-stamp counter frequency in MHz
func (c *IntelCPU) TSCFrequency() float64 { return c.tscMHz }

// CoreTemperatures returns the per-core temperature sensors, empty without a DTS
func (c *IntelCPU) CoreTemperatures() []*sensor.Sensor { return c.coreTemperatures }

// CoreClocks returns the per-core clock sensors, empty without a TSC
func (c *IntelCPU) CoreClocks() []*sensor.Sensor { return c.coreClocks }

// BusClock returns the shared bus clock sensor, nil without a TSC
func (c *IntelCPU) BusClock() *sensor.Sensor { return c.busClock }

// Update samples every core once
func (c *IntelCPU) Update() {
	c.sampleTemperatures()

	if !c.id.HasTSC {
		return
	}
	if bus := c.sampleClocks(); bus.valid {
		c.busClock.SetValue(float32(bus.clock))
		c.sink.Activate(c.busClock)
	}
}

func (c *IntelCPU) sampleTemperatures() {
	for i, s := range c.coreTemperatures {
		eax, _, ok := c.port.ReadMSR(ring0.IA32ThermStatus, c.id.Cores[i].Affinity)
		if !ok {
			c.logger.Trace().Int("core", i).Msg("IA32_THERM_STATUS unreadable")
			s.SetUnknown()
			continue
		}

		v, ok := Temperature(eax, s.Parameter("TjMax"), s.Parameter("TSlope"))
		if !ok {
			s.SetUnknown()
			continue
		}
		s.SetValue(v)
	}
}

// busSample accumulates the bus clock over one clock pass: the last nonzero
// value wins and valid records that one was seen.
type busSample struct {
	clock float64
	valid bool
}

func (b busSample) fold(clock float64) busSample {
	if clock > 0 {
		return busSample{clock: clock, valid: true}
	}
	return b
}

func (c *IntelCPU) sampleClocks() busSample {
	var bus busSample
	for i, s := range c.coreClocks {
		c.pause()

		if !c.calibration.Calibrated() {
			s.SetValue(float32(c.tscMHz))
			continue
		}

		eax, _, ok := c.port.ReadMSR(ring0.IA32PerfStatus, c.id.Cores[i].Affinity)
		if !ok {
			c.logger.Trace().Int("core", i).Msg("IA32_PERF_STATUS unreadable, reporting TSC frequency")
			s.SetValue(float32(c.tscMHz))
			continue
		}

		clock, busClock := CoreClock(c.calibration.Microarchitecture, eax, c.tscMHz, c.calibration.TSCMultiplier)
		s.SetValue(float32(clock))
		bus = bus.fold(busClock)
	}
	return bus
}

// CoreStatus is the latest sample of one core
type CoreStatus struct {
	Index       int      `json:"index"`
	TjMax       float32  `json:"tjmax"`
	Temperature *float32 `json:"temperature_c"`
	Clock       *float32 `json:"clock_mhz"`
}

// Status is the latest sample of the processor package
type Status struct {
	Index             int               `json:"index"`
	Name              string            `json:"name"`
	Family            uint32            `json:"family"`
	Model             uint32            `json:"model"`
	Stepping          uint32            `json:"stepping"`
	Microarchitecture Microarchitecture `json:"microarchitecture"`
	TSCFrequency      float64           `json:"tsc_mhz"`
	TSCMultiplier     float64           `json:"tsc_multiplier"`
	BusClock          *float32          `json:"bus_clock_mhz"`
	Cores             []CoreStatus      `json:"cores"`
}

// Status copies the current sensor values
func (c *IntelCPU) Status() Status {
	st := Status{
		Index:             c.id.Index,
		Name:              c.id.Name,
		Family:            c.id.Family,
		Model:             c.id.Model,
		Stepping:          c.id.Stepping,
		Microarchitecture: c.calibration.Microarchitecture,
		TSCFrequency:      c.tscMHz,
		TSCMultiplier:     c.calibration.TSCMultiplier,
		BusClock:          valueOf(c.busClock),
	}
	for i := range c.id.Cores {
		core := CoreStatus{Index: i, TjMax: c.calibration.TjMax[i]}
		if i < len(c.coreTemperatures) {
			core.TjMax = c.coreTemperatures[i].Parameter("TjMax")
			core.Temperature = valueOf(c.coreTemperatures[i])
		}
		if i < len(c.coreClocks) {
			core.Clock = valueOf(c.coreClocks[i])
		}
		st.Cores = append(st.Cores, core)
	}
	return st
}

func valueOf(s *sensor.Sensor) *float32 {
	if s == nil {
		return nil
	}
	if v, ok := s.Value(); ok {
		return &v
	}
	return nil
}

var reportRegisters = []uint32{
	ring0.MSRPlatformInfo,
	ring0.IA32PerfStatus,
	ring0.IA32ThermStatus,
	ring0.IA32TemperatureTarget,
}

// Report renders calibration data and a dump of the registers the engine reads
func (c *IntelCPU) Report() string {
	var r strings.Builder

	fmt.Fprintf(&r, "Intel CPU\r\n\r\n")
	fmt.Fprintf(&r, "Name: %s\r\n", c.id.Name)
	fmt.Fprintf(&r, "Family: 0x%X\r\n", c.id.Family)
	fmt.Fprintf(&r, "Model: 0x%X\r\n", c.id.Model)
	fmt.Fprintf(&r, "Stepping: 0x%X\r\n", c.id.Stepping)
	fmt.Fprintf(&r, "Microarchitecture: %s\r\n", c.calibration.Microarchitecture)
	fmt.Fprintf(&r, "Core Count: %d\r\n", c.id.CoreCount())
	fmt.Fprintf(&r, "Thread Count: %d\r\n", c.id.Threads)
	fmt.Fprintf(&r, "TSC Frequency: %s MHz\r\n", strconv.FormatFloat(c.tscMHz, 'f', 2, 64))
	fmt.Fprintf(&r, "Time Stamp Counter Multiplier: %s\r\n", strconv.FormatFloat(c.calibration.TSCMultiplier, 'f', -1, 64))
	for i, tj := range c.calibration.TjMax {
		fmt.Fprintf(&r, "TjMax Core #%d: %s\r\n", i+1, strconv.FormatFloat(float64(tj), 'f', -1, 32))
	}
	r.WriteString("\r\n")

	for i, core := range c.id.Cores {
		fmt.Fprintf(&r, "MSR Core #%d\r\n\r\n", i+1)
		r.WriteString(" MSR       EDX       EAX\r\n")
		for _, msr := range reportRegisters {
			eax, edx, ok := c.port.ReadMSR(msr, core.Affinity)
			if !ok {
				fmt.Fprintf(&r, " %08X  <failed>\r\n", msr)
				continue
			}
			fmt.Fprintf(&r, " %08X  %08X  %08X\r\n", msr, edx, eax)
		}
		r.WriteString("\r\n")
	}
	return r.String()
}
