package cpu

import (
	"github.com/CristiGvl/picoRing0/internal/cpuid"
	"github.com/CristiGvl/picoRing0/internal/ring0"
	"github.com/rs/zerolog"
)

// Microarchitecture represents an Intel core generation the decoders know
type Microarchitecture int

const (
	Unknown Microarchitecture = iota
	Core
	Atom
	Nehalem
	SandyBridge
)

var microarchitectureNames = map[Microarchitecture]string{
	Unknown:     "Unknown",
	Core:        "Core",
	Atom:        "Atom",
	Nehalem:     "Nehalem",
	SandyBridge: "SandyBridge",
}

func (m Microarchitecture) String() string {
	if name, ok := microarchitectureNames[m]; ok {
		return name
	}
	return microarchitectureNames[Unknown]
}

// MarshalText renders the microarchitecture by name
func (m Microarchitecture) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// DefaultTjMax is used whenever the junction ceiling cannot be determined
const DefaultTjMax float32 = 100

// TjMaxSource tells the resolver where a core's TjMax comes from: a constant,
// or IA32_TEMPERATURE_TARGET read on that core.
type TjMaxSource struct {
	FromRegister bool
	Value        float32
}

// Static returns a constant TjMax source
func Static(v float32) TjMaxSource { return TjMaxSource{Value: v} }

// FromRegister resolves TjMax per core from IA32_TEMPERATURE_TARGET
var FromRegister = TjMaxSource{FromRegister: true}

// AnyStepping and AnyCores are wildcards in a Rule key
const (
	AnyStepping = -1
	AnyCores    = 0
)

// Rule maps an identification key to a microarchitecture and TjMax source.
// A rule with a concrete stepping or core count is more specific than one
// using the wildcard, and the most specific matching rule wins.
type Rule struct {
	Family   uint32
	Model    uint32
	Stepping int
	Cores    int
	Arch     Microarchitecture
	TjMax    TjMaxSource
	Part     string
}

func (r Rule) matches(family, model, stepping uint32, cores int) bool {
	if r.Family != family || r.Model != model {
		return false
	}
	if r.Stepping != AnyStepping && uint32(r.Stepping) != stepping {
		return false
	}
	return r.Cores == AnyCores || r.Cores == cores
}

func (r Rule) specificity() int {
	n := 0
	if r.Stepping != AnyStepping {
		n += 2
	}
	if r.Cores != AnyCores {
		n++
	}
	return n
}

// Rules is the calibration matrix. TjMax constants for Core and Atom parts
// are the datasheet Tjunction plus the 10 °C offset the DTS reports against.
var Rules = []Rule{
	{0x06, 0x0F, 0x06, 2, Core, Static(80 + 10), "Core 2 (65nm) B2, dual core"},
	{0x06, 0x0F, 0x06, 4, Core, Static(90 + 10), "Core 2 (65nm) B2, quad core"},
	{0x06, 0x0F, 0x06, AnyCores, Core, Static(85 + 10), "Core 2 (65nm) B2"},
	{0x06, 0x0F, 0x0B, AnyCores, Core, Static(90 + 10), "Core 2 (65nm) G0"},
	{0x06, 0x0F, 0x0D, AnyCores, Core, Static(85 + 10), "Core 2 (65nm) M0"},
	{0x06, 0x0F, AnyStepping, AnyCores, Core, Static(85 + 10), "Core 2 (65nm)"},
	{0x06, 0x17, AnyStepping, AnyCores, Core, Static(100), "Core 2 (45nm)"},

	{0x06, 0x1C, 0x02, AnyCores, Atom, Static(90), "Atom (45nm) C0"},
	{0x06, 0x1C, 0x0A, AnyCores, Atom, Static(100), "Atom (45nm) A0, B0"},
	{0x06, 0x1C, AnyStepping, AnyCores, Atom, Static(90), "Atom (45nm)"},

	{0x06, 0x1A, AnyStepping, AnyCores, Nehalem, FromRegister, "Core i7 LGA1366 (45nm)"},
	{0x06, 0x1E, AnyStepping, AnyCores, Nehalem, FromRegister, "Core i5, i7 LGA1156 (45nm)"},
	{0x06, 0x1F, AnyStepping, AnyCores, Nehalem, FromRegister, "Core i5, i7"},
	{0x06, 0x25, AnyStepping, AnyCores, Nehalem, FromRegister, "Core i3, i5, i7 LGA1156 (32nm)"},
	{0x06, 0x2C, AnyStepping, AnyCores, Nehalem, FromRegister, "Core i7 LGA1366 (32nm) 6 core"},
	{0x06, 0x2E, AnyStepping, AnyCores, Nehalem, FromRegister, "Xeon 7500"},

	{0x06, 0x2A, AnyStepping, AnyCores, SandyBridge, FromRegister, "Core i5, i7 2xxx LGA1155 (32nm)"},
	{0x06, 0x2D, AnyStepping, AnyCores, SandyBridge, FromRegister, "Xeon E5 (Sandy Bridge-EP)"},
}

// unknownRule is the fallback for identification data with no matching rule
var unknownRule = Rule{Stepping: AnyStepping, Cores: AnyCores, Arch: Unknown, TjMax: Static(DefaultTjMax), Part: "unknown"}

// Lookup returns the most specific rule matching the key. Unmatched keys
// yield the Unknown rule with the default ceiling; ok reports a real match.
func Lookup(family, model, stepping uint32, cores int) (Rule, bool) {
	best, found := unknownRule, false
	for _, r := range Rules {
		if !r.matches(family, model, stepping, cores) {
			continue
		}
		if !found || r.specificity() > best.specificity() {
			best, found = r, true
		}
	}
	return best, found
}

// Calibration holds the constants resolved once per processor
type Calibration struct {
	Microarchitecture Microarchitecture `json:"microarchitecture"`
	TjMax             []float32         `json:"tjmax"`
	// TSCMultiplier is the time-stamp-counter to bus clock ratio; 0 means
	// the ratio could not be read and clocks cannot be derived from it.
	TSCMultiplier float64 `json:"tsc_multiplier"`
}

// Calibrated reports whether a usable TSC multiplier was resolved
func (c Calibration) Calibrated() bool {
	return c.TSCMultiplier > 0
}

// Resolve classifies the processor and computes its calibration table.
// It never fails: unreadable registers fall back per core.
func Resolve(id *cpuid.Identity, port ring0.Port, logger zerolog.Logger) Calibration {
	rule, known := Lookup(id.Family, id.Model, id.Stepping, id.CoreCount())
	if !known {
		logger.Debug().
			Uint32("family", id.Family).
			Uint32("model", id.Model).
			Uint32("stepping", id.Stepping).
			Msg("no calibration rule, using defaults")
	}

	return Calibration{
		Microarchitecture: rule.Arch,
		TjMax:             resolveTjMax(rule.TjMax, id.Cores, port, logger),
		TSCMultiplier:     resolveTSCMultiplier(rule.Arch, id.Cores, port, logger),
	}
}

func resolveTjMax(source TjMaxSource, cores []cpuid.Core, port ring0.Port, logger zerolog.Logger) []float32 {
	tjMax := make([]float32, len(cores))
	for i, core := range cores {
		if !source.FromRegister {
			tjMax[i] = validTjMax(source.Value)
			continue
		}

		eax, _, ok := port.ReadMSR(ring0.IA32TemperatureTarget, core.Affinity)
		if !ok {
			logger.Debug().Int("core", core.Index).Msg("IA32_TEMPERATURE_TARGET unreadable, assuming default TjMax")
			tjMax[i] = DefaultTjMax
			continue
		}
		tjMax[i] = validTjMax(decodeTjMax(eax))
	}
	return tjMax
}

func validTjMax(v float32) float32 {
	if v > 0 {
		return v
	}
	return DefaultTjMax
}

// resolveTSCMultiplier reads the maximum non-turbo ratio. Core and Atom expose
// it in IA32_PERF_STATUS, Nehalem and Sandy Bridge in MSR_PLATFORM_INFO.
func resolveTSCMultiplier(arch Microarchitecture, cores []cpuid.Core, port ring0.Port, logger zerolog.Logger) float64 {
	var affinity uint64
	if len(cores) > 0 {
		affinity = cores[0].Affinity
	}

	switch arch {
	case Core, Atom:
		_, edx, ok := port.ReadMSR(ring0.IA32PerfStatus, affinity)
		if !ok {
			logger.Debug().Msg("IA32_PERF_STATUS unreadable, TSC multiplier uncalibrated")
			return 0
		}
		return perfStatusTSCMultiplier(edx)
	case Nehalem, SandyBridge:
		eax, _, ok := port.ReadMSR(ring0.MSRPlatformInfo, affinity)
		if !ok {
			logger.Debug().Msg("MSR_PLATFORM_INFO unreadable, TSC multiplier uncalibrated")
			return 0
		}
		return platformInfoTSCMultiplier(eax)
	default:
		return 1
	}
}
