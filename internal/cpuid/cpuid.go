// Package cpuid enumerates installed processors and reports, per package,
// the identification data the register decoders are keyed on.
package cpuid

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/CristiGvl/picoRing0/internal/ring0"
	"github.com/shirou/gopsutil/v3/cpu"
)

// VendorIntel is the CPUID vendor string of Intel processors
const VendorIntel = "GenuineIntel"

// ErrNoProcessors is returned when enumeration yields nothing
var ErrNoProcessors = errors.New("cpuid: no processors enumerated")

// Core identifies one physical core by the first logical processor running on it
type Core struct {
	Index    int    `json:"index"`
	Thread   int    `json:"thread"`
	Affinity uint64 `json:"affinity"`
}

// Identity is the immutable identification of one processor package
type Identity struct {
	Index      int     `json:"index"`
	Vendor     string  `json:"vendor"`
	Name       string  `json:"name"`
	Family     uint32  `json:"family"`
	Model      uint32  `json:"model"`
	Stepping   uint32  `json:"stepping"`
	Threads    int     `json:"threads"`
	Cores      []Core  `json:"cores"`
	HasDTS     bool    `json:"has_dts"`
	HasTSC     bool    `json:"has_tsc"`
	NominalMHz float64 `json:"nominal_mhz"`
}

// CoreCount returns the number of physical cores
func (id *Identity) CoreCount() int {
	return len(id.Cores)
}

// IsIntel reports whether the package is an Intel processor
func (id *Identity) IsIntel() bool {
	return id.Vendor == VendorIntel
}

// Detect enumerates all processor packages of the current machine
func Detect(ctx context.Context) ([]*Identity, error) {
	return detectPlatform(ctx)
}

// DecodeSignature splits the CPUID leaf 1 EAX signature into display family,
// display model and stepping, folding in the extended fields.
func DecodeSignature(eax uint32) (family, model, stepping uint32) {
	stepping = eax & 0x0F
	model = (eax >> 4) & 0x0F
	family = (eax >> 8) & 0x0F

	if family == 0x0F {
		family += (eax >> 20) & 0xFF
	}
	if family == 0x06 || family >= 0x0F {
		model += ((eax >> 16) & 0x0F) << 4
	}
	return family, model, stepping
}

var nominalFrequency = regexp.MustCompile(`@\s*([0-9]+(?:\.[0-9]+)?)\s*GHz`)

// parseNominalMHz extracts the rated frequency from a brand string such as
// "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz".
func parseNominalMHz(name string) (float64, bool) {
	m := nominalFrequency.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	ghz, err := strconv.ParseFloat(m[1], 64)
	if err != nil || ghz <= 0 {
		return 0, false
	}
	return ghz * 1000, true
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// fromInfoStats groups gopsutil per-thread records into packages and cores.
// The first thread seen for a (package, core) pair addresses that core.
func fromInfoStats(stats []cpu.InfoStat) ([]*Identity, error) {
	if len(stats) == 0 {
		return nil, ErrNoProcessors
	}

	sorted := make([]cpu.InfoStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CPU < sorted[j].CPU })

	var packages []*Identity
	byPhysical := map[string]*Identity{}
	seenCores := map[string]map[string]bool{}

	for _, stat := range sorted {
		id, ok := byPhysical[stat.PhysicalID]
		if !ok {
			family, _ := strconv.ParseUint(strings.TrimSpace(stat.Family), 10, 32)
			model, _ := strconv.ParseUint(strings.TrimSpace(stat.Model), 10, 32)

			id = &Identity{
				Index:    len(packages),
				Vendor:   stat.VendorID,
				Name:     strings.TrimSpace(stat.ModelName),
				Family:   uint32(family),
				Model:    uint32(model),
				Stepping: uint32(stat.Stepping),
				HasDTS:   hasFlag(stat.Flags, "dts"),
				HasTSC:   hasFlag(stat.Flags, "tsc"),
			}
			if mhz, ok := parseNominalMHz(id.Name); ok {
				id.NominalMHz = mhz
			} else {
				id.NominalMHz = stat.Mhz
			}

			packages = append(packages, id)
			byPhysical[stat.PhysicalID] = id
			seenCores[stat.PhysicalID] = map[string]bool{}
		}

		id.Threads++
		coreKey := stat.CoreID
		if coreKey == "" {
			// no topology: every thread is its own core
			coreKey = strconv.Itoa(int(stat.CPU))
		}
		if seenCores[stat.PhysicalID][coreKey] {
			continue
		}
		seenCores[stat.PhysicalID][coreKey] = true

		thread := int(stat.CPU)
		id.Cores = append(id.Cores, Core{
			Index:    len(id.Cores),
			Thread:   thread,
			Affinity: ring0.Mask(thread),
		})
	}

	return packages, nil
}

// win32Processor mirrors the Win32_Processor columns we query
type win32Processor struct {
	Name                      string
	Manufacturer              string
	ProcessorId               string
	NumberOfCores             uint32
	NumberOfLogicalProcessors uint32
	MaxClockSpeed             uint32
}

// fromWin32Processors builds identities from WMI rows. Logical processors are
// numbered package after package with SMT siblings adjacent, matching how
// Windows enumerates them.
func fromWin32Processors(rows []win32Processor) ([]*Identity, error) {
	if len(rows) == 0 {
		return nil, ErrNoProcessors
	}

	var packages []*Identity
	offset := 0
	for i, row := range rows {
		cores := int(row.NumberOfCores)
		threads := int(row.NumberOfLogicalProcessors)
		if cores <= 0 {
			cores = 1
		}
		if threads < cores {
			threads = cores
		}
		perCore := threads / cores

		id := &Identity{
			Index:      i,
			Vendor:     strings.TrimSpace(row.Manufacturer),
			Name:       strings.TrimSpace(row.Name),
			Threads:    threads,
			NominalMHz: float64(row.MaxClockSpeed),
		}

		if eax, edx, ok := parseProcessorID(row.ProcessorId); ok {
			id.Family, id.Model, id.Stepping = DecodeSignature(eax)
			id.HasTSC = edx&(1<<4) != 0
		}
		// WMI does not expose leaf 6; every family 6 Intel part since Core 2 has a DTS
		id.HasDTS = id.IsIntel() && id.Family == 0x06 && id.Model >= 0x0F

		for c := 0; c < cores; c++ {
			thread := offset + c*perCore
			id.Cores = append(id.Cores, Core{Index: c, Thread: thread, Affinity: ring0.Mask(thread)})
		}
		offset += threads

		packages = append(packages, id)
	}
	return packages, nil
}

// parseProcessorID splits the 16 hex digit ProcessorId into leaf 1 EDX and EAX
func parseProcessorID(pid string) (eax, edx uint32, ok bool) {
	pid = strings.TrimSpace(pid)
	if len(pid) != 16 {
		return 0, 0, false
	}
	hi, err := strconv.ParseUint(pid[:8], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	lo, err := strconv.ParseUint(pid[8:], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(lo), uint32(hi), true
}
