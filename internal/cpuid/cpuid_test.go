package cpuid

import (
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSignature(t *testing.T) {
	cases := []struct {
		name                    string
		eax                     uint32
		family, model, stepping uint32
	}{
		{"core 2 conroe B2", 0x000006F6, 0x06, 0x0F, 0x06},
		{"nehalem i7-920", 0x000106A5, 0x06, 0x1A, 0x05},
		{"sandy bridge i7-2600K", 0x000206A7, 0x06, 0x2A, 0x07},
		{"atom N270", 0x000106C2, 0x06, 0x1C, 0x02},
		{"pentium 4 extended family", 0x00000F29, 0x0F, 0x02, 0x09},
		{"amd zen extended family", 0x00800F11, 0x17, 0x01, 0x01},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			family, model, stepping := DecodeSignature(tc.eax)
			assert.Equal(t, tc.family, family)
			assert.Equal(t, tc.model, model)
			assert.Equal(t, tc.stepping, stepping)
		})
	}
}

func TestParseNominalMHz(t *testing.T) {
	mhz, ok := parseNominalMHz("Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz")
	require.True(t, ok)
	assert.InDelta(t, 3400.0, mhz, 1e-9)

	_, ok = parseNominalMHz("Intel(R) Atom(TM) CPU N270")
	assert.False(t, ok)
}

func TestFromInfoStatsGroupsCoresAndPackages(t *testing.T) {
	flags := []string{"fpu", "tsc", "dts", "ht"}
	stats := []cpu.InfoStat{
		{CPU: 2, VendorID: VendorIntel, Family: "6", Model: "42", Stepping: 7, PhysicalID: "0", CoreID: "1", ModelName: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Flags: flags},
		{CPU: 0, VendorID: VendorIntel, Family: "6", Model: "42", Stepping: 7, PhysicalID: "0", CoreID: "0", ModelName: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Flags: flags},
		{CPU: 1, VendorID: VendorIntel, Family: "6", Model: "42", Stepping: 7, PhysicalID: "0", CoreID: "0", ModelName: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Flags: flags},
		{CPU: 3, VendorID: VendorIntel, Family: "6", Model: "42", Stepping: 7, PhysicalID: "0", CoreID: "1", ModelName: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Flags: flags},
		{CPU: 4, VendorID: VendorIntel, Family: "6", Model: "42", Stepping: 7, PhysicalID: "1", CoreID: "0", ModelName: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Flags: []string{"fpu"}, Mhz: 1600},
	}

	packages, err := fromInfoStats(stats)
	require.NoError(t, err)
	require.Len(t, packages, 2)

	first := packages[0]
	assert.Equal(t, 0, first.Index)
	assert.True(t, first.IsIntel())
	assert.Equal(t, uint32(6), first.Family)
	assert.Equal(t, uint32(0x2A), first.Model)
	assert.Equal(t, uint32(7), first.Stepping)
	assert.True(t, first.HasDTS)
	assert.True(t, first.HasTSC)
	assert.Equal(t, 4, first.Threads)
	assert.InDelta(t, 3400.0, first.NominalMHz, 1e-9)
	require.Equal(t, 2, first.CoreCount())
	assert.Equal(t, Core{Index: 0, Thread: 0, Affinity: 1 << 0}, first.Cores[0])
	assert.Equal(t, Core{Index: 1, Thread: 2, Affinity: 1 << 2}, first.Cores[1])

	second := packages[1]
	assert.Equal(t, 1, second.Index)
	assert.False(t, second.HasDTS)
	assert.False(t, second.HasTSC)
	assert.Equal(t, []Core{{Index: 0, Thread: 4, Affinity: 1 << 4}}, second.Cores)
}

func TestFromInfoStatsWithoutTopology(t *testing.T) {
	stats := []cpu.InfoStat{
		{CPU: 0, VendorID: VendorIntel, Family: "6", Model: "28", Mhz: 1600},
		{CPU: 1, VendorID: VendorIntel, Family: "6", Model: "28", Mhz: 1600},
	}
	packages, err := fromInfoStats(stats)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, 2, packages[0].CoreCount())
	assert.InDelta(t, 1600.0, packages[0].NominalMHz, 1e-9)
}

func TestFromInfoStatsEmpty(t *testing.T) {
	_, err := fromInfoStats(nil)
	assert.ErrorIs(t, err, ErrNoProcessors)
}

func TestFromWin32Processors(t *testing.T) {
	rows := []win32Processor{
		{Name: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Manufacturer: "GenuineIntel", ProcessorId: "BFEBFBFF000206A7", NumberOfCores: 4, NumberOfLogicalProcessors: 8, MaxClockSpeed: 3401},
		{Name: "Intel(R) Core(TM) i7-2600K CPU @ 3.40GHz", Manufacturer: "GenuineIntel", ProcessorId: "BFEBFBFF000206A7", NumberOfCores: 4, NumberOfLogicalProcessors: 8, MaxClockSpeed: 3401},
	}

	packages, err := fromWin32Processors(rows)
	require.NoError(t, err)
	require.Len(t, packages, 2)

	first := packages[0]
	assert.Equal(t, uint32(0x06), first.Family)
	assert.Equal(t, uint32(0x2A), first.Model)
	assert.Equal(t, uint32(0x07), first.Stepping)
	assert.True(t, first.HasTSC)
	assert.True(t, first.HasDTS)
	assert.InDelta(t, 3401.0, first.NominalMHz, 1e-9)
	require.Equal(t, 4, first.CoreCount())
	assert.Equal(t, []int{0, 2, 4, 6}, threads(first))

	assert.Equal(t, []int{8, 10, 12, 14}, threads(packages[1]))
}

func TestFromWin32ProcessorsBadProcessorID(t *testing.T) {
	packages, err := fromWin32Processors([]win32Processor{{Manufacturer: "GenuineIntel", ProcessorId: "garbage", NumberOfCores: 2, NumberOfLogicalProcessors: 2}})
	require.NoError(t, err)
	assert.Zero(t, packages[0].Family)
	assert.False(t, packages[0].HasDTS)
	assert.Equal(t, []int{0, 1}, threads(packages[0]))
}

func threads(id *Identity) []int {
	out := make([]int, 0, len(id.Cores))
	for _, c := range id.Cores {
		out = append(out, c.Thread)
	}
	return out
}
