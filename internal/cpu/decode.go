package cpu

// thermStatusValid is the reading-valid bit of IA32_THERM_STATUS
const thermStatusValid = 1 << 31

// decodeThermDelta extracts the digital readout of IA32_THERM_STATUS: degrees
// below TjMax. ok is false when the reading-valid bit is clear.
func decodeThermDelta(eax uint32) (delta float32, ok bool) {
	if eax&thermStatusValid == 0 {
		return 0, false
	}
	return float32((eax >> 16) & 0x7F), true
}

// Temperature converts a thermal status register value into degrees Celsius
func Temperature(eax uint32, tjMax, tSlope float32) (float32, bool) {
	delta, ok := decodeThermDelta(eax)
	if !ok {
		return 0, false
	}
	return tjMax - tSlope*delta, true
}

// decodeTjMax extracts the junction ceiling from IA32_TEMPERATURE_TARGET
func decodeTjMax(eax uint32) float32 {
	return float32((eax >> 16) & 0xFF)
}

// perfStatusTSCMultiplier decodes the maximum bus ratio Core and Atom parts
// report in the high half of IA32_PERF_STATUS.
func perfStatusTSCMultiplier(edx uint32) float64 {
	return float64((edx>>8)&0x1F) + 0.5*float64((edx>>14)&1)
}

// platformInfoTSCMultiplier decodes the maximum non-turbo ratio of MSR_PLATFORM_INFO
func platformInfoTSCMultiplier(eax uint32) float64 {
	return float64((eax >> 8) & 0xFF)
}

// CoreMultiplier decodes the current bus ratio from IA32_PERF_STATUS
func CoreMultiplier(arch Microarchitecture, eax uint32) float64 {
	switch arch {
	case Nehalem:
		return float64(eax & 0xFF)
	case SandyBridge:
		return float64((eax >> 8) & 0xFF)
	default:
		return float64((eax>>8)&0x1F) + 0.5*float64((eax>>14)&1)
	}
}

// CoreClock derives a core clock from its ratio. The bus clock is the TSC
// frequency divided by the calibrated TSC multiplier.
func CoreClock(arch Microarchitecture, eax uint32, tscMHz, tscMultiplier float64) (clock, bus float64) {
	bus = tscMHz / tscMultiplier
	return CoreMultiplier(arch, eax) * bus, bus
}
