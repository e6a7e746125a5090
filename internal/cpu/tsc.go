package cpu

import (
	"time"

	"github.com/CristiGvl/picoRing0/internal/cpuid"
	"github.com/CristiGvl/picoRing0/internal/ring0"
)

// TSCEstimator measures the time-stamp counter rate by sampling
// IA32_TIME_STAMP_COUNTER on the first core across a known interval.
type TSCEstimator struct {
	Window time.Duration
	Now    func() time.Time
	Sleep  func(time.Duration)
}

// DefaultTSCEstimator samples over 50ms of wall time
var DefaultTSCEstimator = TSCEstimator{
	Window: 50 * time.Millisecond,
	Now:    time.Now,
	Sleep:  time.Sleep,
}

// Estimate returns the TSC frequency in MHz, or the nominal frequency from
// identification when the counter cannot be sampled.
func (e TSCEstimator) Estimate(port ring0.Port, id *cpuid.Identity) float64 {
	if !id.HasTSC || len(id.Cores) == 0 {
		return id.NominalMHz
	}
	affinity := id.Cores[0].Affinity

	lo0, hi0, ok := port.ReadMSR(ring0.MSRTimeStampCounter, affinity)
	if !ok {
		return id.NominalMHz
	}
	start := e.Now()
	e.Sleep(e.Window)
	lo1, hi1, ok := port.ReadMSR(ring0.MSRTimeStampCounter, affinity)
	elapsed := e.Now().Sub(start)
	if !ok || elapsed <= 0 {
		return id.NominalMHz
	}

	t0 := uint64(hi0)<<32 | uint64(lo0)
	t1 := uint64(hi1)<<32 | uint64(lo1)
	if t1 <= t0 {
		return id.NominalMHz
	}
	return float64(t1-t0) / elapsed.Seconds() / 1e6
}
