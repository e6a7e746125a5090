//go:build windows

package temps

import (
	"context"
	"fmt"

	"github.com/StackExchange/wmi"
)

// win32TemperatureProbe represents WMI temperature probe data
type win32TemperatureProbe struct {
	DeviceID        string
	Name            string
	Description     string
	CurrentReading  *uint32
	NominalReading  *uint32
	MaxReadableHigh *uint32
}

// win32ThermalZone represents thermal zone performance counter data
type win32ThermalZone struct {
	Name        string
	Temperature uint64
}

// systemSensors reads WMI temperature probes, then thermal zones
func systemSensors(ctx context.Context) ([]*Sensor, error) {
	probes, probeErr := temperatureProbes()
	zones, zoneErr := thermalZones()
	if probeErr != nil && zoneErr != nil {
		return nil, fmt.Errorf("query thermal sources: %w", zoneErr)
	}
	return append(probes, zones...), nil
}

func tenthsKelvin(v uint64) float64 {
	return float64(v)/10.0 - 273.15
}

func temperatureProbes() ([]*Sensor, error) {
	var probes []win32TemperatureProbe
	q := "SELECT DeviceID, Name, Description, CurrentReading, NominalReading, MaxReadableHigh FROM Win32_TemperatureProbe"
	if err := wmi.Query(q, &probes); err != nil {
		return nil, err
	}

	var out []*Sensor
	for _, probe := range probes {
		if probe.CurrentReading == nil {
			continue
		}
		s := &Sensor{
			Name:        probe.DeviceID,
			Label:       probe.Name,
			Temperature: tenthsKelvin(uint64(*probe.CurrentReading)),
		}
		if probe.Description != "" {
			s.Label = probe.Description
		}
		if probe.MaxReadableHigh != nil {
			s.Critical = tenthsKelvin(uint64(*probe.MaxReadableHigh))
		}
		if probe.NominalReading != nil {
			s.Max = tenthsKelvin(uint64(*probe.NominalReading))
		}
		out = append(out, s)
	}
	return out, nil
}

func thermalZones() ([]*Sensor, error) {
	var zones []win32ThermalZone
	if err := wmi.Query("SELECT Name, Temperature FROM Win32_PerfRawData_Counters_ThermalZoneInformation", &zones); err != nil {
		return nil, err
	}

	var out []*Sensor
	for _, zone := range zones {
		// the counter reports Kelvin, not tenths
		c := float64(zone.Temperature) - 273.15
		if c < -50 || c > 150 {
			continue
		}
		out = append(out, &Sensor{
			Name:        zone.Name,
			Label:       fmt.Sprintf("Thermal Zone %s", zone.Name),
			Temperature: c,
		})
	}
	return out, nil
}
