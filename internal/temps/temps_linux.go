//go:build linux

package temps

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// systemSensors reads hwmon and thermal zone sensors through gopsutil
func systemSensors(ctx context.Context) ([]*Sensor, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return nil, err
	}

	out := make([]*Sensor, 0, len(temps))
	for _, temp := range temps {
		out = append(out, &Sensor{
			Name:        temp.SensorKey,
			Label:       temp.SensorKey,
			Temperature: temp.Temperature,
			Critical:    temp.Critical,
			Max:         temp.High,
		})
	}
	return out, nil
}
