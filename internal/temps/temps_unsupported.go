//go:build !linux && !windows

package temps

import (
	"context"
	"errors"
)

// systemSensors returns an error for unsupported platforms
func systemSensors(ctx context.Context) ([]*Sensor, error) {
	return nil, errors.New("temperature monitoring not supported on this platform")
}
