//go:build !linux && !windows

package ring0

import "github.com/rs/zerolog"

// newPlatformPort reports that no register driver exists here
func newPlatformPort(logger zerolog.Logger) (Port, error) {
	return nil, ErrUnsupported
}
