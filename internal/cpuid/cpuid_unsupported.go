//go:build !linux && !windows

package cpuid

import (
	"context"
	"fmt"
)

// detectPlatform is a fallback for unsupported platforms
func detectPlatform(ctx context.Context) ([]*Identity, error) {
	return nil, fmt.Errorf("processor enumeration not supported on this platform")
}
