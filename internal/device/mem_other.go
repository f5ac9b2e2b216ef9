//go:build !linux

package device

import (
	"fmt"
	"runtime"
)

func totalMemoryGB() (float64, error) {
	return 0, fmt.Errorf("memory probe not supported on %s", runtime.GOOS)
}
