//go:build linux

package device

import "golang.org/x/sys/unix"

// totalMemoryGB reports installed RAM through sysinfo(2).
func totalMemoryGB() (float64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return bytesToGB(uint64(info.Totalram) * uint64(info.Unit)), nil
}
