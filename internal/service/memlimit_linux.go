//go:build linux

package service

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SystemMemoryMB reports total and free RAM in whole megabytes
func SystemMemoryMB() (totalMB, freeMB int64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, fmt.Errorf("failed to read system memory: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(info.Totalram) * unit
	free := uint64(info.Freeram) * unit
	return int64(total / (1024 * 1024)), int64(free / (1024 * 1024)), nil
}
