//go:build !linux

package service

import "errors"

// SystemMemoryMB is only implemented on Linux
func SystemMemoryMB() (totalMB, freeMB int64, err error) {
	return 0, 0, errors.New("system memory is only available on linux")
}
