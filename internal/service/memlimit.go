package service

// Bounds for the computed process memory limit, in megabytes
const (
	MinMemoryMB = 1000
	MaxMemoryMB = 32000
)

// MemoryLimitMB picks a process memory cap from system memory: 70% of total
// but no more than 80% of what is currently free, clamped to
// [MinMemoryMB, MaxMemoryMB].
func MemoryLimitMB(totalMB, freeMB int64) int64 {
	targetByTotal := totalMB * 7 / 10
	safeByFree := freeMB * 8 / 10

	limit := min(targetByTotal, safeByFree)
	return max(MinMemoryMB, min(limit, MaxMemoryMB))
}
