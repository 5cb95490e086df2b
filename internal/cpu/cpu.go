// Package cpu exposes the processor count used to size pools and optional
// worker-to-core pinning.
package cpu

import "runtime"

// NumCPU returns the number of logical CPUs available.
func NumCPU() int {
	return runtime.NumCPU()
}

// DefaultPoolSize leaves one logical CPU for the submitting goroutine: NumCPU()-1,
// never less than 1.
func DefaultPoolSize() int {
	return max(NumCPU()-1, 1)
}

func wrapCPU(cpuID, numCPU int) int {
	if numCPU <= 0 {
		return 0
	}
	if cpuID < 0 {
		cpuID = -cpuID
	}
	return cpuID % numCPU
}
