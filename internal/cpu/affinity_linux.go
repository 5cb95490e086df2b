//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the calling OS thread to one logical CPU.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	cpuID = wrapCPU(cpuID, runtime.NumCPU())

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	return unix.SchedSetaffinity(0, &mask) // 0 = current thread
}

// Pin locks the calling goroutine to its OS thread and pins that thread to the core
// chosen for workerID. The returned func undoes the lock and must be deferred.
// Pinning failures are reported but the thread stays locked until release.
func Pin(workerID int) (release func(), err error) {
	runtime.LockOSThread()
	err = pinToCore(workerID)

	return func() {
		runtime.UnlockOSThread()
	}, err
}

// Supported reports whether Pin can actually bind threads on this platform.
func Supported() bool {
	return true
}
