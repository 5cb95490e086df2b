//go:build !linux

package cpu

import "runtime"

// Pin locks the calling goroutine to its OS thread. Core pinning itself is not
// available on this platform.
func Pin(workerID int) (release func(), err error) {
	runtime.LockOSThread()
	return func() {
		runtime.UnlockOSThread()
	}, nil
}

// Supported reports whether Pin can actually bind threads on this platform.
func Supported() bool {
	return false
}
