//go:build linux

package fibertask

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// setAffinity pins the calling worker goroutine's underlying OS thread to
// the logical core matching workerIndex, modulo the number of cores
// visible to the process. The caller must already hold
// runtime.LockOSThread, otherwise the affinity mask would apply to
// whichever OS thread the Go runtime next schedules this goroutine onto.
func setAffinity(s *Scheduler, workerIndex int) {
	if !s.opts.affinity {
		return
	}
	n := runtime.NumCPU()
	if n <= 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(workerIndex % n)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		s.logger.Warn("failed to set worker CPU affinity",
			Field{Key: "worker", Value: workerIndex},
			Field{Key: "error", Value: err},
		)
	}
}
