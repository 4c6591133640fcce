//go:build !linux

package fibertask

// setAffinity is a no-op outside Linux: golang.org/x/sys/unix's affinity
// calls are Linux-only, and there is no portable cross-platform
// equivalent in the sys package family used elsewhere in this module.
func setAffinity(s *Scheduler, workerIndex int) {}
