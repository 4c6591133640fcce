package fibertask

import (
	"runtime"
	"sync"
)

// The scheduler has no platform thread-local storage to lean on (Go does
// not expose the OS thread a goroutine happens to be running on), and a
// resumed fiber's goroutine may legitimately end up driving a different
// *worker than the one it parked from. This registry plays the role the
// original's per-thread TLS struct plays: a lookup from "whoever is
// currently asking" to "which worker (and which fiber-pool slot) they
// currently drive", updated at every park/resume boundary. It generalizes
// the getGoroutineID/isLoopThread trick of parsing the "goroutine N "
// prefix out of a stack trace into a proper mapping rather than a
// single-loop identity check.
type driverInfo struct {
	worker *worker
	slot   int
}

var (
	identityMu sync.RWMutex
	identityOf = make(map[uint64]driverInfo)
)

// getGoroutineID parses the current goroutine's numeric id out of a short
// runtime.Stack capture. This is the same trick used to avoid requiring a
// cgo or assembly helper just to answer "which goroutine is this".
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// setCurrentWorker records that the calling goroutine now drives w from
// fiber pool slot.
func setCurrentWorker(w *worker, slot int) {
	id := getGoroutineID()
	identityMu.Lock()
	identityOf[id] = driverInfo{worker: w, slot: slot}
	identityMu.Unlock()
}

// clearCurrentWorker removes the calling goroutine's identity entry,
// called immediately before it parks so a stale entry can't be mistaken
// for an active driver by diagnostics.
func clearCurrentWorker() {
	id := getGoroutineID()
	identityMu.Lock()
	delete(identityOf, id)
	identityMu.Unlock()
}

// currentWorker returns the worker the calling goroutine currently
// drives, if any.
func currentWorker() (*worker, bool) {
	id := getGoroutineID()
	identityMu.RLock()
	info, ok := identityOf[id]
	identityMu.RUnlock()
	return info.worker, ok
}

// currentDriver returns both the worker and the fiber pool slot the
// calling goroutine currently drives. Used by the wait primitives, which
// need their own slot to hand off on parking.
func currentDriver() (driverInfo, bool) {
	id := getGoroutineID()
	identityMu.RLock()
	info, ok := identityOf[id]
	identityMu.RUnlock()
	return info, ok
}

// startDriving registers the calling goroutine as the driver of w at fiber
// slot mySlot and runs its dispatch loop. It is the entry point for every
// replacement driver spawned by park; a worker's initial goroutine (in Init
// or Run) registers itself and calls driveLoop directly.
func startDriving(w *worker, mySlot int) {
	setCurrentWorker(w, mySlot)
	driveLoop(mySlot)
}
