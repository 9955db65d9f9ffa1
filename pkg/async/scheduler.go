package async

import "sync"

var (
	schedulerMu sync.RWMutex
	scheduler   func(fn func())
)

// RegisterScheduler sets the function used to defer micro-tasks to the host
// engine's callback loop. This should be called once by the engine during
// initialization. When no scheduler is registered, tasks run inline.
func RegisterScheduler(fn func(fn func())) {
	schedulerMu.Lock()
	scheduler = fn
	schedulerMu.Unlock()
}

// schedule hands fn to the registered scheduler, or runs it inline.
func schedule(fn func()) {
	schedulerMu.RLock()
	s := scheduler
	schedulerMu.RUnlock()
	if s == nil {
		fn()
		return
	}
	s(fn)
}
