package tonearm

import (
	"sync"
	"time"
)

// Scheduler runs fn once after d unless the returned cancel func is called
// first. Implementations must invoke fn on the same goroutine that drives
// the Controller.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// Dispatcher hands a callback to the event loop that owns the Controller
type Dispatcher func(fn func())

// TimerScheduler waits on a runtime timer and then dispatches the callback
// onto the owning loop.
type TimerScheduler struct {
	dispatch Dispatcher
}

// NewTimerScheduler creates a scheduler that delivers through dispatch.
// A nil dispatch runs callbacks on the timer goroutine.
func NewTimerScheduler(dispatch Dispatcher) *TimerScheduler {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &TimerScheduler{dispatch: dispatch}
}

// Schedule implements Scheduler
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) func() {
	var (
		mu       sync.Mutex
		canceled bool
	)
	timer := time.AfterFunc(d, func() {
		s.dispatch(func() {
			mu.Lock()
			stop := canceled
			mu.Unlock()
			if !stop {
				fn()
			}
		})
	})
	return func() {
		mu.Lock()
		canceled = true
		mu.Unlock()
		timer.Stop()
	}
}
