// Package clock provides fire-once timers that run their callbacks on a
// single event loop. Real time is used while playing; the manual clock drives
// tests and headless scenarios deterministically.
package clock

import (
	"sync/atomic"
	"time"
)

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if the callback already ran or was stopped.
	Stop() bool
}

// Real schedules callbacks with time.AfterFunc and hands them to post, which
// must run them on the owning event loop.
type Real struct {
	post func(func())
}

func NewReal(post func(func())) *Real {
	return &Real{post: post}
}

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		r.post(func() {
			// A timer stopped after expiry but before dispatch must stay silent.
			if t.fired.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

type realTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *realTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
