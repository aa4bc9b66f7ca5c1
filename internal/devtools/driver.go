package devtools

import (
	"context"
	"time"

	"triwizard/internal/clock"
)

// stallLimit bounds how much virtual time a single step may consume.
const stallLimit = 10 * time.Minute

// driver owns the loop a replay runs on.
type driver interface {
	scheduler() clock.Scheduler
	// do runs fn on the loop and returns once it has finished.
	do(fn func())
	wait(ctx context.Context, d time.Duration) error
	// settle returns once done, evaluated on the loop, reports true.
	settle(ctx context.Context, done func() bool) error
}

type virtualDriver struct {
	clk *clock.Manual
}

func (v *virtualDriver) scheduler() clock.Scheduler { return v.clk }
func (v *virtualDriver) do(fn func())               { fn() }

func (v *virtualDriver) wait(_ context.Context, d time.Duration) error {
	v.clk.Advance(d)
	return nil
}

func (v *virtualDriver) settle(_ context.Context, done func() bool) error {
	deadline := v.clk.Now().Add(stallLimit)
	for !done() {
		if !v.clk.Now().Before(deadline) || !v.clk.AdvanceToNext() {
			return ErrStalled
		}
	}
	return nil
}

// realtimeDriver plays on the wall clock. Timers post onto a clock.Loop and
// the replay polls it.
type realtimeDriver struct {
	loop   *clock.Loop
	clk    *clock.Real
	cancel context.CancelFunc
	done   chan struct{}
	poll   time.Duration
	limit  time.Duration
}

func newRealtimeDriver() *realtimeDriver {
	ctx, cancel := context.WithCancel(context.Background())
	loop := clock.NewLoop(0)
	d := &realtimeDriver{
		loop:   loop,
		clk:    clock.NewReal(loop.Post),
		cancel: cancel,
		done:   make(chan struct{}),
		poll:   50 * time.Millisecond,
		limit:  2 * time.Minute,
	}
	go func() {
		defer close(d.done)
		_ = loop.Run(ctx)
	}()
	return d
}

func (d *realtimeDriver) scheduler() clock.Scheduler { return d.clk }

func (d *realtimeDriver) do(fn func()) {
	finished := make(chan struct{})
	d.loop.Post(func() {
		defer close(finished)
		fn()
	})
	<-finished
}

func (d *realtimeDriver) wait(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *realtimeDriver) settle(ctx context.Context, done func() bool) error {
	deadline := time.Now().Add(d.limit)
	tick := time.NewTicker(d.poll)
	defer tick.Stop()
	for {
		var ok bool
		d.do(func() { ok = done() })
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrStalled
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// close stops the loop goroutine and waits for it to exit.
func (d *realtimeDriver) close() {
	d.cancel()
	<-d.done
}
