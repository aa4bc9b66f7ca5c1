package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestManualRunsInDeadlineOrder(t *testing.T) {
	m := NewManual(time.Time{})
	var got []string
	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(99 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("expected nothing due yet, got %v", got)
	}
	m.Advance(time.Second)
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestManualRunsNestedCallbacksInsideWindow(t *testing.T) {
	m := NewManual(time.Time{})
	start := m.Now()
	var at []time.Duration
	m.AfterFunc(time.Second, func() {
		at = append(at, m.Now().Sub(start))
		m.AfterFunc(500*time.Millisecond, func() {
			at = append(at, m.Now().Sub(start))
		})
	})
	m.Advance(2 * time.Second)
	if diff := cmp.Diff([]time.Duration{time.Second, 1500 * time.Millisecond}, at); diff != "" {
		t.Fatalf("unexpected fire times (-want +got):\n%s", diff)
	}
	if got := m.Now().Sub(start); got != 2*time.Second {
		t.Fatalf("expected clock at 2s, got %s", got)
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(time.Time{})
	fired := false
	tm := m.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("expected first stop to report true")
	}
	if tm.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	m.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", m.Pending())
	}
}

func TestManualAdvanceToNext(t *testing.T) {
	m := NewManual(time.Time{})
	if m.AdvanceToNext() {
		t.Fatalf("expected false with nothing pending")
	}
	n := 0
	m.AfterFunc(3*time.Second, func() { n++ })
	if !m.AdvanceToNext() || n != 1 {
		t.Fatalf("expected callback after AdvanceToNext, n=%d", n)
	}
}

func TestRealTimerPostsOntoLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	r := NewReal(loop.Post)
	var mu sync.Mutex
	fired := make(chan struct{})
	r.AfterFunc(5*time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		close(fired)
	})
	stopped := r.AfterFunc(5*time.Millisecond, func() {
		t.Errorf("stopped timer fired")
	})
	stopped.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never fired")
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRealStopAfterExpiryBeforeDispatch(t *testing.T) {
	queued := make(chan func(), 1)
	r := NewReal(func(fn func()) { queued <- fn })
	fired := false
	tm := r.AfterFunc(0, func() { fired = true })

	var dispatch func()
	select {
	case dispatch = <-queued:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never posted")
	}
	if !tm.Stop() {
		t.Fatalf("expected stop to win before dispatch")
	}
	dispatch()
	if fired {
		t.Fatalf("callback ran after stop")
	}
}
