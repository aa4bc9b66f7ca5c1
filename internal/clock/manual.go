package clock

import (
	"sort"
	"time"
)

// Manual is a virtual clock. Callbacks run on the goroutine calling Advance,
// in deadline order with ties broken by scheduling order.
type Manual struct {
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{clock: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves virtual time forward by d, running every callback that
// becomes due, including ones scheduled by callbacks inside the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.popDue(target)
		if next == nil {
			break
		}
		m.now = next.when
		next.fn()
	}
	m.now = target
}

// AdvanceToNext jumps to the earliest pending deadline and runs everything
// due at that instant. It reports false when nothing is pending.
func (m *Manual) AdvanceToNext() bool {
	if len(m.pending) == 0 {
		return false
	}
	m.sortPending()
	m.Advance(m.pending[0].when.Sub(m.now))
	return true
}

// Pending reports how many timers are scheduled and not stopped.
func (m *Manual) Pending() int { return len(m.pending) }

func (m *Manual) popDue(target time.Time) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	m.sortPending()
	head := m.pending[0]
	if head.when.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	head.done = true
	return head
}

func (m *Manual) sortPending() {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].when.Equal(m.pending[j].when) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].when.Before(m.pending[j].when)
	})
}

func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	clock *Manual
	when  time.Time
	seq   uint64
	fn    func()
	done  bool
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.clock.remove(t)
	return true
}
