// Package sequencer steps a presentation through named phases at fixed
// offsets from its start, then hides it and reports completion after a grace
// period.
package sequencer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"triwizard/internal/clock"
)

type Phase string

const (
	PhaseIdle     Phase = ""
	PhaseEntrance Phase = "entrance"
	PhaseGlow     Phase = "glow"
	PhaseEmerge   Phase = "emerge"
	PhaseReveal   Phase = "reveal"
	PhaseExit     Phase = "exit"
)

var ErrAlreadyStarted = errors.New("sequencer already started")

type Step struct {
	Phase Phase
	At    time.Duration
}

type Timeline struct {
	Steps []Step
	// Total is when the presentation hides (phase exit).
	Total time.Duration
	// Grace is the pause between hiding and completion.
	Grace time.Duration
}

func (tl Timeline) Validate() error {
	if tl.Total < 0 || tl.Grace < 0 {
		return fmt.Errorf("timeline durations must be non-negative (total=%s grace=%s)", tl.Total, tl.Grace)
	}
	for i, s := range tl.Steps {
		if s.Phase == PhaseIdle || s.Phase == PhaseExit {
			return fmt.Errorf("step %d: phase %q is reserved", i, s.Phase)
		}
		if s.At < 0 || s.At > tl.Total {
			return fmt.Errorf("step %d (%s): offset %s outside [0, %s]", i, s.Phase, s.At, tl.Total)
		}
		if i > 0 && s.At < tl.Steps[i-1].At {
			return fmt.Errorf("step %d (%s): offsets must not decrease", i, s.Phase)
		}
	}
	return nil
}

type Hooks struct {
	OnPhase    func(Phase)
	OnComplete func()
}

type Sequencer struct {
	sched    clock.Scheduler
	timeline Timeline
	hooks    Hooks

	phase   Phase
	visible bool
	started bool
	stopped bool
	done    bool
	timers  []clock.Timer
}

func New(sched clock.Scheduler, tl Timeline, hooks Hooks) *Sequencer {
	steps := append([]Step(nil), tl.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })
	tl.Steps = steps
	return &Sequencer{sched: sched, timeline: tl, hooks: hooks}
}

// Start enters steps at offset zero immediately and schedules the rest.
// It may be called once.
func (s *Sequencer) Start() error {
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.visible = true
	for _, step := range s.timeline.Steps {
		phase := step.Phase
		if step.At <= 0 {
			s.enter(phase)
			continue
		}
		s.timers = append(s.timers, s.sched.AfterFunc(step.At, func() { s.enter(phase) }))
	}
	s.timers = append(s.timers, s.sched.AfterFunc(s.timeline.Total, func() {
		s.visible = false
		s.enter(PhaseExit)
	}))
	s.timers = append(s.timers, s.sched.AfterFunc(s.timeline.Total+s.timeline.Grace, s.complete))
	return nil
}

// Stop cancels all pending transitions. Nothing fires afterwards.
func (s *Sequencer) Stop() {
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Sequencer) Phase() Phase  { return s.phase }
func (s *Sequencer) Visible() bool { return s.visible }
func (s *Sequencer) Done() bool    { return s.done }

func (s *Sequencer) enter(p Phase) {
	if s.stopped {
		return
	}
	s.phase = p
	if s.hooks.OnPhase != nil {
		s.hooks.OnPhase(p)
	}
}

func (s *Sequencer) complete() {
	if s.stopped || s.done {
		return
	}
	s.done = true
	s.timers = nil
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete()
	}
}
