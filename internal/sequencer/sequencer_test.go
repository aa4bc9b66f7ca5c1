package sequencer

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"triwizard/internal/clock"
)

func preloaderTimeline() Timeline {
	return Timeline{
		Steps: []Step{
			{Phase: PhaseEntrance, At: 0},
			{Phase: PhaseGlow, At: time.Second},
			{Phase: PhaseEmerge, At: 2 * time.Second},
		},
		Total: 3 * time.Second,
		Grace: 500 * time.Millisecond,
	}
}

func TestSequencerWalksPhasesThenCompletes(t *testing.T) {
	m := clock.NewManual(time.Time{})
	var phases []Phase
	completions := 0
	s := New(m, preloaderTimeline(), Hooks{
		OnPhase:    func(p Phase) { phases = append(phases, p) },
		OnComplete: func() { completions++ },
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	m.Advance(0)
	if s.Phase() != PhaseEntrance || !s.Visible() {
		t.Fatalf("expected visible entrance, got %s visible=%v", s.Phase(), s.Visible())
	}
	m.Advance(3 * time.Second)
	if s.Visible() || s.Phase() != PhaseExit {
		t.Fatalf("expected hidden exit at 3s, got %s visible=%v", s.Phase(), s.Visible())
	}
	if completions != 0 {
		t.Fatalf("completed before grace elapsed")
	}
	m.Advance(499 * time.Millisecond)
	if completions != 0 {
		t.Fatalf("completed before grace elapsed")
	}
	m.Advance(time.Millisecond)
	if completions != 1 || !s.Done() {
		t.Fatalf("expected one completion, got %d", completions)
	}
	m.Advance(time.Minute)
	if completions != 1 {
		t.Fatalf("completion fired %d times", completions)
	}

	want := []Phase{PhaseEntrance, PhaseGlow, PhaseEmerge, PhaseExit}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Fatalf("phase order (-want +got):\n%s", diff)
	}
}

func TestSequencerEntersFirstPhaseOnStart(t *testing.T) {
	m := clock.NewManual(time.Time{})
	var phases []Phase
	s := New(m, preloaderTimeline(), Hooks{OnPhase: func(p Phase) { phases = append(phases, p) }})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseEntrance || !s.Visible() {
		t.Fatalf("expected visible entrance before any time passes, got %q visible=%v", s.Phase(), s.Visible())
	}
	m.Advance(0)
	if diff := cmp.Diff([]Phase{PhaseEntrance}, phases); diff != "" {
		t.Fatalf("entrance entered more than once (-want +got):\n%s", diff)
	}
}

func TestSequencerStopSilencesEverything(t *testing.T) {
	m := clock.NewManual(time.Time{})
	fired := 0
	s := New(m, preloaderTimeline(), Hooks{
		OnPhase:    func(Phase) { fired++ },
		OnComplete: func() { fired++ },
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	m.Advance(1500 * time.Millisecond)
	before := fired
	s.Stop()
	m.Advance(time.Hour)
	if fired != before {
		t.Fatalf("callbacks fired after stop: before=%d after=%d", before, fired)
	}
	if m.Pending() != 0 {
		t.Fatalf("stop left %d timers pending", m.Pending())
	}
}

func TestSequencerStartOnce(t *testing.T) {
	m := clock.NewManual(time.Time{})
	s := New(m, preloaderTimeline(), Hooks{})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	pending := m.Pending()
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if m.Pending() != pending {
		t.Fatalf("second start rescheduled timers")
	}
}

func TestTimelineValidate(t *testing.T) {
	cases := []struct {
		name string
		tl   Timeline
		ok   bool
	}{
		{"default", preloaderTimeline(), true},
		{"negative grace", Timeline{Total: time.Second, Grace: -1}, false},
		{"past total", Timeline{Steps: []Step{{PhaseGlow, 2 * time.Second}}, Total: time.Second}, false},
		{"reserved", Timeline{Steps: []Step{{PhaseExit, 0}}, Total: time.Second}, false},
		{"decreasing", Timeline{Steps: []Step{{PhaseGlow, time.Second}, {PhaseEmerge, 0}}, Total: time.Second}, false},
	}
	for _, tc := range cases {
		err := tc.tl.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}
