package gate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/grading"
	"triwizard/internal/notify"
)

var shapeChecks = []grading.CheckSpec{
	{ID: "written", Type: grading.CheckNonEmpty},
	{ID: "is-function", Type: grading.CheckContains, Substring: "function"},
	{ID: "long-enough", Type: grading.CheckMinLength, Length: 50},
}

func testConfig() Config {
	return Config{
		Problems: []Problem{
			{ID: "sorting-hat", Title: "The Sorting Hat Algorithm", Checks: shapeChecks},
			{ID: "spell-power", Title: "Spell Power Calculator", Checks: shapeChecks},
			{ID: "inventory-manager", Title: "Magical Inventory Manager", Checks: shapeChecks},
		},
		CompleteDelay: 2 * time.Second,
		SolvedMessage: "Excellent! Problem solved!",
		RetryMessage:  "Your solution needs more work. Try again!",
	}
}

type harness struct {
	clock     *clock.Manual
	gate      *Gate
	notices   []notify.Notice
	completed int
}

func newHarness() *harness {
	h := &harness{clock: clock.NewManual(time.Time{})}
	h.gate = New(h.clock, grading.NewGrader(), testConfig(), Hooks{
		OnNotice:   func(n notify.Notice) { h.notices = append(h.notices, n) },
		OnComplete: func() { h.completed++ },
	})
	return h
}

var goodSolution = "function " + strings.Repeat("a", 80)

func TestEvaluatePassMarksSolved(t *testing.T) {
	h := newHarness()
	if err := h.gate.SetSubmission(0, goodSolution); err != nil {
		t.Fatal(err)
	}
	res, err := h.gate.Evaluate(0)
	if err != nil {
		t.Fatal(err)
	}
	slot, _ := h.gate.Slot(0)
	if !res.Passed || !slot.Solved {
		t.Fatalf("expected solved slot, got passed=%v solved=%v", res.Passed, slot.Solved)
	}
	if got := h.notices[len(h.notices)-1]; got != notify.Success("Excellent! Problem solved!") {
		t.Fatalf("unexpected notice %v", got)
	}
}

func TestEvaluateFailLeavesStateUnchanged(t *testing.T) {
	h := newHarness()
	if err := h.gate.SetSubmission(1, "x"); err != nil {
		t.Fatal(err)
	}
	res, err := h.gate.Evaluate(1)
	if err != nil {
		t.Fatal(err)
	}
	slot, _ := h.gate.Slot(1)
	if res.Passed || slot.Solved || slot.Submission != "x" {
		t.Fatalf("failed evaluation mutated slot: %#v", slot)
	}
	if got := h.notices[len(h.notices)-1]; got.Level != notify.LevelRetry {
		t.Fatalf("expected retry notice, got %v", got)
	}
}

func TestSolvedSlotIsFrozen(t *testing.T) {
	h := newHarness()
	_ = h.gate.SetSubmission(0, goodSolution)
	if _, err := h.gate.Evaluate(0); err != nil {
		t.Fatal(err)
	}
	if err := h.gate.SetSubmission(0, "x"); !errors.Is(err, ErrSlotSolved) {
		t.Fatalf("expected ErrSlotSolved, got %v", err)
	}
	notices := len(h.notices)
	if _, err := h.gate.Evaluate(0); !errors.Is(err, ErrSlotSolved) {
		t.Fatalf("expected ErrSlotSolved on re-evaluate, got %v", err)
	}
	if len(h.notices) != notices {
		t.Fatalf("re-evaluating a solved slot produced a notice")
	}
	slot, _ := h.gate.Slot(0)
	if !slot.Solved || slot.Submission != goodSolution {
		t.Fatalf("solved slot changed: %#v", slot)
	}
}

func TestCompletionAfterAllSolvedFiresOnce(t *testing.T) {
	h := newHarness()
	for i := 0; i < h.gate.Len(); i++ {
		_ = h.gate.SetSubmission(i, goodSolution)
		if _, err := h.gate.Evaluate(i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < h.gate.Len(); i++ {
		_, _ = h.gate.Evaluate(i)
	}
	h.clock.Advance(1999 * time.Millisecond)
	if h.completed != 0 {
		t.Fatalf("completed before delay")
	}
	h.clock.Advance(time.Hour)
	if h.completed != 1 {
		t.Fatalf("expected exactly one completion, got %d", h.completed)
	}
}

func TestSlotsSolveInAnyOrder(t *testing.T) {
	h := newHarness()
	solve := func(i int) {
		t.Helper()
		if err := h.gate.SetSubmission(i, goodSolution); err != nil {
			t.Fatal(err)
		}
		res, err := h.gate.Evaluate(i)
		if err != nil || !res.Passed {
			t.Fatalf("slot %d: passed=%v err=%v", i, res.Passed, err)
		}
	}

	solve(2)
	_ = h.gate.SetSubmission(0, "function too short")
	if res, err := h.gate.Evaluate(0); err != nil || res.Passed {
		t.Fatalf("expected slot 0 to fail first, passed=%v err=%v", res.Passed, err)
	}
	solve(0)
	h.clock.Advance(time.Hour)
	if h.completed != 0 || h.gate.AllSolved() {
		t.Fatalf("completed with slot 1 still open")
	}

	solve(1)
	if h.gate.SolvedCount() != 3 {
		t.Fatalf("expected 3 solved, got %d", h.gate.SolvedCount())
	}
	h.clock.Advance(1999 * time.Millisecond)
	if h.completed != 0 {
		t.Fatalf("completed before delay")
	}
	h.clock.Advance(time.Millisecond)
	if h.completed != 1 {
		t.Fatalf("expected one completion, got %d", h.completed)
	}
	h.clock.Advance(time.Hour)
	if h.completed != 1 {
		t.Fatalf("completion fired %d times", h.completed)
	}
}

func TestNavigationWraps(t *testing.T) {
	h := newHarness()
	h.gate.Prev()
	if h.gate.Selected() != 2 {
		t.Fatalf("expected wrap to 2, got %d", h.gate.Selected())
	}
	h.gate.Next()
	if h.gate.Selected() != 0 {
		t.Fatalf("expected wrap to 0, got %d", h.gate.Selected())
	}
	if err := h.gate.Select(3); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("expected ErrSlotRange, got %v", err)
	}
	if err := h.gate.Select(1); err != nil || h.gate.Selected() != 1 {
		t.Fatalf("select 1: err=%v selected=%d", err, h.gate.Selected())
	}
}

func TestStopCancelsCompletion(t *testing.T) {
	h := newHarness()
	for i := 0; i < h.gate.Len(); i++ {
		_ = h.gate.SetSubmission(i, goodSolution)
		_, _ = h.gate.Evaluate(i)
	}
	h.gate.Stop()
	h.clock.Advance(time.Hour)
	if h.completed != 0 {
		t.Fatalf("completion fired after stop")
	}
}
