// Package gate holds the three-problem coding gate. Submissions are judged
// by shape through the grading registry; nothing is compiled or run.
package gate

import (
	"errors"
	"fmt"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/grading"
	"triwizard/internal/notify"
)

var (
	ErrSlotRange  = errors.New("problem slot out of range")
	ErrSlotSolved = errors.New("problem slot already solved")
)

type Problem struct {
	ID                string
	Title             string
	Description       string
	PromptMD          string
	ReferenceSolution string
	Checks            []grading.CheckSpec
}

type Config struct {
	Problems         []Problem
	CompleteDelay    time.Duration
	SolvedMessage    string
	RetryMessage     string
	AllSolvedMessage string
}

type Hooks struct {
	OnNotice   notify.Func
	OnEvaluate func(slot int, res grading.Result)
	OnComplete func()
}

type Slot struct {
	Problem    Problem         `json:"-"`
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Submission string          `json:"submission"`
	Solved     bool            `json:"solved"`
	Attempts   int             `json:"attempts"`
	LastResult *grading.Result `json:"last_result,omitempty"`
}

type Gate struct {
	sched  clock.Scheduler
	grader grading.Grader
	cfg    Config
	hooks  Hooks

	slots      []Slot
	selected   int
	completing bool
	stopped    bool
	timer      clock.Timer
}

func New(sched clock.Scheduler, grader grading.Grader, cfg Config, hooks Hooks) *Gate {
	g := &Gate{sched: sched, grader: grader, cfg: cfg, hooks: hooks}
	for _, p := range cfg.Problems {
		g.slots = append(g.slots, Slot{Problem: p, ID: p.ID, Title: p.Title})
	}
	return g
}

func (g *Gate) Len() int      { return len(g.slots) }
func (g *Gate) Selected() int { return g.selected }

func (g *Gate) Select(i int) error {
	if err := g.checkRange(i); err != nil {
		return err
	}
	g.selected = i
	return nil
}

func (g *Gate) Next() {
	if len(g.slots) > 0 {
		g.selected = (g.selected + 1) % len(g.slots)
	}
}

func (g *Gate) Prev() {
	if len(g.slots) > 0 {
		g.selected = (g.selected - 1 + len(g.slots)) % len(g.slots)
	}
}

// SetSubmission replaces the draft for slot i. Solved slots are frozen.
func (g *Gate) SetSubmission(i int, text string) error {
	if err := g.checkRange(i); err != nil {
		return err
	}
	if g.slots[i].Solved {
		return fmt.Errorf("%w: %s", ErrSlotSolved, g.slots[i].ID)
	}
	g.slots[i].Submission = text
	return nil
}

// Evaluate grades slot i's submission. A pass marks the slot solved for the
// rest of the session; once every slot is solved, completion is scheduled
// exactly once.
func (g *Gate) Evaluate(i int) (grading.Result, error) {
	if err := g.checkRange(i); err != nil {
		return grading.Result{}, err
	}
	slot := &g.slots[i]
	if slot.Solved {
		return grading.Result{}, fmt.Errorf("%w: %s", ErrSlotSolved, slot.ID)
	}
	if g.stopped {
		return grading.Result{}, nil
	}
	slot.Attempts++
	res, err := g.grader.Grade(grading.Request{
		SlotID:     slot.ID,
		Attempt:    slot.Attempts,
		Submission: slot.Submission,
		Checks:     slot.Problem.Checks,
	})
	if err != nil {
		return grading.Result{}, fmt.Errorf("grade %s: %w", slot.ID, err)
	}
	slot.LastResult = &res
	if g.hooks.OnEvaluate != nil {
		g.hooks.OnEvaluate(i, res)
	}

	if !res.Passed {
		g.hooks.OnNotice.Send(notify.Retry(g.cfg.RetryMessage))
		return res, nil
	}
	slot.Solved = true
	g.hooks.OnNotice.Send(notify.Success(g.cfg.SolvedMessage))
	if g.AllSolved() && !g.completing {
		g.completing = true
		if g.cfg.AllSolvedMessage != "" {
			g.hooks.OnNotice.Send(notify.Info(g.cfg.AllSolvedMessage))
		}
		g.timer = g.sched.AfterFunc(g.cfg.CompleteDelay, g.complete)
	}
	return res, nil
}

func (g *Gate) Stop() {
	g.stopped = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Gate) Slots() []Slot { return append([]Slot(nil), g.slots...) }

func (g *Gate) Slot(i int) (Slot, error) {
	if err := g.checkRange(i); err != nil {
		return Slot{}, err
	}
	return g.slots[i], nil
}

func (g *Gate) SolvedCount() int {
	n := 0
	for _, s := range g.slots {
		if s.Solved {
			n++
		}
	}
	return n
}

func (g *Gate) AllSolved() bool {
	return len(g.slots) > 0 && g.SolvedCount() == len(g.slots)
}

type Snapshot struct {
	Slots      []Slot `json:"slots"`
	Selected   int    `json:"selected"`
	Solved     int    `json:"solved"`
	Completing bool   `json:"completing"`
}

func (g *Gate) Snapshot() Snapshot {
	return Snapshot{
		Slots:      g.Slots(),
		Selected:   g.selected,
		Solved:     g.SolvedCount(),
		Completing: g.completing,
	}
}

func (g *Gate) complete() {
	g.timer = nil
	if g.stopped {
		return
	}
	if g.hooks.OnComplete != nil {
		g.hooks.OnComplete()
	}
}

func (g *Gate) checkRange(i int) error {
	if i < 0 || i >= len(g.slots) {
		return fmt.Errorf("%w: %d (have %d)", ErrSlotRange, i, len(g.slots))
	}
	return nil
}
