// Package stage owns the fixed stage order of a run and the single-use
// completion signal each stage uses to hand control to its successor.
package stage

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadySignaled = errors.New("stage completion already signaled")
	ErrStaleStage      = errors.New("completion signaled for a stage that is no longer active")
	ErrTerminal        = errors.New("terminal stage has no successor")
)

type Transition struct {
	From Stage `json:"from"`
	To   Stage `json:"to"`
}

// Orchestrator is not safe for concurrent use; it lives on the event loop.
type Orchestrator struct {
	current   Stage
	epoch     uint64
	history   []Stage
	observers []func(Transition)
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{current: Preloader, history: []Stage{Preloader}}
}

func (o *Orchestrator) Current() Stage { return o.current }

// History lists every entered stage in order, each exactly once.
func (o *Orchestrator) History() []Stage {
	return append([]Stage(nil), o.history...)
}

// Observe registers fn to run after each advance.
func (o *Orchestrator) Observe(fn func(Transition)) {
	if fn != nil {
		o.observers = append(o.observers, fn)
	}
}

// Completion hands out the completion token for the active stage.
func (o *Orchestrator) Completion() *Completion {
	return &Completion{orch: o, stage: o.current, epoch: o.epoch}
}

func (o *Orchestrator) advance(from Stage, epoch uint64) error {
	if epoch != o.epoch || from != o.current {
		return fmt.Errorf("%w: %s (active %s)", ErrStaleStage, from, o.current)
	}
	next, ok := o.current.Next()
	if !ok {
		return ErrTerminal
	}
	o.current = next
	o.epoch++
	o.history = append(o.history, next)
	tr := Transition{From: from, To: next}
	for _, fn := range o.observers {
		fn(tr)
	}
	return nil
}

// Completion is the single-use token a stage signals when it is finished.
type Completion struct {
	orch     *Orchestrator
	stage    Stage
	epoch    uint64
	signaled bool
}

func (c *Completion) Stage() Stage { return c.stage }

func (c *Completion) Signaled() bool { return c.signaled }

// Signal advances the orchestrator to the successor of the token's stage.
func (c *Completion) Signal() error {
	if c.signaled {
		return ErrAlreadySignaled
	}
	if c.stage.IsTerminal() {
		return ErrTerminal
	}
	if err := c.orch.advance(c.stage, c.epoch); err != nil {
		return err
	}
	c.signaled = true
	return nil
}
