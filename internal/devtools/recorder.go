package devtools

import (
	"encoding/json"
	"io"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/notify"
	"triwizard/internal/stage"
	"triwizard/internal/ui"
)

// Frame is one recorded view update.
type Frame struct {
	AtMS  int64       `json:"at_ms"`
	Kind  string      `json:"kind"`
	Stage stage.Stage `json:"stage"`
	State any         `json:"state,omitempty"`
}

// Recorder is a ui.View that writes every update as a JSON line instead of
// drawing it. It keeps the latest state of each stage for callers that need
// to wait on it.
type Recorder struct {
	enc   *json.Encoder
	clk   clock.Scheduler
	start time.Time
	ctrl  ui.Controller
	err   error
	lines int

	stage    stage.Stage
	splash   ui.SplashState
	dialogue ui.DialogueState
	gate     ui.GateState
	outcome  ui.OutcomeState
	complete ui.CompleteState
	notices  []notify.Notice
	stopped  bool
}

func NewRecorder(w io.Writer, clk clock.Scheduler) *Recorder {
	return &Recorder{enc: json.NewEncoder(w), clk: clk, start: clk.Now()}
}

func (r *Recorder) Stop() {
	r.stopped = true
	r.write("stop", nil)
}

func (r *Recorder) Run() error                    { return nil }
func (r *Recorder) SetController(c ui.Controller) { r.ctrl = c }
func (r *Recorder) Post(fn func())                { fn() }

func (r *Recorder) SetStage(s stage.Stage) {
	r.stage = s
	r.write("stage", nil)
}

func (r *Recorder) SetSplash(s ui.SplashState) {
	r.splash = s
	r.write("splash", s)
}

func (r *Recorder) SetDialogue(s ui.DialogueState) {
	r.dialogue = s
	r.write("dialogue", s)
}

func (r *Recorder) SetGate(s ui.GateState) {
	r.gate = s
	r.write("gate", s)
}

func (r *Recorder) SetOutcome(s ui.OutcomeState) {
	r.outcome = s
	r.write("outcome", s)
}

func (r *Recorder) SetComplete(s ui.CompleteState) {
	r.complete = s
	r.write("complete", s)
}

func (r *Recorder) Notify(n notify.Notice) {
	r.notices = append(r.notices, n)
	r.write("notice", n)
}

func (r *Recorder) Stage() stage.Stage         { return r.stage }
func (r *Recorder) Dialogue() ui.DialogueState { return r.dialogue }
func (r *Recorder) Gate() ui.GateState         { return r.gate }
func (r *Recorder) Outcome() ui.OutcomeState   { return r.outcome }
func (r *Recorder) Complete() ui.CompleteState { return r.complete }
func (r *Recorder) Notices() []notify.Notice   { return append([]notify.Notice(nil), r.notices...) }
func (r *Recorder) Lines() int                 { return r.lines }
func (r *Recorder) Stopped() bool              { return r.stopped }

// Err reports the first write failure. Later writes are skipped.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) write(kind string, state any) {
	if r.err != nil {
		return
	}
	r.err = r.enc.Encode(Frame{
		AtMS:  r.clk.Now().Sub(r.start).Milliseconds(),
		Kind:  kind,
		Stage: r.stage,
		State: state,
	})
	if r.err == nil {
		r.lines++
	}
}

var _ ui.View = (*Recorder)(nil)
