package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"triwizard/internal/app"
	"triwizard/internal/clock"
	"triwizard/internal/outcome"
	"triwizard/internal/script"
	"triwizard/internal/stage"
	"triwizard/internal/telemetry"
	"triwizard/internal/ui"
)

var ErrStalled = errors.New("scenario stalled")

type RunOptions struct {
	Seed   uint64
	Script *script.Script
	// Out receives one JSON line per view update. Nil discards them.
	Out        io.Writer
	Logger     app.Logger
	Store      app.Store
	MaxUploads int
	// Realtime plays the scenario on the wall clock instead of a virtual one.
	Realtime bool
}

type Report struct {
	Scenario string        `json:"scenario"`
	Seed     uint64        `json:"seed"`
	Reached  stage.Stage   `json:"reached"`
	History  []stage.Stage `json:"history"`
	Attempts int           `json:"attempts"`
	Uploads  int           `json:"uploads"`
	Score    float64       `json:"score"`
	Tier     string        `json:"tier,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Lines    int           `json:"lines"`
}

func (r Report) Completed() bool { return r.Reached == stage.Complete }

// run holds one scenario replay. Steps reach the app through the driver,
// which owns the event loop.
type run struct {
	app *app.App
	drv driver
	rec *Recorder
	sc  script.Script
	max int
}

func (m *Manager) Run(ctx context.Context, sc Scenario, opts RunOptions) (Report, error) {
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	if opts.MaxUploads <= 0 {
		opts.MaxUploads = 50
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewWriterLogger(io.Discard, false)
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var drv driver
	if opts.Realtime {
		rt := newRealtimeDriver()
		defer rt.close()
		drv = rt
	} else {
		drv = &virtualDriver{clk: clock.NewManual(time.Time{})}
	}
	start := drv.scheduler().Now()
	rec := NewRecorder(out, drv.scheduler())
	appOpts := []app.Option{
		app.WithView(rec),
		app.WithScheduler(drv.scheduler()),
		app.WithLogger(opts.Logger),
	}
	if opts.Script != nil {
		appOpts = append(appOpts, app.WithScript(*opts.Script))
	}
	if opts.Store != nil {
		appOpts = append(appOpts, app.WithStore(opts.Store))
	}
	cfg := app.Config{
		DataDir:   os.TempDir(),
		Seed:      opts.Seed,
		NoHistory: opts.Store == nil,
	}
	a, err := app.New(cfg, appOpts...)
	if err != nil {
		return Report{}, err
	}
	defer drv.do(a.Close)

	r := &run{app: a, drv: drv, rec: rec, sc: a.Script(), max: opts.MaxUploads}
	drv.do(a.Start)

	var runErr error
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := r.step(ctx, step); err != nil {
			runErr = fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
			break
		}
	}

	var rep Report
	drv.do(func() {
		if runErr == nil && rec.Err() != nil {
			runErr = fmt.Errorf("recorder: %w", rec.Err())
		}
		last := rec.Outcome()
		rep = Report{
			Scenario: sc.Name,
			Seed:     a.Seed(),
			Reached:  a.Stage(),
			History:  a.History(),
			Attempts: a.Attempts(),
			Uploads:  last.Uploads,
			Score:    last.Score,
			Tier:     last.Tier,
			Elapsed:  drv.scheduler().Now().Sub(start),
			Lines:    rec.Lines(),
		}
	})
	return rep, runErr
}

func (r *run) step(ctx context.Context, s Step) error {
	switch s.Kind {
	case StepWait:
		return r.drv.wait(ctx, s.Wait)
	case StepAwait:
		return r.settle(ctx, func() bool { return r.app.Stage() >= s.Stage })
	case StepChat:
		r.drv.do(func() { r.app.OnSubmit(ui.InputChat, s.Text) })
		return r.settle(ctx, func() bool { return !r.rec.Dialogue().Thinking || r.app.Stage() != stage.Dialogue })
	case StepKeyword:
		r.drv.do(func() { r.app.OnSubmit(ui.InputKeyword, s.Text) })
		return nil
	case StepCode:
		text := s.Text
		if text == "" {
			if s.Slot < 0 || s.Slot >= len(r.sc.Gate.Problems) {
				return fmt.Errorf("slot %d out of range", s.Slot)
			}
			text = r.sc.Gate.Problems[s.Slot].ReferenceSolution
		}
		r.drv.do(func() {
			r.app.OnSelectSlot(s.Slot)
			r.app.OnSubmit(ui.InputCode, text)
		})
		return nil
	case StepUpload:
		r.upload(s)
		return r.settle(ctx, func() bool { return !r.rec.Outcome().Evaluating })
	case StepUploadUntilChampion:
		for i := 0; i < r.max; i++ {
			var finished bool
			r.drv.do(func() { finished = r.rec.Outcome().Finished || r.app.Stage() != stage.OutcomeSimulation })
			if finished {
				return nil
			}
			r.upload(s)
			if err := r.settle(ctx, func() bool { return !r.rec.Outcome().Evaluating }); err != nil {
				return err
			}
		}
		var finished bool
		r.drv.do(func() { finished = r.rec.Outcome().Finished })
		if !finished {
			return fmt.Errorf("%w: no champion score after %d uploads", ErrStalled, r.max)
		}
		return nil
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
}

func (r *run) upload(s Step) {
	r.drv.do(func() { r.app.Upload(outcome.Upload{Name: s.Name, MIMEType: s.MIME, Size: 1024}) })
}

func (r *run) settle(ctx context.Context, done func() bool) error {
	if err := r.drv.settle(ctx, done); err != nil {
		var at stage.Stage
		r.drv.do(func() { at = r.app.Stage() })
		return fmt.Errorf("%w at %s", err, at)
	}
	return nil
}

// WriteReport stores r as indented JSON, creating parent directories.
func WriteReport(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
