package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/dialogue"
	"triwizard/internal/gate"
	"triwizard/internal/grading"
	"triwizard/internal/notify"
	"triwizard/internal/outcome"
	"triwizard/internal/script"
	"triwizard/internal/sequencer"
	"triwizard/internal/stage"
	"triwizard/internal/state"
	"triwizard/internal/telemetry"
	"triwizard/internal/ui"

	"github.com/google/uuid"
)

// App owns the stage orchestrator and whichever stage component is active.
// Every method runs on the event loop.
type App struct {
	cfg    Config
	loader script.Loader
	script script.Script

	logger Logger
	store  Store
	view   ui.View
	sched  clock.Scheduler
	rng    *rand.Rand
	grader grading.Grader

	closers []func() error

	ctx       context.Context
	sessionID string
	seed      uint64
	orch      *stage.Orchestrator
	started   bool
	finished  bool

	seq  *sequencer.Sequencer
	dlg  *dialogue.Engine
	gate *gate.Gate
	sim  *outcome.Simulator

	attempts  int
	lastScore float64
}

type Option func(*App)

func WithView(v ui.View) Option { return func(a *App) { a.view = v } }

func WithScheduler(s clock.Scheduler) Option { return func(a *App) { a.sched = s } }

func WithStore(s Store) Option { return func(a *App) { a.store = s } }

func WithLogger(l Logger) Option { return func(a *App) { a.logger = l } }

// WithScript skips loading and plays s as given.
func WithScript(s script.Script) Option {
	return func(a *App) { a.script = s }
}

func WithLoader(l script.Loader) Option { return func(a *App) { a.loader = l } }

func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &App{
		cfg:       cfg,
		ctx:       context.Background(),
		sessionID: uuid.NewString(),
		loader:    script.NewLoader(),
		grader:    grading.NewGrader(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.script.Kind == "" {
		sc, err := a.loader.Load(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("load script: %w", err)
		}
		a.script = sc
	}

	if a.logger == nil {
		logger, err := telemetry.NewJSONLogger(cfg.LogPath, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		a.logger = logger
		a.closers = append(a.closers, logger.Close)
	}

	if a.store == nil && !cfg.NoHistory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			a.close()
			return nil, fmt.Errorf("data dir: %w", err)
		}
		store, err := state.NewSQLite(cfg.HistoryPath())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		if err := store.EnsureSchema(context.Background()); err != nil {
			_ = store.Close()
			a.close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	if a.view == nil {
		a.view = ui.New(ui.Options{
			Title:        a.script.Title,
			ASCIIOnly:    cfg.ASCIIOnly,
			Debug:        cfg.Debug,
			StyleVariant: cfg.UI.StyleVariant,
			MotionLevel:  cfg.UI.MotionLevel,
		})
	}
	if a.sched == nil {
		a.sched = clock.NewReal(a.view.Post)
	}

	a.seed = cfg.Seed
	if a.seed == 0 {
		a.seed = uint64(time.Now().UnixNano())
	}
	a.rng = rand.New(rand.NewPCG(a.seed, a.seed^0x9e3779b97f4a7c15))

	a.orch = stage.NewOrchestrator()
	a.orch.Observe(a.onTransition)
	a.view.SetController(a)
	return a, nil
}

// Run plays the experience in the terminal until the player quits or ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "seed": a.seed, "script": a.script.Title})
	a.view.Post(a.Start)
	return a.view.Run()
}

// Start enters the first stage. Later calls do nothing.
func (a *App) Start() {
	if a.started {
		return
	}
	a.started = true
	a.record("session", func(ctx context.Context, s Store) error {
		return s.StartSession(ctx, state.Session{
			ID:          a.sessionID,
			ScriptTitle: a.script.Title,
			Seed:        a.seed,
			StartTS:     a.sched.Now(),
		})
	})
	a.enter(a.orch.Current())
}

func (a *App) Stop() {
	a.view.Stop()
}

// Close tears down the active stage and records where the run stopped.
// The run context is usually cancelled by now, so the final write ignores it.
func (a *App) Close() {
	a.teardown()
	if a.started && !a.finished {
		a.ctx = context.WithoutCancel(a.ctx)
		reached := a.orch.Current().String()
		a.record("finish", func(ctx context.Context, s Store) error {
			return s.FinishSession(ctx, a.sessionID, reached, a.sched.Now())
		})
	}
	a.logger.Info("app.close", map[string]any{"session": a.sessionID, "reached": a.orch.Current().String(), "attempts": a.attempts})
	a.close()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *App) SessionID() string          { return a.sessionID }
func (a *App) Seed() uint64               { return a.seed }
func (a *App) Stage() stage.Stage         { return a.orch.Current() }
func (a *App) History() []stage.Stage     { return a.orch.History() }
func (a *App) Script() script.Script      { return a.script }
func (a *App) Attempts() int              { return a.attempts }
func (a *App) Scheduler() clock.Scheduler { return a.sched }

func (a *App) OnSubmit(input ui.InputKind, text string) {
	switch input {
	case ui.InputChat:
		a.submitChat(text)
	case ui.InputKeyword:
		a.submitKeyword(text)
	case ui.InputCode:
		a.submitCode(text)
	}
}

func (a *App) OnSelectSlot(i int) {
	if a.gate == nil {
		return
	}
	if err := a.gate.Select(i); err != nil {
		a.logger.Debug("gate.select_rejected", map[string]any{"slot": i, "error": err.Error()})
		return
	}
	a.pushGate()
}

func (a *App) OnSelectFile(path string) {
	if a.sim == nil {
		return
	}
	u, err := outcome.InspectFile(path)
	if err != nil {
		a.logger.Info("outcome.file_unreadable", map[string]any{"path": path, "error": err.Error()})
		a.view.Notify(notify.Error("Cannot use " + path + ": " + errText(err)))
		return
	}
	a.Upload(u)
}

// Upload hands an already described file to the outcome simulator.
func (a *App) Upload(u outcome.Upload) {
	if a.sim == nil {
		return
	}
	err := a.sim.TriggerUpload(u)
	fields := map[string]any{"name": u.Name, "mime": u.MIMEType, "size": u.Size}
	switch {
	case err == nil:
		a.logger.Info("outcome.upload", fields)
	case errors.Is(err, outcome.ErrInvalidType), errors.Is(err, outcome.ErrEvaluating), errors.Is(err, outcome.ErrFinished):
		fields["error"] = err.Error()
		a.logger.Info("outcome.upload_rejected", fields)
	default:
		fields["error"] = err.Error()
		a.logger.Error("outcome.upload_failed", fields)
	}
	if !errors.Is(err, outcome.ErrFinished) {
		a.countAttempt(state.AttemptUpload, "", err == nil)
	}
	a.pushOutcome()
}

func (a *App) OnQuit() {
	a.logger.Info("app.quit", map[string]any{"stage": a.orch.Current().String()})
	a.view.Stop()
}

func (a *App) submitChat(text string) {
	if a.dlg == nil {
		return
	}
	if !a.dlg.Submit(text) {
		return
	}
	a.logger.Debug("dialogue.submit", map[string]any{"attempt": a.dlg.Attempts(), "length": len(text)})
	a.countAttempt(state.AttemptChat, "", false)
	a.pushDialogue()
}

func (a *App) submitKeyword(text string) {
	if a.dlg == nil || strings.TrimSpace(text) == "" {
		return
	}
	res := a.dlg.SubmitKeyword(text)
	a.logger.Info("dialogue.keyword", map[string]any{"result": string(res)})
	if res == dialogue.KeywordAccepted || res == dialogue.KeywordRejected {
		a.countAttempt(state.AttemptKeyword, "", res == dialogue.KeywordAccepted)
	}
	a.pushDialogue()
}

func (a *App) submitCode(text string) {
	if a.gate == nil {
		return
	}
	i := a.gate.Selected()
	if err := a.gate.SetSubmission(i, text); err != nil {
		if errors.Is(err, gate.ErrSlotSolved) {
			a.view.Notify(notify.Info("That problem is already solved."))
		}
		a.logger.Debug("gate.submission_rejected", map[string]any{"slot": i, "error": err.Error()})
		return
	}
	res, err := a.gate.Evaluate(i)
	if err != nil {
		a.logger.Error("gate.evaluate_failed", map[string]any{"slot": i, "error": err.Error()})
		a.view.Notify(notify.Error(errText(err)))
		return
	}
	a.logger.Info("gate.evaluate", map[string]any{"slot": res.SlotID, "attempt": res.Attempt, "passed": res.Passed})
	a.countAttempt(state.AttemptCode, res.SlotID, res.Passed)
	a.pushGate()
}

func (a *App) countAttempt(kind, slot string, passed bool) {
	a.attempts++
	st := a.orch.Current().String()
	a.record("attempt", func(ctx context.Context, s Store) error {
		return s.RecordAttempt(ctx, state.Attempt{
			SessionID: a.sessionID,
			Stage:     st,
			Kind:      kind,
			Slot:      slot,
			Passed:    passed,
			TS:        a.sched.Now(),
		})
	})
}

func (a *App) onTransition(tr stage.Transition) {
	a.teardown()
	a.logger.Info("stage.enter", map[string]any{"session": a.sessionID, "from": tr.From.String(), "to": tr.To.String()})
	a.record("stage", func(ctx context.Context, s Store) error {
		return s.RecordStage(ctx, state.StageEvent{SessionID: a.sessionID, From: tr.From.String(), To: tr.To.String(), TS: a.sched.Now()})
	})
	a.enter(tr.To)
}

// signal hands the active stage's completion to the orchestrator.
func (a *App) signal(c *stage.Completion) func() {
	return func() {
		if err := c.Signal(); err != nil {
			a.logger.Error("stage.signal_rejected", map[string]any{"stage": c.Stage().String(), "error": err.Error()})
		}
	}
}

func (a *App) teardown() {
	if a.seq != nil {
		a.seq.Stop()
		a.seq = nil
	}
	if a.dlg != nil {
		a.dlg.Stop()
		a.dlg = nil
	}
	if a.gate != nil {
		a.gate.Stop()
		a.gate = nil
	}
	if a.sim != nil {
		a.sim.Stop()
		a.sim = nil
	}
}

func (a *App) enter(s stage.Stage) {
	done := a.signal(a.orch.Completion())
	a.view.SetStage(s)

	switch s {
	case stage.Preloader, stage.Welcome:
		a.startSplash(s, done)
	case stage.Dialogue:
		a.startDialogue(done)
	case stage.HeuristicGate:
		a.startGate(done)
	case stage.OutcomeSimulation:
		a.startOutcome(done)
	case stage.Complete:
		a.finish()
	}
}

func (a *App) startSplash(s stage.Stage, done func()) {
	tl := a.script.Timings.Preloader
	if s == stage.Welcome {
		tl = a.script.Timings.Welcome
	}
	a.seq = sequencer.New(a.sched, tl.Timeline(), sequencer.Hooks{
		OnPhase: func(p sequencer.Phase) {
			a.logger.Debug("splash.phase", map[string]any{"stage": s.String(), "phase": string(p)})
			a.pushSplash()
		},
		OnComplete: done,
	})
	if err := a.seq.Start(); err != nil {
		a.logger.Error("splash.start_failed", map[string]any{"error": err.Error()})
	}
	a.pushSplash()
}

func (a *App) startDialogue(done func()) {
	a.dlg = dialogue.New(a.sched, a.rng, dialogueConfig(a.script.Dialogue), dialogue.Hooks{
		OnTurn:     func(dialogue.Turn) { a.pushDialogue() },
		OnNotice:   a.notice,
		OnComplete: done,
	})
	if err := a.dlg.Start(); err != nil {
		a.logger.Error("dialogue.start_failed", map[string]any{"error": err.Error()})
	}
	a.pushDialogue()
}

func (a *App) startGate(done func()) {
	a.gate = gate.New(a.sched, a.grader, gateConfig(a.script.Gate), gate.Hooks{
		OnNotice:   a.notice,
		OnComplete: done,
	})
	a.pushGate()
}

func (a *App) startOutcome(done func()) {
	a.sim = outcome.New(a.sched, a.rng, outcomeConfig(a.script.Outcome), outcome.Hooks{
		OnNotice: func(n notify.Notice) {
			a.notice(n)
			a.pushOutcome()
		},
		OnScore: func(score float64, tier outcome.Tier) {
			a.lastScore = score
			a.logger.Info("outcome.scored", map[string]any{"score": score, "tier": string(tier)})
			a.record("score", func(ctx context.Context, s Store) error {
				return s.RecordScore(ctx, state.Score{SessionID: a.sessionID, Value: score, Tier: string(tier), TS: a.sched.Now()})
			})
			a.pushOutcome()
		},
		OnComplete: done,
	})
	a.pushOutcome()
}

func (a *App) finish() {
	a.finished = true
	a.record("finish", func(ctx context.Context, s Store) error {
		return s.FinishSession(ctx, a.sessionID, stage.Complete.String(), a.sched.Now())
	})
	var summary state.Summary
	a.record("summary", func(ctx context.Context, s Store) error {
		var err error
		summary, err = s.GetSummary(ctx)
		return err
	})
	a.view.SetComplete(completeState(a.script.Complete, a.lastScore, a.attempts, summary))
}

func (a *App) notice(n notify.Notice) {
	a.logger.Debug("notice", map[string]any{"level": string(n.Level), "text": n.Text})
	a.view.Notify(n)
}

// record runs a history write. Failures are logged and never surface to the
// player.
func (a *App) record(what string, fn func(ctx context.Context, s Store) error) {
	if a.store == nil {
		return
	}
	if err := fn(a.ctx, a.store); err != nil {
		a.logger.Error("history.write_failed", map[string]any{"what": what, "error": err.Error()})
	}
}

func (a *App) pushSplash() {
	if a.seq != nil {
		a.view.SetSplash(splashState(a.script.Splash, a.seq))
	}
}

func (a *App) pushDialogue() {
	if a.dlg != nil {
		a.view.SetDialogue(dialogueState(a.dlg.Snapshot()))
	}
}

func (a *App) pushGate() {
	if a.gate != nil {
		a.view.SetGate(gateState(a.gate.Snapshot()))
	}
}

func (a *App) pushOutcome() {
	if a.sim != nil {
		a.view.SetOutcome(outcomeState(a.script.Outcome, a.sim.Snapshot()))
	}
}

func errText(err error) string {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}

var _ ui.Controller = (*App)(nil)
