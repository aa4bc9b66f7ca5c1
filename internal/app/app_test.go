package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/notify"
	"triwizard/internal/script"
	"triwizard/internal/stage"
	"triwizard/internal/state"
	"triwizard/internal/telemetry"
	"triwizard/internal/ui"

	"github.com/google/go-cmp/cmp"
)

type fakeView struct {
	ctrl     ui.Controller
	stage    stage.Stage
	splash   ui.SplashState
	dialogue ui.DialogueState
	gate     ui.GateState
	outcome  ui.OutcomeState
	complete ui.CompleteState
	notices  []notify.Notice
	stops    int
}

func (f *fakeView) Run() error                     { return nil }
func (f *fakeView) Stop()                          { f.stops++ }
func (f *fakeView) SetController(c ui.Controller)  { f.ctrl = c }
func (f *fakeView) Post(fn func())                 { fn() }
func (f *fakeView) SetStage(s stage.Stage)         { f.stage = s }
func (f *fakeView) SetSplash(s ui.SplashState)     { f.splash = s }
func (f *fakeView) SetDialogue(s ui.DialogueState) { f.dialogue = s }
func (f *fakeView) SetGate(s ui.GateState)         { f.gate = s }
func (f *fakeView) SetOutcome(s ui.OutcomeState)   { f.outcome = s }
func (f *fakeView) SetComplete(s ui.CompleteState) { f.complete = s }
func (f *fakeView) Notify(n notify.Notice)         { f.notices = append(f.notices, n) }

func (f *fakeView) lastNotice() notify.Notice {
	if len(f.notices) == 0 {
		return notify.Notice{}
	}
	return f.notices[len(f.notices)-1]
}

func newTestApp(t *testing.T, cfg Config) (*App, *clock.Manual, *fakeView) {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	if cfg.Seed == 0 {
		cfg.Seed = 7
	}
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	v := &fakeView{}
	a, err := New(cfg,
		WithView(v),
		WithScheduler(clk),
		WithLogger(telemetry.NewWriterLogger(io.Discard, true)),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, clk, v
}

func advanceUntil(t *testing.T, clk *clock.Manual, what string, done func() bool) {
	t.Helper()
	for i := 0; i < 500 && !done(); i++ {
		if !clk.AdvanceToNext() {
			t.Fatalf("waiting for %s: no timers pending", what)
		}
	}
	if !done() {
		t.Fatalf("waiting for %s: gave up", what)
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// playThrough drives a full run with correct answers and returns once the
// complete stage is showing.
func playThrough(t *testing.T, a *App, clk *clock.Manual, v *fakeView) {
	t.Helper()
	a.Start()
	if v.stage != stage.Preloader || v.splash.Phase != "entrance" {
		t.Fatalf("expected preloader entrance, got %s %q", v.stage, v.splash.Phase)
	}
	advanceUntil(t, clk, "welcome", func() bool { return a.Stage() == stage.Welcome })
	advanceUntil(t, clk, "dialogue", func() bool { return a.Stage() == stage.Dialogue })

	for i, answer := range []string{"Is it a phoenix?", "A patronus!", "A school"} {
		v.ctrl.OnSubmit(ui.InputChat, answer)
		advanceUntil(t, clk, "riddle answer", func() bool { return v.dialogue.Solved == i+1 && !v.dialogue.Thinking })
	}
	if !v.dialogue.KeywordOpen {
		t.Fatalf("expected keyword box to open after the riddles")
	}
	v.ctrl.OnSubmit(ui.InputKeyword, "HOGWARTS")
	advanceUntil(t, clk, "gate", func() bool { return a.Stage() == stage.HeuristicGate })

	sc := a.Script()
	for i, p := range sc.Gate.Problems {
		v.ctrl.OnSelectSlot(i)
		v.ctrl.OnSubmit(ui.InputCode, p.ReferenceSolution)
	}
	advanceUntil(t, clk, "outcome", func() bool { return a.Stage() == stage.OutcomeSimulation })

	csv := writeFile(t, "train.csv", "id,label\n1,phoenix\n")
	for i := 0; i < 100 && !v.outcome.Finished; i++ {
		v.ctrl.OnSelectFile(csv)
		advanceUntil(t, clk, "score", func() bool { return !v.outcome.Evaluating })
	}
	advanceUntil(t, clk, "complete", func() bool { return a.Stage() == stage.Complete })
}

func TestFullRunVisitsEveryStageInOrder(t *testing.T) {
	a, clk, v := newTestApp(t, Config{NoHistory: true})
	defer a.Close()

	playThrough(t, a, clk, v)

	if diff := cmp.Diff(stage.All(), a.History()); diff != "" {
		t.Fatalf("unexpected stage history (-want +got):\n%s", diff)
	}
	if v.outcome.Tier != "champion" || v.outcome.Score < 85 {
		t.Fatalf("expected a champion score, got %+v", v.outcome)
	}
	if v.complete.Heading != a.Script().Complete.Heading || v.complete.Score != v.outcome.Score {
		t.Fatalf("unexpected complete state %+v", v.complete)
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no timers left on the complete stage, got %d", clk.Pending())
	}
}

func TestKeywordLockedThenCloseThenAccepted(t *testing.T) {
	a, clk, v := newTestApp(t, Config{NoHistory: true})
	defer a.Close()
	a.Start()
	advanceUntil(t, clk, "dialogue", func() bool { return a.Stage() == stage.Dialogue })

	v.ctrl.OnSubmit(ui.InputKeyword, "hogwarts")
	if v.lastNotice().Level != notify.LevelInfo || a.Attempts() != 0 {
		t.Fatalf("expected locked notice without an attempt, got %+v attempts=%d", v.lastNotice(), a.Attempts())
	}

	for i, answer := range []string{"phoenix", "patronus", "school"} {
		v.ctrl.OnSubmit(ui.InputChat, answer)
		advanceUntil(t, clk, "riddle answer", func() bool { return v.dialogue.Solved == i+1 })
	}

	v.ctrl.OnSubmit(ui.InputKeyword, "   ")
	v.ctrl.OnSubmit(ui.InputKeyword, "hogwart")
	n := v.lastNotice()
	if n.Level != notify.LevelRetry || !strings.Contains(n.Text, "So close") {
		t.Fatalf("expected close-miss notice, got %+v", n)
	}
	v.ctrl.OnSubmit(ui.InputKeyword, "HOGWARTS")
	if !v.dialogue.KeywordPassed {
		t.Fatalf("expected keyword to be accepted")
	}
	if a.Stage() != stage.Dialogue {
		t.Fatalf("expected the accept delay before advancing")
	}
	clk.Advance(2 * time.Second)
	if a.Stage() != stage.HeuristicGate {
		t.Fatalf("expected gate after the accept delay, got %s", a.Stage())
	}
	// 3 chats, 2 keyword guesses.
	if a.Attempts() != 5 {
		t.Fatalf("expected 5 attempts, got %d", a.Attempts())
	}
}

func TestGateReportsFailingChecks(t *testing.T) {
	a, clk, v := newTestApp(t, Config{NoHistory: true})
	defer a.Close()
	a.Start()
	for a.Stage() != stage.HeuristicGate {
		switch a.Stage() {
		case stage.Dialogue:
			a.orch.Completion().Signal()
		default:
			clk.AdvanceToNext()
		}
	}

	v.ctrl.OnSubmit(ui.InputCode, "x")
	slot := v.gate.Slots[0]
	if slot.Solved || slot.Attempts != 1 || len(slot.Checks) != 3 {
		t.Fatalf("unexpected slot after failed attempt %+v", slot)
	}
	if slot.Checks[1].Passed || slot.Checks[2].Passed {
		t.Fatalf("expected shape checks to fail, got %+v", slot.Checks)
	}
	if v.lastNotice().Level != notify.LevelRetry {
		t.Fatalf("expected retry notice, got %+v", v.lastNotice())
	}

	v.ctrl.OnSubmit(ui.InputCode, a.Script().Gate.Problems[0].ReferenceSolution)
	v.ctrl.OnSubmit(ui.InputCode, "again")
	if !v.gate.Slots[0].Solved || v.gate.Slots[0].Attempts != 2 {
		t.Fatalf("expected solved slot to stay solved, got %+v", v.gate.Slots[0])
	}
	if v.gate.Slots[0].Submission == "again" {
		t.Fatalf("solved submission must not change")
	}
}

func TestOutcomeRejectsWrongFileType(t *testing.T) {
	a, clk, v := newTestApp(t, Config{NoHistory: true})
	defer a.Close()
	a.Start()
	for a.Stage() != stage.OutcomeSimulation {
		switch a.Stage() {
		case stage.Dialogue, stage.HeuristicGate:
			a.orch.Completion().Signal()
		default:
			clk.AdvanceToNext()
		}
	}

	v.ctrl.OnSelectFile(writeFile(t, "notes.txt", "hello"))
	if v.outcome.Uploads != 0 || v.lastNotice().Level != notify.LevelError {
		t.Fatalf("expected rejected upload, got %+v notice=%+v", v.outcome, v.lastNotice())
	}
	v.ctrl.OnSelectFile(filepath.Join(t.TempDir(), "missing.csv"))
	if v.outcome.Uploads != 0 || v.lastNotice().Level != notify.LevelError {
		t.Fatalf("expected missing file to be reported")
	}
	if v.outcome.Hero != 50 || v.outcome.Rival != 50 {
		t.Fatalf("expected centered duel before scoring, got %v/%v", v.outcome.Hero, v.outcome.Rival)
	}

	csv := writeFile(t, "train.csv", "a,b\n")
	v.ctrl.OnSelectFile(csv)
	v.ctrl.OnSelectFile(csv)
	if v.outcome.Uploads != 1 || !v.outcome.Evaluating {
		t.Fatalf("expected one upload under evaluation, got %+v", v.outcome)
	}
}

func TestHistoryRecordsCompletedRun(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), Seed: 11}
	a, clk, v := newTestApp(t, cfg)
	playThrough(t, a, clk, v)
	if v.complete.Sessions != 1 || v.complete.Champions != 1 {
		t.Fatalf("expected history in the complete state, got %+v", v.complete)
	}
	a.Close()

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rec, err := store.GetLastSession(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("expected last session, got %v %v", rec, err)
	}
	if rec.ID != a.SessionID() || !rec.Completed || rec.Reached != "complete" {
		t.Fatalf("unexpected session record %+v", rec)
	}
	if rec.BestScore < 85 {
		t.Fatalf("expected champion score recorded, got %v", rec.BestScore)
	}
}

func TestCloseRecordsReachedStage(t *testing.T) {
	cfg := Config{DataDir: t.TempDir()}
	a, clk, _ := newTestApp(t, cfg)
	a.Start()
	advanceUntil(t, clk, "welcome", func() bool { return a.Stage() == stage.Welcome })
	a.Close()
	if clk.Pending() != 0 {
		t.Fatalf("expected close to cancel stage timers, got %d pending", clk.Pending())
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rec, err := store.GetLastSession(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("expected last session, got %v %v", rec, err)
	}
	if rec.Completed || rec.Reached != "welcome" {
		t.Fatalf("unexpected session record %+v", rec)
	}
}

func TestCloseAfterCancelledRunStillFinishesSession(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), Seed: 7}
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	var logs strings.Builder
	a, err := New(cfg,
		WithView(&fakeView{}),
		WithScheduler(clk),
		WithLogger(telemetry.NewWriterLogger(&logs, true)),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Run(ctx); err != nil {
		t.Fatal(err)
	}
	advanceUntil(t, clk, "welcome", func() bool { return a.Stage() == stage.Welcome })
	cancel()
	a.Close()

	if strings.Contains(logs.String(), "history.write_failed") {
		t.Fatalf("expected the final write to succeed, log:\n%s", logs.String())
	}
	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rec, err := store.GetLastSession(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("expected last session, got %v %v", rec, err)
	}
	if rec.Reached != "welcome" || rec.EndTS.IsZero() {
		t.Fatalf("expected a finished session at welcome, got %+v", rec)
	}
}

func TestStartIsIdempotentAndQuitStopsView(t *testing.T) {
	a, _, v := newTestApp(t, Config{NoHistory: true})
	defer a.Close()
	a.Start()
	a.Start()
	if diff := cmp.Diff([]stage.Stage{stage.Preloader}, a.History()); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
	v.ctrl.OnQuit()
	if v.stops != 1 {
		t.Fatalf("expected quit to stop the view")
	}
}

func TestNewRejectsBrokenScript(t *testing.T) {
	path := writeFile(t, "broken.yaml", "kind: nope\n")
	_, err := New(Config{NoHistory: true, DataDir: t.TempDir(), ScriptPath: path},
		WithView(&fakeView{}),
		WithLogger(telemetry.NewWriterLogger(io.Discard, false)),
	)
	if err == nil || !strings.Contains(err.Error(), "load script") {
		t.Fatalf("expected script error, got %v", err)
	}
}

type stubLoader struct{ paths []string }

func (s *stubLoader) Load(path string) (script.Script, error) {
	s.paths = append(s.paths, path)
	return script.Default()
}

func TestNewLoadsScriptThroughLoader(t *testing.T) {
	l := &stubLoader{}
	a, err := New(Config{NoHistory: true, DataDir: t.TempDir(), ScriptPath: "custom.yaml"},
		WithLoader(l),
		WithView(&fakeView{}),
		WithLogger(telemetry.NewWriterLogger(io.Discard, false)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if diff := cmp.Diff([]string{"custom.yaml"}, l.paths); diff != "" {
		t.Fatalf("unexpected loads (-want +got):\n%s", diff)
	}
	if a.Script().Title == "" {
		t.Fatalf("expected loaded script to be kept")
	}
}

func TestLoadEnvOverlaysPrefixedVariables(t *testing.T) {
	t.Setenv("TRIWIZARD_SEED", "42")
	t.Setenv("TRIWIZARD_UI_STYLE", "parchment")
	t.Setenv("TRIWIZARD_NO_HISTORY", "true")

	cfg := DefaultConfig()
	cfg.ScriptPath = "custom.yaml"
	if err := LoadEnv(&cfg); err != nil {
		t.Fatal(err)
	}
	want := Config{
		ScriptPath: "custom.yaml",
		Seed:       42,
		NoHistory:  true,
		UI:         UIConfig{StyleVariant: "parchment", MotionLevel: "full"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestValidateRejectsUnknownStyle(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), UI: UIConfig{StyleVariant: "neon"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid style to fail")
	}
	cfg = Config{DataDir: t.TempDir()}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.UI.StyleVariant != "great_hall" || cfg.UI.MotionLevel != "full" {
		t.Fatalf("expected defaults filled, got %+v", cfg.UI)
	}
}

func TestValidateDefaultsDataDirToUserDataPath(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(cfg.DataDir) || filepath.Base(cfg.DataDir) != "triwizard" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
	if filepath.Dir(cfg.HistoryPath()) != cfg.DataDir {
		t.Fatalf("history %q is outside %q", cfg.HistoryPath(), cfg.DataDir)
	}
}
