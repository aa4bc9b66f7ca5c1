package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"triwizard/internal/notify"
	"triwizard/internal/stage"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type postMsg struct {
	fn func()
}

type animateMsg time.Time

type stageKeyMap struct {
	Submit   key.Binding
	Focus    key.Binding
	Test     key.Binding
	NextSlot key.Binding
	PrevSlot key.Binding
	Quit     key.Binding
}

func (k stageKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Focus, k.Test, k.NextSlot, k.PrevSlot, k.Quit}
}

func (k stageKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Focus}, {k.Test, k.NextSlot, k.PrevSlot}, {k.Quit}}
}

func (k stageKeyMap) bindingsFor(s stage.Stage) []key.Binding {
	switch s {
	case stage.Dialogue:
		return []key.Binding{k.Submit, k.Focus, k.Quit}
	case stage.HeuristicGate:
		return []key.Binding{k.Test, k.NextSlot, k.PrevSlot, k.Quit}
	case stage.OutcomeSimulation:
		return []key.Binding{k.Submit, k.Quit}
	default:
		return []key.Binding{k.Quit}
	}
}

type Root struct {
	theme        Theme
	title        string
	ascii        bool
	debug        bool
	ctrl         Controller
	styleVariant string
	motionLevel  string

	mu          sync.Mutex
	program     *tea.Program
	programOpts []tea.ProgramOption
	running     bool
	onLoop      bool
	quitting    bool
	pending     []func()

	layout LayoutMode
	cols   int
	rows   int

	stage    stage.Stage
	splash   SplashState
	dialogue DialogueState
	gate     GateState
	outcome  OutcomeState
	complete CompleteState
	notice   notify.Notice

	chat         textinput.Model
	keyword      textinput.Model
	path         textinput.Model
	code         textarea.Model
	keywordFocus bool
	codeSlot     int
	drafts       map[int]string
	cmds         []tea.Cmd

	help      help.Model
	keymap    stageKeyMap
	bar       progress.Model
	spin      spinner.Model
	markdown  *glamour.TermRenderer
	mdCache   map[string]string
	logger    *clog.Logger
	spring    harmonica.Spring
	heroPos   float64
	heroVel   float64
	animating bool

	lastInputEvent string
}

type Options struct {
	Title        string
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
	// ProgramOptions are passed to the Bubble Tea program on Run.
	ProgramOptions []tea.ProgramOption
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "triwizard-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	theme := ThemeForVariant(styleVariant)
	spring := harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.45)
	switch motionLevel {
	case "reduced":
		spring = harmonica.NewSpring(harmonica.FPS(30), 8.0, 0.9)
	case "off":
		spring = harmonica.NewSpring(harmonica.FPS(60), 1000.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(24),
		progress.WithColors(lipgloss.Color(theme.Bar[0]), lipgloss.Color(theme.Bar[1]), lipgloss.Color(theme.Bar[2])),
		progress.WithScaled(true),
	)
	if motionLevel == "off" {
		bar.SetSpringOptions(1000.0, 1.0)
	}
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	prompt := "› "
	if opts.ASCIIOnly {
		prompt = "> "
	}
	chat := textinput.New()
	chat.Prompt = prompt
	chat.Placeholder = "Speak to the guide"
	chat.CharLimit = 280
	kw := textinput.New()
	kw.Prompt = prompt
	kw.Placeholder = "Secret keyword"
	kw.CharLimit = 64
	path := textinput.New()
	path.Prompt = prompt
	path.Placeholder = "Path to your dataset (.csv)"
	code := textarea.New()
	code.Placeholder = "Write your solution here"
	code.ShowLineNumbers = true
	code.SetHeight(8)

	r := &Root{
		theme:        theme,
		title:        firstNonEmptyStr(opts.Title, "Triwizard Challenge"),
		ascii:        opts.ASCIIOnly,
		debug:        opts.Debug,
		styleVariant: styleVariant,
		motionLevel:  motionLevel,
		programOpts:  opts.ProgramOptions,
		layout:       LayoutWide,
		cols:         120,
		rows:         32,
		stage:        stage.Preloader,
		chat:         chat,
		keyword:      kw,
		path:         path,
		code:         code,
		codeSlot:     -1,
		drafts:       map[int]string{},
		help:         h,
		bar:          bar,
		spin:         spin,
		markdown:     renderer,
		mdCache:      map[string]string{},
		logger:       logger,
		spring:       spring,
		heroPos:      50,
	}
	r.outcome.Hero, r.outcome.Rival = 50, 50
	r.keymap = stageKeyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "chat/keyword")),
		Test:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "test solution")),
		NextSlot: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next problem")),
		PrevSlot: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev problem")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
	}
	r.resize(r.cols, r.rows)
	return r
}

func (r *Root) Init() tea.Cmd {
	r.mu.Lock()
	r.running = true
	queued := r.pending
	r.pending = nil
	r.onLoop = true
	r.mu.Unlock()

	for _, fn := range queued {
		fn()
	}
	r.setOnLoop(false)
	return tea.Batch(textinput.Blink, spinnerTickCmd(r.spin), r.settle())
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	r.setOnLoop(true)
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
		r.setOnLoop(false)
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.resize(msg.Width, msg.Height)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.settle()
	case postMsg:
		if msg.fn != nil {
			msg.fn()
		}
		return r, r.settle()
	case animateMsg:
		r.heroPos, r.heroVel = r.spring.Update(r.heroPos, r.heroVel, r.outcome.Hero)
		if r.shouldAnimate() {
			return r, animateTickCmd()
		}
		r.heroPos, r.heroVel = r.outcome.Hero, 0
		r.animating = false
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.KeyPressMsg:
		m, c := r.handleKey(msg)
		return m, tea.Batch(c, r.settle())
	case tea.PasteMsg:
		r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
	}
	return r, r.forwardToInput(msg)
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			msg := "UI recovered from a rendering panic. Check logs."
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth(msg, max(1, width-1))))
		}
	}()

	v := tea.NewView(r.render())
	v.AltScreen = true
	v.WindowTitle = r.title
	return v
}

func (r *Root) render() string {
	switch {
	case r.layout == LayoutTooSmall:
		return r.renderTooSmall()
	case r.stage == stage.Preloader:
		return r.renderPreloader()
	case r.stage == stage.Welcome:
		return r.renderWelcome()
	case r.stage == stage.Dialogue:
		return r.frame(r.renderDialogue())
	case r.stage == stage.HeuristicGate:
		return r.frame(r.renderGate())
	case r.stage == stage.OutcomeSimulation:
		return r.frame(r.renderOutcome())
	default:
		return r.frame(r.renderComplete())
	}
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.program != nil {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r, r.programOpts...)
	r.program = p
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

// Stop ends the program. The quit is also returned with the current update
// when one is in flight. onLoop cannot tell an update from a concurrent
// caller, so the quit message is always sent, off the loop when needed.
func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	onLoop := r.onLoop
	r.quitting = true
	r.mu.Unlock()
	if p == nil {
		return
	}
	if onLoop {
		go p.Quit()
		return
	}
	p.Quit()
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) Post(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	if !r.running || p == nil {
		r.pending = append(r.pending, fn)
		r.mu.Unlock()
		return
	}
	onLoop := r.onLoop
	r.mu.Unlock()
	if onLoop {
		go p.Send(postMsg{fn: fn})
		return
	}
	p.Send(postMsg{fn: fn})
}

func (r *Root) SetStage(s stage.Stage) {
	r.apply(func(r *Root) {
		r.stage = s
		r.notice = notify.Notice{}
		r.refocus()
	})
}

func (r *Root) SetSplash(state SplashState) {
	r.apply(func(r *Root) { r.splash = state })
}

func (r *Root) SetDialogue(state DialogueState) {
	r.apply(func(r *Root) {
		r.dialogue = state
		if state.KeywordPassed && r.keywordFocus {
			r.keywordFocus = false
			r.refocus()
		}
	})
}

func (r *Root) SetGate(state GateState) {
	r.apply(func(r *Root) {
		r.gate = state
		if r.codeSlot == state.Selected {
			return
		}
		if r.codeSlot >= 0 {
			r.drafts[r.codeSlot] = r.code.Value()
		}
		r.codeSlot = state.Selected
		r.code.SetValue(r.draftFor(state.Selected))
	})
}

func (r *Root) SetOutcome(state OutcomeState) {
	r.apply(func(r *Root) {
		r.outcome = state
		if r.motionLevel == "off" {
			r.heroPos, r.heroVel = state.Hero, 0
		}
	})
}

func (r *Root) SetComplete(state CompleteState) {
	r.apply(func(r *Root) { r.complete = state })
}

func (r *Root) Notify(n notify.Notice) {
	r.apply(func(r *Root) { r.notice = n })
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	direct := !r.running || p == nil || r.onLoop
	r.mu.Unlock()
	if direct {
		fn(r)
		return
	}
	p.Send(applyMsg{fn: fn})
}

func (r *Root) setOnLoop(v bool) {
	r.mu.Lock()
	r.onLoop = v
	r.mu.Unlock()
}

func (r *Root) dispatch(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	fn(r.ctrl)
}

func (r *Root) settle() tea.Cmd {
	r.mu.Lock()
	quitting := r.quitting
	r.mu.Unlock()
	if quitting {
		return tea.Quit
	}
	cmds := append(r.cmds, r.animateIfNeeded())
	r.cmds = nil
	return tea.Batch(cmds...)
}

func (r *Root) resize(cols, rows int) {
	r.cols = cols
	r.rows = rows
	r.layout = DetermineLayoutMode(cols, rows)
	_, main := splitWidths(cols, r.layout)
	inputW := max(10, main-6)
	r.chat.SetWidth(inputW)
	r.keyword.SetWidth(min(inputW, 32))
	r.path.SetWidth(inputW)
	r.code.SetWidth(max(10, main-4))
	r.help.SetWidth(cols)
}

func (r *Root) refocus() {
	r.chat.Blur()
	r.keyword.Blur()
	r.path.Blur()
	r.code.Blur()
	var cmd tea.Cmd
	switch r.stage {
	case stage.Dialogue:
		if r.keywordFocus {
			cmd = r.keyword.Focus()
		} else {
			cmd = r.chat.Focus()
		}
	case stage.HeuristicGate:
		cmd = r.code.Focus()
	case stage.OutcomeSimulation:
		cmd = r.path.Focus()
	}
	if cmd != nil {
		r.cmds = append(r.cmds, cmd)
	}
}

func (r *Root) draftFor(i int) string {
	if d, ok := r.drafts[i]; ok {
		return d
	}
	if i >= 0 && i < len(r.gate.Slots) {
		return r.gate.Slots[i].Submission
	}
	return ""
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent("key:" + msg.String())

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatch(func(c Controller) { c.OnQuit() })
		return r, nil
	}

	switch r.stage {
	case stage.Dialogue:
		return r.handleDialogueKey(msg)
	case stage.HeuristicGate:
		return r.handleGateKey(msg)
	case stage.OutcomeSimulation:
		return r.handleOutcomeKey(msg)
	}
	return r, nil
}

func (r *Root) handleDialogueKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keymap.Focus):
		r.keywordFocus = !r.keywordFocus && !r.dialogue.KeywordPassed
		r.refocus()
		return r, nil
	case key.Matches(msg, r.keymap.Submit):
		if r.keywordFocus {
			text := r.keyword.Value()
			r.keyword.Reset()
			r.dispatch(func(c Controller) { c.OnSubmit(InputKeyword, text) })
		} else {
			text := r.chat.Value()
			r.chat.Reset()
			r.dispatch(func(c Controller) { c.OnSubmit(InputChat, text) })
		}
		return r, nil
	}
	return r, r.forwardToInput(msg)
}

func (r *Root) handleGateKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	n := len(r.gate.Slots)
	switch {
	case key.Matches(msg, r.keymap.Test):
		text := r.code.Value()
		r.dispatch(func(c Controller) { c.OnSubmit(InputCode, text) })
		return r, nil
	case key.Matches(msg, r.keymap.NextSlot):
		if n > 0 {
			i := (r.gate.Selected + 1) % n
			r.dispatch(func(c Controller) { c.OnSelectSlot(i) })
		}
		return r, nil
	case key.Matches(msg, r.keymap.PrevSlot):
		if n > 0 {
			i := (r.gate.Selected - 1 + n) % n
			r.dispatch(func(c Controller) { c.OnSelectSlot(i) })
		}
		return r, nil
	}
	return r, r.forwardToInput(msg)
}

func (r *Root) handleOutcomeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, r.keymap.Submit) {
		path := strings.Trim(strings.TrimSpace(r.path.Value()), `'"`)
		if path == "" {
			return r, nil
		}
		r.path.Reset()
		r.dispatch(func(c Controller) { c.OnSelectFile(path) })
		return r, nil
	}
	return r, r.forwardToInput(msg)
}

func (r *Root) forwardToInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch r.stage {
	case stage.Dialogue:
		if r.keywordFocus {
			r.keyword, cmd = r.keyword.Update(msg)
		} else {
			r.chat, cmd = r.chat.Update(msg)
		}
	case stage.HeuristicGate:
		r.code, cmd = r.code.Update(msg)
	case stage.OutcomeSimulation:
		r.path, cmd = r.path.Update(msg)
	}
	return cmd
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.animating || !r.shouldAnimate() {
		return nil
	}
	r.animating = true
	return animateTickCmd()
}

func (r *Root) shouldAnimate() bool {
	if r.motionLevel == "off" {
		return false
	}
	return abs(r.heroPos-r.outcome.Hero) > 0.05 || abs(r.heroVel) > 0.05
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case StyleParchment, StyleRetroTerminal, StyleGreatHall:
		return strings.TrimSpace(v)
	default:
		return StyleGreatHall
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	r.notice = notify.Error("Recovered UI panic")

	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"stage", r.stage.String(),
		"layout", r.layout,
		"cols", r.cols,
		"rows", r.rows,
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
