// Package dialogue runs the scripted riddle conversation with the guide.
//
// User submissions are answered after a delay by the first matching rule.
// Answers are serialized: one response is in flight at a time and later
// submissions queue behind it, so the transcript always alternates in
// submission order. Solving every riddle unlocks the secret keyword, and
// entering it completes the stage.
package dialogue

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"triwizard/internal/clock"
	"triwizard/internal/notify"
)

var ErrAlreadyStarted = errors.New("dialogue already started")

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerGuide Speaker = "guide"
)

type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	Ambient bool      `json:"ambient,omitempty"`
	At      time.Time `json:"at"`
}

type Riddle struct {
	Prompt  string
	Keyword string
	Hint    string
}

type Config struct {
	GuideName string
	Greeting  string
	Riddles   []Riddle

	HelpKeywords    []string
	TopicalKeywords []string
	SelfKeywords    []string
	SelfLine        string
	TransitionLine  string
	UnlockMessage   string
	SolvedReminder  string
	Fillers         []string
	// NudgeAfter is the attempt count that must be exceeded, with nothing
	// solved, before the guide repeats the first riddle.
	NudgeAfter int

	ResponseDelay  time.Duration
	ResponseJitter time.Duration

	Secret             string
	KeywordAcceptDelay time.Duration
	AcceptedMessage    string
	RejectedMessage    string
	CloseMessage       string
	CloseDistance      int
	LockedMessage      string

	Ambient AmbientConfig
}

type AmbientConfig struct {
	Interval time.Duration
	Chance   float64
	Lines    []string
}

type Hooks struct {
	OnTurn     func(Turn)
	OnNotice   notify.Func
	OnComplete func()
}

type KeywordResult string

const (
	KeywordAccepted KeywordResult = "accepted"
	KeywordRejected KeywordResult = "rejected"
	KeywordLocked   KeywordResult = "locked"
	KeywordIgnored  KeywordResult = "ignored"
)

type pending struct {
	text     string
	attempts int
}

type Engine struct {
	sched clock.Scheduler
	rng   *rand.Rand
	cfg   Config
	hooks Hooks

	transcript []Turn
	cursor     int
	solved     int
	attempts   int
	eligible   bool
	accepted   bool

	started bool
	stopped bool

	queue        []pending
	inflight     clock.Timer
	keywordTimer clock.Timer
	ambient      *ambient
}

func New(sched clock.Scheduler, rng *rand.Rand, cfg Config, hooks Hooks) *Engine {
	e := &Engine{sched: sched, rng: rng, cfg: cfg, hooks: hooks}
	e.ambient = newAmbient(sched, rng, cfg.Ambient, func(line string) {
		e.appendTurn(Turn{Speaker: SpeakerGuide, Text: line, Ambient: true})
	})
	return e
}

// Start seeds the transcript with the greeting and starts ambient lines.
func (e *Engine) Start() error {
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.appendTurn(Turn{Speaker: SpeakerGuide, Text: e.cfg.Greeting})
	e.ambient.start()
	return nil
}

// Submit records a user turn and queues the guide's answer. Blank input is
// ignored and reported as false.
func (e *Engine) Submit(text string) bool {
	if e.stopped || strings.TrimSpace(text) == "" {
		return false
	}
	e.appendTurn(Turn{Speaker: SpeakerUser, Text: text})
	e.attempts++
	e.queue = append(e.queue, pending{text: text, attempts: e.attempts})
	if e.inflight == nil {
		e.scheduleNext()
	}
	return true
}

// SubmitKeyword checks word against the secret once the riddles are solved.
func (e *Engine) SubmitKeyword(word string) KeywordResult {
	if e.stopped || e.accepted {
		return KeywordIgnored
	}
	if !e.eligible {
		if e.cfg.LockedMessage != "" {
			e.hooks.OnNotice.Send(notify.Info(e.cfg.LockedMessage))
		}
		return KeywordLocked
	}
	guess := strings.ToLower(strings.TrimSpace(word))
	secret := strings.ToLower(strings.TrimSpace(e.cfg.Secret))
	if guess == secret {
		e.accepted = true
		e.hooks.OnNotice.Send(notify.Success(e.cfg.AcceptedMessage))
		e.keywordTimer = e.sched.AfterFunc(e.cfg.KeywordAcceptDelay, e.complete)
		return KeywordAccepted
	}
	msg := e.cfg.RejectedMessage
	if guess != "" && e.cfg.CloseMessage != "" && levenshtein.ComputeDistance(guess, secret) <= e.cfg.CloseDistance {
		msg = e.cfg.CloseMessage
	}
	e.hooks.OnNotice.Send(notify.Retry(msg))
	return KeywordRejected
}

// Stop cancels every pending response and timer. Nothing fires afterwards.
func (e *Engine) Stop() {
	e.stopped = true
	if e.inflight != nil {
		e.inflight.Stop()
		e.inflight = nil
	}
	if e.keywordTimer != nil {
		e.keywordTimer.Stop()
		e.keywordTimer = nil
	}
	e.ambient.stop()
	e.queue = nil
}

func (e *Engine) Transcript() []Turn { return append([]Turn(nil), e.transcript...) }
func (e *Engine) Cursor() int        { return e.cursor }
func (e *Engine) Solved() int        { return e.solved }
func (e *Engine) Attempts() int      { return e.attempts }
func (e *Engine) Eligible() bool     { return e.eligible }
func (e *Engine) Accepted() bool     { return e.accepted }

// Thinking reports whether a guide response is still owed.
func (e *Engine) Thinking() bool { return len(e.queue) > 0 }

type Snapshot struct {
	GuideName  string `json:"guide_name"`
	Transcript []Turn `json:"transcript"`
	Cursor     int    `json:"cursor"`
	Solved     int    `json:"solved"`
	Total      int    `json:"total"`
	Attempts   int    `json:"attempts"`
	Eligible   bool   `json:"eligible"`
	Accepted   bool   `json:"accepted"`
	Thinking   bool   `json:"thinking"`
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		GuideName:  e.cfg.GuideName,
		Transcript: e.Transcript(),
		Cursor:     e.cursor,
		Solved:     e.solved,
		Total:      len(e.cfg.Riddles),
		Attempts:   e.attempts,
		Eligible:   e.eligible,
		Accepted:   e.accepted,
		Thinking:   e.Thinking(),
	}
}

func (e *Engine) scheduleNext() {
	delay := e.cfg.ResponseDelay
	if e.cfg.ResponseJitter > 0 {
		delay += time.Duration(e.rng.Int64N(int64(e.cfg.ResponseJitter)))
	}
	e.inflight = e.sched.AfterFunc(delay, e.deliver)
}

func (e *Engine) deliver() {
	e.inflight = nil
	if e.stopped || len(e.queue) == 0 {
		return
	}
	p := e.queue[0]
	e.queue = e.queue[1:]
	e.appendTurn(Turn{Speaker: SpeakerGuide, Text: e.reply(p)})
	if len(e.queue) > 0 {
		e.scheduleNext()
	}
}

func (e *Engine) complete() {
	e.keywordTimer = nil
	if e.stopped {
		return
	}
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete()
	}
}

func (e *Engine) appendTurn(t Turn) {
	t.At = e.sched.Now()
	e.transcript = append(e.transcript, t)
	if e.hooks.OnTurn != nil {
		e.hooks.OnTurn(t)
	}
}
