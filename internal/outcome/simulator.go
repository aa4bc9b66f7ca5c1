// Package outcome simulates judging an uploaded prediction file. Only the
// declared type is inspected; the score is drawn at random.
package outcome

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"mime"
	"strings"
	"time"

	"triwizard/internal/clock"
	"triwizard/internal/notify"
)

var (
	ErrInvalidType = errors.New("upload has an unsupported type")
	ErrEvaluating  = errors.New("an upload is already being evaluated")
	ErrFinished    = errors.New("the outcome has already been decided")
)

type Config struct {
	AcceptedMIME    string
	EvaluationDelay time.Duration
	CompletionDelay time.Duration
	ScoreMin        float64
	ScoreMax        float64
	Thresholds      Thresholds

	InvalidTypeMessage string
	EvaluatingMessage  string
	BusyMessage        string
	ChampionMessage    string
	EncourageMessage   string
	RetryMessage       string
	CompleteMessage    string

	PositionMin float64
	PositionMax float64
}

type Hooks struct {
	OnNotice   notify.Func
	OnScore    func(score float64, tier Tier)
	OnComplete func()
}

type Simulator struct {
	sched clock.Scheduler
	rng   *rand.Rand
	cfg   Config
	hooks Hooks

	evaluating bool
	finished   bool
	stopped    bool
	uploads    int
	last       *Upload
	score      *float64
	tier       Tier
	timer      clock.Timer
}

func New(sched clock.Scheduler, rng *rand.Rand, cfg Config, hooks Hooks) *Simulator {
	return &Simulator{sched: sched, rng: rng, cfg: cfg, hooks: hooks}
}

// TriggerUpload starts judging u. Rejected uploads leave state untouched.
func (s *Simulator) TriggerUpload(u Upload) error {
	if s.stopped || s.finished {
		return ErrFinished
	}
	if s.evaluating {
		if s.cfg.BusyMessage != "" {
			s.hooks.OnNotice.Send(notify.Info(s.cfg.BusyMessage))
		}
		return ErrEvaluating
	}
	if !s.accepts(u.MIMEType) {
		s.hooks.OnNotice.Send(notify.Error(s.cfg.InvalidTypeMessage))
		return fmt.Errorf("%w: %q", ErrInvalidType, u.MIMEType)
	}
	s.evaluating = true
	s.uploads++
	s.last = &u
	s.hooks.OnNotice.Send(notify.Info(s.cfg.EvaluatingMessage))
	s.timer = s.sched.AfterFunc(s.cfg.EvaluationDelay, s.judge)
	return nil
}

func (s *Simulator) Stop() {
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Simulator) Evaluating() bool { return s.evaluating }
func (s *Simulator) Finished() bool   { return s.finished }
func (s *Simulator) Uploads() int     { return s.uploads }

// Score returns the latest score, if any upload has been judged.
func (s *Simulator) Score() (float64, bool) {
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

// Positions maps the latest score onto the duel track as percentages.
func (s *Simulator) Positions() (hero, rival float64) {
	score, _ := s.Score()
	return Positions(score, s.cfg.PositionMin, s.cfg.PositionMax)
}

func Positions(score, lo, hi float64) (hero, rival float64) {
	hero = max(lo, min(hi, score))
	return hero, 100 - hero
}

type Snapshot struct {
	Evaluating bool    `json:"evaluating"`
	Finished   bool    `json:"finished"`
	Uploads    int     `json:"uploads"`
	LastUpload *Upload `json:"last_upload,omitempty"`
	Score      float64 `json:"score"`
	Scored     bool    `json:"scored"`
	Tier       Tier    `json:"tier,omitempty"`
	Hero       float64 `json:"hero"`
	Rival      float64 `json:"rival"`
}

func (s *Simulator) Snapshot() Snapshot {
	score, scored := s.Score()
	hero, rival := s.Positions()
	return Snapshot{
		Evaluating: s.evaluating,
		Finished:   s.finished,
		Uploads:    s.uploads,
		LastUpload: s.last,
		Score:      score,
		Scored:     scored,
		Tier:       s.tier,
		Hero:       hero,
		Rival:      rival,
	}
}

func (s *Simulator) accepts(declared string) bool {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, s.cfg.AcceptedMIME)
}

func (s *Simulator) judge() {
	s.timer = nil
	if s.stopped {
		return
	}
	s.evaluating = false
	v := s.draw()
	s.score = &v
	s.tier = Classify(v, s.cfg.Thresholds)
	if s.hooks.OnScore != nil {
		s.hooks.OnScore(v, s.tier)
	}
	switch s.tier {
	case TierChampion:
		s.finished = true
		s.hooks.OnNotice.Send(notify.Success(s.cfg.ChampionMessage))
		s.timer = s.sched.AfterFunc(s.cfg.CompletionDelay, s.complete)
	case TierEncourage:
		s.hooks.OnNotice.Send(notify.Info(s.cfg.EncourageMessage))
	default:
		s.hooks.OnNotice.Send(notify.Retry(s.cfg.RetryMessage))
	}
}

// draw returns a score in [ScoreMin, ScoreMax). Rounding can land on
// ScoreMax for the largest uniform draws.
func (s *Simulator) draw() float64 {
	v := s.cfg.ScoreMin + s.rng.Float64()*(s.cfg.ScoreMax-s.cfg.ScoreMin)
	if v >= s.cfg.ScoreMax {
		v = math.Nextafter(s.cfg.ScoreMax, s.cfg.ScoreMin)
	}
	return v
}

func (s *Simulator) complete() {
	s.timer = nil
	if s.stopped {
		return
	}
	if s.cfg.CompleteMessage != "" {
		s.hooks.OnNotice.Send(notify.Success(s.cfg.CompleteMessage))
	}
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete()
	}
}
