package script

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"triwizard/internal/grading"
	"triwizard/internal/sequencer"
)

const (
	ScriptKind             = "triwizard_script"
	SupportedSchemaVersion = 1
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

type Script struct {
	Kind          string `yaml:"kind"`
	SchemaVersion int    `yaml:"schema_version"`
	Title         string `yaml:"title"`

	Timings  TimingsSpec  `yaml:"timings"`
	Splash   SplashSpec   `yaml:"splash"`
	Dialogue DialogueSpec `yaml:"dialogue"`
	Gate     GateSpec     `yaml:"gate"`
	Outcome  OutcomeSpec  `yaml:"outcome"`
	Complete CompleteSpec `yaml:"complete"`

	Path string `yaml:"-"`
}

type TimingsSpec struct {
	Preloader TimelineSpec `yaml:"preloader"`
	Welcome   TimelineSpec `yaml:"welcome"`
}

type TimelineSpec struct {
	Steps   []StepSpec `yaml:"steps"`
	TotalMS int        `yaml:"total_ms"`
	GraceMS int        `yaml:"grace_ms"`
}

type StepSpec struct {
	Phase string `yaml:"phase"`
	AtMS  int    `yaml:"at_ms"`
}

type SplashSpec struct {
	Emblem   string `yaml:"emblem"`
	Caption  string `yaml:"caption"`
	Heading  string `yaml:"heading"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Tagline  string `yaml:"tagline"`
}

type DialogueSpec struct {
	GuideName string       `yaml:"guide_name"`
	Greeting  string       `yaml:"greeting"`
	Riddles   []RiddleSpec `yaml:"riddles"`

	HelpKeywords    []string `yaml:"help_keywords"`
	TopicalKeywords []string `yaml:"topical_keywords"`
	SelfKeywords    []string `yaml:"self_keywords"`
	SelfLine        string   `yaml:"self_line"`
	TransitionLine  string   `yaml:"transition_line"`
	UnlockMessage   string   `yaml:"unlock_message"`
	SolvedReminder  string   `yaml:"solved_reminder"`
	Fillers         []string `yaml:"fillers"`
	NudgeAfter      int      `yaml:"nudge_after"`

	ResponseDelayMS  int `yaml:"response_delay_ms"`
	ResponseJitterMS int `yaml:"response_jitter_ms"`

	Keyword KeywordSpec `yaml:"keyword"`
	Ambient AmbientSpec `yaml:"ambient"`
}

type RiddleSpec struct {
	Prompt  string `yaml:"prompt"`
	Keyword string `yaml:"keyword"`
	Hint    string `yaml:"hint"`
}

type KeywordSpec struct {
	Secret          string `yaml:"secret"`
	AcceptDelayMS   int    `yaml:"accept_delay_ms"`
	AcceptedMessage string `yaml:"accepted_message"`
	RejectedMessage string `yaml:"rejected_message"`
	CloseMessage    string `yaml:"close_message"`
	CloseDistance   int    `yaml:"close_distance"`
	LockedMessage   string `yaml:"locked_message"`
}

type AmbientSpec struct {
	IntervalMS int      `yaml:"interval_ms"`
	Chance     float64  `yaml:"chance"`
	Lines      []string `yaml:"lines"`
}

type GateSpec struct {
	CompleteDelayMS int           `yaml:"complete_delay_ms"`
	SolvedMessage   string        `yaml:"solved_message"`
	RetryMessage    string        `yaml:"retry_message"`
	AllSolved       string        `yaml:"all_solved_message"`
	Problems        []ProblemSpec `yaml:"problems"`
}

type ProblemSpec struct {
	ID                string              `yaml:"id"`
	Title             string              `yaml:"title"`
	Description       string              `yaml:"description"`
	PromptMD          string              `yaml:"prompt_md"`
	ReferenceSolution string              `yaml:"reference_solution"`
	Checks            []grading.CheckSpec `yaml:"checks"`
}

type OutcomeSpec struct {
	BriefingMD         string  `yaml:"briefing_md"`
	AcceptedMIME       string  `yaml:"accepted_mime"`
	InvalidTypeMessage string  `yaml:"invalid_type_message"`
	EvaluatingMessage  string  `yaml:"evaluating_message"`
	BusyMessage        string  `yaml:"busy_message"`
	EvaluationDelayMS  int     `yaml:"evaluation_delay_ms"`
	CompletionDelayMS  int     `yaml:"completion_delay_ms"`
	ScoreMin           float64 `yaml:"score_min"`
	ScoreMax           float64 `yaml:"score_max"`
	ChampionThreshold  float64 `yaml:"champion_threshold"`
	EncourageThreshold float64 `yaml:"encourage_threshold"`
	ChampionMessage    string  `yaml:"champion_message"`
	EncourageMessage   string  `yaml:"encourage_message"`
	RetryMessage       string  `yaml:"retry_message"`
	CompleteMessage    string  `yaml:"complete_message"`
	HeroName           string  `yaml:"hero_name"`
	RivalName          string  `yaml:"rival_name"`
	PositionMin        float64 `yaml:"position_min"`
	PositionMax        float64 `yaml:"position_max"`
}

type CompleteSpec struct {
	Heading    string   `yaml:"heading"`
	BodyMD     string   `yaml:"body_md"`
	Milestones []string `yaml:"milestones"`
	Farewell   string   `yaml:"farewell"`
}

var timelinePhases = map[string]sequencer.Phase{
	string(sequencer.PhaseEntrance): sequencer.PhaseEntrance,
	string(sequencer.PhaseGlow):     sequencer.PhaseGlow,
	string(sequencer.PhaseEmerge):   sequencer.PhaseEmerge,
	string(sequencer.PhaseReveal):   sequencer.PhaseReveal,
}

// Timeline converts the YAML form into sequencer input.
func (t TimelineSpec) Timeline() sequencer.Timeline {
	tl := sequencer.Timeline{
		Total: ms(t.TotalMS),
		Grace: ms(t.GraceMS),
	}
	for _, s := range t.Steps {
		tl.Steps = append(tl.Steps, sequencer.Step{Phase: timelinePhases[s.Phase], At: ms(s.AtMS)})
	}
	return tl
}

func (t TimelineSpec) validate(name string) error {
	for i, s := range t.Steps {
		if _, ok := timelinePhases[s.Phase]; !ok {
			return fmt.Errorf("timings.%s.steps[%d]: unknown phase %q", name, i, s.Phase)
		}
	}
	if err := t.Timeline().Validate(); err != nil {
		return fmt.Errorf("timings.%s: %w", name, err)
	}
	return nil
}

func (s Script) Validate() error {
	if s.Kind != ScriptKind {
		return fmt.Errorf("kind must be %q", ScriptKind)
	}
	if s.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if s.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported script schema_version %d (max supported %d)", s.SchemaVersion, SupportedSchemaVersion)
	}
	if err := s.Timings.Preloader.validate("preloader"); err != nil {
		return err
	}
	if err := s.Timings.Welcome.validate("welcome"); err != nil {
		return err
	}
	if err := s.Dialogue.validate(); err != nil {
		return err
	}
	if err := s.Gate.validate(); err != nil {
		return err
	}
	return s.Outcome.validate()
}

func (d DialogueSpec) validate() error {
	if strings.TrimSpace(d.Greeting) == "" {
		return fmt.Errorf("dialogue.greeting is required")
	}
	if len(d.Riddles) == 0 {
		return fmt.Errorf("dialogue.riddles must contain at least one riddle")
	}
	for i, r := range d.Riddles {
		if strings.TrimSpace(r.Prompt) == "" {
			return fmt.Errorf("dialogue.riddles[%d].prompt is required", i)
		}
		if strings.TrimSpace(r.Keyword) == "" {
			return fmt.Errorf("dialogue.riddles[%d].keyword is required", i)
		}
	}
	if len(d.Fillers) == 0 {
		return fmt.Errorf("dialogue.fillers must contain at least one line")
	}
	if strings.TrimSpace(d.Keyword.Secret) == "" {
		return fmt.Errorf("dialogue.keyword.secret is required")
	}
	if d.NudgeAfter < 0 {
		return fmt.Errorf("dialogue.nudge_after must be >= 0")
	}
	if d.ResponseDelayMS < 0 || d.ResponseJitterMS < 0 || d.Keyword.AcceptDelayMS < 0 || d.Ambient.IntervalMS < 0 {
		return fmt.Errorf("dialogue delays must be >= 0")
	}
	if d.Ambient.Chance < 0 || d.Ambient.Chance > 1 {
		return fmt.Errorf("dialogue.ambient.chance must be within [0,1]")
	}
	if d.Ambient.Chance > 0 && (d.Ambient.IntervalMS == 0 || len(d.Ambient.Lines) == 0) {
		return fmt.Errorf("dialogue.ambient needs interval_ms and lines when chance > 0")
	}
	return nil
}

func (g GateSpec) validate() error {
	if len(g.Problems) != 3 {
		return fmt.Errorf("gate.problems must contain exactly 3 problems, got %d", len(g.Problems))
	}
	if g.CompleteDelayMS < 0 {
		return fmt.Errorf("gate.complete_delay_ms must be >= 0")
	}
	seen := map[string]struct{}{}
	for i, p := range g.Problems {
		if !idPattern.MatchString(p.ID) {
			return fmt.Errorf("gate.problems[%d]: invalid id %q", i, p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate problem id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Title == "" {
			return fmt.Errorf("gate.problems[%d].title is required", i)
		}
		if len(p.Checks) == 0 {
			return fmt.Errorf("gate.problems[%d] (%s) needs at least one check", i, p.ID)
		}
		for _, c := range p.Checks {
			if err := grading.ValidateCheck(c); err != nil {
				return fmt.Errorf("gate.problems[%d] (%s): %w", i, p.ID, err)
			}
		}
	}
	return nil
}

func (o OutcomeSpec) validate() error {
	if o.AcceptedMIME == "" {
		return fmt.Errorf("outcome.accepted_mime is required")
	}
	if o.ScoreMin < 0 || o.ScoreMax > 100 || o.ScoreMin >= o.ScoreMax {
		return fmt.Errorf("outcome score range [%g,%g) must satisfy 0 <= min < max <= 100", o.ScoreMin, o.ScoreMax)
	}
	if o.EncourageThreshold > o.ChampionThreshold {
		return fmt.Errorf("outcome.encourage_threshold must not exceed champion_threshold")
	}
	if o.EvaluationDelayMS < 0 || o.CompletionDelayMS < 0 {
		return fmt.Errorf("outcome delays must be >= 0")
	}
	if o.PositionMin > o.PositionMax {
		return fmt.Errorf("outcome.position_min must not exceed position_max")
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Duration converts a millisecond field from the script.
func Duration(msValue int) time.Duration { return ms(msValue) }
