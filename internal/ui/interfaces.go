package ui

import (
	"triwizard/internal/notify"
	"triwizard/internal/stage"
)

// InputKind names the text box a submission came from.
type InputKind string

const (
	InputChat    InputKind = "chat"
	InputKeyword InputKind = "keyword"
	InputCode    InputKind = "code"
)

// Controller receives presentation events. Calls arrive on the event loop.
type Controller interface {
	OnSubmit(input InputKind, text string)
	OnSelectFile(path string)
	OnSelectSlot(i int)
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	// Post runs fn on the event loop. Before Run it is queued.
	Post(fn func())
	SetStage(s stage.Stage)
	SetSplash(state SplashState)
	SetDialogue(state DialogueState)
	SetGate(state GateState)
	SetOutcome(state OutcomeState)
	SetComplete(state CompleteState)
	Notify(n notify.Notice)
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type SplashState struct {
	Phase    string `json:"phase"`
	Visible  bool   `json:"visible"`
	Emblem   string `json:"emblem,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Heading  string `json:"heading,omitempty"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Tagline  string `json:"tagline,omitempty"`
}

type TurnRow struct {
	Guide   bool   `json:"guide"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Ambient bool   `json:"ambient,omitempty"`
}

type DialogueState struct {
	GuideName     string    `json:"guide_name"`
	Turns         []TurnRow `json:"turns"`
	Solved        int       `json:"solved"`
	Total         int       `json:"total"`
	Attempts      int       `json:"attempts"`
	Thinking      bool      `json:"thinking"`
	KeywordOpen   bool      `json:"keyword_open"`
	KeywordPassed bool      `json:"keyword_passed"`
}

type CheckRow struct {
	ID      string `json:"id"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

type SlotRow struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Statement  string     `json:"-"`
	Submission string     `json:"submission"`
	Solved     bool       `json:"solved"`
	Attempts   int        `json:"attempts"`
	Checks     []CheckRow `json:"checks,omitempty"`
}

type GateState struct {
	Slots      []SlotRow `json:"slots"`
	Selected   int       `json:"selected"`
	Solved     int       `json:"solved"`
	Completing bool      `json:"completing"`
}

type OutcomeState struct {
	Briefing   string  `json:"-"`
	Accepted   string  `json:"accepted"`
	Evaluating bool    `json:"evaluating"`
	Finished   bool    `json:"finished"`
	Uploads    int     `json:"uploads"`
	LastUpload string  `json:"last_upload,omitempty"`
	Scored     bool    `json:"scored"`
	Score      float64 `json:"score"`
	Tier       string  `json:"tier,omitempty"`
	HeroName   string  `json:"hero_name"`
	RivalName  string  `json:"rival_name"`
	Hero       float64 `json:"hero"`
	Rival      float64 `json:"rival"`
}

type CompleteState struct {
	Heading    string   `json:"heading"`
	Body       string   `json:"-"`
	Milestones []string `json:"milestones"`
	Farewell   string   `json:"farewell"`
	Score      float64  `json:"score"`
	Attempts   int      `json:"attempts"`
	Sessions   int      `json:"sessions"`
	Champions  int      `json:"champions"`
	BestScore  float64  `json:"best_score"`
}
