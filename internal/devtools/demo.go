package devtools

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"triwizard/internal/stage"
)

var ErrUnknownScenario = errors.New("unknown scenario")

type StepKind string

const (
	StepWait                StepKind = "wait"
	StepAwait               StepKind = "await"
	StepChat                StepKind = "chat"
	StepKeyword             StepKind = "keyword"
	StepCode                StepKind = "code"
	StepUpload              StepKind = "upload"
	StepUploadUntilChampion StepKind = "upload-until-champion"
)

// Step is one scripted player action. Code steps with empty Text submit the
// slot's reference solution.
type Step struct {
	Kind  StepKind      `json:"kind"`
	Wait  time.Duration `json:"wait,omitempty"`
	Stage stage.Stage   `json:"stage,omitempty"`
	Text  string        `json:"text,omitempty"`
	Slot  int           `json:"slot,omitempty"`
	Name  string        `json:"name,omitempty"`
	MIME  string        `json:"mime,omitempty"`
}

type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

func wait(d time.Duration) Step       { return Step{Kind: StepWait, Wait: d} }
func await(s stage.Stage) Step        { return Step{Kind: StepAwait, Stage: s} }
func chat(text string) Step           { return Step{Kind: StepChat, Text: text} }
func keyword(word string) Step        { return Step{Kind: StepKeyword, Text: word} }
func code(slot int, text string) Step { return Step{Kind: StepCode, Slot: slot, Text: text} }
func upload(name, mime string) Step   { return Step{Kind: StepUpload, Name: name, MIME: mime} }
func uploadUntilChampion() Step       { return Step{Kind: StepUploadUntilChampion, Name: "train.csv", MIME: "text/csv"} }

var scenarios = map[string]Scenario{
	"speedrun": {
		Name:        "speedrun",
		Description: "Answers every riddle and problem on the first try.",
		Steps: []Step{
			await(stage.Dialogue),
			chat("A phoenix!"),
			chat("Expecto patronus"),
			chat("It must be a school"),
			keyword("HOGWARTS"),
			await(stage.HeuristicGate),
			code(0, ""),
			code(1, ""),
			code(2, ""),
			await(stage.OutcomeSimulation),
			uploadUntilChampion(),
			await(stage.Complete),
		},
	},
	"stumble": {
		Name:        "stumble",
		Description: "Guesses early, misspells the keyword and fails each gate check once.",
		Steps: []Step{
			await(stage.Dialogue),
			keyword("hogwarts"),
			chat("hello there"),
			chat("can I get a hint?"),
			chat("phoenix"),
			chat("are you dumbledore?"),
			chat("patronus"),
			chat("school"),
			keyword("hogwart"),
			keyword("muggle"),
			keyword("Hogwarts"),
			await(stage.HeuristicGate),
			code(0, "x"),
			code(0, ""),
			code(1, "function f() {}"),
			code(1, ""),
			code(2, ""),
			await(stage.OutcomeSimulation),
			upload("notes.txt", "text/plain"),
			uploadUntilChampion(),
			await(stage.Complete),
		},
	},
	"patient": {
		Name:        "patient",
		Description: "Lingers on every stage long enough for ambient lines and nudges.",
		Steps: []Step{
			await(stage.Dialogue),
			wait(30 * time.Second),
			chat("tell me about this challenge"),
			chat("hmm"),
			chat("hmm"),
			chat("hmm"),
			chat("I think it is a phoenix"),
			wait(20 * time.Second),
			chat("patronus"),
			chat("school"),
			chat("what now?"),
			wait(10 * time.Second),
			keyword("hogwarts"),
			await(stage.HeuristicGate),
			wait(time.Minute),
			code(2, ""),
			code(0, ""),
			code(1, ""),
			await(stage.OutcomeSimulation),
			wait(time.Minute),
			uploadUntilChampion(),
			await(stage.Complete),
		},
	},
}

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Resolve(name string) (Scenario, error) {
	if name == "" {
		name = "speedrun"
	}
	sc, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownScenario, name, m.Names())
	}
	sc.Steps = append([]Step(nil), sc.Steps...)
	return sc, nil
}

var _ Simulator = (*Manager)(nil)
