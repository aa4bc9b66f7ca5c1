package stage

import "fmt"

type Stage int

const (
	Preloader Stage = iota
	Welcome
	Dialogue
	HeuristicGate
	OutcomeSimulation
	Complete
)

var names = [...]string{
	Preloader:         "preloader",
	Welcome:           "welcome",
	Dialogue:          "dialogue",
	HeuristicGate:     "heuristic-gate",
	OutcomeSimulation: "outcome-simulation",
	Complete:          "complete",
}

// All lists every stage in play order.
func All() []Stage {
	return []Stage{Preloader, Welcome, Dialogue, HeuristicGate, OutcomeSimulation, Complete}
}

func (s Stage) String() string {
	if s < Preloader || s > Complete {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return names[s]
}

func (s Stage) IsTerminal() bool { return s == Complete }

// Next returns the unique successor. The terminal stage has none.
func (s Stage) Next() (Stage, bool) {
	if s < Preloader || s >= Complete {
		return s, false
	}
	return s + 1, true
}

func Parse(name string) (Stage, error) {
	for i, n := range names {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
