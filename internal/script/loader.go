package script

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// Load reads and validates the script at path. An empty path selects the
// built-in script.
func (l *FSLoader) Load(path string) (Script, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(b)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Default returns the built-in script.
func Default() (Script, error) {
	s, err := Parse(defaultYAML)
	if err != nil {
		return Script{}, fmt.Errorf("built-in script: %w", err)
	}
	return s, nil
}

func Parse(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse: %w", err)
	}
	applyDefaults(&s)
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("validate: %w", err)
	}
	return s, nil
}

// DumpDefault writes the built-in script so it can be copied and edited.
func DumpDefault(w io.Writer) error {
	_, err := w.Write(defaultYAML)
	return err
}

func applyDefaults(s *Script) {
	d := &s.Dialogue
	if d.GuideName == "" {
		d.GuideName = "Professor Dumbledore"
	}
	if d.NudgeAfter == 0 {
		d.NudgeAfter = 3
	}
	if d.Keyword.CloseDistance == 0 {
		d.Keyword.CloseDistance = 2
	}
	if s.Outcome.AcceptedMIME == "" {
		s.Outcome.AcceptedMIME = "text/csv"
	}
	if s.Outcome.ScoreMin == 0 && s.Outcome.ScoreMax == 0 {
		s.Outcome.ScoreMin, s.Outcome.ScoreMax = 60, 100
	}
	if s.Outcome.ChampionThreshold == 0 {
		s.Outcome.ChampionThreshold = 85
	}
	if s.Outcome.EncourageThreshold == 0 {
		s.Outcome.EncourageThreshold = 70
	}
	if s.Outcome.PositionMin == 0 && s.Outcome.PositionMax == 0 {
		s.Outcome.PositionMin, s.Outcome.PositionMax = 10, 80
	}
}
