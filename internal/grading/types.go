package grading

const (
	ResultKind    = "gate_result"
	SchemaVersion = 1
)

const (
	CheckNonEmpty     = "non_empty"
	CheckContains     = "contains"
	CheckMinLength    = "min_length"
	CheckMatchesRegex = "matches_regex"
)

type Request struct {
	SlotID     string
	Attempt    int
	Submission string
	Checks     []CheckSpec
}

type CheckSpec struct {
	ID            string `yaml:"id" json:"id"`
	Type          string `yaml:"type" json:"type"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	OnFailMessage string `yaml:"on_fail_message,omitempty" json:"on_fail_message,omitempty"`

	// Substring is required by contains.
	Substring  string `yaml:"substring,omitempty" json:"substring,omitempty"`
	IgnoreCase bool   `yaml:"ignore_case,omitempty" json:"ignore_case,omitempty"`

	// Length is the rune count the trimmed submission must exceed for
	// min_length.
	Length int `yaml:"length,omitempty" json:"length,omitempty"`

	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

type Result struct {
	Kind          string        `json:"kind"`
	SchemaVersion int           `json:"schema_version"`
	SlotID        string        `json:"slot_id"`
	Attempt       int           `json:"attempt"`
	Passed        bool          `json:"passed"`
	Checks        []CheckResult `json:"checks"`
}

type CheckResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Passed  bool   `json:"passed"`
	Summary string `json:"summary,omitempty"`
	Message string `json:"message,omitempty"`
}

// FailedMessages returns the messages of failing checks in order.
func (r Result) FailedMessages() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed && c.Message != "" {
			out = append(out, c.Message)
		}
	}
	return out
}

type evaluation struct {
	Passed  bool
	Summary string
	Message string
}
