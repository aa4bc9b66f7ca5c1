package grading

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ErrUnknownCheck = errors.New("unknown check type")

type Grader interface {
	Grade(req Request) (Result, error)
}

type evaluatorFunc func(submission string, check CheckSpec) (evaluation, error)

// DefaultGrader judges submissions by shape only. Nothing is executed.
type DefaultGrader struct {
	registry map[string]evaluatorFunc
}

func NewGrader() *DefaultGrader {
	g := &DefaultGrader{registry: map[string]evaluatorFunc{}}
	g.registry[CheckNonEmpty] = evalNonEmpty
	g.registry[CheckContains] = evalContains
	g.registry[CheckMinLength] = evalMinLength
	g.registry[CheckMatchesRegex] = evalMatchesRegex
	return g
}

// Known reports whether typ names a registered check.
func Known(typ string) bool {
	switch typ {
	case CheckNonEmpty, CheckContains, CheckMinLength, CheckMatchesRegex:
		return true
	}
	return false
}

// ValidateCheck reports configuration errors that would make a check
// unusable at grading time.
func ValidateCheck(c CheckSpec) error {
	if !Known(c.Type) {
		return fmt.Errorf("%w %q", ErrUnknownCheck, c.Type)
	}
	switch c.Type {
	case CheckContains:
		if c.Substring == "" {
			return fmt.Errorf("check %q: substring is required", c.ID)
		}
	case CheckMinLength:
		if c.Length < 0 {
			return fmt.Errorf("check %q: length must be >= 0", c.ID)
		}
	case CheckMatchesRegex:
		if _, err := regexp.Compile(c.Pattern); err != nil || c.Pattern == "" {
			return fmt.Errorf("check %q: invalid pattern %q", c.ID, c.Pattern)
		}
	}
	return nil
}

func (g *DefaultGrader) Grade(req Request) (Result, error) {
	result := Result{
		Kind:          ResultKind,
		SchemaVersion: SchemaVersion,
		SlotID:        req.SlotID,
		Attempt:       max(1, req.Attempt),
		Passed:        len(req.Checks) > 0,
	}
	for _, check := range req.Checks {
		fn, ok := g.registry[check.Type]
		if !ok {
			return Result{}, fmt.Errorf("%w %q", ErrUnknownCheck, check.Type)
		}
		eval, err := fn(req.Submission, check)
		if err != nil {
			return Result{}, fmt.Errorf("check %s: %w", check.ID, err)
		}
		msg := eval.Message
		if !eval.Passed && check.OnFailMessage != "" {
			msg = check.OnFailMessage
		}
		result.Checks = append(result.Checks, CheckResult{
			ID:      check.ID,
			Type:    check.Type,
			Passed:  eval.Passed,
			Summary: eval.Summary,
			Message: msg,
		})
		if !eval.Passed {
			result.Passed = false
		}
	}
	return result, nil
}

func evalNonEmpty(submission string, _ CheckSpec) (evaluation, error) {
	if strings.TrimSpace(submission) == "" {
		return evaluation{Passed: false, Summary: "empty", Message: "Nothing written yet."}, nil
	}
	return evaluation{Passed: true, Summary: "present"}, nil
}

func evalContains(submission string, check CheckSpec) (evaluation, error) {
	hay, needle := strings.TrimSpace(submission), check.Substring
	if check.IgnoreCase {
		hay, needle = strings.ToLower(hay), strings.ToLower(needle)
	}
	if strings.Contains(hay, needle) {
		return evaluation{Passed: true, Summary: fmt.Sprintf("found %q", check.Substring)}, nil
	}
	return evaluation{
		Passed:  false,
		Summary: fmt.Sprintf("missing %q", check.Substring),
		Message: fmt.Sprintf("Expected the solution to mention %q.", check.Substring),
	}, nil
}

func evalMinLength(submission string, check CheckSpec) (evaluation, error) {
	n := utf8.RuneCountInString(strings.TrimSpace(submission))
	summary := fmt.Sprintf("%d characters (need more than %d)", n, check.Length)
	if n > check.Length {
		return evaluation{Passed: true, Summary: summary}, nil
	}
	return evaluation{Passed: false, Summary: summary, Message: "The solution looks too short."}, nil
}

func evalMatchesRegex(submission string, check CheckSpec) (evaluation, error) {
	re, err := regexp.Compile(check.Pattern)
	if err != nil {
		return evaluation{}, err
	}
	if re.MatchString(submission) {
		return evaluation{Passed: true, Summary: "pattern matched"}, nil
	}
	return evaluation{Passed: false, Summary: "pattern not matched", Message: "The solution does not have the expected shape."}, nil
}
