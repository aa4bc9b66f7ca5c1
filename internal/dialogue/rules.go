package dialogue

import "strings"

// reply picks the guide's answer by first-match priority. Rule state is read
// at delivery time; the attempt count is the one captured at submission.
func (e *Engine) reply(p pending) string {
	input := strings.ToLower(p.text)
	allSolved := e.solved >= len(e.cfg.Riddles)

	if containsAny(input, e.cfg.HelpKeywords) {
		if allSolved {
			return e.reminder()
		}
		if hint := e.cfg.Riddles[e.cursor].Hint; hint != "" {
			return hint
		}
		return e.cfg.Riddles[e.cursor].Prompt
	}

	if !allSolved && containsFold(input, e.cfg.Riddles[e.cursor].Keyword) {
		e.solved++
		if e.solved < len(e.cfg.Riddles) {
			e.cursor++
			return joinLines(e.cfg.TransitionLine, e.cfg.Riddles[e.cursor].Prompt)
		}
		e.eligible = true
		return e.cfg.UnlockMessage
	}

	if !allSolved && p.attempts > e.cfg.NudgeAfter && e.solved == 0 {
		return e.cfg.Riddles[0].Prompt
	}

	if containsAny(input, e.cfg.TopicalKeywords) {
		if allSolved {
			return e.reminder()
		}
		return e.cfg.Riddles[e.cursor].Prompt
	}

	if containsAny(input, e.cfg.SelfKeywords) && e.cfg.SelfLine != "" {
		return e.cfg.SelfLine
	}

	return e.filler()
}

func (e *Engine) reminder() string {
	if e.cfg.SolvedReminder != "" {
		return e.cfg.SolvedReminder
	}
	return e.cfg.UnlockMessage
}

func (e *Engine) filler() string {
	if len(e.cfg.Fillers) == 0 {
		return "..."
	}
	return e.cfg.Fillers[e.rng.IntN(len(e.cfg.Fillers))]
}

func containsAny(lowered string, keywords []string) bool {
	for _, k := range keywords {
		if containsFold(lowered, k) {
			return true
		}
	}
	return false
}

func containsFold(lowered, keyword string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	return k != "" && strings.Contains(lowered, k)
}

func joinLines(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
