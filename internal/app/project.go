package app

import (
	"triwizard/internal/dialogue"
	"triwizard/internal/gate"
	"triwizard/internal/outcome"
	"triwizard/internal/script"
	"triwizard/internal/sequencer"
	"triwizard/internal/state"
	"triwizard/internal/ui"
)

func dialogueConfig(d script.DialogueSpec) dialogue.Config {
	riddles := make([]dialogue.Riddle, 0, len(d.Riddles))
	for _, r := range d.Riddles {
		riddles = append(riddles, dialogue.Riddle{Prompt: r.Prompt, Keyword: r.Keyword, Hint: r.Hint})
	}
	return dialogue.Config{
		GuideName:       d.GuideName,
		Greeting:        d.Greeting,
		Riddles:         riddles,
		HelpKeywords:    d.HelpKeywords,
		TopicalKeywords: d.TopicalKeywords,
		SelfKeywords:    d.SelfKeywords,
		SelfLine:        d.SelfLine,
		TransitionLine:  d.TransitionLine,
		UnlockMessage:   d.UnlockMessage,
		SolvedReminder:  d.SolvedReminder,
		Fillers:         d.Fillers,
		NudgeAfter:      d.NudgeAfter,

		ResponseDelay:  script.Duration(d.ResponseDelayMS),
		ResponseJitter: script.Duration(d.ResponseJitterMS),

		Secret:             d.Keyword.Secret,
		KeywordAcceptDelay: script.Duration(d.Keyword.AcceptDelayMS),
		AcceptedMessage:    d.Keyword.AcceptedMessage,
		RejectedMessage:    d.Keyword.RejectedMessage,
		CloseMessage:       d.Keyword.CloseMessage,
		CloseDistance:      d.Keyword.CloseDistance,
		LockedMessage:      d.Keyword.LockedMessage,

		Ambient: dialogue.AmbientConfig{
			Interval: script.Duration(d.Ambient.IntervalMS),
			Chance:   d.Ambient.Chance,
			Lines:    d.Ambient.Lines,
		},
	}
}

func gateConfig(g script.GateSpec) gate.Config {
	problems := make([]gate.Problem, 0, len(g.Problems))
	for _, p := range g.Problems {
		problems = append(problems, gate.Problem{
			ID:                p.ID,
			Title:             p.Title,
			Description:       p.Description,
			PromptMD:          p.PromptMD,
			ReferenceSolution: p.ReferenceSolution,
			Checks:            p.Checks,
		})
	}
	return gate.Config{
		Problems:         problems,
		CompleteDelay:    script.Duration(g.CompleteDelayMS),
		SolvedMessage:    g.SolvedMessage,
		RetryMessage:     g.RetryMessage,
		AllSolvedMessage: g.AllSolved,
	}
}

func outcomeConfig(o script.OutcomeSpec) outcome.Config {
	return outcome.Config{
		AcceptedMIME:    o.AcceptedMIME,
		EvaluationDelay: script.Duration(o.EvaluationDelayMS),
		CompletionDelay: script.Duration(o.CompletionDelayMS),
		ScoreMin:        o.ScoreMin,
		ScoreMax:        o.ScoreMax,
		Thresholds: outcome.Thresholds{
			Champion:  o.ChampionThreshold,
			Encourage: o.EncourageThreshold,
		},
		InvalidTypeMessage: o.InvalidTypeMessage,
		EvaluatingMessage:  o.EvaluatingMessage,
		BusyMessage:        o.BusyMessage,
		ChampionMessage:    o.ChampionMessage,
		EncourageMessage:   o.EncourageMessage,
		RetryMessage:       o.RetryMessage,
		CompleteMessage:    o.CompleteMessage,
		PositionMin:        o.PositionMin,
		PositionMax:        o.PositionMax,
	}
}

func splashState(sp script.SplashSpec, seq *sequencer.Sequencer) ui.SplashState {
	return ui.SplashState{
		Phase:    string(seq.Phase()),
		Visible:  seq.Visible(),
		Emblem:   sp.Emblem,
		Caption:  sp.Caption,
		Heading:  sp.Heading,
		Title:    sp.Title,
		Subtitle: sp.Subtitle,
		Tagline:  sp.Tagline,
	}
}

func dialogueState(snap dialogue.Snapshot) ui.DialogueState {
	turns := make([]ui.TurnRow, 0, len(snap.Transcript))
	for _, t := range snap.Transcript {
		row := ui.TurnRow{Text: t.Text, Ambient: t.Ambient, Speaker: "You"}
		if t.Speaker == dialogue.SpeakerGuide {
			row.Guide = true
			row.Speaker = snap.GuideName
		}
		turns = append(turns, row)
	}
	return ui.DialogueState{
		GuideName:     snap.GuideName,
		Turns:         turns,
		Solved:        snap.Solved,
		Total:         snap.Total,
		Attempts:      snap.Attempts,
		Thinking:      snap.Thinking,
		KeywordOpen:   snap.Eligible,
		KeywordPassed: snap.Accepted,
	}
}

func gateState(snap gate.Snapshot) ui.GateState {
	rows := make([]ui.SlotRow, 0, len(snap.Slots))
	for _, s := range snap.Slots {
		row := ui.SlotRow{
			ID:         s.ID,
			Title:      s.Title,
			Statement:  firstNonEmpty(s.Problem.PromptMD, s.Problem.Description),
			Submission: s.Submission,
			Solved:     s.Solved,
			Attempts:   s.Attempts,
		}
		if s.LastResult != nil {
			for _, c := range s.LastResult.Checks {
				row.Checks = append(row.Checks, ui.CheckRow{ID: c.ID, Passed: c.Passed, Message: firstNonEmpty(c.Message, c.Summary)})
			}
		}
		rows = append(rows, row)
	}
	return ui.GateState{
		Slots:      rows,
		Selected:   snap.Selected,
		Solved:     snap.Solved,
		Completing: snap.Completing,
	}
}

// outcomeState centers the duel track until the first score lands.
func outcomeState(o script.OutcomeSpec, snap outcome.Snapshot) ui.OutcomeState {
	st := ui.OutcomeState{
		Briefing:   o.BriefingMD,
		Accepted:   o.AcceptedMIME,
		Evaluating: snap.Evaluating,
		Finished:   snap.Finished,
		Uploads:    snap.Uploads,
		Scored:     snap.Scored,
		Score:      snap.Score,
		Tier:       string(snap.Tier),
		HeroName:   o.HeroName,
		RivalName:  o.RivalName,
		Hero:       50,
		Rival:      50,
	}
	if snap.LastUpload != nil {
		st.LastUpload = snap.LastUpload.Name
	}
	if snap.Scored {
		st.Hero, st.Rival = snap.Hero, snap.Rival
	}
	return st
}

func completeState(c script.CompleteSpec, score float64, attempts int, sum state.Summary) ui.CompleteState {
	return ui.CompleteState{
		Heading:    c.Heading,
		Body:       c.BodyMD,
		Milestones: c.Milestones,
		Farewell:   c.Farewell,
		Score:      score,
		Attempts:   attempts,
		Sessions:   sum.Sessions,
		Champions:  sum.Champions,
		BestScore:  sum.BestScore,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
