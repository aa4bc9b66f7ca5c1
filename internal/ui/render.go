package ui

import (
	"fmt"
	"strings"

	"triwizard/internal/notify"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

var phaseRank = map[string]int{
	"entrance": 1,
	"glow":     2,
	"emerge":   3,
	"reveal":   4,
	"exit":     5,
}

func (r *Root) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d). Resize to at least 60x18.", r.cols, r.rows)
	return lipgloss.Place(max(1, r.cols), max(1, r.rows), lipgloss.Center, lipgloss.Center, r.theme.Fail.Render(msg))
}

func (r *Root) renderPreloader() string {
	s := r.splash
	style := r.theme.Emblem
	if !s.Visible {
		style = r.theme.Muted
	}
	lines := []string{}
	if phaseRank[s.Phase] >= 1 {
		lines = append(lines, style.Render(s.Emblem))
	}
	if phaseRank[s.Phase] >= 2 && s.Caption != "" {
		lines = append(lines, "", r.theme.Accent.Render(s.Caption))
	}
	return lipgloss.Place(r.cols, r.rows, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (r *Root) renderWelcome() string {
	s := r.splash
	rank := phaseRank[s.Phase]
	pick := func(st lipgloss.Style) lipgloss.Style {
		if !s.Visible {
			return r.theme.Muted
		}
		return st
	}
	lines := []string{}
	if rank >= 1 && s.Heading != "" {
		lines = append(lines, pick(r.theme.Accent).Render(s.Heading), "")
	}
	if rank >= 2 {
		lines = append(lines, pick(r.theme.Title).Render(s.Title))
	}
	if rank >= 3 && s.Subtitle != "" {
		lines = append(lines, pick(r.theme.PanelBody).Render(s.Subtitle))
	}
	if rank >= 4 && s.Tagline != "" {
		lines = append(lines, "", pick(r.theme.Pending).Render(s.Tagline))
	}
	return lipgloss.Place(r.cols, r.rows, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, lines...))
}

// frame wraps stage content with the header, status line and key help.
func (r *Root) frame(content string) string {
	header := r.theme.Header.Width(r.cols).Render(trimForWidth(r.title+"  ·  "+r.stage.String(), max(1, r.cols-2)))
	status := r.theme.Status.Width(r.cols).Render(r.noticeLine(max(1, r.cols-2)))
	keys := r.help.ShortHelpView(r.keymap.bindingsFor(r.stage))
	body := fitLines(content, r.cols, max(1, r.rows-3))
	return strings.Join([]string{header, body, status, keys}, "\n")
}

func (r *Root) noticeLine(width int) string {
	if r.notice.Text == "" {
		return ""
	}
	text := trimForWidth(r.notice.Text, width)
	switch r.notice.Level {
	case notify.LevelSuccess:
		return r.theme.Pass.Render(text)
	case notify.LevelRetry:
		return r.theme.Pending.Render(text)
	case notify.LevelError:
		return r.theme.Fail.Render(text)
	default:
		return r.theme.Info.Render(text)
	}
}

func (r *Root) renderDialogue() string {
	d := r.dialogue
	side, main := splitWidths(r.cols, r.layout)
	height := max(6, r.rows-3)

	inputs := []string{r.chat.View()}
	switch {
	case d.KeywordPassed:
		inputs = append(inputs, r.theme.Pass.Render(r.mark("✓", "+")+" keyword accepted"))
	case d.KeywordOpen:
		inputs = append(inputs, r.theme.Accent.Render("keyword ")+r.keyword.View())
	default:
		inputs = append(inputs, r.theme.Muted.Render("keyword ")+r.keyword.View())
	}
	if d.Thinking {
		inputs = append([]string{r.spin.View() + " " + r.theme.Muted.Render(d.GuideName+" is thinking")}, inputs...)
	}

	transcriptH := max(3, height-len(inputs)-2)
	lines := r.transcriptLines(max(10, main-4))
	if len(lines) > transcriptH-2 {
		lines = lines[len(lines)-(transcriptH-2):]
	}
	lines = append(lines, make([]string, max(0, transcriptH-2-len(lines)))...)
	lines = append(lines, inputs...)
	panel := r.drawPanel(d.GuideName, lines, main, height)
	if side == 0 {
		return panel
	}

	sideLines := []string{
		r.theme.PanelTitle.Render("Riddles"),
		fmt.Sprintf("%d of %d solved", d.Solved, d.Total),
		r.barFor(ratio(d.Solved, d.Total), side-4),
		"",
		r.theme.Muted.Render(fmt.Sprintf("Messages sent: %d", d.Attempts)),
		"",
		r.theme.PanelTitle.Render("Keyword"),
	}
	switch {
	case d.KeywordPassed:
		sideLines = append(sideLines, r.theme.Pass.Render("accepted"))
	case d.KeywordOpen:
		sideLines = append(sideLines, r.theme.Accent.Render("unlocked, press tab"))
	default:
		sideLines = append(sideLines, r.theme.Muted.Render("locked"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, r.drawPanel("Progress", sideLines, side, height), " ", panel)
}

func (r *Root) transcriptLines(width int) []string {
	out := make([]string, 0, len(r.dialogue.Turns)*2)
	for _, turn := range r.dialogue.Turns {
		label := "You"
		style := r.theme.User
		if turn.Guide {
			label = r.dialogue.GuideName
			style = r.theme.Guide
		}
		body := r.theme.PanelBody
		if turn.Ambient {
			body = r.theme.Ambient
		}
		prefix := label + ": "
		wrapped := strings.Split(ansi.Wordwrap(turn.Text, max(8, width-ansi.StringWidth(prefix)), ""), "\n")
		for i, w := range wrapped {
			if i == 0 {
				out = append(out, style.Render(prefix)+body.Render(w))
				continue
			}
			out = append(out, strings.Repeat(" ", ansi.StringWidth(prefix))+body.Render(w))
		}
	}
	return out
}

func (r *Root) renderGate() string {
	g := r.gate
	side, main := splitWidths(r.cols, r.layout)
	height := max(6, r.rows-3)

	var slot SlotRow
	if g.Selected >= 0 && g.Selected < len(g.Slots) {
		slot = g.Slots[g.Selected]
	}

	lines := clipLines(r.renderMarkdown(slot.Statement), main-2, max(2, height-len(slot.Checks)-14))
	lines = append(lines, "")
	lines = append(lines, strings.Split(r.code.View(), "\n")...)
	lines = append(lines, "")
	for _, c := range slot.Checks {
		mark, style := r.mark("✗", "x"), r.theme.Fail
		if c.Passed {
			mark, style = r.mark("✓", "+"), r.theme.Pass
		}
		lines = append(lines, style.Render(mark)+" "+trimForWidth(firstNonEmptyStr(c.Message, c.ID), max(4, main-6)))
	}
	title := slot.Title
	if slot.Solved {
		title += " (solved)"
	}
	panel := r.drawPanel(title, lines, main, height)
	if side == 0 {
		return panel
	}

	sideLines := []string{r.theme.PanelTitle.Render("Problems"), ""}
	for i, s := range g.Slots {
		cursor := "  "
		if i == g.Selected {
			cursor = r.mark("▸ ", "> ")
		}
		state := r.theme.Muted.Render(r.mark("○", "o"))
		if s.Solved {
			state = r.theme.Pass.Render(r.mark("●", "*"))
		}
		name := trimForWidth(s.Title, max(4, side-8))
		sideLines = append(sideLines, cursor+state+" "+name)
	}
	sideLines = append(sideLines,
		"",
		fmt.Sprintf("%d of %d solved", g.Solved, len(g.Slots)),
		r.barFor(ratio(g.Solved, len(g.Slots)), side-4),
	)
	if g.Completing {
		sideLines = append(sideLines, "", r.spin.View()+" "+r.theme.Pass.Render("opening the gate"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, r.drawPanel("Gate", sideLines, side, height), " ", panel)
}

func (r *Root) renderOutcome() string {
	o := r.outcome
	height := max(6, r.rows-3)
	width := r.cols

	lines := clipLines(r.renderMarkdown(o.Briefing), width-2, max(2, height-12))
	lines = append(lines, "")
	lines = append(lines, r.duelTrack(width-4)...)
	lines = append(lines, "")
	switch {
	case o.Evaluating:
		lines = append(lines, r.spin.View()+" "+r.theme.Pending.Render("Evaluating "+o.LastUpload))
	case o.Scored:
		lines = append(lines, fmt.Sprintf("Score %s  %s", r.theme.Accent.Render(fmt.Sprintf("%.1f", o.Score)), r.tierLabel(o.Tier)))
		lines = append(lines, r.barFor(o.Score/100, min(48, width-6)))
	default:
		lines = append(lines, r.theme.Muted.Render("Upload a "+o.Accepted+" file to begin the duel."))
	}
	lines = append(lines, "")
	if o.Finished {
		lines = append(lines, r.theme.Pass.Render("The duel is won."))
	} else {
		lines = append(lines, r.path.View())
	}
	return r.drawPanel("The Final Task", lines, width, height)
}

// duelTrack draws the clash point between the two wands at the animated
// hero position.
func (r *Root) duelTrack(width int) []string {
	o := r.outcome
	track := max(10, width-2)
	pos := int(r.heroPos / 100 * float64(track-1))
	pos = max(0, min(track-1, pos))
	beam := r.mark("━", "=")
	clash := r.mark("✦", "*")
	left := r.theme.Hero.Render(strings.Repeat(beam, pos))
	right := r.theme.Rival.Render(strings.Repeat(beam, track-1-pos))
	names := fmt.Sprintf("%s %.0f%%", o.HeroName, r.heroPos)
	rival := fmt.Sprintf("%.0f%% %s", 100-r.heroPos, o.RivalName)
	gap := max(1, track-ansi.StringWidth(names)-ansi.StringWidth(rival))
	return []string{
		r.theme.Hero.Render(names) + strings.Repeat(" ", gap) + r.theme.Rival.Render(rival),
		left + r.theme.Pending.Render(clash) + right,
	}
}

func (r *Root) tierLabel(tier string) string {
	switch tier {
	case "champion":
		return r.theme.Pass.Render("champion")
	case "encourage":
		return r.theme.Pending.Render("almost there")
	case "":
		return ""
	default:
		return r.theme.Fail.Render("try again")
	}
}

func (r *Root) renderComplete() string {
	c := r.complete
	height := max(6, r.rows-3)
	width := r.cols

	lines := []string{r.theme.Title.Render(c.Heading), ""}
	lines = append(lines, clipLines(r.renderMarkdown(c.Body), width-2, max(2, height-len(c.Milestones)-10))...)
	for _, m := range c.Milestones {
		lines = append(lines, r.theme.Pass.Render(r.mark("✓", "+"))+" "+m)
	}
	lines = append(lines, "")
	stats := fmt.Sprintf("Final score %.1f  ·  %d attempts", c.Score, c.Attempts)
	if c.Sessions > 0 {
		stats += fmt.Sprintf("  ·  %d runs, %d champions, best %.1f", c.Sessions, c.Champions, c.BestScore)
	}
	lines = append(lines, r.theme.Muted.Render(stats), "", r.theme.Accent.Render(c.Farewell))
	return r.drawPanel("Complete", lines, width, height)
}

func (r *Root) renderMarkdown(md string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if out, ok := r.mdCache[md]; ok {
		return out
	}
	out := md
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(md); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.mdCache[md] = out
	return out
}

func (r *Root) barFor(percent float64, width int) string {
	b := r.bar
	b.SetWidth(max(8, width))
	return b.ViewAs(max(0, min(1, percent)))
}

func (r *Root) mark(fancy, plain string) string {
	if r.ascii {
		return plain
	}
	return fancy
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 4 {
		t := " " + trimForWidth(title, innerW-4) + " "
		top = tl + h + r.theme.PanelTitle.Render(t) + r.theme.PanelBorder.Render(strings.Repeat(h, max(0, innerW-1-ansi.StringWidth(t)))+tr)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+padLine(line, innerW)+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func ratio(a, b int) float64 {
	if b <= 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// padLine truncates or pads a styled line to exactly width cells.
func padLine(s string, width int) string {
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", max(0, width-ansi.StringWidth(s)))
}

func clipLines(s string, width, maxLines int) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxLines {
		lines = append(lines[:max(0, maxLines-1)], "…")
	}
	for i, l := range lines {
		if ansi.StringWidth(l) > width {
			lines[i] = ansi.Truncate(l, width, "…")
		}
	}
	return lines
}

func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, l := range lines {
		lines[i] = padLine(l, width)
	}
	return strings.Join(lines, "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
