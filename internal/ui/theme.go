package ui

import (
	"charm.land/lipgloss/v2"
	catppuccin "github.com/catppuccin/go"
)

const (
	StyleGreatHall     = "great_hall"
	StyleParchment     = "parchment"
	StyleRetroTerminal = "retro_terminal"
	StyleTwilight      = "twilight"
)

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelTitle  lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Emblem      lipgloss.Style
	Title       lipgloss.Style
	Guide       lipgloss.Style
	User        lipgloss.Style
	Ambient     lipgloss.Style
	Accent      lipgloss.Style
	Pass        lipgloss.Style
	Fail        lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
	Info        lipgloss.Style
	Hero        lipgloss.Style
	Rival       lipgloss.Style
	Bar         [3]string
}

func DefaultTheme() Theme {
	return ThemeForVariant(StyleGreatHall)
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case StyleParchment:
		return parchmentTheme()
	case StyleRetroTerminal:
		return retroTerminalTheme()
	case StyleTwilight:
		return twilightTheme()
	default:
		return greatHallTheme()
	}
}

func greatHallTheme() Theme {
	gold := lipgloss.Color("#F2C14E")
	emerald := lipgloss.Color("#5FD39A")
	crimson := lipgloss.Color("#E4572E")
	night := lipgloss.Color("#0F1226")
	dusk := lipgloss.Color("#232845")
	candle := lipgloss.Color("#F6F1E3")
	azure := lipgloss.Color("#7FB8FF")
	border := lipgloss.Color("#4E557F")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(night).
			Foreground(gold).
			Bold(true).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Background(dusk).
			Foreground(candle).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Foreground(gold).
			Bold(true),
		PanelBorder: lipgloss.NewStyle().
			Foreground(border),
		PanelBody: lipgloss.NewStyle().
			Foreground(candle),
		Emblem: lipgloss.NewStyle().
			Foreground(gold).
			Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(gold).
			Bold(true).
			Underline(true),
		Guide: lipgloss.NewStyle().
			Foreground(azure).
			Bold(true),
		User: lipgloss.NewStyle().
			Foreground(emerald).
			Bold(true),
		Ambient: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8C93B8")).
			Italic(true),
		Accent: lipgloss.NewStyle().
			Foreground(azure).
			Bold(true),
		Pass: lipgloss.NewStyle().
			Foreground(emerald).
			Bold(true),
		Fail: lipgloss.NewStyle().
			Foreground(crimson).
			Bold(true),
		Pending: lipgloss.NewStyle().
			Foreground(gold),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9BA1C4")),
		Info: lipgloss.NewStyle().
			Foreground(azure),
		Hero: lipgloss.NewStyle().
			Foreground(emerald).
			Bold(true),
		Rival: lipgloss.NewStyle().
			Foreground(crimson).
			Bold(true),
		Bar: [3]string{"#E4572E", "#F2C14E", "#5FD39A"},
	}
}

func parchmentTheme() Theme {
	ink := lipgloss.Color("#3B2F2F")
	sepia := lipgloss.Color("#8B5E34")
	moss := lipgloss.Color("#4F7942")
	wine := lipgloss.Color("#8E2C48")
	paper := lipgloss.Color("#F5ECD7")
	tan := lipgloss.Color("#E3D3B0")

	return Theme{
		Header:      lipgloss.NewStyle().Background(sepia).Foreground(paper).Bold(true).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(tan).Foreground(ink).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(sepia).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(sepia),
		PanelBody:   lipgloss.NewStyle().Foreground(ink),
		Emblem:      lipgloss.NewStyle().Foreground(sepia).Bold(true),
		Title:       lipgloss.NewStyle().Foreground(wine).Bold(true),
		Guide:       lipgloss.NewStyle().Foreground(sepia).Bold(true),
		User:        lipgloss.NewStyle().Foreground(moss).Bold(true),
		Ambient:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7A6A58")).Italic(true),
		Accent:      lipgloss.NewStyle().Foreground(wine).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(moss).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(wine).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(sepia),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7A6A58")),
		Info:        lipgloss.NewStyle().Foreground(sepia),
		Hero:        lipgloss.NewStyle().Foreground(moss).Bold(true),
		Rival:       lipgloss.NewStyle().Foreground(wine).Bold(true),
		Bar:         [3]string{"#8E2C48", "#8B5E34", "#4F7942"},
	}
}

func retroTerminalTheme() Theme {
	lime := lipgloss.Color("#9CF5A2")
	amber := lipgloss.Color("#E5D47A")
	red := lipgloss.Color("#FF6B6B")
	deep := lipgloss.Color("#07150A")
	forest := lipgloss.Color("#12301A")
	glow := lipgloss.Color("#C5F7C4")

	return Theme{
		Header:      lipgloss.NewStyle().Background(deep).Foreground(glow).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(forest).Foreground(glow).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(forest),
		PanelBody:   lipgloss.NewStyle().Foreground(glow),
		Emblem:      lipgloss.NewStyle().Foreground(amber),
		Title:       lipgloss.NewStyle().Foreground(amber).Bold(true),
		Guide:       lipgloss.NewStyle().Foreground(amber).Bold(true),
		User:        lipgloss.NewStyle().Foreground(lime).Bold(true),
		Ambient:     lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")),
		Accent:      lipgloss.NewStyle().Foreground(lime).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(lime).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(amber),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")),
		Info:        lipgloss.NewStyle().Foreground(lime),
		Hero:        lipgloss.NewStyle().Foreground(lime).Bold(true),
		Rival:       lipgloss.NewStyle().Foreground(red).Bold(true),
		Bar:         [3]string{"#FF6B6B", "#E5D47A", "#9CF5A2"},
	}
}

// twilightTheme is the Catppuccin Mocha palette.
func twilightTheme() Theme {
	p := catppuccin.Mocha
	c := func(col catppuccin.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(col.Hex)) }

	return Theme{
		Header:      c(p.Text()).Background(lipgloss.Color(p.Crust().Hex)).Bold(true).Padding(0, 1),
		Status:      c(p.Subtext1()).Background(lipgloss.Color(p.Mantle().Hex)).Padding(0, 1),
		PanelTitle:  c(p.Mauve()).Bold(true),
		PanelBorder: c(p.Surface2()),
		PanelBody:   c(p.Text()),
		Emblem:      c(p.Yellow()).Bold(true),
		Title:       c(p.Lavender()).Bold(true),
		Guide:       c(p.Mauve()).Bold(true),
		User:        c(p.Sky()).Bold(true),
		Ambient:     c(p.Overlay1()).Italic(true),
		Accent:      c(p.Peach()).Bold(true),
		Pass:        c(p.Green()).Bold(true),
		Fail:        c(p.Red()).Bold(true),
		Pending:     c(p.Yellow()),
		Muted:       c(p.Overlay0()),
		Info:        c(p.Blue()),
		Hero:        c(p.Green()).Bold(true),
		Rival:       c(p.Red()).Bold(true),
		Bar:         [3]string{p.Red().Hex, p.Yellow().Hex, p.Green().Hex},
	}
}
