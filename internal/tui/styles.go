package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#58A6FF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#71717A", Dark: "#8B949E"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#3FB950"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F85149"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#30363D"}
)

type styles struct {
	title      lipgloss.Style
	subtitle   lipgloss.Style
	input      lipgloss.Style
	button     lipgloss.Style
	buttonOff  lipgloss.Style
	stop       lipgloss.Style
	success    lipgloss.Style
	failure    lipgloss.Style
	result     lipgloss.Style
	hint       lipgloss.Style
	hintKey    lipgloss.Style
	statusLine lipgloss.Style
}

func defaultStyles() styles {
	button := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent)

	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		subtitle:  lipgloss.NewStyle().Foreground(colorMuted),
		input:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1),
		button:    button,
		buttonOff: button.Background(colorMuted),
		stop:      button,
		success:   lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		failure:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		result: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder),
		hint:       lipgloss.NewStyle().Foreground(colorMuted),
		hintKey:    lipgloss.NewStyle().Foreground(colorAccent),
		statusLine: lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
	}
}
