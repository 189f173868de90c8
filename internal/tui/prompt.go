package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const placeholder = "Ask who JFK was or count the 'r's in 'Orange'"

// SubmitMsg carries a trimmed, non-empty prompt.
type SubmitMsg struct {
	Prompt string
}

// CancelMsg asks to abort the pending request.
type CancelMsg struct{}

// PromptModel is the input box and its run/stop control.
type PromptModel struct {
	textarea textarea.Model
	spinner  spinner.Model
	styles   styles
	pending  bool
	width    int
}

func NewPrompt() PromptModel {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(colorAccent)

	return PromptModel{
		textarea: ta,
		spinner:  sp,
		styles:   defaultStyles(),
	}
}

// Value is the raw buffer.
func (p PromptModel) Value() string { return p.textarea.Value() }

// SetValue replaces the buffer.
func (p *PromptModel) SetValue(s string) { p.textarea.SetValue(s) }

// Pending reports whether the stop control is showing.
func (p PromptModel) Pending() bool { return p.pending }

// SetPending switches between the run and stop controls. Text entry is
// disabled while pending.
func (p *PromptModel) SetPending(pending bool) tea.Cmd {
	p.pending = pending
	if pending {
		p.textarea.Blur()
		return p.spinner.Tick
	}
	return p.textarea.Focus()
}

func (p *PromptModel) SetWidth(w int) {
	p.width = w
	// border and padding
	p.textarea.SetWidth(max(w-4, 10))
}

func (p PromptModel) Update(msg tea.Msg) (PromptModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.pending {
			switch msg.String() {
			case "esc", "ctrl+x":
				return p, cancelCmd
			}
			return p, nil
		}
		switch msg.String() {
		case "ctrl+s", "alt+enter", "ctrl+j":
			return p.submit()
		}

	case spinner.TickMsg:
		if !p.pending {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	var cmd tea.Cmd
	p.textarea, cmd = p.textarea.Update(msg)
	return p, cmd
}

func (p PromptModel) submit() (PromptModel, tea.Cmd) {
	prompt := strings.TrimSpace(p.textarea.Value())
	if prompt == "" {
		return p, nil
	}
	p.textarea.Reset()
	return p, func() tea.Msg { return SubmitMsg{Prompt: prompt} }
}

func cancelCmd() tea.Msg { return CancelMsg{} }

func (p PromptModel) View() string {
	var control string
	switch {
	case p.pending:
		control = p.styles.stop.Render(p.spinner.View() + " Stop esc")
	case strings.TrimSpace(p.textarea.Value()) == "":
		control = p.styles.buttonOff.Render("Run ctrl+s")
	default:
		control = p.styles.button.Render("Run ctrl+s")
	}

	box := p.styles.input
	if p.width > 0 {
		box = box.Width(p.width - 2)
	}
	return lipgloss.JoinVertical(lipgloss.Right, box.Render(p.textarea.View()), control)
}
