package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPromptSubmitTrimsAndClears(t *testing.T) {
	gestures := map[string]tea.KeyMsg{
		"ctrl+s":    {Type: tea.KeyCtrlS},
		"alt+enter": {Type: tea.KeyEnter, Alt: true},
		"ctrl+j":    {Type: tea.KeyCtrlJ},
	}
	for name, key := range gestures {
		t.Run(name, func(t *testing.T) {
			p := NewPrompt()
			p.SetValue("  who was JFK?  \n")

			p, cmd := p.Update(key)
			if cmd == nil {
				t.Fatal("expected a submit command")
			}
			msg, ok := cmd().(SubmitMsg)
			if !ok {
				t.Fatalf("expected SubmitMsg, got %T", cmd())
			}
			if msg.Prompt != "who was JFK?" {
				t.Errorf("expected trimmed prompt, got %q", msg.Prompt)
			}
			if p.Value() != "" {
				t.Errorf("buffer should be cleared, got %q", p.Value())
			}
		})
	}
}

func TestPromptBlankSubmitIgnored(t *testing.T) {
	p := NewPrompt()
	p.SetValue(" \n\t ")
	before := p.Value()

	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		if _, ok := cmd().(SubmitMsg); ok {
			t.Fatal("blank prompt must not submit")
		}
	}
	if p.Value() != before {
		t.Errorf("blank buffer should be left alone, got %q want %q", p.Value(), before)
	}
}

func TestPromptEnterInsertsNewline(t *testing.T) {
	p := NewPrompt()
	p, _ = p.Update(keyRunes("a"))
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		if _, ok := cmd().(SubmitMsg); ok {
			t.Fatal("plain enter must not submit")
		}
	}
	p, _ = p.Update(keyRunes("b"))
	if p.Value() != "a\nb" {
		t.Errorf("expected multi-line buffer, got %q", p.Value())
	}
}

func TestPromptPendingDisablesEntry(t *testing.T) {
	p := NewPrompt()
	p.SetValue("draft")
	p.SetPending(true)

	p, _ = p.Update(keyRunes("x"))
	if p.Value() != "draft" {
		t.Errorf("typing while pending should be ignored, got %q", p.Value())
	}

	if _, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlS}); cmd != nil {
		t.Error("submit while pending should do nothing")
	}

	for _, key := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlX}} {
		_, cmd := p.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected cancel command", key)
		}
		if _, ok := cmd().(CancelMsg); !ok {
			t.Errorf("%s: expected CancelMsg", key)
		}
	}

	if !strings.Contains(p.View(), "Stop") {
		t.Errorf("pending view should show the stop control:\n%s", p.View())
	}

	p.SetPending(false)
	if !strings.Contains(p.View(), "Run") {
		t.Errorf("idle view should show the run control:\n%s", p.View())
	}
	if _, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd != nil {
		if _, ok := cmd().(CancelMsg); ok {
			t.Error("esc should not cancel when nothing is pending")
		}
	}
}
