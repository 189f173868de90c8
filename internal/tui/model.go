// Package tui is the interactive chat screen: a prompt box, a run/stop
// control, transient notifications and a markdown result panel.
package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaydev/querydesk/internal/api"
	"github.com/relaydev/querydesk/internal/orchestrator"
	"github.com/relaydev/querydesk/internal/render"
)

const (
	title    = "Ask me anything"
	subtitle = "Answers come from the LLM directly or from LLM-generated Python code"

	DefaultNoticeTTL = 3 * time.Second

	headerHeight = 3
	footerHeight = 1
	noticeHeight = 1
)

// Options wires the model to its collaborators.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Renderer     *render.Renderer
	Logger       *slog.Logger
	APIURL       string
	NoticeTTL    time.Duration
}

type settledMsg struct {
	out orchestrator.Outcome
}

type noticeExpiredMsg struct {
	seq int
}

type noticeKind int

const (
	noticeSuccess noticeKind = iota
	noticeError
)

type notice struct {
	kind noticeKind
	text string
	seq  int
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	orch      *orchestrator.Orchestrator
	renderer  *render.Renderer
	log       *slog.Logger
	apiURL    string
	noticeTTL time.Duration
	styles    styles

	prompt   PromptModel
	viewport viewport.Model
	notice   *notice
	seq      int

	// callID is the request the screen is waiting for.
	callID string
	// shown is the displayed result; reset clears it without touching the
	// orchestrator.
	shown    *api.Result
	rendered string

	width    int
	height   int
	ready    bool
	quitting bool
}

func New(ctx context.Context, opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return Model{
		ctx:       ctx,
		orch:      opts.Orchestrator,
		renderer:  opts.Renderer,
		log:       log,
		apiURL:    opts.APIURL,
		noticeTTL: ttl,
		styles:    defaultStyles(),
		prompt:    NewPrompt(),
		viewport:  viewport.New(render.DefaultWidth, 10),
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SubmitMsg:
		return m.handleSubmit(msg.Prompt)

	case CancelMsg:
		if m.orch.Cancel() {
			m.log.Debug("cancel requested", "request_id", m.callID)
		}
		return m, nil

	case settledMsg:
		return m.handleSettled(msg.out)

	case noticeExpiredMsg:
		if m.notice != nil && m.notice.seq == msg.seq {
			m.notice = nil
		}
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.orch.Pending() {
			return m, cancelCmd
		}
		m.quitting = true
		return m, tea.Quit
	case "ctrl+r":
		m.reset()
		return m, nil
	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit(prompt string) (tea.Model, tea.Cmd) {
	call, ok := m.orch.Submit(m.ctx, prompt)
	if !ok {
		return m, nil
	}
	m.callID = call.ID()
	m.shown = nil
	m.rendered = ""
	m.viewport.SetContent("")
	m.log.Debug("submitted", "request_id", call.ID())

	return m, tea.Batch(m.prompt.SetPending(true), waitFor(call))
}

// waitFor delivers the call's outcome to the event loop.
func waitFor(call *orchestrator.Call) tea.Cmd {
	return func() tea.Msg {
		return settledMsg{out: call.Wait()}
	}
}

func (m Model) handleSettled(out orchestrator.Outcome) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	current := out.RequestID == m.callID
	if current {
		m.callID = ""
		cmds = append(cmds, m.prompt.SetPending(false))
	}

	switch out.State {
	case orchestrator.StateSucceeded:
		if current && out.Result != nil {
			m.show(out.Result)
		}
	case orchestrator.StateCancelled:
		cmds = append(cmds, m.showNotice(noticeSuccess, out.Message))
	case orchestrator.StateFailed:
		cmds = append(cmds, m.showNotice(noticeError, out.Message))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) show(res *api.Result) {
	m.shown = res
	m.rerender()
	m.viewport.GotoTop()
}

// reset clears the displayed result and scrolls back to the top.
func (m *Model) reset() {
	if m.shown == nil {
		return
	}
	m.shown = nil
	m.rendered = ""
	m.viewport.SetContent("")
	m.viewport.GotoTop()
	m.log.Debug("display reset")
}

func (m *Model) rerender() {
	if m.shown == nil || m.renderer == nil {
		return
	}
	out, err := m.renderer.Render(*m.shown)
	if err != nil {
		m.log.Error("render result", "err", err)
		out = m.shown.Answer
	}
	m.rendered = out
	m.viewport.SetContent(out)
}

func (m *Model) showNotice(kind noticeKind, text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.seq++
	seq := m.seq
	m.notice = &notice{kind: kind, text: text, seq: seq}
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m *Model) layout() {
	inner := max(m.width-2, 20)
	m.prompt.SetWidth(inner)

	promptHeight := lipgloss.Height(m.prompt.View())
	vpHeight := m.height - headerHeight - promptHeight - noticeHeight - footerHeight - 2
	m.viewport.Width = inner - 2
	m.viewport.Height = max(vpHeight, 3)
	m.ready = true

	if m.renderer != nil {
		if err := m.renderer.SetWidth(max(inner-4, 20)); err != nil {
			m.log.Error("resize renderer", "err", err)
		}
	}
	m.rerender()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render(title) + "\n")
	b.WriteString(m.styles.subtitle.Render(subtitle) + "\n\n")
	b.WriteString(m.prompt.View() + "\n")
	b.WriteString(m.noticeView() + "\n")

	if m.shown != nil {
		b.WriteString(m.styles.result.Render(m.viewport.View()) + "\n")
	}
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) noticeView() string {
	if m.notice == nil {
		return ""
	}
	if m.notice.kind == noticeError {
		return m.styles.failure.Render("✗ " + m.notice.text)
	}
	return m.styles.success.Render("✓ " + m.notice.text)
}

func (m Model) footerView() string {
	type hint struct{ key, desc string }
	var hints []hint
	switch {
	case m.prompt.Pending():
		hints = []hint{{"esc", "stop"}, {"ctrl+c", "stop"}}
	case m.shown != nil:
		hints = []hint{{"ctrl+s", "run"}, {"ctrl+r", "ask another question"}, {"pgup/pgdn", "scroll"}, {"ctrl+c", "quit"}}
	default:
		hints = []hint{{"ctrl+s", "run"}, {"enter", "newline"}, {"ctrl+c", "quit"}}
	}

	parts := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		parts = append(parts, m.styles.hintKey.Render(h.key)+" "+m.styles.hint.Render(h.desc))
	}
	if m.apiURL != "" {
		parts = append(parts, m.styles.statusLine.Render(m.apiURL))
	}
	return strings.Join(parts, m.styles.hint.Render(" • "))
}
