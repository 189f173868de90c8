package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/relaydev/querydesk/internal/api"
)

const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"

	DefaultWidth = 80
)

// Renderer turns results into terminal markdown.
type Renderer struct {
	style    string
	width    int
	codeLang string
	tr       *glamour.TermRenderer
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithStyle(style string) Option {
	return func(r *Renderer) { r.style = style }
}

func WithWidth(width int) Option {
	return func(r *Renderer) { r.width = width }
}

// WithCodeLanguage sets the info string of the code fence, which picks the
// syntax highlighter.
func WithCodeLanguage(lang string) Option {
	return func(r *Renderer) { r.codeLang = lang }
}

func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{style: StyleAuto, width: DefaultWidth}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.build(); err != nil {
		return nil, err
	}
	return r, nil
}

// ValidStyle reports whether style is one of the supported names.
func ValidStyle(style string) bool {
	switch style {
	case StyleAuto, StyleDark, StyleLight, StyleNoTTY:
		return true
	}
	return false
}

func (r *Renderer) build() error {
	if !ValidStyle(r.style) {
		return fmt.Errorf("unknown style %q", r.style)
	}
	if r.width <= 0 {
		r.width = DefaultWidth
	}

	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == StyleAuto {
		styleOpt = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(r.width))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	r.tr = tr
	return nil
}

// Width is the current wrap width.
func (r *Renderer) Width() int { return r.width }

// SetWidth rebuilds the renderer for a new wrap width.
func (r *Renderer) SetWidth(width int) error {
	if width == r.width {
		return nil
	}
	r.width = width
	return r.build()
}

// Render renders res as styled terminal output.
func (r *Renderer) Render(res api.Result) (string, error) {
	out, err := r.tr.Render(Document(res, r.codeLang))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// Document builds the markdown source for a result: the code block first for
// code results, then the answer, then a caption for method results.
func Document(res api.Result, codeLang string) string {
	var sb strings.Builder
	if res.Kind == api.KindCode && res.Code != "" {
		fence := codeFence(res.Code)
		sb.WriteString(fence + codeLang + "\n")
		sb.WriteString(strings.TrimRight(res.Code, "\n"))
		sb.WriteString("\n" + fence + "\n\n")
	}
	sb.WriteString(res.Answer)
	if res.Kind == api.KindMethod && res.Method != "" {
		sb.WriteString("\n\n---\n\n")
		sb.WriteString(fmt.Sprintf("*answered via `%s`*", res.Method))
	}
	sb.WriteString("\n")
	return sb.String()
}

// codeFence returns a backtick fence longer than any run inside code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, c := range code {
		if c == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}
