package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaydev/querydesk/internal/orchestrator"
	"github.com/relaydev/querydesk/internal/render"
)

func askCmd() *cobra.Command {
	var raw bool
	var asJSON bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Ask once and print the answer (reads stdin when no text is given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, os.Stdin)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAsk(ctx, prompt, cmd.OutOrStdout(), cmd.ErrOrStderr(), askOutput{raw: raw, json: asJSON, verbose: verbose})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown source instead of rendering it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print request id, size and timing to stderr")

	return cmd
}

type askOutput struct {
	codeLang string
	raw      bool
	json     bool
	verbose  bool
}

func readPrompt(args []string, stdin *os.File) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && stdin != nil {
		stat, err := stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			b, _ := io.ReadAll(stdin)
			prompt = strings.TrimSpace(string(b))
		}
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt text required")
	}
	return prompt, nil
}

func runAsk(ctx context.Context, prompt string, stdout, stderr io.Writer, o askOutput) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logTo := io.Discard
	if debug {
		logTo = stderr
	}
	s, err := openSession(cfg, logTo)
	if err != nil {
		return err
	}
	defer s.Close()

	o.codeLang = cfg.CodeLang
	return ask(ctx, s.orch, s.renderer, prompt, stdout, stderr, o)
}

// ask runs one request to completion and writes it out.
func ask(ctx context.Context, orch *orchestrator.Orchestrator, r *render.Renderer, prompt string, stdout, stderr io.Writer, o askOutput) error {
	call, ok := orch.Submit(ctx, prompt)
	if !ok {
		return fmt.Errorf("prompt text required")
	}
	out := call.Wait()

	if o.verbose {
		fmt.Fprintf(stderr, "request %s | %s | prompt %s | %s\n",
			out.RequestID, out.State, humanBytes(out.PromptBytes), out.Duration.Round(time.Millisecond))
	}

	if out.State != orchestrator.StateSucceeded || out.Result == nil {
		return errors.New(out.Message)
	}

	res := *out.Result
	switch {
	case o.json:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case o.raw:
		_, err := io.WriteString(stdout, render.Document(res, o.codeLang))
		return err
	}
	text, err := r.Render(res)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, text)
	return err
}

func humanBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	kb := float64(n) / 1024.0
	if kb < 1024 {
		return fmt.Sprintf("%.1f KB", kb)
	}
	mb := kb / 1024.0
	return fmt.Sprintf("%.1f MB", mb)
}
