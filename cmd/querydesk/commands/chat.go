package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/relaydev/querydesk/internal/tui"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive prompt (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

func runChat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	err = tui.Run(ctx, tui.Options{
		Orchestrator: s.orch,
		Renderer:     s.renderer,
		Logger:       s.log,
		APIURL:       s.client.BaseURL(),
	})
	if err != nil {
		s.log.Error("tui exited", "err", err)
	}
	return err
}
