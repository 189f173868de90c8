package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaydev/querydesk/internal/requestlog"
)

func historyCmd() *cobra.Command {
	var limit int
	var outcome string
	var stats bool
	var purge time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the request log (outcomes and sizes only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			store, closeDB, err := openRequestStore(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			switch {
			case purge > 0:
				n, err := store.Purge(time.Now().Add(-purge))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  purged %d entries older than %s\n", n, purge)
				return nil
			case stats:
				st, err := store.Stats()
				if err != nil {
					return err
				}
				printStats(out, st)
				return nil
			}

			entries, err := store.List(outcome, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printEntries(out, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max entries to show")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome: succeeded, failed or cancelled")
	cmd.Flags().BoolVar(&stats, "stats", false, "show totals per outcome")
	cmd.Flags().DurationVar(&purge, "purge", 0, "delete entries older than this duration (e.g. 720h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func printEntries(w io.Writer, entries []*requestlog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "  no requests logged")
		return
	}
	fmt.Fprintf(w, "  %-36s  %-19s  %-9s  %6s  %-6s  %9s  %9s\n",
		"ID", "STARTED", "OUTCOME", "STATUS", "KIND", "PROMPT", "DURATION")
	for _, e := range entries {
		status := "-"
		if e.Status > 0 {
			status = fmt.Sprintf("%d", e.Status)
		}
		kind := e.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(w, "  %-36s  %-19s  %-9s  %6s  %-6s  %9s  %8dms\n",
			e.ID,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Outcome,
			status,
			kind,
			humanBytes(e.PromptBytes),
			e.DurationMs,
		)
		if e.Message != "" && e.Outcome == "failed" {
			fmt.Fprintf(w, "    %s\n", e.Message)
		}
	}
}

func printStats(w io.Writer, st requestlog.Stats) {
	fmt.Fprintf(w, "  requests   %d\n", st.Total)
	fmt.Fprintf(w, "  succeeded  %d\n", st.Succeeded)
	fmt.Fprintf(w, "  failed     %d\n", st.Failed)
	fmt.Fprintf(w, "  cancelled  %d\n", st.Cancelled)
	fmt.Fprintf(w, "  avg time   %.0fms\n", st.AvgMs)
}
