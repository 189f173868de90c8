package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

// debug raises the log level to Debug.
var debug bool

func Root() *cobra.Command {
	if rootCmd != nil {
		return rootCmd
	}

	rootCmd = &cobra.Command{
		Use:   "querydesk",
		Short: "querydesk — ask an answer service from the terminal",
		Long: `querydesk sends a free-form question to an answer service and shows
the answer, plus the generated code or the method used when the service
returns one.

Quick start:
  querydesk init              Write the default config
  querydesk                   Open the interactive prompt
  querydesk ask "who was JFK" Ask once and print the answer
  querydesk history           Show recent requests`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ~/.querydesk/config.json)")
	pf.String("api-url", "", "answer service base URL (env QUERYDESK_API_URL or NEXT_PUBLIC_API_URL)")
	pf.String("base-dir", "", "storage directory for logs and the request log")
	pf.String("style", "", "render style: auto, dark, light or notty")
	pf.BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(
		versionCmd(),
		initCmd(),
		configCmd(),
		chatCmd(),
		askCmd(),
		historyCmd(),
		doctorCmd(),
	)

	return rootCmd
}
