package commands

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaydev/querydesk/internal/render"
	"github.com/relaydev/querydesk/internal/storage"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "querydesk version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "built for %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config and create the storage directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(ConfigPath()); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", ConfigPath())
			}
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
				return fmt.Errorf("create base dir: %w", err)
			}
			if err := SaveConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  querydesk initialized\n")
			fmt.Fprintf(out, "  storage: %s\n", cfg.BaseDir)
			fmt.Fprintf(out, "  config:  %s\n", ConfigPath())
			fmt.Fprintf(out, "  api:     %s\n\n", cfg.APIURL)
			fmt.Fprintf(out, "  Next: querydesk\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *Config) {
	codeLang := cfg.CodeLang
	if codeLang == "" {
		codeLang = "(none)"
	}
	fmt.Fprintf(w, "  config file   %s\n", ConfigPath())
	fmt.Fprintf(w, "  api_url       %s\n", cfg.APIURL)
	fmt.Fprintf(w, "  api_token     %s\n", maskToken(cfg.APIToken))
	fmt.Fprintf(w, "  base_dir      %s\n", cfg.BaseDir)
	fmt.Fprintf(w, "  timeout       %s\n", cfg.Timeout)
	fmt.Fprintf(w, "  style         %s\n", cfg.Style)
	fmt.Fprintf(w, "  result_shape  %s\n", cfg.ResultShape)
	fmt.Fprintf(w, "  code_lang     %s\n", codeLang)
	fmt.Fprintf(w, "  log_requests  %t\n", cfg.LogRequests)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics: config, storage, endpoint reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "  config error: %v (using defaults)\n", err)
				cfg = DefaultConfig()
			}
			runDoctor(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func runDoctor(w io.Writer, cfg *Config) {
	fmt.Fprintf(w, "  querydesk doctor\n\n")

	check := func(label string, ok bool, detail string) {
		status := "  PASS"
		if !ok {
			status = "  FAIL"
		}
		fmt.Fprintf(w, "  %s  %-40s %s\n", status, label, detail)
	}

	check("runtime", true, runtime.Version())

	_, cfgErr := os.Stat(ConfigPath())
	check("config file", cfgErr == nil, ConfigPath())

	_, dirErr := os.Stat(cfg.BaseDir)
	check("storage dir", dirErr == nil, cfg.BaseDir)

	testFile := filepath.Join(cfg.BaseDir, ".write-test")
	writeErr := os.WriteFile(testFile, []byte("test"), 0644)
	if writeErr == nil {
		os.Remove(testFile)
	}
	check("storage writable", writeErr == nil, "")

	if cfg.LogRequests {
		dbPath := filepath.Join(cfg.BaseDir, storage.DBFile)
		_, dbErr := os.Stat(dbPath)
		check("request log", dbErr == nil, dbPath)
	}

	check("render style", render.ValidStyle(cfg.Style), cfg.Style)

	addr, urlErr := endpointAddr(cfg.APIURL)
	check("api url", urlErr == nil, cfg.APIURL)
	if urlErr == nil {
		check("api reachable", reachable(addr, 2*time.Second), addr)
	}

	fmt.Fprintln(w)
}

// endpointAddr returns host:port for a dial check.
func endpointAddr(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host")
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func reachable(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
