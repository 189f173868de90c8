package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/relaydev/querydesk/internal/api"
	"github.com/relaydev/querydesk/internal/render"
)

const (
	DefaultAPIURL = "http://localhost:8000"
	Version       = "0.1.0"

	envPrefix = "QUERYDESK"
	// LogFile lives under the base dir; the TUI owns the terminal.
	LogFile = "querydesk.log"
)

// Config holds the querydesk client configuration.
type Config struct {
	APIURL      string `json:"api_url" mapstructure:"api_url"`
	APIToken    string `json:"api_token,omitempty" mapstructure:"api_token"`
	BaseDir     string `json:"base_dir" mapstructure:"base_dir"`
	Timeout     string `json:"timeout" mapstructure:"timeout"`
	Style       string `json:"style" mapstructure:"style"`
	ResultShape string `json:"result_shape" mapstructure:"result_shape"`
	CodeLang    string `json:"code_lang" mapstructure:"code_lang"`
	LogRequests bool   `json:"log_requests" mapstructure:"log_requests"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		APIURL:      DefaultAPIURL,
		BaseDir:     filepath.Join(home, ".querydesk"),
		Timeout:     api.DefaultTimeout.String(),
		Style:       render.StyleAuto,
		ResultShape: string(api.ShapeAuto),
		LogRequests: true,
	}
}

// configFile overrides ConfigPath when set by --config.
var configFile string

func ConfigPath() string {
	if configFile != "" {
		return configFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".querydesk", "config.json")
}

// LoadConfig resolves the effective configuration from defaults, the config
// file, the environment and the root command's flags.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return loadConfig(ConfigPath(), Root().PersistentFlags())
}

func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("api_url", def.APIURL)
	v.SetDefault("api_token", def.APIToken)
	v.SetDefault("base_dir", def.BaseDir)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("style", def.Style)
	v.SetDefault("result_shape", def.ResultShape)
	v.SetDefault("code_lang", def.CodeLang)
	v.SetDefault("log_requests", def.LogRequests)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The web frontend's variable is honoured so one .env serves both.
	if err := v.BindEnv("api_url", envPrefix+"_API_URL", "NEXT_PUBLIC_API_URL"); err != nil {
		return nil, err
	}

	if flags != nil {
		for key, name := range map[string]string{
			"api_url":  "api-url",
			"base_dir": "base-dir",
			"style":    "style",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.BaseDir = expandHome(cfg.BaseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that are parsed later.
func (c *Config) Validate() error {
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := api.ParseShape(c.ResultShape); err != nil {
		return err
	}
	if !render.ValidStyle(c.Style) {
		return fmt.Errorf("unknown style %q", c.Style)
	}
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base_dir is empty")
	}
	return nil
}

// RequestTimeout is the per-request timeout; zero disables it.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative", c.Timeout)
	}
	return d, nil
}

func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(ConfigPath()), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0600)
}

// loadDotEnv loads path if it exists. Variables already set in the
// environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func maskToken(tok string) string {
	switch {
	case tok == "":
		return "(unset)"
	case len(tok) <= 8:
		return "****"
	default:
		return tok[:4] + "…" + tok[len(tok)-4:]
	}
}
