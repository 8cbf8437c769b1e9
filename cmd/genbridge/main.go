// Command genbridge inspects, stores and runs serialized component graphs.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/martinemde/genbridge/config"
	"github.com/martinemde/genbridge/genai"
)

const defaultStorePath = "genbridge.db"

type cliConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	StorePath  string

	file   config.Config
	logger zerolog.Logger
}

func main() {
	root := buildRootCmd(&cliConfig{LogLevel: envOr("GENBRIDGE_LOG_LEVEL", "info")}, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func buildRootCmd(cfg *cliConfig, logOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "genbridge",
		Short:         "Inspect, store and run serialized LLM component graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.ConfigPath, "config", os.Getenv("GENBRIDGE_CONFIG"), "Config file (.yaml, .json or .toml)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&cfg.LogFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&cfg.StorePath, "store", "", "Graph store database path")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfg.ConfigPath != "" {
			f, err := config.Load(cfg.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.file = f
			if !cmd.Flags().Changed("log-level") && f.LogLevel != "" {
				cfg.LogLevel = f.LogLevel
			}
			if cfg.LogFormat == "" {
				cfg.LogFormat = f.LogFormat
			}
			if cfg.StorePath == "" {
				cfg.StorePath = f.StorePath
			}
		}
		if cfg.StorePath == "" {
			cfg.StorePath = defaultStorePath
		}
		l, err := newLogger(logOut, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		cfg.logger = l
		genai.SetLogger(l)
		return nil
	}

	root.AddCommand(graphCmd(), storeCmd(cfg), generateCmd(cfg))
	return root
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
