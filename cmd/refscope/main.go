package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/refscope"
	"github.com/jward/refscope/internal/config"
	"github.com/jward/refscope/scripts"
)

var (
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

var validFormats = []string{"json", "text"}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "refscope",
	Short:         "Scope-aware variable and reference resolution for TypeScript and JavaScript",
	Long:          "Refscope resolves variable declarations, their usages and their references across files, for use by refactoring tools.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagFormat == "" {
			flagFormat = cfg.Output.Format
		}
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		activeConfig = cfg
		setupLogging(cmd)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: json|text (default from config, else json)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.FileName+" in the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(atCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(checkCmd)
}

var activeConfig *config.Config

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	return config.Discover(cwd)
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// newEngine creates an Engine over the working directory with the loaded
// config.
func newEngine() (*refscope.Engine, error) {
	return refscope.New(
		refscope.WithConfig(activeConfig),
		refscope.WithLogger(slog.Default()),
		refscope.WithScriptsFS(scripts.FS),
	)
}
