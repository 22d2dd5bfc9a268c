// Package commands implements the ctcd CLI commands.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig  string
	flagVerbose bool

	// Global configuration, loaded before any command runs.
	globalConfig *Config
)

var rootCmd = &cobra.Command{
	Use:   "ctcd",
	Short: "CTC decoding toolkit",
	Long: `ctcd - decode, score and tune CTC posterior sets.

A posterior set (.ctcp) holds per-utterance class posteriors produced
by an upstream acoustic model. ctcd turns them into label sequences
and scores them against reference transcripts.

Examples:
  # Decode with a beam of 8 and print symbols
  ctcd decode --set dev.ctcp --vocab symbols.txt --beam 8

  # Score a corpus, keeping per-utterance state for resume
  ctcd eval --set dev.ctcp --refs dev.ref --store ./runs

  # Grid-search decoding parameters
  ctcd sweep --set dev.ctcp --refs dev.ref --beams 1,2,4,8 --alphas 0,0.5,1`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		cfg, err := LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		globalConfig = cfg
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}

// initLogging routes slog to stderr so stdout stays machine-readable.
func initLogging() {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
