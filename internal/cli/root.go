package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/config"
	"github.com/allenai/datamap-go/internal/model"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "datamap",
	Short: "Stream large JSONL corpora through a processing strategy and write a sharded, compressed output directory.",
	Long: `datamap is a multi-command executable that reads a directory of
compressed JSONL documents, streams each document through one of five
processing strategies -- map, reshard, shuffle, discrete-partition or
range-partition -- and writes a sharded, compressed output directory, plus
a reservoir-sample command for distributed sampling and a count command for
corpus statistics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := config.ResolveLogLevel(verbose, quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error logging")
}

// Execute runs the root command and returns the process exit code. Any
// *model.Error's Code is surfaced directly (spec §7's ConfigError ->
// ExitConfig, IoError/WriterError -> ExitIO); any other error returns
// ExitError.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error())
		return int(extractExitCode(err))
	}
	return int(model.ExitSuccess)
}

func extractExitCode(err error) model.ExitCode {
	var dmErr *model.Error
	if errors.As(err, &dmErr) {
		return dmErr.Code
	}
	return model.ExitError
}

// RootCmd returns the root cobra.Command, for tests and subcommand
// registration.
func RootCmd() *cobra.Command {
	return rootCmd
}
