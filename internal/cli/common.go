// Package cli implements the Cobra command hierarchy for the datamap CLI:
// map, reshard, shuffle, count, reservoir-sample, discrete-partition and
// range-partition, each a thin layer over internal/engine per spec §6.
//
// Grounded on the teacher's internal/cli/root.go (PersistentPreRunE
// wiring logging before any subcommand runs, SilenceUsage/SilenceErrors so
// the root command owns error presentation) and its per-command flag
// binding style.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/discovery"
	"github.com/allenai/datamap-go/internal/model"
)

// discoverFiles runs file discovery (spec §4.1) against inputDir, applying
// an optional .datamapignore file when present. Every command in this
// package shares this single entry point into internal/discovery.
func discoverFiles(ctx context.Context, inputDir string) ([]model.SourceFile, error) {
	ignoreMatcher, err := discovery.NewDatamapignoreMatcher(inputDir)
	if err != nil {
		return nil, model.NewIOError(fmt.Sprintf("loading .datamapignore under %s", inputDir), err)
	}

	walker := discovery.NewWalker()
	files, err := walker.Walk(ctx, discovery.WalkerConfig{
		Root:                 inputDir,
		DatamapignoreMatcher: ignoreMatcher,
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// printJSON renders v as indented JSON to cmd's configured stdout,
// matching spec §6's summary/count/reservoir output formats.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// requireNonEmpty returns a ConfigError when value is empty, naming flag
// for the message. It checks a single flag value; combinations such as
// reshard needing at least one of --max-lines/--max-size are checked by the
// command itself.
func requireNonEmpty(value, flag string) error {
	if value == "" {
		return model.NewConfigError(fmt.Sprintf("--%s is required", flag), nil)
	}
	return nil
}
