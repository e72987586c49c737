package cli

import (
	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/shard"
)

var reshardCmd = &cobra.Command{
	Use:   "reshard",
	Short: "Repack a corpus into byte-balanced shards, optionally preserving input subdirectories.",
	RunE:  runReshard,
}

func init() {
	reshardCmd.Flags().String("input-dir", "", "input directory (required)")
	reshardCmd.Flags().String("output-dir", "", "output directory (required)")
	reshardCmd.Flags().Int64("max-lines", 0, "maximum lines per shard (0 = unlimited)")
	reshardCmd.Flags().Int64("max-size", 0, "maximum bytes per shard (0 = unlimited)")
	reshardCmd.Flags().Float64("subsample", 0, "keep each line with this independent probability (0 disables)")
	reshardCmd.Flags().Bool("keep-dirs", false, "preserve input subdirectory structure instead of flattening")
	reshardCmd.Flags().Bool("delete-after-read", false, "delete source files once fully read")
	reshardCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	reshardCmd.Flags().Int64("seed", 0, "subsample RNG seed")
	_ = reshardCmd.MarkFlagRequired("input-dir")
	_ = reshardCmd.MarkFlagRequired("output-dir")
	rootCmd.AddCommand(reshardCmd)
}

func runReshard(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	maxLines, _ := cmd.Flags().GetInt64("max-lines")
	maxSize, _ := cmd.Flags().GetInt64("max-size")
	subsample, _ := cmd.Flags().GetFloat64("subsample")
	keepDirs, _ := cmd.Flags().GetBool("keep-dirs")
	deleteAfterRead, _ := cmd.Flags().GetBool("delete-after-read")
	threads, _ := cmd.Flags().GetInt("threads")
	seed, _ := cmd.Flags().GetInt64("seed")

	if maxLines <= 0 && maxSize <= 0 {
		return model.NewConfigError("reshard requires at least one of --max-lines or --max-size", nil)
	}

	var limits shard.Limits
	if maxLines > 0 {
		limits.MaxLines = &maxLines
	}
	if maxSize > 0 {
		limits.MaxBytes = &maxSize
	}

	var subsamplePtr *float64
	if cmd.Flags().Changed("subsample") && subsample > 0 {
		subsamplePtr = &subsample
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	counters, err := engine.RunReshard(cmd.Context(), files, engine.ReshardConfig{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		Limits:          limits,
		Subsample:       subsamplePtr,
		KeepDirs:        keepDirs,
		DeleteAfterRead: deleteAfterRead,
		Threads:         threads,
		Seed:            seed,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, counters)
}
