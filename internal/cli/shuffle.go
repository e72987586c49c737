package cli

import (
	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/model"
)

var shuffleCmd = &cobra.Command{
	Use:   "shuffle",
	Short: "Randomly redistribute documents across a fixed number of output chunks.",
	RunE:  runShuffle,
}

func init() {
	shuffleCmd.Flags().String("input-dir", "", "input directory (required)")
	shuffleCmd.Flags().String("output-dir", "", "output directory (required)")
	shuffleCmd.Flags().Int("num-outputs", 0, "number of shuffled output chunks (required)")
	shuffleCmd.Flags().Int64("max-len", 0, "maximum bytes per chunk shard (0 = unlimited)")
	shuffleCmd.Flags().Bool("delete-after-read", false, "delete source files once fully read")
	shuffleCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	shuffleCmd.Flags().Int64("seed", 0, "shuffle RNG seed")
	_ = shuffleCmd.MarkFlagRequired("input-dir")
	_ = shuffleCmd.MarkFlagRequired("output-dir")
	_ = shuffleCmd.MarkFlagRequired("num-outputs")
	rootCmd.AddCommand(shuffleCmd)
}

func runShuffle(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	numOutputs, _ := cmd.Flags().GetInt("num-outputs")
	maxLen, _ := cmd.Flags().GetInt64("max-len")
	deleteAfterRead, _ := cmd.Flags().GetBool("delete-after-read")
	threads, _ := cmd.Flags().GetInt("threads")
	seed, _ := cmd.Flags().GetInt64("seed")

	if numOutputs <= 0 {
		return model.NewConfigError("--num-outputs must be positive", nil)
	}

	var maxLenPtr *int64
	if cmd.Flags().Changed("max-len") {
		maxLenPtr = &maxLen
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	counters, err := engine.RunShuffle(cmd.Context(), files, engine.ShuffleConfig{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		NumOutputs:      numOutputs,
		MaxLen:          maxLenPtr,
		DeleteAfterRead: deleteAfterRead,
		Threads:         threads,
		Seed:            seed,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, counters)
}
