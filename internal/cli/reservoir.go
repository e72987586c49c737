package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/tokenizer"
)

var reservoirCmd = &cobra.Command{
	Use:   "reservoir-sample",
	Short: "Draw a fixed-size uniform or token-weighted reservoir sample of a field's values.",
	RunE:  runReservoir,
}

func init() {
	reservoirCmd.Flags().String("input-dir", "", "input directory (required)")
	reservoirCmd.Flags().String("output-file", "", "file to write the JSON sample to (required)")
	reservoirCmd.Flags().String("key", "", "jsonpath of the field to sample (required)")
	reservoirCmd.Flags().Int("reservoir-size", 0, "target reservoir size (required)")
	reservoirCmd.Flags().Bool("token-weighted", false, "weight each item by its text field's token count")
	reservoirCmd.Flags().String("text-key", "text", "jsonpath of the text field used for token weighting")
	reservoirCmd.Flags().String("tokenizer", "", "tokenizer name for --token-weighted (default cl100k_base)")
	reservoirCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	reservoirCmd.Flags().Int64("seed", 0, "reservoir RNG seed")
	_ = reservoirCmd.MarkFlagRequired("input-dir")
	_ = reservoirCmd.MarkFlagRequired("output-file")
	_ = reservoirCmd.MarkFlagRequired("key")
	_ = reservoirCmd.MarkFlagRequired("reservoir-size")
	rootCmd.AddCommand(reservoirCmd)
}

func runReservoir(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputFile, _ := cmd.Flags().GetString("output-file")
	key, _ := cmd.Flags().GetString("key")
	reservoirSize, _ := cmd.Flags().GetInt("reservoir-size")
	tokenWeighted, _ := cmd.Flags().GetBool("token-weighted")
	textKey, _ := cmd.Flags().GetString("text-key")
	tokenizerName, _ := cmd.Flags().GetString("tokenizer")
	threads, _ := cmd.Flags().GetInt("threads")
	seed, _ := cmd.Flags().GetInt64("seed")

	if reservoirSize <= 0 {
		return model.NewConfigError("--reservoir-size must be positive", nil)
	}

	var tok tokenizer.Tokenizer
	if tokenWeighted {
		var err error
		tok, err = tokenizer.NewTokenizer(tokenizerName)
		if err != nil {
			return model.NewConfigError("resolving tokenizer", err)
		}
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	result, err := engine.RunReservoirSample(cmd.Context(), files, engine.ReservoirConfig{
		InputDir:      inputDir,
		Key:           key,
		TextKey:       textKey,
		ReservoirSize: reservoirSize,
		TokenWeighted: tokenWeighted,
		Tokenizer:     tok,
		Threads:       threads,
		Seed:          seed,
	})
	if err != nil {
		return err
	}

	encoded, err := result.MarshalOutput()
	if err != nil {
		return model.NewIOError("encoding reservoir sample", err)
	}
	if err := os.WriteFile(outputFile, append(encoded, '\n'), 0o644); err != nil {
		return model.NewIOError("writing "+outputFile, err)
	}

	return printJSON(cmd, map[string]any{
		"total_docs":     result.TotalDocs,
		"reservoir_size": reservoirSize,
		"output_file":    outputFile,
	})
}
