package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/model"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count documents, raw byte volume and an optional text field's byte volume across a corpus.",
	RunE:  runCount,
}

func init() {
	countCmd.Flags().String("input-dir", "", "input directory (required)")
	countCmd.Flags().String("output-file", "", "file to write the JSON summary to (required)")
	countCmd.Flags().String("count-bytes", "", "jsonpath of a field to sum UTF-8 byte length for")
	countCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	_ = countCmd.MarkFlagRequired("input-dir")
	_ = countCmd.MarkFlagRequired("output-file")
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputFile, _ := cmd.Flags().GetString("output-file")
	countBytes, _ := cmd.Flags().GetString("count-bytes")
	threads, _ := cmd.Flags().GetInt("threads")

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	counters, err := engine.RunCount(cmd.Context(), files, engine.CountConfig{
		InputDir:   inputDir,
		CountBytes: countBytes,
		Threads:    threads,
	})
	if err != nil {
		return err
	}

	summary := map[string]any{
		"total_docs":      counters.TotalDocs,
		"total_file_size": counters.TotalFileSize,
	}
	if countBytes != "" {
		summary["total_text_bytes"] = counters.TotalTextBytes
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return model.NewIOError("encoding count summary", err)
	}
	if err := os.WriteFile(outputFile, append(encoded, '\n'), 0o644); err != nil {
		return model.NewIOError("writing "+outputFile, err)
	}

	return printJSON(cmd, summary)
}
