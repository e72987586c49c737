package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/partition"
)

var discretePartitionCmd = &cobra.Command{
	Use:   "discrete-partition",
	Short: "Route documents into one output directory per exact value of a categorical field.",
	RunE:  runDiscretePartition,
}

var rangePartitionCmd = &cobra.Command{
	Use:   "range-partition",
	Short: "Route documents into one output directory per half-open interval of a numeric field.",
	RunE:  runRangePartition,
}

func init() {
	discretePartitionCmd.Flags().String("input-dir", "", "input directory (required)")
	discretePartitionCmd.Flags().String("output-dir", "", "output directory (required)")
	discretePartitionCmd.Flags().String("partition-key", "", "jsonpath of the categorical field (required)")
	discretePartitionCmd.Flags().StringSlice("choices", nil, "restrict routing to these category values (default: dynamic)")
	discretePartitionCmd.Flags().Int64("max-file-size", 0, "maximum bytes per bucket shard (0 = unlimited)")
	discretePartitionCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	_ = discretePartitionCmd.MarkFlagRequired("input-dir")
	_ = discretePartitionCmd.MarkFlagRequired("output-dir")
	_ = discretePartitionCmd.MarkFlagRequired("partition-key")
	rootCmd.AddCommand(discretePartitionCmd)

	rangePartitionCmd.Flags().String("input-dir", "", "input directory (required)")
	rangePartitionCmd.Flags().String("output-dir", "", "output directory (required)")
	rangePartitionCmd.Flags().String("value", "", "jsonpath of the numeric field (required)")
	rangePartitionCmd.Flags().Float64("default-value", 0, "value substituted when --value is missing from a document")
	rangePartitionCmd.Flags().String("range-groups", "", "comma-separated ascending cutpoints")
	rangePartitionCmd.Flags().String("reservoir-path", "", "reservoir-sample output file to derive cutpoints from")
	rangePartitionCmd.Flags().Int("num-buckets", 0, "number of buckets to derive from --reservoir-path")
	rangePartitionCmd.Flags().Int64("max-file-size", 0, "maximum bytes per bucket shard (0 = unlimited)")
	rangePartitionCmd.Flags().String("bucket-name", "bucket", "directory name prefix for each bucket")
	rangePartitionCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	_ = rangePartitionCmd.MarkFlagRequired("input-dir")
	_ = rangePartitionCmd.MarkFlagRequired("output-dir")
	_ = rangePartitionCmd.MarkFlagRequired("value")
	rootCmd.AddCommand(rangePartitionCmd)
}

func runDiscretePartition(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	partitionKey, _ := cmd.Flags().GetString("partition-key")
	choices, _ := cmd.Flags().GetStringSlice("choices")
	maxFileSize, _ := cmd.Flags().GetInt64("max-file-size")
	threads, _ := cmd.Flags().GetInt("threads")

	var maxFileSizePtr *int64
	if cmd.Flags().Changed("max-file-size") {
		maxFileSizePtr = &maxFileSize
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	counters, err := engine.RunDiscretePartition(cmd.Context(), files, engine.DiscretePartitionConfig{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		PartitionKey: partitionKey,
		Choices:      choices,
		MaxFileSize:  maxFileSizePtr,
		Threads:      threads,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, counters)
}

func runRangePartition(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	value, _ := cmd.Flags().GetString("value")
	defaultValue, _ := cmd.Flags().GetFloat64("default-value")
	rangeGroups, _ := cmd.Flags().GetString("range-groups")
	reservoirPath, _ := cmd.Flags().GetString("reservoir-path")
	numBuckets, _ := cmd.Flags().GetInt("num-buckets")
	maxFileSize, _ := cmd.Flags().GetInt64("max-file-size")
	bucketName, _ := cmd.Flags().GetString("bucket-name")
	threads, _ := cmd.Flags().GetInt("threads")

	cutpoints, err := resolveCutpoints(rangeGroups, reservoirPath, numBuckets)
	if err != nil {
		return err
	}

	var maxFileSizePtr *int64
	if cmd.Flags().Changed("max-file-size") {
		maxFileSizePtr = &maxFileSize
	}
	var defaultValuePtr *float64
	if cmd.Flags().Changed("default-value") {
		defaultValuePtr = &defaultValue
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	counters, err := engine.RunRangePartition(cmd.Context(), files, engine.RangePartitionConfig{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		Value:        value,
		DefaultValue: defaultValuePtr,
		Cutpoints:    cutpoints,
		MaxFileSize:  maxFileSizePtr,
		BucketName:   bucketName,
		Threads:      threads,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, counters)
}

// resolveCutpoints implements spec §4.11's two cutpoint sources: an explicit
// comma-separated list, or derivation from a reservoir-sample output file.
// Exactly one source must be given.
func resolveCutpoints(rangeGroups, reservoirPath string, numBuckets int) ([]float64, error) {
	if rangeGroups != "" && reservoirPath != "" {
		return nil, model.NewConfigError("specify at most one of --range-groups or --reservoir-path", nil)
	}

	if rangeGroups != "" {
		parts := strings.Split(rangeGroups, ",")
		cuts := make([]float64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, model.NewConfigError("parsing --range-groups", err)
			}
			cuts = append(cuts, v)
		}
		return cuts, nil
	}

	if reservoirPath != "" {
		if numBuckets <= 0 {
			return nil, model.NewConfigError("--num-buckets is required with --reservoir-path", nil)
		}
		data, err := os.ReadFile(reservoirPath)
		if err != nil {
			return nil, model.NewIOError("reading "+reservoirPath, err)
		}
		cuts, err := partition.CutpointsFromReservoir(data, numBuckets)
		if err != nil {
			return nil, model.NewConfigError("deriving cutpoints from reservoir sample", err)
		}
		return cuts, nil
	}

	return nil, model.NewConfigError("range-partition requires one of --range-groups or --reservoir-path", nil)
}
