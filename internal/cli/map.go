package cli

import (
	"github.com/spf13/cobra"

	"github.com/allenai/datamap-go/internal/config"
	"github.com/allenai/datamap-go/internal/engine"
	"github.com/allenai/datamap-go/internal/processors"
	"github.com/allenai/datamap-go/internal/registry"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Run a configurable per-document pipeline of filters, modifiers and annotators.",
	RunE:  runMap,
}

func init() {
	mapCmd.Flags().String("input-dir", "", "input directory (required)")
	mapCmd.Flags().String("output-dir", "", "output directory (required)")
	mapCmd.Flags().String("config", "", "pipeline config file, YAML or JSON (required)")
	mapCmd.Flags().String("err-dir", "", "error sink directory for parse/processor failures")
	mapCmd.Flags().Bool("delete-after-read", false, "delete source files once every writer for them has closed")
	mapCmd.Flags().Int("threads", 0, "worker thread count (default: available cores)")
	_ = mapCmd.MarkFlagRequired("input-dir")
	_ = mapCmd.MarkFlagRequired("output-dir")
	_ = mapCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	configPath, _ := cmd.Flags().GetString("config")
	errDir, _ := cmd.Flags().GetString("err-dir")
	deleteAfterRead, _ := cmd.Flags().GetBool("delete-after-read")
	threads, _ := cmd.Flags().GetInt("threads")

	pcfg, err := config.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}
	if err := pcfg.ValidateTopLevelKeys("text_field", "pipeline"); err != nil {
		return err
	}

	steps, err := pcfg.Steps()
	if err != nil {
		return err
	}
	textField := pcfg.TextField()

	pipeline := make([]processors.Processor, 0, len(steps))
	stepNames := make([]string, 0, len(steps))
	for _, step := range steps {
		name, err := config.StepName(step)
		if err != nil {
			return err
		}
		opts, err := config.StepOptions(step, textField)
		if err != nil {
			return err
		}
		proc, err := registry.Construct(name, opts)
		if err != nil {
			return err
		}
		pipeline = append(pipeline, proc)
		stepNames = append(stepNames, config.StepLabel(step, name))
	}

	files, err := discoverFiles(cmd.Context(), inputDir)
	if err != nil {
		return err
	}

	stats, err := engine.RunMap(cmd.Context(), files, engine.MapConfig{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		ErrDir:          errDir,
		Pipeline:        pipeline,
		StepNames:       stepNames,
		DeleteAfterRead: deleteAfterRead,
		Threads:         threads,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, stats.Report())
}
