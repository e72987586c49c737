package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allenai/datamap-go/internal/codec"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/processors"
)

// MapConfig is the input to RunMap, corresponding directly to spec §4.6's
// inputs: an input directory, an output directory, a pipeline, an optional
// error directory, a delete_after_read flag, and a thread count.
type MapConfig struct {
	InputDir        string
	OutputDir       string
	ErrDir          string
	Pipeline        []processors.Processor
	StepNames       []string // parallel to Pipeline, for stats labeling
	DeleteAfterRead bool
	Threads         int
}

// StepStat accumulates per-pipeline-index statistics across every file in
// the run.
type StepStat struct {
	Name      string
	Removed   int64
	TimeNanos int64
}

// MapStats is the end-of-run summary spec §4.6 requires: total wall time,
// total documents, and per-step time%, absolute removals, removals over
// survivors-before-step, and removals over total documents.
type MapStats struct {
	WallNanos   int64
	TotalDocs   int64
	ParseErrors int64
	Steps       []StepStat
}

// Report renders MapStats into the derived percentage fields spec §4.6's
// final paragraph names; it is computed lazily here because the ratios
// depend on totals only known once every worker has finished.
func (s MapStats) Report() map[string]any {
	survivorsBefore := s.TotalDocs - s.ParseErrors
	var totalStepTime int64
	for _, st := range s.Steps {
		totalStepTime += st.TimeNanos
	}

	steps := make([]map[string]any, 0, len(s.Steps))
	for _, st := range s.Steps {
		timePct := 0.0
		if totalStepTime > 0 {
			timePct = float64(st.TimeNanos) / float64(totalStepTime)
		}
		removedOverSurvivors := 0.0
		if survivorsBefore > 0 {
			removedOverSurvivors = float64(st.Removed) / float64(survivorsBefore)
		}
		removedOverTotal := 0.0
		if s.TotalDocs > 0 {
			removedOverTotal = float64(st.Removed) / float64(s.TotalDocs)
		}
		steps = append(steps, map[string]any{
			"name":                    st.Name,
			"time_pct":                timePct,
			"removed":                 st.Removed,
			"removed_over_survivors":  removedOverSurvivors,
			"removed_over_total":      removedOverTotal,
		})
		survivorsBefore -= st.Removed
	}

	return map[string]any{
		"wall_time_ns": s.WallNanos,
		"total_docs":   s.TotalDocs,
		"parse_errors": s.ParseErrors,
		"steps":        steps,
	}
}

// fileMapResult is one worker's contribution, merged single-threaded after
// the join barrier (spec §5 coordination point (a)).
type fileMapResult struct {
	totalDocs   int64
	parseErrors int64
	stepRemoved []int64
	stepNanos   []int64
}

// RunMap implements the pipeline evaluator (spec §4.6). Each input file is
// processed by exactly one worker: lazy per-step writers are opened under
// output_dir/step_NN/<relpath> and output_dir/step_final/<relpath> (names
// normalized to .jsonl.zst), parse errors and processor Fail decisions are
// routed to the optional error sink, and delete_after_read only unlinks the
// source file once every writer opened for it has closed successfully.
func RunMap(ctx context.Context, files []model.SourceFile, cfg MapConfig) (MapStats, error) {
	start := time.Now()

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	results := make(chan fileMapResult, len(files))

	for _, f := range files {
		file := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := mapOneFile(file, cfg)
			if err != nil {
				return err
			}
			results <- res
			return nil
		})
	}

	err := g.Wait()
	close(results)

	stats := MapStats{Steps: make([]StepStat, len(cfg.Pipeline))}
	for i, name := range cfg.StepNames {
		stats.Steps[i].Name = name
	}
	for res := range results {
		stats.TotalDocs += res.totalDocs
		stats.ParseErrors += res.parseErrors
		for i := range stats.Steps {
			stats.Steps[i].Removed += res.stepRemoved[i]
			stats.Steps[i].TimeNanos += res.stepNanos[i]
		}
	}
	stats.WallNanos = time.Since(start).Nanoseconds()

	if err != nil {
		return stats, err
	}
	return stats, nil
}

// stepWriterSet lazily opens one writer per pipeline index plus step_final,
// and tracks whether every writer it opened closed cleanly so
// delete_after_read can be honored correctly.
type stepWriterSet struct {
	outputDir string
	relPath   string
	writers   map[string]*codec.LineWriter
	failed    bool
}

func newStepWriterSet(outputDir, relPath string) *stepWriterSet {
	return &stepWriterSet{outputDir: outputDir, relPath: relPath, writers: make(map[string]*codec.LineWriter)}
}

func (s *stepWriterSet) writer(step string) (*codec.LineWriter, error) {
	if w, ok := s.writers[step]; ok {
		return w, nil
	}
	path := filepath.Join(s.outputDir, step, normalizeToJSONLZst(s.relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.failed = true
		return nil, model.NewIOError(fmt.Sprintf("creating directory for %s", path), err)
	}
	w, err := codec.NewWriter(path)
	if err != nil {
		s.failed = true
		return nil, model.NewIOError(fmt.Sprintf("opening %s", path), err)
	}
	s.writers[step] = w
	return w, nil
}

func (s *stepWriterSet) writeLine(step string, line []byte) error {
	w, err := s.writer(step)
	if err != nil {
		return err
	}
	if _, err := w.WriteLine(line); err != nil {
		s.failed = true
		return model.NewIOError("writing line", err)
	}
	return nil
}

// close finalizes every writer opened for this file. It reports whether
// every writer closed successfully, which gates delete_after_read.
func (s *stepWriterSet) close() bool {
	ok := !s.failed
	for _, w := range s.writers {
		if err := w.Close(); err != nil {
			ok = false
		}
	}
	return ok
}

// clonePipeline returns a per-file copy of a shared pipeline, cloning only
// the steps that carry mutable state (spec §4.5/§5: "all processor state is
// immutable after construction"). cfg.Pipeline is constructed once and
// handed to every file worker concurrently, so a stateful processor (e.g.
// subsample, whose *rand.Rand is not safe for concurrent use) must never
// have its shared instance's Apply called from more than one goroutine;
// stateless processors are reused as-is since Apply is already safe for
// them to share.
func clonePipeline(pipeline []processors.Processor) []processors.Processor {
	cloned := make([]processors.Processor, len(pipeline))
	for i, p := range pipeline {
		if c, ok := p.(processors.Cloner); ok {
			cloned[i] = c.Clone()
		} else {
			cloned[i] = p
		}
	}
	return cloned
}

func mapOneFile(file model.SourceFile, cfg MapConfig) (fileMapResult, error) {
	pipeline := clonePipeline(cfg.Pipeline)

	res := fileMapResult{
		stepRemoved: make([]int64, len(cfg.Pipeline)),
		stepNanos:   make([]int64, len(cfg.Pipeline)),
	}

	reader, err := codec.OpenReader(file.AbsPath)
	if err != nil {
		return res, model.NewIOError(fmt.Sprintf("opening %s", file.AbsPath), err)
	}
	defer reader.Close()

	outputs := newStepWriterSet(cfg.OutputDir, file.RelPath)

	var errWriter *codec.LineWriter
	var errWriterDir string
	if cfg.ErrDir != "" {
		errWriterDir = filepath.Join(cfg.ErrDir, filepath.Dir(file.RelPath))
	}

	writeErr := func(payload []byte) error {
		if cfg.ErrDir == "" {
			return nil
		}
		if errWriter == nil {
			if err := os.MkdirAll(errWriterDir, 0o755); err != nil {
				return model.NewIOError("creating error sink directory", err)
			}
			errPath := filepath.Join(cfg.ErrDir, normalizeToJSONLZst(file.RelPath))
			errWriter, err = codec.NewWriter(errPath)
			if err != nil {
				return model.NewIOError("opening error sink", err)
			}
		}
		_, err := errWriter.WriteLine(payload)
		return err
	}

	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		res.totalDocs++

		if !codec.ValidUTF8(line) {
			res.parseErrors++
			_ = writeErr([]byte(line))
			continue
		}

		var doc map[string]any
		if jsonErr := json.Unmarshal([]byte(line), &doc); jsonErr != nil {
			res.parseErrors++
			_ = writeErr([]byte(line))
			continue
		}

		cur := doc
		dropped := false
		for i, proc := range pipeline {
			t0 := time.Now()
			result, decision, reason := proc.Apply(cur)
			res.stepNanos[i] += time.Since(t0).Nanoseconds()

			switch decision {
			case processors.Keep:
				cur = result
			case processors.Drop:
				res.stepRemoved[i]++
				encoded, _ := json.Marshal(cur)
				stepDir := fmt.Sprintf("step_%02d", i)
				_ = outputs.writeLine(stepDir, encoded)
				dropped = true
			case processors.Fail:
				errDoc := map[string]any{"error": reason, "doc": cur}
				encoded, _ := json.Marshal(errDoc)
				_ = writeErr(encoded)
				dropped = true
			}
			if dropped {
				break
			}
		}

		if !dropped {
			encoded, _ := json.Marshal(cur)
			_ = outputs.writeLine("step_final", encoded)
		}
	}

	if err := reader.Err(); err != nil {
		outputs.failed = true
	}

	writersOK := outputs.close()
	errWriterOK := true
	if errWriter != nil {
		errWriterOK = errWriter.Close() == nil
	}

	if reader.Err() == nil && cfg.DeleteAfterRead && writersOK && errWriterOK {
		_ = os.Remove(file.AbsPath)
	}

	if reader.Err() != nil {
		return res, model.NewIOError(fmt.Sprintf("reading %s", file.AbsPath), reader.Err())
	}
	return res, nil
}
