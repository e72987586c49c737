package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/allenai/datamap-go/internal/jsonpath"
	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/reservoir"
	"github.com/allenai/datamap-go/internal/tokenizer"
)

// ReservoirConfig is the input to RunReservoirSample, corresponding to spec
// §4.7/§6's reservoir-sample command: a key field to sample, an optional
// token-weighted mode keyed off a text field, and a target reservoir size.
type ReservoirConfig struct {
	InputDir      string
	Key           string
	TextKey       string // default "text", only consulted when TokenWeighted
	ReservoirSize int
	TokenWeighted bool
	Tokenizer     tokenizer.Tokenizer // required when TokenWeighted
	Threads       int
	Seed          int64
}

// ReservoirResult carries the merged, end-of-run sample in exactly one of
// its two forms, matching spec §4.7's "Output format" split between
// uniform and weighted modes.
type ReservoirResult struct {
	TotalDocs     int64
	Uniform       []any                      // set when !TokenWeighted
	Weighted      []reservoir.PercentileEntry // set when TokenWeighted
	TokenWeighted bool
}

// MarshalOutput renders the result exactly as spec §6 requires: a plain
// array of values, or an array of {percentile, value} objects.
func (r ReservoirResult) MarshalOutput() ([]byte, error) {
	if r.TokenWeighted {
		return json.MarshalIndent(r.Weighted, "", "  ")
	}
	return json.MarshalIndent(r.Uniform, "", "  ")
}

// RunReservoirSample implements spec §4.7: each worker reads a disjoint
// slice of files into its own reservoir (Vitter R or A-Res, seeded from
// cfg.Seed plus the worker's index for per-worker determinism), and the
// per-worker reservoirs are merged single-threaded at the end-of-run join
// barrier (spec §5 coordination point (b)). Determinism across the whole
// run is only guaranteed at Threads == 1, per spec §9 open question 4.
func RunReservoirSample(ctx context.Context, files []model.SourceFile, cfg ReservoirConfig) (ReservoirResult, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > len(files) && len(files) > 0 {
		threads = len(files)
	}
	if threads < 1 {
		threads = 1
	}

	textKey := cfg.TextKey
	if textKey == "" {
		textKey = "text"
	}

	buckets := splitFiles(files, threads)

	type workerOut struct {
		uniform  *reservoir.Uniform
		weighted *reservoir.Weighted
		docs     int64
	}

	outs := make([]workerOut, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range buckets {
		i, bucket := i, bucket
		g.Go(func() error {
			var uni *reservoir.Uniform
			var wei *reservoir.Weighted
			if cfg.TokenWeighted {
				wei = reservoir.NewWeighted(cfg.ReservoirSize, cfg.Seed+int64(i))
			} else {
				uni = reservoir.NewUniform(cfg.ReservoirSize, cfg.Seed+int64(i))
			}

			var docs int64
			for _, f := range bucket {
				if err := gctx.Err(); err != nil {
					return err
				}
				n, err := reservoirOneFile(f, cfg, textKey, uni, wei)
				if err != nil {
					return err
				}
				docs += n
			}

			outs[i] = workerOut{uniform: uni, weighted: wei, docs: docs}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ReservoirResult{}, err
	}

	var total int64
	for _, o := range outs {
		total += o.docs
	}

	mergeRng := rand.New(rand.NewSource(cfg.Seed))
	result := ReservoirResult{TotalDocs: total, TokenWeighted: cfg.TokenWeighted}

	if cfg.TokenWeighted {
		var merged *reservoir.Weighted
		for _, o := range outs {
			if merged == nil {
				merged = o.weighted
				continue
			}
			merged = reservoir.MergeWeighted(merged, o.weighted)
		}
		if merged == nil {
			merged = reservoir.NewWeighted(cfg.ReservoirSize, cfg.Seed)
		}
		result.Weighted = reservoir.WeightedOutput(merged)
		return result, nil
	}

	var merged *reservoir.Uniform
	for _, o := range outs {
		if merged == nil {
			merged = o.uniform
			continue
		}
		merged = reservoir.MergeUniform(merged, o.uniform, mergeRng)
	}
	if merged == nil {
		merged = reservoir.NewUniform(cfg.ReservoirSize, cfg.Seed)
	}
	result.Uniform = reservoir.UniformOutput(merged)
	return result, nil
}

// reservoirOneFile streams one file's documents into the worker's
// reservoir, reading cfg.Key (and, for weighted mode, textKey) via
// internal/jsonpath. Lines that fail to parse are skipped: reservoir
// sampling counts only successfully parsed documents (unlike count, which
// counts lines blindly per spec §4.12).
func reservoirOneFile(f model.SourceFile, cfg ReservoirConfig, textKey string, uni *reservoir.Uniform, wei *reservoir.Weighted) (int64, error) {
	reader, err := openReaderOrIOErr(f.AbsPath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var n int64
	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		var doc map[string]any
		if json.Unmarshal([]byte(line), &doc) != nil {
			continue
		}
		v, ok := jsonpath.Get(doc, cfg.Key)
		if !ok {
			continue
		}
		n++

		if wei != nil {
			text, _ := jsonpath.GetString(doc, textKey)
			weight := tokenizer.Weight(cfg.Tokenizer, text)
			wei.Offer(v, weight)
		} else {
			uni.Offer(v)
		}
	}

	if err := reader.Err(); err != nil {
		return n, model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}
	return n, nil
}

// splitFiles deals files round-robin into up to n buckets (file i goes to
// bucket i mod n), preserving relative order within each bucket (spec §4.6's "within a
// single input file, documents are processed... in source order" extends
// naturally here: each file is wholly owned by one worker).
func splitFiles(files []model.SourceFile, n int) [][]model.SourceFile {
	if n <= 0 {
		n = 1
	}
	buckets := make([][]model.SourceFile, n)
	for i, f := range files {
		b := i % n
		buckets[b] = append(buckets[b], f)
	}
	return buckets
}
