package engine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/allenai/datamap-go/internal/model"
	"github.com/allenai/datamap-go/internal/shard"
)

// shuffleChanBuffer bounds how far a reader goroutine may run ahead of the
// writer goroutine that owns a given document's chunk, per spec §5's
// memory envelope guidance (bounded per-chunk state, not unbounded
// buffering).
const shuffleChanBuffer = 256

// ShuffleConfig is the input to RunShuffle, corresponding to spec §4.9's
// shuffle command.
type ShuffleConfig struct {
	InputDir        string
	OutputDir       string
	NumOutputs      int
	MaxLen          *int64 // per-chunk byte limit; nil means unbounded
	DeleteAfterRead bool
	Threads         int
	Seed            int64
}

// shuffleMsg carries one raw JSONL line to the worker that owns its
// randomly drawn destination chunk.
type shuffleMsg struct {
	chunk int
	line  []byte
}

// RunShuffle implements spec §4.9's mandated design: chunk ownership is
// statically partitioned across workers by chunk mod threads, so each
// chunk is written by exactly one worker and no writer is ever shared.
// Reader goroutines (one per file bucket, balanced by byte volume) draw a
// uniform random chunk id per document and forward the raw line to its
// owning worker over a bounded channel; writer goroutines drain their
// channel and maintain a lazy per-chunk shard.Writer.
func RunShuffle(ctx context.Context, files []model.SourceFile, cfg ShuffleConfig) (model.Counters, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > cfg.NumOutputs && cfg.NumOutputs > 0 {
		threads = cfg.NumOutputs
	}
	if threads < 1 {
		threads = 1
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return model.Counters{}, model.NewIOError(fmt.Sprintf("creating %s", cfg.OutputDir), err)
	}

	chans := make([]chan shuffleMsg, threads)
	for i := range chans {
		chans[i] = make(chan shuffleMsg, shuffleChanBuffer)
	}

	writerResults := make(chan model.Counters, threads)
	wg, wgctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		i := i
		wg.Go(func() error {
			return shuffleWriterWorker(wgctx, chans[i], cfg, writerResults)
		})
	}

	readerBuckets := packByLPT(files, threads)
	readerResults := make(chan model.Counters, threads)
	// rgctx is derived from wgctx, not the top-level ctx: a writer worker
	// that returns a WriterError cancels wgctx, which must also unblock any
	// reader still parked on chans[owner] <- for that writer's chunks
	// (otherwise a dead writer leaves its readers blocked forever).
	rg, rgctx := errgroup.WithContext(wgctx)
	for i, bucket := range readerBuckets {
		i, bucket := i, bucket
		if len(bucket) == 0 {
			continue
		}
		rg.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
			var c model.Counters
			for _, f := range bucket {
				if err := shuffleReadFile(rgctx, f, cfg, rng, chans, threads, &c); err != nil {
					return err
				}
			}
			readerResults <- c
			return nil
		})
	}

	readErr := rg.Wait()
	close(readerResults)
	for _, ch := range chans {
		close(ch)
	}
	writeErr := wg.Wait()
	close(writerResults)

	var total model.Counters
	for c := range readerResults {
		total.Add(c)
	}
	for c := range writerResults {
		total.Add(c)
	}

	if readErr != nil {
		return total, readErr
	}
	if writeErr != nil {
		return total, writeErr
	}
	return total, nil
}

// shuffleWriterWorker drains in and writes each line to the shard.Writer
// for its chunk, opening writers lazily. It owns every chunk id c with
// c % threads == its own index, so no other worker ever touches the same
// writer; no locking is required.
func shuffleWriterWorker(ctx context.Context, in <-chan shuffleMsg, cfg ShuffleConfig, results chan<- model.Counters) error {
	writers := make(map[int]*shard.Writer)
	var c model.Counters

	abortAll := func() {
		for _, w := range writers {
			w.Abort()
		}
	}

	for msg := range in {
		w, ok := writers[msg.chunk]
		if !ok {
			chunk := msg.chunk
			limits := shard.Limits{MaxBytes: cfg.MaxLen}
			w = shard.NewWriter(cfg.OutputDir, func(idx int) string { return shard.ShuffledChunkName(chunk, idx) }, limits)
			writers[msg.chunk] = w
		}
		if err := w.WriteLine(msg.line); err != nil {
			abortAll()
			return model.NewIOError("writing shuffle chunk", err)
		}
		c.Written++
	}

	for _, w := range writers {
		if err := w.Close(); err != nil {
			abortAll()
			return model.NewIOError("finalizing shuffle chunk", err)
		}
	}

	results <- c
	return nil
}

// shuffleReadFile streams one file, drawing a uniform random destination
// chunk per line and forwarding it to the worker that owns that chunk.
func shuffleReadFile(ctx context.Context, f model.SourceFile, cfg ShuffleConfig, rng *rand.Rand, chans []chan shuffleMsg, threads int, c *model.Counters) error {
	reader, err := openReaderOrIOErr(f.AbsPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		c.TotalDocs++
		c.TotalFileSize += int64(len(line))

		chunk := rng.Intn(cfg.NumOutputs)
		owner := chunk % threads

		select {
		case chans[owner] <- shuffleMsg{chunk: chunk, line: []byte(line)}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := reader.Err(); err != nil {
		return model.NewIOError(fmt.Sprintf("reading %s", f.AbsPath), err)
	}

	if cfg.DeleteAfterRead {
		_ = os.Remove(f.AbsPath)
	}
	return nil
}
