// Package pipeline is the Pipeline Driver (spec §4.7): it sequences
// Extractor → Chunker → fan-out Diarizer → Merger → Splitter → fan-out
// Transcriber → Aggregator, updating progress and enforcing the
// payload-size invariant between stages.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ekusiadadus/ek-transcript/internal/aggregate"
	"github.com/ekusiadadus/ek-transcript/internal/audioproc"
	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/diarize"
	"github.com/ekusiadadus/ek-transcript/internal/merge"
	"github.com/ekusiadadus/ek-transcript/internal/models"
	"github.com/ekusiadadus/ek-transcript/internal/progress"
	"github.com/ekusiadadus/ek-transcript/internal/split"
	"github.com/ekusiadadus/ek-transcript/internal/transcribe"
)

// Driver orchestrates the whole pipeline for one run.
type Driver struct {
	store    blobstore.Store
	reporter progress.Reporter

	extractor   *audioproc.Extractor
	chunker     *audioproc.Chunker
	diarizer    *diarize.Diarizer
	merger      *merge.Merger
	splitter    *split.Splitter
	transcriber *transcribe.Transcriber
	aggregator  *aggregate.Aggregator

	concurrency   int
	stageDeadline time.Duration
}

// New builds a Driver wiring every stage together. stageDeadline bounds
// every stage handler invocation (spec §5); <= 0 disables the bound.
func New(
	store blobstore.Store,
	reporter progress.Reporter,
	extractor *audioproc.Extractor,
	chunker *audioproc.Chunker,
	diarizer *diarize.Diarizer,
	merger *merge.Merger,
	splitter *split.Splitter,
	transcriber *transcribe.Transcriber,
	aggregator *aggregate.Aggregator,
	concurrency int,
	stageDeadline time.Duration,
) *Driver {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Driver{
		store:         store,
		reporter:      reporter,
		extractor:     extractor,
		chunker:       chunker,
		diarizer:      diarizer,
		merger:        merger,
		splitter:      splitter,
		transcriber:   transcriber,
		aggregator:    aggregator,
		concurrency:   concurrency,
		stageDeadline: stageDeadline,
	}
}

// Run executes the full pipeline for req, reporting progress and retrying
// per-item failures up to req.Config.MaxRetries, matching §5's retry and
// §7's error-handling design.
func (d *Driver) Run(ctx context.Context, req models.RunRequest) (err error) {
	cfg := req.Config
	bucket := req.Bucket
	base := models.BaseKey(req.SourceKey)
	maxRetries := cfg.MaxRetries

	if err := d.reporter.UpsertRun(ctx, req.RunID, bucket, req.SourceKey, cfg); err != nil {
		return fmt.Errorf("upsert run record: %w", err)
	}

	lastStep := progress.StepQueued
	defer func() {
		if err != nil {
			_ = d.reporter.MarkFailed(ctx, req.RunID, lastStep, err)
		}
	}()

	// Stage: Audio Extractor.
	lastStep = progress.StepExtractingAudio
	if err := d.reporter.Report(ctx, req.RunID, progress.StepExtractingAudio); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	var wavKey string
	var totalDuration float64
	err = withDeadline(ctx, d.stageDeadline, "extract", func(ctx context.Context) error {
		var extractErr error
		wavKey, totalDuration, extractErr = d.extractor.Normalize(ctx, bucket, req.SourceKey, req.RunID)
		return extractErr
	})
	if err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}

	// Stage: Chunker.
	lastStep = progress.StepChunkingAudio
	if err := d.reporter.Report(ctx, req.RunID, progress.StepChunkingAudio); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	chunks, err := audioproc.Describe(totalDuration, cfg.ChunkDuration, cfg.OverlapDuration, base)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}
	if err := d.cutChunks(ctx, bucket, wavKey, chunks, req.RunID); err != nil {
		return fmt.Errorf("chunk cutting failed: %w", err)
	}

	// Stage: fan-out Diarizer.
	lastStep = progress.StepDiarizing
	if err := d.reporter.Report(ctx, req.RunID, progress.StepDiarizing); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	manifests, err := d.diarizeAll(ctx, bucket, base, chunks, maxRetries)
	if err != nil {
		return fmt.Errorf("diarization failed: %w", err)
	}

	// The fan-in ChunkManifest list handed to the Merger is itself subject
	// to the payload-size invariant (spec §4.7c): a long-running recording
	// can produce enough chunks that the inline list overflows the cap, in
	// which case it is written under its key and the driver reloads it from
	// there before handing it to the Merger.
	manifestsKey := models.ChunkManifestsKey(base)
	stashed, err := stashIfOversized(ctx, d.store, bucket, manifestsKey, manifests, cfg.PayloadCapBytes)
	if err != nil {
		return fmt.Errorf("stash chunk manifests: %w", err)
	}
	if stashed {
		if err := d.store.GetJSON(ctx, bucket, manifestsKey, &manifests); err != nil {
			return fmt.Errorf("load stashed chunk manifests %s: %w", manifestsKey, err)
		}
	}

	// Stage: Speaker Merger.
	lastStep = progress.StepMergingSpeakers
	if err := d.reporter.Report(ctx, req.RunID, progress.StepMergingSpeakers); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	var mergeResult merge.Result
	err = withRetry(ctx, maxRetries, "merge", func(ctx context.Context) error {
		return withDeadline(ctx, d.stageDeadline, "merge", func(ctx context.Context) error {
			var mergeErr error
			mergeResult, mergeErr = d.merger.Merge(ctx, bucket, base, manifests, cfg.SimilarityThreshold, cfg.CoalesceGap)
			return mergeErr
		})
	})
	if err != nil {
		return fmt.Errorf("speaker merging failed: %w", err)
	}

	var segments []models.GlobalSegment
	if err := d.store.GetJSON(ctx, bucket, mergeResult.SegmentsKey, &segments); err != nil {
		return fmt.Errorf("load merged segments %s: %w", mergeResult.SegmentsKey, err)
	}

	// Stage: Speaker Splitter.
	lastStep = progress.StepSplittingBySpeaker
	if err := d.reporter.Report(ctx, req.RunID, progress.StepSplittingBySpeaker); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	var splitResult split.Result
	err = withRetry(ctx, maxRetries, "split", func(ctx context.Context) error {
		return withDeadline(ctx, d.stageDeadline, "split", func(ctx context.Context) error {
			var splitErr error
			splitResult, splitErr = d.splitter.Split(ctx, bucket, base, wavKey, segments, req.RunID, cfg.PayloadCapBytes)
			return splitErr
		})
	})
	if err != nil {
		return fmt.Errorf("speaker splitting failed: %w", err)
	}

	segmentFiles := splitResult.Inline
	if segmentFiles == nil {
		if err := d.store.GetJSON(ctx, bucket, splitResult.SegmentFilesKey, &segmentFiles); err != nil {
			return fmt.Errorf("load segment_files manifest %s: %w", splitResult.SegmentFilesKey, err)
		}
	}

	// Stage: fan-out Transcriber.
	lastStep = progress.StepTranscribing
	if err := d.reporter.Report(ctx, req.RunID, progress.StepTranscribing); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	if err := d.transcribeAll(ctx, bucket, segmentFiles, cfg, maxRetries); err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	// Stage: Aggregator.
	lastStep = progress.StepAggregatingResults
	if err := d.reporter.Report(ctx, req.RunID, progress.StepAggregatingResults); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	var aggResult aggregate.Result
	err = withRetry(ctx, maxRetries, "aggregate", func(ctx context.Context) error {
		return withDeadline(ctx, d.stageDeadline, "aggregate", func(ctx context.Context) error {
			var aggErr error
			aggResult, aggErr = d.aggregator.Aggregate(ctx, bucket, base, splitResult.SegmentFilesKey)
			return aggErr
		})
	})
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	lastStep = progress.StepCompleted
	if err := d.reporter.Report(ctx, req.RunID, progress.StepCompleted); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}

	_ = aggResult // result is discoverable via the final transcript blob key
	return nil
}

// cutChunks cuts every chunk's audio clip, bounded to d.concurrency at a
// time via errgroup — the same fan-out shape diarizeAll and
// transcribeAll use, generalized from the teacher's frame_batcher
// worker-pool pattern to an errgroup-based bounded pool.
func (d *Driver) cutChunks(ctx context.Context, bucket, wavKey string, chunks []models.ChunkDescriptor, runID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			return withDeadline(gctx, d.stageDeadline, fmt.Sprintf("cut chunk %d", chunk.ChunkIndex), func(ctx context.Context) error {
				return d.chunker.CutChunk(ctx, bucket, wavKey, chunk, runID)
			})
		})
	}
	return g.Wait()
}

// diarizeAll fans the Diarizer out over all chunks, each with its own
// retry budget, and fans the lightweight manifests back in.
func (d *Driver) diarizeAll(ctx context.Context, bucket, base string, chunks []models.ChunkDescriptor, maxRetries int) ([]models.ChunkManifest, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	manifests := make([]models.ChunkManifest, len(chunks))
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			stage := fmt.Sprintf("diarize chunk %d", chunk.ChunkIndex)
			return withRetry(gctx, maxRetries, stage, func(ctx context.Context) error {
				return withDeadline(ctx, d.stageDeadline, stage, func(ctx context.Context) error {
					mf, err := d.diarizer.Process(ctx, bucket, base, chunk)
					if err != nil {
						return err
					}
					manifests[i] = mf
					return nil
				})
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ChunkIndex < manifests[j].ChunkIndex })
	return manifests, nil
}

// transcribeAll fans the Transcriber out over every segment file.
func (d *Driver) transcribeAll(ctx context.Context, bucket string, files []models.SegmentFile, cfg models.PipelineConfig, maxRetries int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, f := range files {
		f := f
		g.Go(func() error {
			stage := fmt.Sprintf("transcribe %s", f.Key)
			return withRetry(gctx, maxRetries, stage, func(ctx context.Context) error {
				return withDeadline(ctx, d.stageDeadline, stage, func(ctx context.Context) error {
					_, err := d.transcriber.Process(ctx, bucket, f, cfg.STTLanguage, cfg.STTBeamSize)
					return err
				})
			})
		})
	}
	return g.Wait()
}
