// Package aggregate implements the Aggregator (spec §4.6): loads every
// per-segment transcript, sorts them into the final transcript, and
// tolerates per-item blob load failures with a placeholder.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// readErrorPlaceholder is substituted for a TranscribeResult whose blob
// could not be loaded, per spec §4.6's tolerance policy.
const readErrorPlaceholder = "[read error]"

// Aggregator loads every derivable TranscribeResult for a run's segment
// files and produces the final, time-ordered transcript.
type Aggregator struct {
	store blobstore.Store
}

// New builds an Aggregator.
func New(store blobstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Result is what the Aggregator hands back to the driver.
type Result struct {
	TranscriptKey string
	SegmentCount  int
}

// Aggregate loads the segment_files list (from segmentFilesKey), resolves
// each segment's transcribe_results blob, sorts, and persists the final
// transcript.
func (a *Aggregator) Aggregate(ctx context.Context, bucket, base, segmentFilesKey string) (Result, error) {
	var files []models.SegmentFile
	if err := a.store.GetJSON(ctx, bucket, segmentFilesKey, &files); err != nil {
		return Result{}, fmt.Errorf("load segment_files manifest %s: %w", segmentFilesKey, err)
	}

	results := make([]models.TranscribeResult, 0, len(files))
	for _, f := range files {
		resultKey := models.TranscriptKeyFromSegmentKey(f.Key)

		var tr models.TranscribeResult
		if err := a.store.GetJSON(ctx, bucket, resultKey, &tr); err != nil {
			// This is the only stage that tolerates per-item blob
			// failures: skipping would lose coverage, so we synthesize a
			// placeholder from the SegmentFile fields instead.
			tr = models.TranscribeResult{
				Speaker: f.Speaker,
				Start:   f.Start,
				End:     f.End,
				Text:    readErrorPlaceholder,
			}
		}
		results = append(results, tr)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Start != results[j].Start {
			return results[i].Start < results[j].Start
		}
		if results[i].End != results[j].End {
			return results[i].End < results[j].End
		}
		return results[i].Speaker < results[j].Speaker
	})

	transcriptKey := models.FinalTranscriptKey(base)
	final := models.FinalTranscript(results)
	if err := a.store.PutJSON(ctx, bucket, transcriptKey, final); err != nil {
		return Result{}, fmt.Errorf("persist final transcript %s: %w", transcriptKey, err)
	}

	return Result{TranscriptKey: transcriptKey, SegmentCount: len(results)}, nil
}
