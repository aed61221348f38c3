package merge

import (
	"context"
	"fmt"
	"sort"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// Merger is the Speaker Merger: it loads every chunk's detailed
// diarization, clusters speaker profiles across chunks into global
// labels, and reconciles the resulting segment timeline.
type Merger struct {
	store blobstore.Store
}

// New builds a Merger.
func New(store blobstore.Store) *Merger {
	return &Merger{store: store}
}

// Result is what the Merger hands back to the driver.
type Result struct {
	SegmentsKey        string
	GlobalSpeakerCount int
}

// Merge runs the full algorithm in spec §4.3 over the chunk manifests
// produced by the fan-out Diarizer stage.
func (m *Merger) Merge(ctx context.Context, bucket, base string, manifests []models.ChunkManifest, similarityThreshold, coalesceGap float64) (Result, error) {
	// Step 1: load every ChunkDiarization blob.
	sortedManifests := append([]models.ChunkManifest{}, manifests...)
	sort.Slice(sortedManifests, func(i, j int) bool { return sortedManifests[i].ChunkIndex < sortedManifests[j].ChunkIndex })

	diarizations := make([]models.ChunkDiarization, 0, len(sortedManifests))
	anyNonEmpty := false
	for _, mf := range sortedManifests {
		var d models.ChunkDiarization
		if err := m.store.GetJSON(ctx, bucket, mf.ResultKey, &d); err != nil {
			// Any blob load failure for a non-empty chunk manifest is
			// fatal; we cannot distinguish "empty" from "unreadable" until
			// we've loaded it, so treat all load failures as fatal here.
			return Result{}, fmt.Errorf("load chunk diarization %s (chunk %d): %w", mf.ResultKey, mf.ChunkIndex, err)
		}
		if len(d.Segments) > 0 {
			anyNonEmpty = true
		}
		diarizations = append(diarizations, d)
	}

	if !anyNonEmpty {
		segmentsKey := models.MergedSegmentsKey(base)
		if err := m.store.PutJSON(ctx, bucket, segmentsKey, []models.GlobalSegment{}); err != nil {
			return Result{}, fmt.Errorf("persist empty segments blob: %w", err)
		}
		return Result{SegmentsKey: segmentsKey, GlobalSpeakerCount: 0}, nil
	}

	// Step 2: build the embedding matrix, preserving (chunk_index,
	// local_speaker) identity in deterministic chunk-then-speaker-name
	// order, which doubles as the "first appearance" order for labelling.
	var keys []speakerKey
	var embeddings [][]float64
	for _, d := range diarizations {
		speakerNames := make([]string, 0, len(d.Speakers))
		for name := range d.Speakers {
			speakerNames = append(speakerNames, name)
		}
		sort.Strings(speakerNames)
		for _, name := range speakerNames {
			keys = append(keys, speakerKey{ChunkIndex: d.ChunkIndex, LocalSpeaker: name})
			embeddings = append(embeddings, d.Speakers[name].Embedding)
		}
	}

	// Steps 3-5: distance matrix + average-linkage clustering.
	dist := buildDistanceMatrix(embeddings)
	assignment := clusterAverageLinkage(dist, 1-similarityThreshold)

	// Step 6-7: deterministic labels + (chunk_index, local_speaker) -> label.
	labels := assignLabels(assignment)
	mapping := make(map[speakerKey]string, len(keys))
	for i, k := range keys {
		label, ok := labels[assignment[i]]
		if !ok {
			label = fmt.Sprintf("UNKNOWN_%s", k.LocalSpeaker)
		}
		mapping[k] = label
	}

	// Step 8: build candidate GlobalSegments from every LocalSegment.
	var candidates []models.CandidateSegment
	for _, d := range diarizations {
		for _, seg := range d.Segments {
			label, ok := mapping[speakerKey{ChunkIndex: d.ChunkIndex, LocalSpeaker: seg.LocalSpeaker}]
			if !ok {
				label = fmt.Sprintf("UNKNOWN_%s", seg.LocalSpeaker)
			}
			candidates = append(candidates, models.CandidateSegment{
				Start:          seg.LocalStart + d.Offset,
				End:            seg.LocalEnd + d.Offset,
				Speaker:        label,
				EffectiveStart: d.EffectiveStart,
				EffectiveEnd:   d.EffectiveEnd,
			})
		}
	}

	// Step 9: overlap reconciliation.
	final := reconcileOverlaps(candidates, coalesceGap)

	// Step 10: persist.
	segmentsKey := models.MergedSegmentsKey(base)
	if err := m.store.PutJSON(ctx, bucket, segmentsKey, final); err != nil {
		return Result{}, fmt.Errorf("persist merged segments %s: %w", segmentsKey, err)
	}

	distinctLabels := make(map[string]struct{})
	for _, l := range mapping {
		distinctLabels[l] = struct{}{}
	}

	return Result{SegmentsKey: segmentsKey, GlobalSpeakerCount: len(distinctLabels)}, nil
}
