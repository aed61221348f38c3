// Package diarize implements the per-chunk Diarizer (spec §4.2): runs the
// diarization model, computes duration-weighted speaker embeddings, and
// persists a detailed ChunkDiarization blob behind a lightweight manifest.
package diarize

import (
	"context"
	"fmt"
	"sort"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/clients"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// minProfileSegmentDuration is the 0.5s floor below which a segment is
// excluded from its speaker's embedding profile but kept in Segments
// (spec §3, SpeakerProfile invariant).
const minProfileSegmentDuration = 0.5

// Diarizer runs the diarization + embedding models over one chunk.
type Diarizer struct {
	store    blobstore.Store
	diarizer *clients.DiarizerClient
	embedder *clients.EmbedderClient
}

// New builds a Diarizer.
func New(store blobstore.Store, diarizer *clients.DiarizerClient, embedder *clients.EmbedderClient) *Diarizer {
	return &Diarizer{store: store, diarizer: diarizer, embedder: embedder}
}

// Process diarizes one chunk and persists the ChunkDiarization blob,
// returning the lightweight manifest the driver fans results through. base
// is the recording's base key, used to derive the diarization result key.
func (d *Diarizer) Process(ctx context.Context, bucket, base string, chunk models.ChunkDescriptor) (models.ChunkManifest, error) {
	chunkAudio, err := d.store.Get(ctx, bucket, chunk.ChunkKey)
	if err != nil {
		return models.ChunkManifest{}, fmt.Errorf("load chunk audio %s: %w", chunk.ChunkKey, err)
	}

	rawSegments, err := d.diarizer.Diarize(ctx, chunkAudio, chunk.Duration)
	if err != nil {
		return models.ChunkManifest{}, models.NewStageError(models.TransientModelError, "diarize.Process",
			fmt.Errorf("chunk %d: %w", chunk.ChunkIndex, err))
	}

	segments := make([]models.LocalSegment, 0, len(rawSegments))
	bySpeaker := make(map[string][]models.LocalSegment)
	for _, rs := range rawSegments {
		if rs.Start < 0 || rs.End <= rs.Start {
			continue
		}
		ls := models.LocalSegment{LocalStart: rs.Start, LocalEnd: rs.End, LocalSpeaker: rs.Speaker}
		segments = append(segments, ls)
		bySpeaker[rs.Speaker] = append(bySpeaker[rs.Speaker], ls)
	}

	speakers := make(map[string]models.SpeakerProfile, len(bySpeaker))
	for speaker, segs := range bySpeaker {
		profile, err := d.computeProfile(ctx, chunkAudio, segs)
		if err != nil {
			return models.ChunkManifest{}, models.NewStageError(models.TransientModelError, "diarize.computeProfile",
				fmt.Errorf("chunk %d speaker %s: %w", chunk.ChunkIndex, speaker, err))
		}
		speakers[speaker] = profile
	}

	diarization := models.ChunkDiarization{
		ChunkIndex:     chunk.ChunkIndex,
		Offset:         chunk.Offset,
		EffectiveStart: chunk.EffectiveStart,
		EffectiveEnd:   chunk.EffectiveEnd,
		Segments:       segments,
		Speakers:       speakers,
		SpeakerCount:   len(speakers),
	}

	resultKey := models.ChunkDiarizationKey(base, chunk.ChunkIndex)
	if err := d.store.PutJSON(ctx, bucket, resultKey, diarization); err != nil {
		return models.ChunkManifest{}, fmt.Errorf("persist chunk diarization %s: %w", resultKey, err)
	}

	return models.ChunkManifest{
		ChunkIndex:   chunk.ChunkIndex,
		ResultKey:    resultKey,
		SpeakerCount: diarization.SpeakerCount,
	}, nil
}

// computeProfile is the duration-weighted mean embedding over segs of
// length ≥ 0.5s, using the embedding model's clip operation per interval.
func (d *Diarizer) computeProfile(ctx context.Context, chunkAudio []byte, segs []models.LocalSegment) (models.SpeakerProfile, error) {
	// Sort for deterministic accumulation order.
	sort.Slice(segs, func(i, j int) bool { return segs[i].LocalStart < segs[j].LocalStart })

	var weighted []float64
	var totalDuration float64
	eligibleCount := 0

	for _, seg := range segs {
		dur := seg.LocalEnd - seg.LocalStart
		if dur < minProfileSegmentDuration {
			continue
		}

		embedding, err := d.embedder.Embed(ctx, chunkAudio, seg.LocalStart, seg.LocalEnd)
		if err != nil {
			return models.SpeakerProfile{}, err
		}

		if weighted == nil {
			weighted = make([]float64, len(embedding))
		}
		for i, v := range embedding {
			weighted[i] += v * dur
		}
		totalDuration += dur
		eligibleCount++
	}

	if totalDuration > 0 {
		for i := range weighted {
			weighted[i] /= totalDuration
		}
	}

	return models.SpeakerProfile{
		Embedding:     weighted,
		TotalDuration: totalDuration,
		SegmentCount:  eligibleCount,
	}, nil
}
