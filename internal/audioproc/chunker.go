package audioproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
	"github.com/ekusiadadus/ek-transcript/internal/utils"
)

// Chunker splits the normalized waveform into fixed-length overlapping
// windows and cuts each window's audio clip (spec §4.1).
type Chunker struct {
	store   blobstore.Store
	ffmpeg  *utils.FFmpegHelper
	tempDir string
}

// NewChunker builds a Chunker backed by store and an ffmpeg helper rooted
// at tempDir for scratch files.
func NewChunker(store blobstore.Store, ffmpeg *utils.FFmpegHelper, tempDir string) *Chunker {
	return &Chunker{store: store, ffmpeg: ffmpeg, tempDir: tempDir}
}

// Describe computes the dense list of ChunkDescriptors covering
// `[0, totalDuration)`, per the formula in spec §4.1. It does not touch the
// blob store; callers persist and cut clips via CutChunk.
//
// Effective windows must tile [0, totalDuration) with no gaps (spec §4.1,
// §8 Coverage invariant): chunk i's effective_end is pinned to chunk i+1's
// effective_start, i.e. offset + chunkDuration - overlap/2, not
// offset + chunkDuration - overlap. Letting effective_window_end be set
// independently of chunkDuration/overlapDuration reopens that gap, so it is
// always derived here rather than accepted as a parameter.
func Describe(totalDuration, chunkDuration, overlapDuration float64, base string) ([]models.ChunkDescriptor, error) {
	if totalDuration <= 0 {
		return nil, models.NewStageError(models.CorruptInput, "audioproc.Describe",
			fmt.Errorf("total duration must be > 0, got %v", totalDuration))
	}
	if chunkDuration <= overlapDuration {
		return nil, fmt.Errorf("chunk_duration (%v) must exceed overlap_duration (%v)", chunkDuration, overlapDuration)
	}

	stride := chunkDuration - overlapDuration
	effectiveWindowEnd := chunkDuration - overlapDuration/2
	var chunks []models.ChunkDescriptor

	for offset := 0.0; offset < totalDuration; offset += stride {
		idx := len(chunks)
		duration := chunkDuration
		if remaining := totalDuration - offset; remaining < duration {
			duration = remaining
		}

		effectiveStart := offset
		if idx > 0 {
			effectiveStart = offset + overlapDuration/2
		}

		effectiveEnd := offset + effectiveWindowEnd
		if effectiveEnd > totalDuration {
			effectiveEnd = totalDuration
		}

		chunks = append(chunks, models.ChunkDescriptor{
			ChunkIndex:     idx,
			ChunkKey:       models.ChunkAudioKey(base, idx),
			Offset:         offset,
			Duration:       duration,
			EffectiveStart: effectiveStart,
			EffectiveEnd:   effectiveEnd,
		})
	}

	// The last chunk's effective_end must equal T exactly (spec §4.1).
	if n := len(chunks); n > 0 {
		chunks[n-1].EffectiveEnd = totalDuration
	}

	return chunks, nil
}

// CutChunk slices `[chunk.Offset, chunk.Offset+chunk.Duration)` from the
// normalized WAV at wavKey and uploads it at chunk.ChunkKey.
func (c *Chunker) CutChunk(ctx context.Context, bucket, wavKey string, chunk models.ChunkDescriptor, runID string) error {
	localWav := filepath.Join(c.tempDir, fmt.Sprintf("%s_full.wav", runID))
	if _, err := os.Stat(localWav); os.IsNotExist(err) {
		if err := c.store.Download(ctx, bucket, wavKey, localWav); err != nil {
			return fmt.Errorf("download normalized wav %s: %w", wavKey, err)
		}
	}

	outPath := filepath.Join(c.tempDir, fmt.Sprintf("%s_chunk_%02d.wav", runID, chunk.ChunkIndex))
	defer os.Remove(outPath)

	if err := c.ffmpeg.CutClip(ctx, localWav, chunk.Offset, chunk.Duration, outPath); err != nil {
		return fmt.Errorf("cut chunk %d: %w", chunk.ChunkIndex, err)
	}

	if err := c.store.Upload(ctx, outPath, bucket, chunk.ChunkKey, "audio/wav"); err != nil {
		return fmt.Errorf("upload chunk %d at %s: %w", chunk.ChunkIndex, chunk.ChunkKey, err)
	}

	return nil
}
