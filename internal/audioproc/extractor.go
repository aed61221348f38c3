// Package audioproc implements the Audio Extractor and Chunker (spec §4.1):
// normalizing the source recording and splitting it into fixed-length
// overlapping windows.
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

// Extractor normalizes an arbitrary input container to mono 16 kHz PCM WAV
// out-of-process via ffmpeg, then persists it at the normalized-WAV key.
type Extractor struct {
	store   blobstore.Store
	ffmpeg  *utils.FFmpegHelper
	tempDir string
}

// NewExtractor builds an Extractor backed by store and an ffmpeg helper
// rooted at tempDir for scratch files.
func NewExtractor(store blobstore.Store, ffmpeg *utils.FFmpegHelper, tempDir string) *Extractor {
	return &Extractor{store: store, ffmpeg: ffmpeg, tempDir: tempDir}
}

// Normalize downloads the source blob, normalizes it, uploads the result
// at `processed/<base>.wav`, and returns the new key plus total duration.
func (e *Extractor) Normalize(ctx context.Context, bucket, sourceKey, runID string) (wavKey string, duration float64, err error) {
	base := models.BaseKey(sourceKey)

	srcLocal := filepath.Join(e.tempDir, fmt.Sprintf("%s_src%s", runID, filepath.Ext(sourceKey)))
	defer os.Remove(srcLocal)

	if err := e.store.Download(ctx, bucket, sourceKey, srcLocal); err != nil {
		return "", 0, fmt.Errorf("download source %s: %w", sourceKey, err)
	}

	if err := e.ffmpeg.ValidateAudio(ctx, srcLocal); err != nil {
		return "", 0, models.NewStageError(models.CorruptInput, "audioproc.Normalize", err)
	}

	wavLocal := filepath.Join(e.tempDir, fmt.Sprintf("%s_normalized.wav", runID))
	defer os.Remove(wavLocal)

	if err := e.ffmpeg.NormalizeToWAV(ctx, srcLocal, wavLocal); err != nil {
		return "", 0, fmt.Errorf("normalize audio: %w", err)
	}

	duration, err = e.ffmpeg.GetAudioDuration(ctx, wavLocal)
	if err != nil {
		return "", 0, fmt.Errorf("probe normalized duration: %w", err)
	}
	if duration <= 0 {
		return "", 0, models.NewStageError(models.CorruptInput, "audioproc.Normalize",
			fmt.Errorf("normalized audio has zero duration"))
	}

	wavKey = models.NormalizedWAVKey(base)
	if err := e.store.Upload(ctx, wavLocal, bucket, wavKey, "audio/wav"); err != nil {
		return "", 0, fmt.Errorf("upload normalized wav %s: %w", wavKey, err)
	}

	return wavKey, duration, nil
}
