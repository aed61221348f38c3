// Package split implements the Speaker Splitter (spec §4.4): cutting one
// audio clip per final GlobalSegment from the normalized recording.
package split

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
	"github.com/ekusiadadus/ek-transcript/internal/utils"
)

// Splitter cuts per-segment clips from the normalized WAV.
type Splitter struct {
	store   blobstore.Store
	ffmpeg  *utils.FFmpegHelper
	tempDir string
}

// New builds a Splitter.
func New(store blobstore.Store, ffmpeg *utils.FFmpegHelper, tempDir string) *Splitter {
	return &Splitter{store: store, ffmpeg: ffmpeg, tempDir: tempDir}
}

// Result is what the Splitter hands back to the driver: the segment_files
// blob key plus, when it fits under the payload cap, the descriptor list
// inline (spec §4.4).
type Result struct {
	SegmentFilesKey string
	Inline          []models.SegmentFile // nil if omitted for payload-cap reasons
}

// Split downloads the normalized WAV once, cuts one clip per segment, and
// persists both the clips and the segment_files manifest blob.
func (s *Splitter) Split(ctx context.Context, bucket, base, wavKey string, segments []models.GlobalSegment, runID string, payloadCapBytes int) (Result, error) {
	localWav := filepath.Join(s.tempDir, fmt.Sprintf("%s_full.wav", runID))
	if _, err := os.Stat(localWav); os.IsNotExist(err) {
		if err := s.store.Download(ctx, bucket, wavKey, localWav); err != nil {
			return Result{}, fmt.Errorf("download normalized wav %s: %w", wavKey, err)
		}
	}
	defer os.Remove(localWav)

	files := make([]models.SegmentFile, 0, len(segments))
	for idx, seg := range segments {
		key := models.SegmentClipKey(base, idx, seg.Speaker)

		outPath := filepath.Join(s.tempDir, fmt.Sprintf("%s_seg_%04d.wav", runID, idx))
		if err := s.ffmpeg.CutClip(ctx, localWav, seg.Start, seg.End-seg.Start, outPath); err != nil {
			return Result{}, fmt.Errorf("cut segment %d [%v,%v): %w", idx, seg.Start, seg.End, err)
		}
		uploadErr := s.store.Upload(ctx, outPath, bucket, key, "audio/wav")
		os.Remove(outPath)
		if uploadErr != nil {
			return Result{}, fmt.Errorf("upload segment %d at %s: %w", idx, key, uploadErr)
		}

		files = append(files, models.SegmentFile{
			Key:     key,
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
		})
	}

	segmentFilesKey := models.SegmentManifestKey(base)
	if err := s.store.PutJSON(ctx, bucket, segmentFilesKey, files); err != nil {
		return Result{}, fmt.Errorf("persist segment_files manifest %s: %w", segmentFilesKey, err)
	}

	result := Result{SegmentFilesKey: segmentFilesKey}

	// Descriptors are ≈100 bytes each (spec §4.4); include them inline only
	// if the serialized list stays under the payload cap.
	if encoded, err := json.Marshal(files); err == nil && len(encoded) <= payloadCapBytes {
		result.Inline = files
	}

	return result, nil
}
