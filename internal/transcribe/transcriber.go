// Package transcribe implements the per-segment Transcriber (spec §4.5).
package transcribe

import (
	"context"
	"fmt"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/clients"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// Transcriber runs speech-to-text over one segment clip.
type Transcriber struct {
	store blobstore.Store
	stt   *clients.STTClient
}

// New builds a Transcriber.
func New(store blobstore.Store, stt *clients.STTClient) *Transcriber {
	return &Transcriber{store: store, stt: stt}
}

// Process downloads the segment clip, transcribes it, persists the
// TranscribeResult blob, and returns a manifest that never carries the
// text inline (spec §4.5).
func (t *Transcriber) Process(ctx context.Context, bucket string, segment models.SegmentFile, language string, beamSize int) (models.TranscribeManifest, error) {
	audio, err := t.store.Get(ctx, bucket, segment.Key)
	if err != nil {
		return models.TranscribeManifest{}, fmt.Errorf("load segment clip %s: %w", segment.Key, err)
	}

	text, err := t.stt.Transcribe(ctx, audio, language, beamSize)
	if err != nil {
		return models.TranscribeManifest{}, models.NewStageError(models.TransientModelError, "transcribe.Process",
			fmt.Errorf("segment %s: %w", segment.Key, err))
	}

	result := models.TranscribeResult{
		Speaker: segment.Speaker,
		Start:   segment.Start,
		End:     segment.End,
		Text:    text,
	}

	resultKey := models.TranscriptKeyFromSegmentKey(segment.Key)
	if err := t.store.PutJSON(ctx, bucket, resultKey, result); err != nil {
		return models.TranscribeManifest{}, fmt.Errorf("persist transcribe result %s: %w", resultKey, err)
	}

	return models.TranscribeManifest{
		ResultKey: resultKey,
		Speaker:   segment.Speaker,
		Start:     segment.Start,
		End:       segment.End,
	}, nil
}
