package aggregate

import (
	"context"
	"testing"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

const bucket = "test-bucket"

func TestAggregateSortsByStartEndSpeaker(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	files := []models.SegmentFile{
		{Key: "segments/ep_0001_SPEAKER_B.wav", Speaker: "SPEAKER_B", Start: 5, End: 9},
		{Key: "segments/ep_0000_SPEAKER_A.wav", Speaker: "SPEAKER_A", Start: 0, End: 4},
	}
	for _, f := range files {
		tr := models.TranscribeResult{Speaker: f.Speaker, Start: f.Start, End: f.End, Text: "hello from " + f.Speaker}
		resultKey := models.TranscriptKeyFromSegmentKey(f.Key)
		if err := store.PutJSON(ctx, bucket, resultKey, tr); err != nil {
			t.Fatalf("seed transcribe result: %v", err)
		}
	}
	if err := store.PutJSON(ctx, bucket, "metadata/ep_segment_files.json", files); err != nil {
		t.Fatalf("seed segment_files: %v", err)
	}

	a := New(store)
	result, err := a.Aggregate(ctx, bucket, "ep", "metadata/ep_segment_files.json")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.SegmentCount != 2 {
		t.Errorf("SegmentCount = %d, want 2", result.SegmentCount)
	}

	var final models.FinalTranscript
	if err := store.GetJSON(ctx, bucket, result.TranscriptKey, &final); err != nil {
		t.Fatalf("load final transcript: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(final))
	}
	if final[0].Speaker != "SPEAKER_A" || final[1].Speaker != "SPEAKER_B" {
		t.Errorf("entries out of order: %+v", final)
	}
}

func TestAggregateSubstitutesPlaceholderForUnreadableSegment(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	files := []models.SegmentFile{
		{Key: "segments/ep_0000_SPEAKER_A.wav", Speaker: "SPEAKER_A", Start: 0, End: 4},
	}
	// Deliberately do not seed the transcribe_results blob for this segment.
	if err := store.PutJSON(ctx, bucket, "metadata/ep_segment_files.json", files); err != nil {
		t.Fatalf("seed segment_files: %v", err)
	}

	a := New(store)
	result, err := a.Aggregate(ctx, bucket, "ep", "metadata/ep_segment_files.json")
	if err != nil {
		t.Fatalf("Aggregate should tolerate a missing per-segment transcript, got error: %v", err)
	}
	if result.SegmentCount != 1 {
		t.Fatalf("SegmentCount = %d, want 1", result.SegmentCount)
	}

	var final models.FinalTranscript
	if err := store.GetJSON(ctx, bucket, result.TranscriptKey, &final); err != nil {
		t.Fatalf("load final transcript: %v", err)
	}
	if final[0].Text != readErrorPlaceholder {
		t.Errorf("Text = %q, want placeholder %q", final[0].Text, readErrorPlaceholder)
	}
	if final[0].Speaker != "SPEAKER_A" || final[0].Start != 0 || final[0].End != 4 {
		t.Errorf("placeholder entry should still carry the segment's speaker/timing: %+v", final[0])
	}
}

func TestAggregateMissingManifestIsFatal(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	a := New(store)
	if _, err := a.Aggregate(ctx, bucket, "ep", "metadata/does-not-exist.json"); err == nil {
		t.Error("expected an error when the segment_files manifest itself is missing")
	}
}

func TestAggregateEmptySegmentListProducesEmptyTranscript(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	if err := store.PutJSON(ctx, bucket, "metadata/ep_segment_files.json", []models.SegmentFile{}); err != nil {
		t.Fatalf("seed segment_files: %v", err)
	}

	a := New(store)
	result, err := a.Aggregate(ctx, bucket, "ep", "metadata/ep_segment_files.json")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.SegmentCount != 0 {
		t.Errorf("SegmentCount = %d, want 0", result.SegmentCount)
	}
}
