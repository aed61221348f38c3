package merge

import (
	"context"
	"testing"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/models"
)

const bucket = "test-bucket"

func putDiarization(t *testing.T, store *blobstore.MemoryStore, key string, d models.ChunkDiarization) {
	t.Helper()
	if err := store.PutJSON(context.Background(), bucket, key, d); err != nil {
		t.Fatalf("seed diarization %s: %v", key, err)
	}
}

func TestMergeTwoChunksSameSpeakerCluster(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	// Two chunks, each with one speaker, whose embeddings are nearly
	// identical -> should cluster into a single global speaker.
	putDiarization(t, store, "diarization/ep_chunk_00.json", models.ChunkDiarization{
		ChunkIndex:     0,
		Offset:         0,
		EffectiveStart: 0,
		EffectiveEnd:   10,
		Segments: []models.LocalSegment{
			{LocalStart: 0, LocalEnd: 5, LocalSpeaker: "spk_0"},
		},
		Speakers: map[string]models.SpeakerProfile{
			"spk_0": {Embedding: []float64{1, 0, 0}, TotalDuration: 5, SegmentCount: 1},
		},
		SpeakerCount: 1,
	})
	putDiarization(t, store, "diarization/ep_chunk_01.json", models.ChunkDiarization{
		ChunkIndex:     1,
		Offset:         9,
		EffectiveStart: 9.5,
		EffectiveEnd:   19,
		Segments: []models.LocalSegment{
			{LocalStart: 0.5, LocalEnd: 5, LocalSpeaker: "spk_0"},
		},
		Speakers: map[string]models.SpeakerProfile{
			"spk_0": {Embedding: []float64{0.99, 0.01, 0}, TotalDuration: 4.5, SegmentCount: 1},
		},
		SpeakerCount: 1,
	})

	manifests := []models.ChunkManifest{
		{ChunkIndex: 0, ResultKey: "diarization/ep_chunk_00.json", SpeakerCount: 1},
		{ChunkIndex: 1, ResultKey: "diarization/ep_chunk_01.json", SpeakerCount: 1},
	}

	m := New(store)
	result, err := m.Merge(ctx, bucket, "ep", manifests, 0.8, 0.5)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.GlobalSpeakerCount != 1 {
		t.Errorf("GlobalSpeakerCount = %d, want 1", result.GlobalSpeakerCount)
	}

	var segments []models.GlobalSegment
	if err := store.GetJSON(ctx, bucket, result.SegmentsKey, &segments); err != nil {
		t.Fatalf("load segments: %v", err)
	}
	for _, s := range segments {
		if s.Speaker != "SPEAKER_A" {
			t.Errorf("segment speaker = %q, want SPEAKER_A for the single merged speaker", s.Speaker)
		}
	}
}

func TestMergeTwoChunksTwoSpeakersSwappedLocalLabels(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	// Chunk 0: spk_0 sounds like voice A, spk_1 sounds like voice B.
	// Chunk 1: local labels are swapped (spk_0 now sounds like voice B).
	// Cross-chunk clustering must resolve true identity by embedding, not
	// by matching local label strings.
	putDiarization(t, store, "diarization/ep_chunk_00.json", models.ChunkDiarization{
		ChunkIndex: 0, Offset: 0, EffectiveStart: 0, EffectiveEnd: 10,
		Segments: []models.LocalSegment{
			{LocalStart: 0, LocalEnd: 4, LocalSpeaker: "spk_0"},
			{LocalStart: 4, LocalEnd: 8, LocalSpeaker: "spk_1"},
		},
		Speakers: map[string]models.SpeakerProfile{
			"spk_0": {Embedding: []float64{1, 0}, TotalDuration: 4, SegmentCount: 1},
			"spk_1": {Embedding: []float64{0, 1}, TotalDuration: 4, SegmentCount: 1},
		},
		SpeakerCount: 2,
	})
	putDiarization(t, store, "diarization/ep_chunk_01.json", models.ChunkDiarization{
		ChunkIndex: 1, Offset: 9, EffectiveStart: 9.5, EffectiveEnd: 19,
		Segments: []models.LocalSegment{
			{LocalStart: 0.5, LocalEnd: 4, LocalSpeaker: "spk_0"},
			{LocalStart: 4, LocalEnd: 8, LocalSpeaker: "spk_1"},
		},
		Speakers: map[string]models.SpeakerProfile{
			// spk_0 here sounds like voice B (swapped vs. chunk 0's spk_0).
			"spk_0": {Embedding: []float64{0, 1}, TotalDuration: 3.5, SegmentCount: 1},
			"spk_1": {Embedding: []float64{1, 0}, TotalDuration: 4, SegmentCount: 1},
		},
		SpeakerCount: 2,
	})

	manifests := []models.ChunkManifest{
		{ChunkIndex: 0, ResultKey: "diarization/ep_chunk_00.json", SpeakerCount: 2},
		{ChunkIndex: 1, ResultKey: "diarization/ep_chunk_01.json", SpeakerCount: 2},
	}

	m := New(store)
	result, err := m.Merge(ctx, bucket, "ep", manifests, 0.9, 0.5)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.GlobalSpeakerCount != 2 {
		t.Fatalf("GlobalSpeakerCount = %d, want 2", result.GlobalSpeakerCount)
	}

	var segments []models.GlobalSegment
	if err := store.GetJSON(ctx, bucket, result.SegmentsKey, &segments); err != nil {
		t.Fatalf("load segments: %v", err)
	}

	speakerAt := func(start float64) string {
		for _, s := range segments {
			if s.Start == start {
				return s.Speaker
			}
		}
		t.Fatalf("no segment starting at %v", start)
		return ""
	}

	// Chunk 0's voice-A segment (start 0) and chunk 1's voice-A segment
	// (start 9+4=13, local spk_1) must resolve to the SAME global label,
	// even though they used different local speaker tags.
	voiceAChunk0 := speakerAt(0)
	voiceAChunk1 := speakerAt(9 + 4)
	if voiceAChunk0 != voiceAChunk1 {
		t.Errorf("voice A should resolve to one global label across chunks: chunk0=%q chunk1=%q", voiceAChunk0, voiceAChunk1)
	}
}

func TestMergeAllChunksEmptyProducesZeroSpeakers(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	putDiarization(t, store, "diarization/ep_chunk_00.json", models.ChunkDiarization{
		ChunkIndex: 0, Offset: 0, EffectiveStart: 0, EffectiveEnd: 10,
		Segments: nil, Speakers: map[string]models.SpeakerProfile{}, SpeakerCount: 0,
	})

	manifests := []models.ChunkManifest{
		{ChunkIndex: 0, ResultKey: "diarization/ep_chunk_00.json", SpeakerCount: 0},
	}

	m := New(store)
	result, err := m.Merge(ctx, bucket, "ep", manifests, 0.8, 0.5)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.GlobalSpeakerCount != 0 {
		t.Errorf("GlobalSpeakerCount = %d, want 0", result.GlobalSpeakerCount)
	}

	var segments []models.GlobalSegment
	if err := store.GetJSON(ctx, bucket, result.SegmentsKey, &segments); err != nil {
		t.Fatalf("load segments: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %v", segments)
	}
}

func TestMergeMissingChunkBlobIsFatal(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	manifests := []models.ChunkManifest{
		{ChunkIndex: 0, ResultKey: "diarization/does-not-exist.json", SpeakerCount: 1},
	}

	m := New(store)
	if _, err := m.Merge(ctx, bucket, "ep", manifests, 0.8, 0.5); err == nil {
		t.Error("expected an error when a chunk diarization blob is missing")
	}
}
