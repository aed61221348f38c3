package models

import "testing"

func TestBaseKey(t *testing.T) {
	cases := map[string]string{
		"interviews/episode-12.mp3": "episode-12",
		"episode-12.mp3":            "episode-12",
		"a/b/c/recording.wav":       "recording",
		"no-extension":              "no-extension",
	}
	for in, want := range cases {
		if got := BaseKey(in); got != want {
			t.Errorf("BaseKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyDerivations(t *testing.T) {
	base := "episode-12"

	if got, want := NormalizedWAVKey(base), "processed/episode-12.wav"; got != want {
		t.Errorf("NormalizedWAVKey = %q, want %q", got, want)
	}
	if got, want := ChunkAudioKey(base, 3), "chunks/episode-12_chunk_03.wav"; got != want {
		t.Errorf("ChunkAudioKey = %q, want %q", got, want)
	}
	if got, want := ChunkDiarizationKey(base, 3), "diarization/episode-12_chunk_03.json"; got != want {
		t.Errorf("ChunkDiarizationKey = %q, want %q", got, want)
	}
	if got, want := MergedSegmentsKey(base), "episode-12_segments.json"; got != want {
		t.Errorf("MergedSegmentsKey = %q, want %q", got, want)
	}
	if got, want := SegmentClipKey(base, 7, "SPEAKER_B"), "segments/episode-12_0007_SPEAKER_B.wav"; got != want {
		t.Errorf("SegmentClipKey = %q, want %q", got, want)
	}
	if got, want := SegmentTranscriptKey(base, 7, "SPEAKER_B"), "transcribe_results/episode-12_0007_SPEAKER_B.json"; got != want {
		t.Errorf("SegmentTranscriptKey = %q, want %q", got, want)
	}
	if got, want := SegmentManifestKey(base), "metadata/episode-12_segment_files.json"; got != want {
		t.Errorf("SegmentManifestKey = %q, want %q", got, want)
	}
	if got, want := FinalTranscriptKey(base), "transcripts/episode-12_transcript.json"; got != want {
		t.Errorf("FinalTranscriptKey = %q, want %q", got, want)
	}
}

func TestTranscriptKeyFromSegmentKey(t *testing.T) {
	segKey := SegmentClipKey("episode-12", 7, "SPEAKER_B")
	got := TranscriptKeyFromSegmentKey(segKey)
	want := "transcribe_results/episode-12_0007_SPEAKER_B.json"
	if got != want {
		t.Errorf("TranscriptKeyFromSegmentKey(%q) = %q, want %q", segKey, got, want)
	}
}
