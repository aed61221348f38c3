package models

import "fmt"

// Key derivation helpers implementing the key scheme table in spec §6.
// base is always the source filename without its extension (models.BaseKey).

// NormalizedWAVKey is where the Audio Extractor persists the normalized
// mono/16kHz/PCM WAV.
func NormalizedWAVKey(base string) string {
	return fmt.Sprintf("processed/%s.wav", base)
}

// ChunkAudioKey is where the Chunker persists chunk i's audio slice.
func ChunkAudioKey(base string, chunkIndex int) string {
	return fmt.Sprintf("chunks/%s_chunk_%02d.wav", base, chunkIndex)
}

// ChunkDiarizationKey is where the Diarizer persists chunk i's detailed
// result blob.
func ChunkDiarizationKey(base string, chunkIndex int) string {
	return fmt.Sprintf("diarization/%s_chunk_%02d.json", base, chunkIndex)
}

// ChunkManifestsKey is where the Pipeline Driver persists the fan-in
// ChunkManifest list handed from the Diarizer to the Speaker Merger, when
// it overflows the payload cap and a key must be handed off instead of
// the inline list.
func ChunkManifestsKey(base string) string {
	return fmt.Sprintf("metadata/%s_chunk_manifests.json", base)
}

// MergedSegmentsKey is where the Speaker Merger persists the global
// segment timeline.
func MergedSegmentsKey(base string) string {
	return fmt.Sprintf("%s_segments.json", base)
}

// SegmentClipKey is where the Speaker Splitter persists segment idx's clip.
func SegmentClipKey(base string, idx int, speaker string) string {
	return fmt.Sprintf("segments/%s_%04d_%s.wav", base, idx, speaker)
}

// SegmentTranscriptKey is where the Transcriber persists segment idx's
// TranscribeResult blob.
func SegmentTranscriptKey(base string, idx int, speaker string) string {
	return fmt.Sprintf("transcribe_results/%s_%04d_%s.json", base, idx, speaker)
}

// SegmentManifestKey is where the Speaker Splitter persists the full
// SegmentFile list. The list is always written here, whether or not it is
// also returned inline, and the Aggregator reads it from this key.
func SegmentManifestKey(base string) string {
	return fmt.Sprintf("metadata/%s_segment_files.json", base)
}

// FinalTranscriptKey is where the Aggregator persists the final transcript.
func FinalTranscriptKey(base string) string {
	return fmt.Sprintf("transcripts/%s_transcript.json", base)
}

// TranscriptKeyFromSegmentKey derives a segment's transcribe_results key
// from its segments/ clip key, mirroring the original aggregate_results
// lambda's derivation of transcribe_results/<name>.json from a segment_key
// without that key being transmitted in the envelope.
func TranscriptKeyFromSegmentKey(segmentKey string) string {
	name := BaseKey(segmentKey)
	return fmt.Sprintf("transcribe_results/%s.json", name)
}
