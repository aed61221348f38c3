package models

import (
	"strings"
	"time"
)

// ChunkDescriptor describes one fixed-length, overlapping window of the
// normalized recording. Chunk indices are dense and 0-based.
type ChunkDescriptor struct {
	ChunkIndex     int     `json:"chunk_index"`
	ChunkKey       string  `json:"chunk_key"`
	Offset         float64 `json:"offset"`
	Duration       float64 `json:"duration"`
	EffectiveStart float64 `json:"effective_start"`
	EffectiveEnd   float64 `json:"effective_end"`
}

// LocalSegment is a diarization segment in chunk-local time.
type LocalSegment struct {
	LocalStart   float64 `json:"local_start"`
	LocalEnd     float64 `json:"local_end"`
	LocalSpeaker string  `json:"local_speaker"`
}

// SpeakerProfile is the duration-weighted embedding for one local speaker
// within a single chunk.
type SpeakerProfile struct {
	Embedding     []float64 `json:"embedding"`
	TotalDuration float64   `json:"total_duration"`
	SegmentCount  int       `json:"segment_count"`
}

// ChunkDiarization is the detailed per-chunk diarization result, persisted
// as a blob and referenced by later stages only through its key.
type ChunkDiarization struct {
	ChunkIndex     int                       `json:"chunk_index"`
	Offset         float64                   `json:"offset"`
	EffectiveStart float64                   `json:"effective_start"`
	EffectiveEnd   float64                   `json:"effective_end"`
	Segments       []LocalSegment            `json:"segments"`
	Speakers       map[string]SpeakerProfile `json:"speakers"`
	SpeakerCount   int                       `json:"speaker_count"`
}

// ChunkManifest is the lightweight record the Diarizer hands back to the
// driver; it deliberately omits embeddings to stay under the payload cap.
type ChunkManifest struct {
	ChunkIndex   int    `json:"chunk_index"`
	ResultKey    string `json:"result_key"`
	SpeakerCount int    `json:"speaker_count"`
}

// GlobalSegment is a time-ordered, speaker-attributed interval in the
// global (whole-recording) timeline, after cross-chunk identity resolution
// and overlap reconciliation.
type GlobalSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// CandidateSegment is an intermediate GlobalSegment still carrying its
// source chunk's effective window; used only during overlap reconciliation.
type CandidateSegment struct {
	Start          float64
	End            float64
	Speaker        string
	EffectiveStart float64
	EffectiveEnd   float64
}

// SegmentFile corresponds 1:1 to a GlobalSegment after the Speaker Splitter
// has cut it into its own audio clip.
type SegmentFile struct {
	Key     string  `json:"key"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// TranscribeResult is the speech-to-text output for one segment clip.
type TranscribeResult struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// FinalTranscript is the ordered, aggregated transcript for a whole run.
type FinalTranscript []TranscribeResult

// RunRequest is what a caller enqueues to kick off one pipeline run.
type RunRequest struct {
	RunID      string            `json:"run_id"`
	Bucket     string            `json:"bucket"`
	SourceKey  string            `json:"source_key"`
	Config     PipelineConfig    `json:"config"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at,omitempty"`
}

// PipelineConfig mirrors the configuration table in spec §6. config.Load
// fills every field from the environment or its default. The pipeline uses
// a run's PipelineConfig as given and does not replace individual zero
// fields with defaults: single-run mode substitutes the loaded
// configuration only when the whole struct is zero, and the queue consumer
// passes the request's config through unchanged.
type PipelineConfig struct {
	ChunkDuration       float64 `json:"chunk_duration,omitempty" yaml:"chunk_duration"`
	OverlapDuration     float64 `json:"overlap_duration,omitempty" yaml:"overlap_duration"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold"`
	CoalesceGap         float64 `json:"coalesce_gap,omitempty" yaml:"coalesce_gap"`
	STTLanguage         string  `json:"stt_language,omitempty" yaml:"stt_language"`
	STTBeamSize         int     `json:"stt_beam_size,omitempty" yaml:"stt_beam_size"`
	MaxRetries          int     `json:"max_retries,omitempty" yaml:"max_retries"`
	PayloadCapBytes     int     `json:"payload_cap_bytes,omitempty" yaml:"payload_cap_bytes"`
}

// Stage message envelopes (§6). Each carries only keys and scalars.

// ChunkerToDiarizer is the per-item message handed to one Diarizer worker.
type ChunkerToDiarizer struct {
	Bucket string          `json:"bucket"`
	Chunk  ChunkDescriptor `json:"chunk"`
}

// DiarizerToMerger is the fan-in message handed to the Speaker Merger.
type DiarizerToMerger struct {
	Bucket       string          `json:"bucket"`
	AudioKey     string          `json:"audio_key"`
	ChunkResults []ChunkManifest `json:"chunk_results"`
}

// MergerToSplitter is handed from the Speaker Merger to the Speaker Splitter.
type MergerToSplitter struct {
	Bucket             string `json:"bucket"`
	AudioKey           string `json:"audio_key"`
	SegmentsKey        string `json:"segments_key"`
	GlobalSpeakerCount int    `json:"global_speaker_count"`
}

// SplitterToTranscriber is the per-item message handed to one Transcriber
// worker.
type SplitterToTranscriber struct {
	Bucket      string      `json:"bucket"`
	SegmentFile SegmentFile `json:"segment_file"`
}

// TranscriberToAggregator is handed from the fan-out Transcriber stage to
// the Aggregator, carrying only the segment_files key (never payloads).
type TranscriberToAggregator struct {
	Bucket          string `json:"bucket"`
	SegmentFilesKey string `json:"segment_files_key"`
	AudioKey        string `json:"audio_key"`
}

// DiarizeManifest is what a single Diarizer invocation returns to the
// driver.
type DiarizeManifest struct {
	ChunkIndex   int    `json:"chunk_index"`
	ResultKey    string `json:"result_key"`
	SpeakerCount int    `json:"speaker_count"`
}

// TranscribeManifest is what a single Transcriber invocation returns to the
// driver — never the text itself.
type TranscribeManifest struct {
	ResultKey string  `json:"result_key"`
	Speaker   string  `json:"speaker"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// BaseKey derives the deterministic key prefix from a source/audio key:
// the last path segment with its extension stripped, mirroring
// `audio_key.rsplit("/", 1)[-1].rsplit(".", 1)[0]` in the original
// aggregate_results lambda.
func BaseKey(key string) string {
	name := key
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name
}
