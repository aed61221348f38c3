package clients

// Request/response shapes for the three opaque ML model services named in
// spec §1 and §6: diarizer, embedder, STT. Each is addressed as a plain
// HTTP JSON service; the pipeline treats its internals as opaque.

// DiarizeRequest carries one chunk's normalized audio to the diarization
// model.
type DiarizeRequest struct {
	AudioB64 string  `json:"audio_b64"`
	Duration float64 `json:"duration"`
}

// RawLocalSegment is one diarization-model output segment, in chunk-local
// time, before any filtering or profile computation.
type RawLocalSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// DiarizeResponse is the diarization model's raw output for one chunk.
type DiarizeResponse struct {
	Segments []RawLocalSegment `json:"segments"`
}

// EmbedRequest asks the embedding model to embed a single sub-interval of
// a chunk's audio — "the embedding model's clip operation on each
// sub-interval" (spec §4.2).
type EmbedRequest struct {
	AudioB64 string  `json:"audio_b64"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// EmbedResponse is the fixed-dimension embedding vector for that interval.
type EmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// TranscribeRequest asks the STT model to transcribe a single segment clip.
type TranscribeRequest struct {
	AudioB64 string `json:"audio_b64"`
	Language string `json:"language"`
	BeamSize int    `json:"beam_size"`
}

// TranscribeResponse is the STT model's output text for the clip.
type TranscribeResponse struct {
	Text string `json:"text"`
}
