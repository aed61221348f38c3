package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// STTClient is the HTTP client to the speech-to-text model service, used
// by the Transcriber for each per-speaker segment clip.
type STTClient struct {
	base baseHTTPClient
}

// NewSTTClient builds a client pointed at the STT model's base URL.
func NewSTTClient(baseURL string, timeout time.Duration) *STTClient {
	return &STTClient{base: newBaseHTTPClient(baseURL, timeout, 3)}
}

// Transcribe runs speech-to-text on a segment clip with a forced language
// and beam width (spec §4.5).
func (c *STTClient) Transcribe(ctx context.Context, audio []byte, language string, beamSize int) (string, error) {
	req := TranscribeRequest{
		AudioB64: base64.StdEncoding.EncodeToString(audio),
		Language: language,
		BeamSize: beamSize,
	}

	var resp TranscribeResponse
	endpoint := fmt.Sprintf("%s/transcribe", c.base.baseURL)
	if err := c.base.makeRequest(ctx, "POST", endpoint, req, &resp); err != nil {
		return "", fmt.Errorf("STT model invocation failed: %w", err)
	}
	return resp.Text, nil
}
