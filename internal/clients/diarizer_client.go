package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// DiarizerClient is the HTTP client to the diarization model service,
// the first of the three opaque ML collaborators named in spec §1.
type DiarizerClient struct {
	base baseHTTPClient
}

// NewDiarizerClient builds a client pointed at the diarization model's
// base URL.
func NewDiarizerClient(baseURL string, timeout time.Duration) *DiarizerClient {
	return &DiarizerClient{base: newBaseHTTPClient(baseURL, timeout, 3)}
}

// Diarize runs the diarization model over one chunk's audio, returning raw
// segments in chunk-local time (spec §4.2 step "run diarization model").
func (c *DiarizerClient) Diarize(ctx context.Context, audio []byte, duration float64) ([]RawLocalSegment, error) {
	req := DiarizeRequest{
		AudioB64: base64.StdEncoding.EncodeToString(audio),
		Duration: duration,
	}

	var resp DiarizeResponse
	endpoint := fmt.Sprintf("%s/diarize", c.base.baseURL)
	if err := c.base.makeRequest(ctx, "POST", endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("diarization model invocation failed: %w", err)
	}
	return resp.Segments, nil
}
