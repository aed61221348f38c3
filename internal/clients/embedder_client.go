package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// EmbedderClient is the HTTP client to the embedding model service, used
// by the Diarizer to compute a fixed-dim embedding per sub-interval of a
// chunk's audio (spec §4.2).
type EmbedderClient struct {
	base baseHTTPClient
}

// NewEmbedderClient builds a client pointed at the embedding model's base
// URL.
func NewEmbedderClient(baseURL string, timeout time.Duration) *EmbedderClient {
	return &EmbedderClient{base: newBaseHTTPClient(baseURL, timeout, 3)}
}

// Embed computes the embedding model's clip operation on `[start, end)` of
// the given chunk audio.
func (c *EmbedderClient) Embed(ctx context.Context, chunkAudio []byte, start, end float64) ([]float64, error) {
	req := EmbedRequest{
		AudioB64: base64.StdEncoding.EncodeToString(chunkAudio),
		Start:    start,
		End:      end,
	}

	var resp EmbedResponse
	endpoint := fmt.Sprintf("%s/embed", c.base.baseURL)
	if err := c.base.makeRequest(ctx, "POST", endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("embedding model invocation failed: %w", err)
	}
	return resp.Embedding, nil
}
