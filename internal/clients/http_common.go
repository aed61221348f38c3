package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// baseHTTPClient holds the retry-with-backoff HTTP request idiom shared by
// the diarizer, embedder, and STT clients, adapted from the teacher's
// MageAgentClient.makeRequest/doRequest/isRetryable.
type baseHTTPClient struct {
	baseURL    string
	httpClient *http.Client
	retryCount int
}

func newBaseHTTPClient(baseURL string, timeout time.Duration, retryCount int) baseHTTPClient {
	return baseHTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryCount: retryCount,
	}
}

// makeRequest performs method against url with payload marshaled as JSON,
// retrying with quadratic backoff on transient failures, and unmarshals
// the response body into result.
func (c *baseHTTPClient) makeRequest(ctx context.Context, method, url string, payload, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return models.NewStageError(models.DeadlineExceeded, "clients.makeRequest", ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := c.doRequest(ctx, method, url, payload, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return models.NewStageError(models.TransientModelError, "clients.makeRequest", err)
		}
	}

	return models.NewStageError(models.TransientModelError, "clients.makeRequest",
		fmt.Errorf("request to %s failed after %d attempts: %w", url, c.retryCount+1, lastErr))
}

func (c *baseHTTPClient) doRequest(ctx context.Context, method, url string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "eof") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "503")
}
