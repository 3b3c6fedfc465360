// Package evaluation hands finished interview transcripts to the downstream
// scoring service. The service's verdict is opaque to the gateway; this
// package only guarantees delivery or a reported failure.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/resilience"
)

// Submitter delivers a finished transcript for scoring
type Submitter interface {
	Submit(ctx context.Context, sessionID, transcriptText string) error
}

// HTTPClient submits transcripts to the evaluation service over HTTP
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	retry      *resilience.RetryConfig
	logger     zerolog.Logger
}

// NewHTTPClient creates an evaluation client for the given endpoint
func NewHTTPClient(endpoint, apiKey string, timeout time.Duration, retry *resilience.RetryConfig) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     observability.GetLogger().With().Str("component", "evaluation").Logger(),
	}
}

type submitRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
}

// Submit delivers the transcript for scoring. Transport failures are retried;
// a final failure is returned to the caller, who decides how to surface it.
func (c *HTTPClient) Submit(ctx context.Context, sessionID, transcriptText string) error {
	if c.endpoint == "" {
		c.logger.Debug().Str("session_id", sessionID).Msg("Evaluation endpoint not configured, skipping submission")
		return nil
	}

	body, err := json.Marshal(submitRequest{
		SessionID:  sessionID,
		Transcript: transcriptText,
	})
	if err != nil {
		return fmt.Errorf("failed to encode evaluation request: %w", err)
	}

	err = resilience.Retry(ctx, func() error {
		return c.post(ctx, body)
	}, c.retry, resilience.IsRetryableNetworkError)
	if err != nil {
		observability.RecordComponentError("evaluation_submit_failed", "evaluation")
		return fmt.Errorf("failed to submit transcript for evaluation: %w", err)
	}

	c.logger.Info().Str("session_id", sessionID).Msg("Transcript submitted for evaluation")
	return nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("evaluation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("evaluation service returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
