// Package llm is the client for the external text-generation collaborator
// used for interview question and follow-up generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/resilience"
)

// Client generates text from a prompt
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// HTTPClient implements Client against an OpenAI-compatible chat completions API
type HTTPClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	retryCfg   *resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// NewHTTPClient creates a text-generation client from service configuration
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		apiKey: cfg.GenAPIKey,
		apiURL: cfg.GenAPIURL,
		model:  cfg.GenModel,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GenTimeout) * time.Second,
		},
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		breaker: resilience.NewCircuitBreaker(
			"text-generation",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Complete sends a prompt and returns the generated text
func (c *HTTPClient) Complete(ctx context.Context, system, user string) (string, error) {
	var answer string

	err := c.breaker.Call(func() error {
		return resilience.Retry(ctx, func() error {
			var callErr error
			answer, callErr = c.complete(ctx, system, user)
			return callErr
		}, c.retryCfg, resilience.IsRetryableNetworkError)
	})

	observability.UpdateCircuitBreakerState("text-generation", int(c.breaker.State()))
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (c *HTTPClient) complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("text generation api key missing")
	}

	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	reqBody, err := json.Marshal(chatCompletionsRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(body))
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
