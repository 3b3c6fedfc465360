package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/observability"
)

// HTTPClient implements Synthesizer against a streaming HTTP TTS API
type HTTPClient struct {
	apiKey     string
	apiURL     string
	voiceID    string
	modelID    string
	sink       AudioSink
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	isActive bool
	cancel   context.CancelFunc
}

type synthesizeRequest struct {
	Text         string `json:"text"`
	VoiceID      string `json:"voice_id"`
	ModelID      string `json:"model_id,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
}

// NewHTTPClient creates a new TTS client delivering audio to sink
func NewHTTPClient(cfg *config.Config, sink AudioSink) *HTTPClient {
	return &HTTPClient{
		apiKey:     cfg.TTSAPIKey,
		apiURL:     cfg.TTSAPIURL,
		voiceID:    cfg.TTSVoiceID,
		modelID:    cfg.TTSModelID,
		sink:       sink,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     observability.GetLogger().With().Str("component", "tts").Logger(),
	}
}

// Speak synthesizes text and streams the audio to the sink. Any utterance
// still in flight is cancelled first, so only one utterance is ever audible.
func (c *HTTPClient) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	c.Cancel()

	speakCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.isActive = true
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isActive = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	reqBody := synthesizeRequest{
		Text:         text,
		VoiceID:      c.voiceID,
		ModelID:      c.modelID,
		OutputFormat: "pcm",
		SampleRate:   16000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(speakCtx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("tts API returned status %d: %s", resp.StatusCode, string(body))
	}

	// Stream the audio body to the sink in chunks so cancellation cuts the
	// utterance off mid-playback.
	buf := make([]byte, 4096)
	for {
		select {
		case <-speakCtx.Done():
			return speakCtx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if c.sink != nil {
				if sinkErr := c.sink(buf[:n]); sinkErr != nil {
					return fmt.Errorf("audio sink failed: %w", sinkErr)
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read synthesis stream: %w", readErr)
		}
	}
}

// Cancel aborts any in-flight utterance
func (c *HTTPClient) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close releases the client
func (c *HTTPClient) Close() error {
	c.Cancel()
	return nil
}

// IsActive reports whether an utterance is currently being delivered
func (c *HTTPClient) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isActive
}
