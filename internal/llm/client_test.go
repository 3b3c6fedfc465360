package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepwise/interview-gateway/internal/config"
)

func clientConfig(url string) *config.Config {
	return &config.Config{
		GenAPIKey:                  "test-key",
		GenAPIURL:                  url,
		GenModel:                   "test-model",
		GenTimeout:                 5,
		RetryMaxAttempts:           2,
		RetryInitialBackoff:        1,
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
	}
}

func TestHTTPClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}

		var req chatCompletionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("Expected system+user messages, got %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(chatCompletionsResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "  Tell me about a conflict.  "}}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(clientConfig(server.URL))
	answer, err := client.Complete(context.Background(), "You are an interviewer.", "Generate a question.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if answer != "Tell me about a conflict." {
		t.Errorf("Expected trimmed answer, got %q", answer)
	}
}

func TestHTTPClient_CompleteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(clientConfig(server.URL))
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Error("Expected error on 500 response")
	}
}

func TestHTTPClient_CompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionsResponse{})
	}))
	defer server.Close()

	client := NewHTTPClient(clientConfig(server.URL))
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Error("Expected error on empty choices")
	}
}

func TestHTTPClient_MissingAPIKey(t *testing.T) {
	cfg := clientConfig("http://localhost:0")
	cfg.GenAPIKey = ""

	client := NewHTTPClient(cfg)
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Error("Expected error when api key is missing")
	}
}
