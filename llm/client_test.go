package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/M-Boiguille/SkillOps-sub000/llm"
	_ "github.com/M-Boiguille/SkillOps-sub000/llm/providers" // Register providers
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAICompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1677652288,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion("A Redis node is refusing connections."))
	}))
	defer server.Close()

	client := llm.NewClient(llm.Endpoint{
		Provider: "ollama",
		URL:      server.URL,
		Model:    "test-model",
	})

	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: "Generate an incident"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "A Redis node is refusing connections.", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.TokensUsed)
}

func TestClient_Complete_NoMessages(t *testing.T) {
	client := llm.NewClient(llm.Endpoint{Provider: "ollama", Model: "test-model"})

	_, err := client.Complete(context.Background(), llm.Request{})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}

func TestClient_Complete_UnknownProvider(t *testing.T) {
	client := llm.NewClient(llm.Endpoint{Provider: "bogus", Model: "test-model"})

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestClient_Complete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"internal error", http.StatusInternalServerError, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := llm.NewClient(llm.Endpoint{
				Provider: "ollama",
				URL:      server.URL,
				Model:    "test-model",
			})

			_, err := client.Complete(context.Background(), llm.Request{
				Messages: []llm.Message{{Role: "user", Content: "hi"}},
			})
			require.Error(t, err)
			assert.Equal(t, tt.transient, llm.IsTransient(err))
			assert.Equal(t, !tt.transient, llm.IsFatal(err))
		})
	}
}

func TestClient_Complete_SingleAttempt(t *testing.T) {
	// The client itself never retries; one Complete call is one request.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := llm.NewClient(llm.Endpoint{
		Provider: "ollama",
		URL:      server.URL,
		Model:    "test-model",
	})

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Complete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(openAICompletion("too late"))
	}))
	defer server.Close()

	client := llm.NewClient(llm.Endpoint{
		Provider: "ollama",
		URL:      server.URL,
		Model:    "test-model",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err), "timeouts must be retryable")
}

func TestClient_Complete_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := llm.NewClient(llm.Endpoint{
		Provider: "ollama",
		URL:      server.URL,
		Model:    "test-model",
	})

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}
