package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/scribe/internal/config"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/format"
)

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, reply string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Transform(t *testing.T) {
	var seen chatRequest
	srv := newServer(t, "## Formatted", &seen)

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "base-model", SystemPrompt: "be tidy"}, nil)
	require.NoError(t, err)

	temp := float32(0.5)
	out, err := c.Transform(context.Background(), "raw chunk", format.TransformOptions{Model: "override", Temperature: &temp, MaxTokens: 42})
	require.NoError(t, err)
	assert.Equal(t, "## Formatted", out)

	assert.Equal(t, "override", seen.Model)
	assert.Equal(t, 42, seen.MaxTokens)
	assert.InDelta(t, 0.5, seen.Temperature, 0.001)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "be tidy", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, "raw chunk", seen.Messages[1].Content)
}

func TestClient_CompleteUsesDefaults(t *testing.T) {
	var seen chatRequest
	srv := newServer(t, "answer", &seen)

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Model: "base-model"}, nil)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "base-model", seen.Model)
	require.Len(t, seen.Messages, 1)
}

func TestClient_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Transform(context.Background(), "x", format.TransformOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m", Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "x")
	require.Error(t, err)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Model: "m"}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SCRIBE_TEST_KEY", "")
	_, err := FromConfig(config.LLMConfig{APIKeyEnv: "SCRIBE_TEST_KEY", Model: "m"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransformUnconfigured))

	t.Setenv("SCRIBE_TEST_KEY", "secret")
	c, err := FromConfig(config.LLMConfig{APIKeyEnv: "SCRIBE_TEST_KEY", Model: "m", TimeoutSeconds: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.cfg.Timeout)
}

func TestClient_ImplementsTransformer(t *testing.T) {
	var _ format.Transformer = (*Client)(nil)
}
