package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"1. Title\n• bullet"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1", "secret", "gemini-2.0-flash", time.Second)
	out, err := c.Complete(context.Background(), "prompt", Options{MaxTokens: 800})
	require.NoError(t, err)
	assert.Equal(t, "1. Title\n• bullet", out)
	assert.Equal(t, "gemini-2.0-flash", got["model"])
	assert.EqualValues(t, 800, got["max_tokens"])
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "k", "m", time.Second).Complete(context.Background(), "p", Options{})
	require.Error(t, err)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "k", "m", time.Second).Complete(context.Background(), "p", Options{})
	require.Error(t, err)
}

func TestOllamaComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"[{\"symbols\":[],","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"llama3","response":"\"tags\":[]}]","done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewOllama(srv.URL, "llama3", time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "prompt", Options{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, `[{"symbols":[],"tags":[]}]`, out)
	assert.Equal(t, "llama3", got["model"])

	opts, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 100, opts["num_predict"])
}

func TestNew(t *testing.T) {
	c, err := New("openai", "", "k", "m", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = New("ollama", "localhost:11434", "", "m", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	_, err = New("bard", "", "", "", time.Second)
	require.Error(t, err)
}
