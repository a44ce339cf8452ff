package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
)

type recorded struct {
	operation, model, status string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *fakeRecorder) RecordLLMRequest(_ context.Context, operation, model, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{operation, model, status})
}

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req["model"])
		assert.Equal(t, 0.7, req["temperature"])

		msgs, _ := req["messages"].([]any)
		prompt := ""
		if len(msgs) == 1 {
			m, _ := msgs[0].(map[string]any)
			assert.Equal(t, "user", m["role"])
			prompt, _ = m["content"].(string)
		}
		if prompt == "fail" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "echo: " + prompt},
			}},
		})
	})

	mux.HandleFunc("POST /v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		// Reply in reverse order to exercise index placement.
		data := []map[string]any{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Complete(t *testing.T) {
	srv := newOpenAIServer(t)
	rec := &fakeRecorder{}
	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, rec, nil)

	out, err := c.Complete(context.Background(), "olá")
	require.NoError(t, err)
	assert.Equal(t, "echo: olá", out)
	assert.Equal(t, []recorded{{"complete", "gpt-3.5-turbo", "success"}}, rec.calls)
}

func TestClient_Complete_Temperature(t *testing.T) {
	zero, hot := 0.0, 1.2

	tests := []struct {
		name        string
		temperature *float64
		want        float64
	}{
		{"unset uses default", nil, DefaultTemperature},
		{"zero is sent as zero", &zero, 0},
		{"explicit value", &hot, 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`))
			}))
			defer srv.Close()

			c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Temperature: tt.temperature}, nil, nil)
			_, err := c.Complete(context.Background(), "olá")
			require.NoError(t, err)

			require.Contains(t, sent, "temperature")
			assert.Equal(t, tt.want, sent["temperature"])
		})
	}
}

func TestClient_Complete_Error(t *testing.T) {
	srv := newOpenAIServer(t)
	rec := &fakeRecorder{}
	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, rec, nil)

	_, err := c.Complete(context.Background(), "fail")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "error", rec.calls[0].status)
}

func TestClient_Embed(t *testing.T) {
	srv := newOpenAIServer(t)
	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, nil, nil)

	vecs, err := c.Embed(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, vecs)

	empty, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, nil, nil)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultEmbeddingModel, c.embeddingModel)
	assert.Equal(t, DefaultTemperature, c.temperature)
}
