package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/prospectiq/internal/ai"
)

func newTestClient(t *testing.T, url string, attempts int) *Client {
	t.Helper()

	client, err := New(Config{
		URL:         url,
		APIKey:      "sk-test",
		Timeout:     2 * time.Second,
		MaxAttempts: attempts,
		RetryDelay:  time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewRequiresURLAndKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{URL: "http://llm.local"}, nil)
	assert.ErrorIs(t, err, ai.ErrNotConfigured)

	_, err = New(Config{APIKey: "key"}, nil)
	assert.ErrorIs(t, err, ai.ErrNotConfigured)

	client, err := New(Config{URL: "http://llm.local", APIKey: "key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, DefaultTimeout, client.cfg.Timeout)
	assert.Equal(t, DefaultMaxAttempts, client.cfg.MaxAttempts)
	assert.Equal(t, 800*time.Millisecond, client.cfg.RetryDelay)
}

func TestCompleteSendsChatRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req chatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "STRICT JSON", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"score_ai\":72}"}}]}`))
	}))
	defer server.Close()

	out, err := newTestClient(t, server.URL, 1).Complete(context.Background(), "STRICT JSON", "évalue")
	require.NoError(t, err)
	assert.Equal(t, `{"score_ai":72}`, out)
}

func TestExtractContentFallbacks(t *testing.T) {
	t.Parallel()

	out, err := extractContent([]byte(`{"choices":[{"text":"legacy"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "legacy", out)

	out, err = extractContent([]byte(`{"result":"raw"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"result":"raw"}`, out)

	_, err = extractContent([]byte("<html>oops</html>"))
	assert.Error(t, err)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	out, err := newTestClient(t, server.URL, 2).Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCompleteDoesNotRetryAuthErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 3).Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrProviderAuth))
	assert.EqualValues(t, 1, calls.Load())

	var providerErr *ai.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "invalid api key")
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 2).Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load())
}
