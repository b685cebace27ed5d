package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*ClientConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.RetrySleep = time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}
	return NewClient(cfg)
}

func TestDo_RetriesConfiguredStatusesThenSucceeds(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}, nil)

	resp, err := client.Get(context.Background(), "/thing", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterTries(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}, func(cfg *ClientConfig) {
		cfg.Tries = 2
	})

	_, err := client.Get(context.Background(), "/thing", nil)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
}

func TestDo_NonRetryableStatusFailsImmediately(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusBadRequest)
	}, nil)

	_, err := client.Get(context.Background(), "/thing", nil)

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDo_AppliesHeadersAndAuth(t *testing.T) {
	var gotKey, gotAgent, gotExtra string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api-key")
		gotAgent = r.Header.Get("User-Agent")
		gotExtra = r.Header.Get("X-Extra")
		w.Write([]byte("{}"))
	}, func(cfg *ClientConfig) {
		cfg.Auth = APIKeyQuery{Key: "secret"}
		cfg.Headers = map[string]string{"X-Extra": "yes"}
	})

	_, err := client.Get(context.Background(), "/thing", nil)
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "api2gn/1.0", gotAgent)
	assert.Equal(t, "yes", gotExtra)
}

func TestPost_RetriedRequestResendsBody(t *testing.T) {
	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if len(bodies) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("{}"))
	}, nil)

	_, err := client.Post(context.Background(), "/search", nil, map[string]any{"offset": 0})
	require.NoError(t, err)

	// Every attempt must carry the full payload, not just the first.
	require.Len(t, bodies, 3)
	for _, body := range bodies {
		assert.JSONEq(t, `{"offset":0}`, body)
	}
}

func TestAPIKeyQuery_PreservesExistingParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example.test/search?q=abc", nil)
	APIKeyQuery{Key: "secret"}.Apply(req)

	query := req.URL.Query()
	assert.Equal(t, "abc", query.Get("q"))
	assert.Equal(t, "secret", query.Get("api-key"))
}

func TestPost_SendsJSONBody(t *testing.T) {
	var gotType string
	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("{}"))
	}, nil)

	_, err := client.Post(context.Background(), "/search", nil, map[string]any{"limit": 10})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"limit":10}`, string(gotBody))
}
