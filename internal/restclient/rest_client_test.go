package restclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	c := New(Options{BaseURL: server.URL, Retries: 3}, zap.NewNop())
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c, server
}

func TestDo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ping", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok": true}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		var result struct {
			OK bool `json:"ok"`
		}
		resp, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R().SetResult(&result))

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.True(t, result.OK)
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`ok`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		resp, err := c.Do(context.Background(), http.MethodGet, "/flaky", c.R())

		assert.NoError(t, err)
		assert.Equal(t, "ok", resp.String())
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("GivesUpAfterRetries", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.Do(context.Background(), http.MethodGet, "/busy", c.R())

		assert.ErrorContains(t, err, "after 3 attempts")
		assert.True(t, IsStatus(err, http.StatusTooManyRequests))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "bad key"}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.Do(context.Background(), http.MethodPost, "/secure", c.R())

		assert.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
		assert.Contains(t, err.Error(), "bad key")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		c, server := setupTestServer(handler)
		defer server.Close()
		c.backoff = func(int) time.Duration { return time.Hour }

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.Do(ctx, http.MethodGet, "/slow", c.R())

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{BaseURL: "http://example.test"}, zap.NewNop())

	assert.Equal(t, defaultRetries, c.maxRetries)
	assert.Equal(t, "http://example.test", c.BaseURL())
	assert.Equal(t, 2*time.Second, c.backoff(1))
}
