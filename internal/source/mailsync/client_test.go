package mailsync

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/source"
)

func newTestClient(url string) *Client {
	c := NewClient(url, "tok")
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestClient_SyncCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"threads_synced":4,"messages_synced":9,"errors":["mailbox b: timeout"]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Equal(t, 4, out.ThreadsSynced)
	assert.Equal(t, 9, out.MessagesSynced)
	assert.Equal(t, []string{"mailbox b: timeout"}, out.Errors)
}

func TestClient_SyncLocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"skipped":true,"reason":"locked","locked_until":"2024-06-01T12:05:00Z"}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Locked())
	assert.Equal(t, time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC), out.LockedUntilTime())
}

func TestClient_LockedStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"locked_until":"2024-06-01T12:05:00Z"}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Locked())
	assert.Equal(t, "2024-06-01T12:05:00Z", out.LockedUntil)
}

func TestClient_LockedStatusCodeBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusLocked)
		w.Write([]byte(`<html>busy</html>`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := newTestClient(srv.URL).WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	out, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Locked())
	assert.Empty(t, out.LockedUntil)
	assert.Contains(t, buf.String(), "undecodable lock response body")
	assert.Contains(t, buf.String(), `"status":423`)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Sync(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"threads_synced":1,"messages_synced":1}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.ThreadsSynced)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.False(t, source.IsAuthError(err))
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, time.Second, retryAfterDuration(resp, 0))
	assert.Equal(t, 4*time.Second, retryAfterDuration(resp, 2))
	assert.Equal(t, 30*time.Second, retryAfterDuration(resp, 10))

	resp.Header.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, retryAfterDuration(resp, 0))
}
