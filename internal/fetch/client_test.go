package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citec-spbu/Transport/internal/database"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a client with fast retries against srv.
func newTestClient(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()

	httpClient, err := NewHTTPClient("", "transitcrawl-test")
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	base := []ClientOption{
		WithRetry(3, time.Millisecond),
		WithLogger(quietLogger()),
	}
	return NewClient(httpClient, append(base, opts...)...)
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("second fetch is served from memory", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("<html>Пермь</html>"))
		}))
		defer srv.Close()

		c := newTestClient(t)
		ctx := context.Background()

		first, err := c.Fetch(ctx, srv.URL+"/perm/bus/")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if first.FromCache {
			t.Error("first fetch should come from the network")
		}
		second, err := c.Fetch(ctx, srv.URL+"/perm/bus/")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !second.FromCache {
			t.Error("second fetch should be cached")
		}
		if string(second.Body) != "<html>Пермь</html>" {
			t.Errorf("body = %q", second.Body)
		}
		if hits.Load() != 1 {
			t.Errorf("server hits = %d, want 1", hits.Load())
		}

		stats := c.Stats()
		if stats.Requests != 1 || stats.NetworkHits != 1 || stats.MemoryHits != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		c := newTestClient(t)
		resp, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(resp.Body) != "ok" {
			t.Errorf("body = %q", resp.Body)
		}
		if got := c.Stats().Retries; got != 2 {
			t.Errorf("retries = %d, want 2", got)
		}
	})

	t.Run("retry budget is bounded", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := newTestClient(t, WithRetry(2, time.Millisecond))
		_, err := c.Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502 status error, got %v", err)
		}
		if hits.Load() != 3 {
			t.Errorf("server hits = %d, want 3", hits.Load())
		}
		if c.Stats().Failures != 1 {
			t.Errorf("failures = %d, want 1", c.Stats().Failures)
		}
	})

	t.Run("not found fails without retry", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		c := newTestClient(t)
		_, err := c.Fetch(context.Background(), srv.URL+"/nowhere")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("server hits = %d, want 1", hits.Load())
		}
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer srv.Close()

		c := newTestClient(t, WithMaxBodySize(10))
		_, err := c.Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("cache reads can be disabled", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("fresh"))
		}))
		defer srv.Close()

		c := newTestClient(t, WithReadCache(false))
		for range 2 {
			if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
		}
		if hits.Load() != 2 {
			t.Errorf("server hits = %d, want 2", hits.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newTestClient(t)
		_, err := c.Fetch(ctx, srv.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestClient_PersistentStore(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("stored"))
	}))
	url := srv.URL + "/map"

	writer := newTestClient(t, WithStore(db))
	if _, err := writer.Fetch(context.Background(), url); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	srv.Close()

	t.Run("new client reads the store", func(t *testing.T) {
		reader := newTestClient(t, WithStore(db), WithMemoryCache(0))
		resp, err := reader.Fetch(context.Background(), url)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !resp.FromCache || string(resp.Body) != "stored" {
			t.Errorf("unexpected response: %+v", resp)
		}
		if reader.Stats().StoreHits != 1 || reader.Stats().Requests != 0 {
			t.Errorf("stats = %+v", reader.Stats())
		}
	})

	t.Run("offline serves cached pages only", func(t *testing.T) {
		offline := newTestClient(t, WithStore(db), WithOffline(true))
		if _, err := offline.Fetch(context.Background(), url); err != nil {
			t.Errorf("cached page: %v", err)
		}
		_, err := offline.Fetch(context.Background(), srv.URL+"/other")
		if !errors.Is(err, ErrOffline) || !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrOffline, got %v", err)
		}
	})
}
