package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "epi-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("date,cases\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{UserAgent: "epi-test/1.0"})
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "date,cases\n", string(data))
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxRetries: 3, Timeout: 5 * time.Second})
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxRetries: 2})
	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestHTTPFetcher_NotFoundIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxRetries: 3})
	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	// 4xx other than 429 must not be retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.csv")
	f := NewHTTPFetcher(HTTPOptions{})

	n, err := f.DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDefaultRateLimiters(t *testing.T) {
	limiters := DefaultRateLimiters()
	assert.Contains(t, limiters, "data.cityofnewyork.us")
	assert.Contains(t, limiters, "raw.githubusercontent.com")
}
