package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankwatch/placerank/internal/rank"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second}, nil)
	resp, err := f.Fetch(context.Background(), rank.FetchRequest{
		URL:     srv.URL,
		Headers: map[string]string{"User-Agent": "test-agent"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("<html>ok</html>"), resp.Body)
	require.Equal(t, "test-agent", gotUserAgent)
	require.Greater(t, resp.Duration, time.Duration(0))
}

func TestFetchReportsNon2xxAsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second}, nil)
	_, err := f.Fetch(context.Background(), rank.FetchRequest{URL: srv.URL})
	require.Error(t, err)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 30 * time.Second}, nil)
	start := time.Now()
	_, err := f.Fetch(ctx, rank.FetchRequest{URL: srv.URL})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchAllowsRevisits(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second}, nil)
	for range 2 {
		_, err := f.Fetch(context.Background(), rank.FetchRequest{URL: srv.URL})
		require.NoError(t, err)
	}
	require.Equal(t, 2, hits)
}
