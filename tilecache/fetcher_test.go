package tilecache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/ok":
			if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
				t.Errorf("User-Agent = %q", ua)
			}
			_, _ = w.Write([]byte("tile"))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	f.Backoff = time.Millisecond

	tests := []struct {
		path      string
		wantErr   bool
		wantCalls int32
	}{
		{"/ok", false, 1},
		{"/missing", true, 1},
		{"/flaky", true, DefaultRetries},
	}
	for _, tt := range tests {
		calls.Store(0)
		data, err := f.Fetch(context.Background(), srv.URL+tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("Fetch(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrStatus) {
			t.Errorf("Fetch(%s) error = %v, want ErrStatus", tt.path, err)
		}
		if !tt.wantErr && string(data) != "tile" {
			t.Errorf("Fetch(%s) = %q", tt.path, data)
		}
		if got := calls.Load(); got != tt.wantCalls {
			t.Errorf("Fetch(%s) made %d requests, want %d", tt.path, got, tt.wantCalls)
		}
	}
}

func TestHTTPFetcherCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewHTTPFetcher()
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("Fetch() with canceled context error = nil")
	}
	if ctx.Err() == nil {
		t.Fatal("context not canceled")
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.png")
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, loc := range []string{path, "file://" + path} {
		data, err := FileFetcher{}.Fetch(context.Background(), loc)
		if err != nil || string(data) != "data" {
			t.Errorf("Fetch(%q) = %q, %v", loc, data, err)
		}
	}
	if _, err := (FileFetcher{}).Fetch(context.Background(), filepath.Join(dir, "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotExist", err)
	}
}

func TestNewFetcher(t *testing.T) {
	if _, ok := NewFetcher("https://tiles.example.com/{z}/{x}/{y}.webp").(*HTTPFetcher); !ok {
		t.Error("NewFetcher(https) is not an HTTPFetcher")
	}
	if _, ok := NewFetcher("/data/{z}/{x}/{y}.png").(FileFetcher); !ok {
		t.Error("NewFetcher(path) is not a FileFetcher")
	}
}
