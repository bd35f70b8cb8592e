package gsts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gogpu/gsts/tile"
)

func fakeProtocol(ctx context.Context, idx tile.Index) (*image.NRGBA, error) {
	switch idx.Z {
	case 1:
		return image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil
	case 2:
		return nil, ErrNoTile
	case 3:
		return nil, ErrCanceled
	default:
		return nil, errors.New("backend exploded")
	}
}

func TestHandlerTile(t *testing.T) {
	h := NewHandler(fakeProtocol)

	tests := []struct {
		path string
		want int
	}{
		{"/1/0/0.png", http.StatusOK},
		{"/2/-1/0.png", http.StatusNoContent},
		{"/3/0/0.png", http.StatusServiceUnavailable},
		{"/4/0/0.png", http.StatusInternalServerError},
		{"/a/b/c.png", http.StatusNotFound},
		{"/health", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/1/0/0.png", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("decoded width = %d, want 4", img.Bounds().Dx())
	}
}

func TestHandlerInfo(t *testing.T) {
	src := newMemSource(16, valley)
	s := newShader(t, Config{Padding: 4}, src)
	h := s.Handler(false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info?z=1&x=-1&y=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /info = %d", rec.Code)
	}
	var info tileInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.X != 1 || !info.Valid {
		t.Errorf("info = %+v, want wrapped x=1 valid", info)
	}
	if info.Bounds == nil || info.Bounds[0] != 0 || info.Bounds[2] != 180 {
		t.Errorf("bounds = %v, want west 0 east 180", info.Bounds)
	}
	if info.Weights == nil {
		t.Error("weights missing")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info?z=1&x=0&y=5", nil))
	info = tileInfo{}
	_ = json.NewDecoder(rec.Body).Decode(&info)
	if info.Valid || info.Bounds != nil {
		t.Errorf("out of range info = %+v", info)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info?z=one", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /info?z=one = %d, want 400", rec.Code)
	}
}

func TestHandlerServesShader(t *testing.T) {
	src := newMemSource(16, valley)
	src.missing["mem/3/6/6"] = true
	s := newShader(t, Config{Padding: 4}, src)
	srv := httptest.NewServer(s.Handler(false))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/3/1/1.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET tile = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/3/6/6.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("GET missing tile = %d, want 204", resp.StatusCode)
	}
}

func TestShaderHandlerLogsToShaderLogger(t *testing.T) {
	defer SetLogger(nil)
	var global bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&global, nil)))

	var own bytes.Buffer
	s, err := New(Config{SourcePattern: memPattern, Padding: 4},
		WithFetcher(newMemSource(16, valley)),
		WithLogger(slog.New(slog.NewTextHandler(&own, nil))))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	h := s.Handler(false)
	h.protocol = fakeProtocol
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/4/0/0.png", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET = %d, want 500", rec.Code)
	}
	if !strings.Contains(own.String(), "tile failed") {
		t.Errorf("shader log = %q, want the failure", own.String())
	}
	if global.Len() != 0 {
		t.Errorf("package log = %q, want nothing", global.String())
	}
}
