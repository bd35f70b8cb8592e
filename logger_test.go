package gsts

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gsts/tile"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() = nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled")
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("log output = %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestShaderLogsTiles(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := New(Config{SourcePattern: memPattern, Padding: 4},
		WithFetcher(newMemSource(16, valley)), WithLogger(l))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.ComputeTile(context.Background(), tile.Index{Z: 2, X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "tile shaded") {
		t.Errorf("debug log missing tile line: %q", buf.String())
	}

	buf.Reset()
	s.SetLogger(nil)
	if _, err := s.ComputeTile(context.Background(), tile.Index{Z: 2, X: 2, Y: 1}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tile shaded") {
		t.Error("SetLogger(nil) did not silence the shader")
	}
}
