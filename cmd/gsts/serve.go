package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an HTTP tile server",
		Long: `Start an HTTP server with the endpoints:
  - /{z}/{x}/{y}.png  shading tile, 204 when there is no source tile
  - /info?z=&x=&y=    tile bounds and weights as JSON
  - /health           health check

Configuration can be provided via environment variables or command-line flags.
Flags take precedence over environment variables.`,
		RunE: runServe,
	}
	cmd.Flags().StringP("addr", "a", ":8080", "address to listen on (env GSTS_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.NewShader()
	if err != nil {
		return err
	}
	defer s.Close()

	addr := getConfigString(cmd, "addr", "GSTS_ADDR", ":8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(cfg.GPU),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		cfg.Logger.Info("starting server", "addr", addr, "source", cfg.Shader.SourcePattern, "gpu", cfg.GPU)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
