// Static file server for cross-origin-isolated pages. Every response
// carries the COOP/COEP headers browsers require before enabling
// SharedArrayBuffer and shared-memory WebAssembly.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/spf13/afero"

	"github.com/OpenAgentsInc/wanix/internal/config"
)

const (
	headerOpenerPolicy   = "Cross-Origin-Opener-Policy"
	headerEmbedderPolicy = "Cross-Origin-Embedder-Policy"
	openerPolicyValue    = "same-origin"
	embedderPolicyValue  = "require-corp"
)

// Server serves a fixed document root over HTTP.
type Server struct {
	cfg      *config.Config
	fs       afero.Fs // rooted at cfg.Root, read-only
	files    http.Handler
	reloader *reloader
}

// New builds a Server over the OS filesystem, rooted at cfg.Root.
func New(cfg *config.Config) *Server {
	fs := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root))
	return newServer(cfg, fs)
}

func newServer(cfg *config.Config, fs afero.Fs) *Server {
	return &Server{
		cfg:      cfg,
		fs:       fs,
		files:    http.FileServer(afero.NewHttpFs(fs).Dir("/")),
		reloader: newReloader(cfg.DebounceDuration),
	}
}

// Handler assembles the request pipeline. The isolation headers are set
// by the outermost middleware, before any handler runs, so they are
// present on every response regardless of status code.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.Watch {
		mux.Handle("/events", s.reloader)
	}
	mux.Handle("/", gzipMiddleware(http.HandlerFunc(s.handleFile)))
	return isolationHeaders(requestLogger(mux))
}

// Run binds the listener and blocks until ctx is cancelled and the
// server has drained, or until the bind fails. A bind failure is the
// only fatal error; per-request failures surface as status codes.
func (s *Server) Run(ctx context.Context) error {
	// Some OS mime tables are missing this; browsers refuse to
	// instantiate streaming WASM without it.
	_ = mime.AddExtensionType(".wasm", "application/wasm")

	if s.cfg.Watch {
		if err := s.reloader.start(s.cfg.Root); err != nil {
			slog.Warn("live reload disabled", "error", err)
		}
		defer s.reloader.stop()
	}

	httpServer := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}
	// Open event streams never go idle; drop them when the drain starts.
	httpServer.RegisterOnShutdown(s.reloader.close)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	fmt.Printf("Server running at %s\n", s.cfg.BaseURL())
	fmt.Printf("Test page at %stest_nodejs.html\n", s.cfg.BaseURL())

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	// ListenAndServe returns as soon as the listener closes; in-flight
	// connections are still draining until Shutdown comes back.
	<-shutdownDone
	return nil
}
