// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/berkana/internal/api"
	"github.com/starford/berkana/internal/docservice"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/mcpserver"
	"github.com/starford/berkana/internal/sse"
	"github.com/starford/berkana/internal/storage"
)

// stack is the set of components shared by the HTTP and MCP front ends.
type stack struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	broker *sse.Broker
	svc    *docservice.Service
}

func (s *stack) close() {
	s.broker.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

func setup(opts []Option) (*stack, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("autosave", cfg.Editor.Autosave))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	st, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync done",
			slog.Int("indexed", st.Indexed),
			slog.Int("unchanged", st.Unchanged),
			slog.Int("removed", st.Removed),
			slog.String("read", humanize.Bytes(st.Bytes)))
	}

	broker := sse.NewBroker(cfg.Events.IndexThrottle)
	svc := docservice.NewService(store, db, broker, docservice.Options{
		Toolbar:    cfg.Editor.Toolbar,
		Debug:      cfg.Editor.Debug,
		Debounce:   cfg.Editor.Debounce,
		Throttle:   cfg.Editor.Throttle,
		Autosave:   cfg.Editor.Autosave,
		SessionTTL: cfg.Editor.SessionTTL,
		Logger:     logger,
	})

	return &stack{cfg: cfg, logger: logger, store: store, db: db, broker: broker, svc: svc}, nil
}

// watch keeps the index current and forwards changes to SSE clients.
func (s *stack) watch(ctx context.Context) error {
	err := index.Watch(ctx, s.db, s.store, s.cfg.Vault.Path, s.logger, s.broker.PublishDocumentEvent)
	if err != nil {
		// A vault without file events still serves requests; edits made
		// through the API are indexed on write.
		s.logger.Warn("file watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.close()
	cfg, logger := s.cfg, s.logger

	apiRouter := api.NewRouter(s.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, s.broker, cfg.Vault.Path)
	assets := api.NewAssetHandler(cfg.Vault.Path)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	// Image blocks reference /assets/<name>.
	r.Get("/assets/{filename}", assets.ServeFile)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watch(gCtx)
	})

	// Idle session reaper; closes every session on shutdown.
	g.Go(func() error {
		return s.svc.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// SSE streams never finish on their own.
		s.broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher and the reaper stop.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	s, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.watch(gCtx)
	})
	g.Go(func() error {
		defer cancel()
		s.logger.Info("Starting MCP server on stdio")
		return mcpserver.New(s.svc, s.cfg.Vault.Path).ServeStdio()
	})
	return g.Wait()
}
