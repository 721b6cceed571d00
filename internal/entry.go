// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/jobdeck/internal/api"
	"github.com/starford/jobdeck/internal/board"
	"github.com/starford/jobdeck/internal/boardservice"
	"github.com/starford/jobdeck/internal/ingest"
	"github.com/starford/jobdeck/internal/mcpserver"
	"github.com/starford/jobdeck/internal/outbox"
	"github.com/starford/jobdeck/internal/prefs"
	"github.com/starford/jobdeck/internal/remote"
	"github.com/starford/jobdeck/internal/sheet"
	"github.com/starford/jobdeck/internal/sse"
	"github.com/starford/jobdeck/internal/storage"
	"github.com/starford/jobdeck/internal/watch"
)

var errConfigRequired = errors.New("config is required")

// backend is a tabular store the board loads from and writes to.
type backend interface {
	ingest.Source
	remote.Syncer
}

// runtime holds the components shared by the HTTP and MCP entry points.
type runtime struct {
	logger *slog.Logger
	svc    *boardservice.Service
	queue  *outbox.Queue
	table  *storage.Table // nil unless the backend is a local file
	store  *prefs.Store
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func openBackend(cfg BackendConfig) (backend, *storage.Table, error) {
	switch cfg.Kind {
	case BackendHTTP:
		c, err := sheet.NewClient(cfg.URL, cfg.Token, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init sheet client: %w", err)
		}
		return c, nil, nil
	case BackendFile:
		if err := os.MkdirAll(filepath.Dir(cfg.TablePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create table dir: %w", err)
		}
		t, err := storage.NewTable(cfg.TablePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init table: %w", err)
		}
		return t, t, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// setup builds the board, its write queue and the service around them, and
// performs the first load. A failed first load is logged, not returned: the
// board starts empty and can be reloaded later.
func setup(ctx context.Context, cfg *Config, logger *slog.Logger, svcOpts ...boardservice.Option) (*runtime, error) {
	be, table, err := openBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	store, err := prefs.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init prefs: %w", err)
	}

	queue := outbox.New(be,
		outbox.WithPolicy(cfg.Outbox.Policy()),
		outbox.WithWorkers(cfg.Outbox.Workers),
		outbox.WithTimeout(cfg.Outbox.Timeout),
		outbox.WithLogger(logger),
	)
	mgr := board.NewManager(queue, logger)
	queue.OnAssign(func(id string, row int) {
		if !mgr.AttachRowIndex(id, row) {
			logger.Debug("outbox: assigned row for unknown record", slog.String("id", id), slog.Int("row", row))
		}
	})

	svcOpts = append(svcOpts, boardservice.WithLogger(logger))
	svc := boardservice.New(mgr, be, store, svcOpts...)
	if err := svc.Init(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	return &runtime{logger: logger, svc: svc, queue: queue, table: table, store: store}, nil
}

// background adds the outbox and, for a file backend, the table watcher to g.
func (rt *runtime) background(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		return rt.queue.Run(ctx)
	})

	if rt.table == nil {
		return
	}
	g.Go(func() error {
		return watch.Watch(ctx, rt.table, watch.DefaultDebounce, rt.logger, func(ctx context.Context) {
			if _, err := rt.svc.Reload(ctx); err != nil {
				rt.logger.Warn("reload after table change failed", slog.String("error", err.Error()))
			}
		})
	})
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Backend.Kind),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.SSE.Throttle, sse.WithKeepAlive(cfg.SSE.KeepAlive))
	defer broker.Close()

	rt, err := setup(ctx, cfg, logger, boardservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer rt.store.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(rt.svc))

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	rt.background(gCtx, g)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the outbox and watcher once the server is down.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully", slog.Int("unsent_writes", rt.queue.Len()))
	return nil
}

var errShutdown = errors.New("shutdown")

// readyHandler answers 503 until the board has been loaded successfully once.
func readyHandler(svc *boardservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !svc.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// RunMCP serves the board tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	g, gCtx := errgroup.WithContext(ctx)
	rt.background(gCtx, g)

	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting", slog.String("version", app.version))
		return mcpserver.New(rt.svc, app.version).ServeStdio()
	})

	if err := g.Wait(); err != nil {
		logger.Error("MCP server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
