// Package app wires configuration, storage and the HTTP server together
// and owns their lifecycle.
//
// STARTUP SEQUENCE:
//  1. Open the configured store (mongo, sqlite, postgres or memory)
//  2. Wrap it with tracing, metrics and slow-operation logging
//  3. Build the router
//  4. Serve until the context is cancelled
//  5. Gracefully shut down: finish in-flight requests, then close the store
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/http/handlers/user"
	"github.com/aanand-mishra/users-api/internal/http/router"
	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/storage/memory"
	"github.com/aanand-mishra/users-api/internal/storage/mongo"
	"github.com/aanand-mishra/users-api/internal/storage/observed"
	"github.com/aanand-mishra/users-api/internal/storage/postgres"
	"github.com/aanand-mishra/users-api/internal/storage/sqlite"
)

// App holds the long-lived dependencies of a running service.
type App struct {
	cfg    *config.Config
	log    *slog.Logger
	store  storage.Storage
	server *http.Server
}

// New opens the store and builds the HTTP server. The caller must call
// Run (which closes the store on return) or Close.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	handler := router.New(router.Options{
		Env: &user.Env{
			Storage:        store,
			Logger:         log,
			StrictNotFound: cfg.StrictNotFound,
		},
		ServerURL:     serverURL(cfg.HTTPServer.Addr),
		HealthTimeout: cfg.Storage.ConnectTimeout,
	})

	return &App{
		cfg:   cfg,
		log:   log,
		store: store,
		server: &http.Server{
			Addr:    cfg.HTTPServer.Addr,
			Handler: handler,

			ReadTimeout:  cfg.HTTPServer.ReadTimeout,
			WriteTimeout: cfg.HTTPServer.WriteTimeout,
			IdleTimeout:  cfg.HTTPServer.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
	}, nil
}

// OpenStorage connects to the backend named by cfg.Driver and wraps it
// with the observed decorator.
func OpenStorage(ctx context.Context, cfg config.Storage, log *slog.Logger) (storage.Storage, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var (
		store  storage.Storage
		system string
		err    error
	)

	switch cfg.Driver {
	case config.DriverMongo:
		system = "mongodb"
		store, err = mongo.New(ctx, mongo.Options{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			Collection:     cfg.MongoCollection,
			ConnectTimeout: cfg.ConnectTimeout,
		})
	case config.DriverSQLite:
		system = "sqlite"
		store, err = sqlite.New(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		system = "postgresql"
		store, err = postgres.New(ctx, cfg.PostgresDSN)
	case config.DriverMemory:
		system = "memory"
		store = memory.New()
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("app: open %s storage: %w", cfg.Driver, err)
	}

	log.Info("storage initialised", slog.String("driver", cfg.Driver))

	return observed.New(store, system,
		observed.WithLogger(log),
		observed.WithSlowThreshold(cfg.SlowOpThreshold),
	), nil
}

// serverURL turns a listen address into a browsable base URL.
// ":5000" and "0.0.0.0:5000" become "http://localhost:5000".
func serverURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Handler exposes the root handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPServer.Addr)
	if err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("app: listen on %s: %w", a.cfg.HTTPServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts the
// server down within the configured timeout and closes the store.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	a.log.Info("server started",
		slog.String("address", addr),
		slog.String("docs", serverURL(addr)+router.DocsPath),
	)

	serveErr := make(chan error, 1)
	go func() {
		// Serve returns http.ErrServerClosed once Shutdown is called.
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received, stopping server")
	case err, ok := <-serveErr:
		if !ok {
			break
		}
		a.log.Error("server encountered an error", slog.String("error", err.Error()))
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		runErr = errors.Join(runErr, fmt.Errorf("app: shutdown: %w", err))
	}
	<-serveErr

	if err := a.Close(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil {
		a.log.Info("server stopped gracefully")
	}
	return runErr
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	if err := a.store.Close(ctx); err != nil {
		return fmt.Errorf("app: close storage: %w", err)
	}
	return nil
}
