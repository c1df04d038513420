package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"libraryapi/internal/auth"
	"libraryapi/internal/book"
	"libraryapi/internal/borrow"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/ingest"
	"libraryapi/internal/metrics"
	"libraryapi/internal/platform/logger"
	"libraryapi/internal/platform/openlibrary"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/server"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.DatabaseDSN, 2*time.Second)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("database connection OK", "dsn", config.RedactDSN(cfg.DatabaseDSN))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	bookRepo := book.NewPostgresRepo(pool, cfg.DBTimeout)
	borrowRepo := borrow.NewPostgresRepo(pool, cfg.DBTimeout)
	userRepo := user.NewPostgresRepo(pool, cfg.DBTimeout)
	sessionRepo := session.NewPostgresRepo(pool, cfg.DBTimeout)
	blacklistRepo := session.NewBlacklistPostgresRepo(pool, cfg.DBTimeout)
	importRepo := ingest.NewPostgresRepo(pool, cfg.DBTimeout)

	olClient := openlibrary.NewClient(cfg.OpenLibraryUserAgent, cfg.OpenLibraryRPS)

	bookService := book.NewService(bookRepo, olClient)
	borrowService := borrow.NewService(borrowRepo, collector, log)
	userService := user.NewService(userRepo)
	sessionService := session.NewService(sessionRepo, blacklistRepo)
	authService := auth.NewService(cfg.JWTSecret, userService, sessionService)
	importService := ingest.NewService(bookService, importRepo, ingest.Config{Workers: cfg.ImportWorkers}, log)
	defer importService.Close()

	go sessionService.RunCleanup(ctx, cfg.SessionCleanupInterval, log)

	limiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := server.NewRouter(server.RouterDeps{
		Logger:    log,
		JWTSecret: cfg.JWTSecret,
		Blacklist: sessionService,
		DB:        pool,

		Books:    book.NewHTTPHandler(bookService, log),
		Borrows:  borrow.NewHTTPHandler(borrowService, log),
		Users:    user.NewHTTPHandler(userService, log),
		Auth:     auth.NewHTTPHandler(authService, log),
		Sessions: session.NewHTTPHandler(sessionService, log),
		Imports:  ingest.NewHTTPHandler(importService, log),

		Metrics:      metrics.Handler(reg),
		ObserveHTTP:  collector.ObserveHTTP,
		RateLimit:    limiter.Middleware,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		EnableHSTS:   cfg.EnableHSTS,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
