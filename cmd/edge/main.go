package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog_auth/internal/config"
	"blog_auth/internal/edge/apiclient"
	"blog_auth/internal/edge/proxy"
	"blog_auth/internal/http_server/handlers/edgesession"
	"blog_auth/internal/http_server/router"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/lib/session"
	"blog_auth/internal/lib/validation"
	"blog_auth/internal/middleware/routegate"
	"blog_auth/internal/observability"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	cfg := config.MustLoadEdge()

	log := setupLogger(cfg.Env)

	log.Info("starting edge gateway", slog.String("env", cfg.Env))

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.TracesSampleRate); err != nil {
		log.Error("failed to init sentry", sl.Err(err))
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("edge gateway failed", sl.Err(err))
		observability.FlushSentry()
		os.Exit(1)
	}

	log.Info("Edge gateway stopped")
}

func run(ctx context.Context, cfg *config.EdgeConfig, log *slog.Logger) error {
	codec, err := session.New(cfg.Session.Secret, session.WithTTL(cfg.Session.TTL))
	if err != nil {
		return err
	}

	pagesURL, err := url.Parse(cfg.Upstream.PagesURL)
	if err != nil {
		return err
	}

	api := apiclient.New(cfg.Upstream.APIURL, cfg.Upstream.Timeout)

	sessions := edgesession.New(log, validation.New(), api, codec, edgesession.Config{
		CookieName:  cfg.Session.CookieName,
		Secure:      cfg.Session.Secure,
		LoginPath:   cfg.Pages.Login,
		LandingPath: cfg.Pages.Landing,
	})

	gate := routegate.New(log, codec, routegate.Config{
		CookieName:  cfg.Session.CookieName,
		LoginPath:   cfg.Pages.Login,
		LandingPath: cfg.Pages.Landing,
		Rules:       routegate.DefaultRules(),
	})

	r := router.NewEdge(log, sessions, gate, proxy.New(log, pagesURL), router.RateLimit{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	return nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
