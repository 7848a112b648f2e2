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

	"blog_auth/internal/auth"
	"blog_auth/internal/config"
	"blog_auth/internal/http_server/router"
	"blog_auth/internal/lib/jwt"
	sl "blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/lib/password"
	"blog_auth/internal/lib/validation"
	"blog_auth/internal/observability"
	"blog_auth/internal/rabbitmq"
	"blog_auth/internal/registry"
	"blog_auth/internal/storage/postgres"
	"blog_auth/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.TracesSampleRate); err != nil {
		log.Error("failed to init sentry", sl.Err(err))
	}
	defer observability.FlushSentry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cancel, cfg, log); err != nil {
		log.Error("auth service failed", sl.Err(err))
		observability.FlushSentry()
		os.Exit(1)
	}

	log.Info("Main service stopped")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, log *slog.Logger) error {
	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	throttle, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer throttle.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer msgBroker.Close()

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return err
	}

	tokens, err := jwt.New(jwt.Config{
		Issuer:  cfg.Tokens.Issuer,
		Access:  jwt.SigningConfig{Secret: cfg.Tokens.AccessTokenSecret, TTL: cfg.Tokens.AccessTokenTTL},
		Refresh: jwt.SigningConfig{Secret: cfg.Tokens.RefreshTokenSecret, TTL: cfg.Tokens.RefreshTokenTTL},
	})
	if err != nil {
		return err
	}

	sessions := registry.New(log, hasher, storage)

	authService := auth.New(log, storage, hasher, tokens, sessions,
		auth.WithThrottle(throttle, auth.ThrottleConfig{
			MaxAttempts: cfg.LoginThrottle.MaxAttempts,
			Window:      cfg.LoginThrottle.Window,
		}),
		auth.WithPublisher(msgBroker),
	)

	if cfg.Admin.Email != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			return err
		}

		log.Info("admin account checked", slog.Bool("created", created))
	}

	r := router.NewAPI(log, validation.New(), authService, tokens, router.RateLimit{
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

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

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
