package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"blog_auth/internal/config"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/mailer"
	"blog_auth/internal/observability"
	"blog_auth/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailer()
	log := setupLogger(cfg.Env)

	log.Info("Starting mailer", slog.String("env", cfg.Env))

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.TracesSampleRate); err != nil {
		log.Error("failed to init sentry", sl.Err(err))
	}
	defer observability.FlushSentry()

	startConsumer(ctx, cfg, log)
}

func startConsumer(ctx context.Context, cfg *config.MailerConfig, log *slog.Logger) {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	m := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := r.Consume(ctx, log, m.Notify); err != nil {
			log.Error("consumer stopped", sl.Err(err))
		}
	}()

	log.Info("consumer successfully started", slog.String("queue", cfg.RabbitMQ.QueueName))

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		<-done
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
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
