// Command mailer consumes reset e-mail requests queued by the API when it
// runs with the "redis" notifier and delivers them over SMTP.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/mailer"
	"github.com/dmitrijs2005/quicklyway/internal/redisx"
	"github.com/dmitrijs2005/quicklyway/internal/server"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/notify"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogFormat, cfg.Environment).With("app", "mailer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := redisx.NewClient(ctx, redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error(ctx, "redis connection failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	handler := mailer.NewResetHandler(notify.NewSMTPNotifier(server.SMTPConfig(cfg)), logger)
	consumer := mailer.NewConsumer(
		client,
		cfg.RedisMailStream,
		cfg.RedisMailGroup,
		cfg.RedisMailConsumer,
		cfg.RedisMailClaimInterval,
		logger,
		handler,
	)

	logger.Info(ctx, "mailer started", "stream", cfg.RedisMailStream, "group", cfg.RedisMailGroup)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "consumer stopped unexpectedly", "error", err)
		os.Exit(1)
	}

	logger.Info(ctx, "shutdown signal received")
}
