package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/ec-cart/internal/config"
	"github.com/example/ec-cart/internal/email"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"github.com/example/ec-cart/internal/logging"
	"github.com/example/ec-cart/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[Notifier] Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.EventsEnabled() {
		logger.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := newSender(cfg.Mail)
	if err != nil {
		logger.Fatal("failed to build mail sender", zap.Error(err))
	}

	logger.Info("starting receipt notifier",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("mail_provider", cfg.Mail.Provider),
		zap.String("from", cfg.Mail.From),
	)

	handler := notification.NewHandler(email.NewService(sender), logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}

func newSender(cfg config.MailConfig) (email.Sender, error) {
	if cfg.Provider == config.MailSendGrid {
		return email.NewSendGridSender(cfg.SendGridAPIKey, cfg.From)
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.From), nil
}
