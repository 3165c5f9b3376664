package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/example/ec-cart/internal/config"
	"github.com/example/ec-cart/internal/email"
	"github.com/example/ec-cart/internal/logging"
	"github.com/example/ec-cart/internal/notification"
)

var (
	notificationHandler *notification.Handler
	logger              *zap.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Lambda Notifier] Invalid configuration: %v", err)
	}

	logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[Lambda Notifier] Failed to build logger: %v", err)
	}

	var sender email.Sender
	if cfg.Mail.Provider == config.MailSendGrid {
		sender, err = email.NewSendGridSender(cfg.Mail.SendGridAPIKey, cfg.Mail.From)
		if err != nil {
			logger.Fatal("failed to build sendgrid sender", zap.Error(err))
		}
	} else {
		sender = email.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.From)
	}

	notificationHandler = notification.NewHandler(email.NewService(sender), logger)
	logger.Info("lambda notifier initialized", zap.String("mail_provider", cfg.Mail.Provider))
}

// handler processes an MSK batch. Any failed record fails the invocation so
// the batch is retried.
func handler(ctx context.Context, event events.KafkaEvent) error {
	var total, failed int
	for partition, records := range event.Records {
		for _, record := range records {
			total++
			if err := processRecord(ctx, record); err != nil {
				failed++
				logger.Error("failed to process record",
					zap.String("partition", partition),
					zap.Int64("offset", record.Offset),
					zap.Error(err),
				)
			}
		}
	}

	logger.Info("batch processed", zap.Int("records", total), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, total)
	}
	return nil
}

func processRecord(ctx context.Context, record events.KafkaRecord) error {
	value, err := base64.StdEncoding.DecodeString(record.Value)
	if err != nil {
		return fmt.Errorf("failed to decode record value: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(record.Key)
	if err != nil {
		return fmt.Errorf("failed to decode record key: %w", err)
	}
	return notificationHandler.HandleEvent(ctx, key, value)
}

func main() {
	lambda.Start(handler)
}
