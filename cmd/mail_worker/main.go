package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/config"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-mail-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		helpers.LogInfo(logger, "MAIL_SEND_ENABLED=false; mail worker disabled", nil)
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQMailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQMailQueue, 16)
	if err != nil {
		logger.Fatalf("rabbitmq: %v", err)
	}
	defer consumer.Close()

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range consumer.Deliveries {
			handle(ctx, logger, mg, msg)
		}
		close(done)
	}()

	helpers.LogInfo(logger, "mail worker listening", logrus.Fields{"queue": cfg.RabbitMQMailQueue})
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type deliverer interface {
	Deliver(ctx context.Context, job mailer.EmailJob) (string, error)
}

// handle renders and sends one job. Malformed jobs are dropped; delivery
// failures are requeued.
func handle(ctx context.Context, logger *logrus.Logger, mg deliverer, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		helpers.LogError(logger, "bad message", err, nil)
		_ = msg.Nack(false, false)
		return
	}
	fields := logrus.Fields{"to": job.To, "template": job.Template}
	if err := job.Render(); err != nil {
		helpers.LogError(logger, "render failed", err, fields)
		_ = msg.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	id, err := mg.Deliver(c, job)
	if err != nil {
		helpers.LogError(logger, "send failed", err, fields)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
	fields["message_id"] = id
	helpers.LogInfo(logger, "mail sent", fields)
}
