// Package auditlogger собирает приложение-потребитель журнала событий:
// читает события подписки из очереди RabbitMQ и пишет их в структурированный лог.
package auditlogger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/safekidsapps/account-hub/internal/config"
	"github.com/safekidsapps/account-hub/internal/models"
	"github.com/safekidsapps/account-hub/internal/rabbitmq"
)

type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &App{
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.AuditQueue, a.handleEvent)
	if err != nil {
		a.logger.Error("failed to start audit queue consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Audit logger shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}

func (a *App) handleEvent(body []byte) error {
	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode subscription event: %w", err)
	}

	a.logger.Info("subscription event",
		slog.String("id", event.ID),
		slog.String("email", event.Email),
		slog.String("event_type", event.EventType),
		slog.String("subscription_status", event.SubscriptionStatus),
		slog.Int64("timestamp", event.Timestamp),
		slog.Any("event_data", event.EventData))
	return nil
}
