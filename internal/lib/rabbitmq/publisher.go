// Package rabbitmq содержит публикацию сообщений аудита в RabbitMQ.
// Каждая мутация аккаунта, помимо записи в журнал в базе, публикует
// событие в обменник events для внешних потребителей.
package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// EventsExchange обменник для событий аудита.
const EventsExchange = "events"

// AuditRoutingKey ключ маршрутизации журнала аудита.
const AuditRoutingKey = "audit"

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EventBus обёртка канала для публикации событий аудита.
// Сервисы зависят от узкого интерфейса Publish, что упрощает мокирование.
type EventBus struct {
	ch *amqp.Channel
}

// NewEventBus создает новый EventBus поверх открытого канала.
func NewEventBus(ch *amqp.Channel) *EventBus {
	return &EventBus{ch: ch}
}

// Publish публикует событие аудита в обменник events.
func (b *EventBus) Publish(message any) error {
	return PublishMessage(b.ch, EventsExchange, AuditRoutingKey, message)
}
