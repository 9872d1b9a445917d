package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	rabbitmqlib "github.com/safekidsapps/account-hub/internal/lib/rabbitmq"
)

// AuditQueue очередь журнала аудита, привязанная к обменнику events.
const AuditQueue = "events.audit"

// SetupChannel открывает канал, объявляет обменник events и очереди
// журнала аудита с привязками по их ключам маршрутизации.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		rabbitmqlib.EventsExchange,
		"direct", // тип
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, queue := range rabbitmqlib.GetAuditQueues() {
		_, err = ch.QueueDeclare(
			queue.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, queue.QueueName, err)
		}

		err = ch.QueueBind(
			queue.QueueName,
			queue.RoutingKey,
			rabbitmqlib.EventsExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, queue.QueueName, err)
		}
	}

	return ch, nil
}
