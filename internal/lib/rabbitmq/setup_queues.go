package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации для привязки
// к обменнику events.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetAuditQueues возвращает очереди журнала аудита.
func GetAuditQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "events.audit", RoutingKey: AuditRoutingKey},
	}
}
