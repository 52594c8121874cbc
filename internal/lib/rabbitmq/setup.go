package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// ExchangeEvents topic-обменник событий сервиса.
const ExchangeEvents = "bizledger.events"

// Ключи маршрутизации.
const (
	RoutingSubscriptionCreated = "subscription.created"
	RoutingSubscriptionRenewed = "subscription.renewed"
	RoutingSubscriptionExtend  = "subscription.extended"
	RoutingSubscriptionPlan    = "subscription.plan_changed"
	RoutingSubscriptionUpdated = "subscription.updated"
	RoutingSubscriptionRemoved = "subscription.deactivated"
	RoutingNotificationExpiry  = "notification.expiring"
)

// QueueConfig очередь и шаблон ключа, по которому она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues возвращает очереди, которые объявляет сервис.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscription.events", RoutingKey: "subscription.*"},
		{QueueName: "notification.expiring", RoutingKey: RoutingNotificationExpiry},
	}
}

// SetupChannel открывает канал и объявляет обменник и очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		ExchangeEvents,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err = ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err = ch.QueueBind(q.QueueName, q.RoutingKey, ExchangeEvents, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
