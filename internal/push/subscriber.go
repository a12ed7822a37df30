package push

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

type subscribeChannel interface {
	declarer
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Subscribe binds a private queue to topic and calls handle for every message
// until ctx is done or the broker closes the delivery channel.
func Subscribe(ctx context.Context, ch subscribeChannel, topic string, handle func(Message)) error {
	if err := DeclareExchange(ch); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("push: declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, topic, Exchange, false, nil); err != nil {
		return fmt.Errorf("push: bind queue to topic %q: %w", topic, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("push: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("push: delivery channel closed")
			}
			var msg Message
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.WithError(err).Warn("push: dropping malformed message")
				continue
			}
			handle(msg)
		}
	}
}
