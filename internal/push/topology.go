package push

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange carries every push message; the routing key is the topic.
const Exchange = "push"

// DefaultTopic reaches every subscribed device.
const DefaultTopic = "all"

type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

// DeclareExchange is idempotent.
func DeclareExchange(ch declarer) error {
	err := ch.ExchangeDeclare(
		Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("push: declare exchange %q: %w", Exchange, err)
	}
	return nil
}
