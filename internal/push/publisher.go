package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/metrics"
)

type publishChannel interface {
	declarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch      publishChannel
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPublisher declares the exchange on ch before returning.
func NewPublisher(ch publishChannel, m *metrics.Metrics) (*Publisher, error) {
	if err := DeclareExchange(ch); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, metrics: m, now: time.Now}, nil
}

// Send publishes msg to its topic, DefaultTopic when unset.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	if msg.Topic == "" {
		msg.Topic = DefaultTopic
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = p.now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("push: marshal message: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	err = p.ch.PublishWithContext(ctx, Exchange, msg.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.SentAt,
	})
	p.metrics.ObservePush(msg.Topic, err == nil)
	if err != nil {
		return fmt.Errorf("push: publish to topic %q: %w", msg.Topic, err)
	}

	log.WithFields(log.Fields{"topic": msg.Topic, "title": msg.Title}).Debug("push: message published")
	return nil
}
