package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchanges  []string
	published  []amqp.Publishing
	keys       []string
	publishErr error

	bound      []string
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "amq.gen-1"}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bound = append(f.bound, name+"/"+exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func TestPublisherSend(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{Exchange + "/topic"}, ch.exchanges)

	fixed := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err = p.Send(context.Background(), Message{Title: "New appointment scheduled!", Body: "Patient: Ana", Sound: "default"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{Exchange + "/" + DefaultTopic}, ch.keys)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var got Message
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, "New appointment scheduled!", got.Title)
	assert.Equal(t, DefaultTopic, got.Topic)
	assert.True(t, fixed.Equal(got.SentAt))
}

func TestPublisherSendError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch, nil)
	require.NoError(t, err)

	assert.Error(t, p.Send(context.Background(), Message{Title: "x", Topic: "clinic-1"}))
}

func TestSubscribe(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	body, _ := json.Marshal(Message{Title: "hello", Topic: "all"})
	ch.deliveries <- amqp.Delivery{Body: []byte("not json")}
	ch.deliveries <- amqp.Delivery{Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	var got []Message
	err := Subscribe(ctx, ch, "all", func(m Message) {
		got = append(got, m)
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Title)
	assert.Equal(t, []string{"amq.gen-1/" + Exchange + "/all"}, ch.bound)
}

func TestSubscribeClosedChannel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	close(ch.deliveries)
	assert.Error(t, Subscribe(context.Background(), ch, "all", func(Message) {}))
}
