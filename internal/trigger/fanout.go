package trigger

import (
	"context"
	"fmt"

	"dentalflow/internal/model"
	"dentalflow/internal/push"
)

type Publisher interface {
	Send(ctx context.Context, msg push.Message) error
}

// FanOut announces every new appointment to one topic.
type FanOut struct {
	publisher Publisher
	topic     string
}

func NewFanOut(p Publisher, topic string) *FanOut {
	if topic == "" {
		topic = push.DefaultTopic
	}
	return &FanOut{publisher: p, topic: topic}
}

func (f *FanOut) OnAppointmentCreated(ctx context.Context, a *model.Appointment) error {
	msg := NewAppointmentMessage(a)
	msg.Topic = f.topic
	if err := f.publisher.Send(ctx, msg); err != nil {
		return fmt.Errorf("fanout: %w", err)
	}
	return nil
}

func NewAppointmentMessage(a *model.Appointment) push.Message {
	return push.Message{
		Title: "New appointment scheduled!",
		Body:  fmt.Sprintf("Patient: %s on %s at %s.", a.PatientName, a.Date, a.Time),
		Sound: "default",
		Topic: push.DefaultTopic,
	}
}
