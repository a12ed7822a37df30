package mail

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dentalflow/internal/metrics"
	"dentalflow/internal/model"
)

type Outbox interface {
	PendingMail(ctx context.Context, limit int) ([]model.MailEnvelope, error)
	ClaimMail(ctx context.Context, id string) (bool, error)
	CompleteMail(ctx context.Context, id string, state model.DeliveryState, deliveryErr string) error
}

// Dispatcher polls PENDING envelopes, claims each one, sends it and writes
// the delivery outcome back onto the envelope.
type Dispatcher struct {
	outbox    Outbox
	sender    Sender
	metrics   *metrics.Metrics
	batchSize int
	interval  time.Duration
}

func NewDispatcher(outbox Outbox, sender Sender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		outbox:    outbox,
		sender:    sender,
		metrics:   m,
		batchSize: 25,
		interval:  2 * time.Second,
	}
}

func (d *Dispatcher) WithBatchSize(size int) *Dispatcher {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain processes one batch and returns how many envelopes it sent or failed.
func (d *Dispatcher) Drain(ctx context.Context) int {
	pending, err := d.outbox.PendingMail(ctx, d.batchSize)
	if err != nil {
		log.WithError(err).Error("mail: fetch pending failed")
		return 0
	}
	n := 0
	for _, env := range pending {
		if d.deliver(ctx, env) {
			n++
		}
	}
	return n
}

func (d *Dispatcher) deliver(ctx context.Context, env model.MailEnvelope) bool {
	ctx, span := otel.Tracer("dentalflow/mail").Start(ctx, "mail.deliver",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("mail.id", env.ID)))
	defer span.End()

	ok, err := d.outbox.ClaimMail(ctx, env.ID)
	if err != nil {
		log.WithError(err).WithField("mail_id", env.ID).Error("mail: claim failed")
		return false
	}
	if !ok {
		// another dispatcher has it
		return false
	}

	state, reason := model.DeliverySuccess, ""
	if err := d.sender.Send(ctx, Message{To: env.To, Subject: env.Subject, Text: env.Text}); err != nil {
		state, reason = model.DeliveryError, err.Error()
		span.SetStatus(codes.Error, reason)
	}

	entry := log.WithFields(log.Fields{"mail_id": env.ID, "state": string(state)})
	if err := d.outbox.CompleteMail(ctx, env.ID, state, reason); err != nil {
		entry.WithError(err).Error("mail: record outcome failed")
		return false
	}
	d.metrics.ObserveMail(string(state))
	if state == model.DeliveryError {
		entry.WithField("error", reason).Warn("mail: delivery failed")
	} else {
		entry.Info("mail: delivered")
	}
	return true
}
