package repository

import (
	"context"

	"dentalflow/internal/model"
)

type MailBackend interface {
	EnqueueMail(ctx context.Context, env model.MailEnvelope) (*model.MailEnvelope, error)
}

// MailRepository queues envelopes for the dispatch worker. It never sends.
type MailRepository struct {
	backend MailBackend
}

func NewMailRepository(b MailBackend) *MailRepository {
	return &MailRepository{backend: b}
}

// Enqueue returns the envelope id.
func (r *MailRepository) Enqueue(ctx context.Context, env model.MailEnvelope) (string, error) {
	queued, err := r.backend.EnqueueMail(ctx, env)
	if err != nil {
		return "", err
	}
	return queued.ID, nil
}
