package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dentalflow/internal/model"
)

const mailColumns = `id, recipient, subject, body, COALESCE(appointment_id, ''), created_by,
	delivery_state, delivery_error, attempts, started_at, ended_at, created_at, updated_at`

func scanMail(row pgx.Row, m *model.MailEnvelope) error {
	var state string
	err := row.Scan(
		&m.ID, &m.To, &m.Subject, &m.Text, &m.AppointmentID, &m.CreatedBy,
		&state, &m.Delivery.Error, &m.Delivery.Attempts,
		&m.Delivery.StartedAt, &m.Delivery.EndedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	m.Delivery.State = model.DeliveryState(state)
	return err
}

// CreateMail enqueues an envelope in the PENDING state.
func (s *Store) CreateMail(ctx context.Context, m *model.MailEnvelope) error {
	m.ID = uuid.New().String()
	m.Delivery = model.Delivery{State: model.DeliveryPending}

	var appointmentID *string
	if m.AppointmentID != "" {
		appointmentID = &m.AppointmentID
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO mail (id, recipient, subject, body, appointment_id, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		m.ID, m.To, m.Subject, m.Text, appointmentID, m.CreatedBy,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert mail: %w", err)
	}
	return nil
}

func (s *Store) GetMail(ctx context.Context, id string) (*model.MailEnvelope, error) {
	m := &model.MailEnvelope{}
	err := scanMail(s.pool.QueryRow(ctx,
		`SELECT `+mailColumns+` FROM mail WHERE id = $1`, id), m)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (s *Store) PendingMail(ctx context.Context, limit int) ([]model.MailEnvelope, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+mailColumns+` FROM mail
		 WHERE delivery_state = 'PENDING'
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: fetch pending mail: %w", err)
	}
	defer rows.Close()

	var out []model.MailEnvelope
	for rows.Next() {
		var m model.MailEnvelope
		if err := scanMail(rows, &m); err != nil {
			return nil, fmt.Errorf("store: scan mail: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClaimMail moves a PENDING envelope to PROCESSING. It reports false when
// another dispatcher got there first.
func (s *Store) ClaimMail(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mail
		 SET delivery_state = 'PROCESSING', attempts = attempts + 1, started_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND delivery_state = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("store: claim mail: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteMail records the final delivery outcome.
func (s *Store) CompleteMail(ctx context.Context, id string, state model.DeliveryState, deliveryErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mail
		 SET delivery_state = $1, delivery_error = $2, ended_at = NOW(), updated_at = NOW()
		 WHERE id = $3`, string(state), deliveryErr, id)
	if err != nil {
		return fmt.Errorf("store: complete mail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
