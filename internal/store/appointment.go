package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dentalflow/internal/model"
)

const appointmentColumns = `id, patient_name, patient_phone, patient_email, email_status,
	dentist_id, dentist_name, date, time, procedure, status, notes,
	created_by, version, created_at, updated_at`

func scanAppointment(row pgx.Row, a *model.Appointment) error {
	var emailStatus string
	err := row.Scan(
		&a.ID, &a.PatientName, &a.PatientPhone, &a.PatientEmail, &emailStatus,
		&a.DentistID, &a.DentistName, &a.Date, &a.Time, &a.Procedure, &a.Status, &a.Notes,
		&a.CreatedBy, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	a.EmailStatus = model.EmailStatus(emailStatus)
	return err
}

// CreateAppointment allocates the id and writes the full record.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	a.ID = uuid.New().String()
	if a.EmailStatus == "" {
		a.EmailStatus = model.EmailUnknown
	}
	if a.Status == "" {
		a.Status = model.StatusScheduled
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_name, patient_phone, patient_email, email_status,
		        dentist_id, dentist_name, date, time, procedure, status, notes, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 RETURNING version, created_at, updated_at`,
		a.ID, a.PatientName, a.PatientPhone, a.PatientEmail, string(a.EmailStatus),
		a.DentistID, a.DentistName, a.Date, a.Time, a.Procedure, a.Status, a.Notes, a.CreatedBy,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert appointment: %w", err)
	}
	return nil
}

// ListAppointmentsByDentist has no ordering guarantee; callers sort for display.
func (s *Store) ListAppointmentsByDentist(ctx context.Context, dentistID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE dentist_id = $1`, dentistID)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		var a model.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id), a)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// UpdateAppointment writes the client-editable fields when a.Version matches
// the stored version. email_status is owned by the server and is left alone.
// On success a carries the new version and the stored email status.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	var emailStatus string
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET patient_name=$1, patient_phone=$2, patient_email=$3, dentist_id=$4, dentist_name=$5,
		     date=$6, time=$7, procedure=$8, status=$9, notes=$10,
		     version=version+1, updated_at=NOW()
		 WHERE id=$11 AND version=$12
		 RETURNING email_status, version, created_by, created_at, updated_at`,
		a.PatientName, a.PatientPhone, a.PatientEmail, a.DentistID, a.DentistName,
		a.Date, a.Time, a.Procedure, a.Status, a.Notes, a.ID, a.Version,
	).Scan(&emailStatus, &a.Version, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err == nil {
		a.EmailStatus = model.EmailStatus(emailStatus)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("store: update appointment: %w", err)
	}

	// no row matched: tell a missing document from a stale version
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return fmt.Errorf("store: update appointment: %w", err)
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestAppointmentByPatientEmail returns at most one appointment: the most
// recently created one for that address.
func (s *Store) LatestAppointmentByPatientEmail(ctx context.Context, email string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE patient_email = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, email), a)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) SetEmailStatus(ctx context.Context, id string, st model.EmailStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET email_status=$1, version=version+1, updated_at=NOW() WHERE id=$2`,
		string(st), id)
	if err != nil {
		return fmt.Errorf("store: set email status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
