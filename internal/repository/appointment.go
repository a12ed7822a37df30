package repository

import (
	"context"
	"errors"
	"fmt"

	"dentalflow/internal/model"
	"dentalflow/internal/store"
)

// DentistNameFallback is shown when a dentist has no stored name.
const DentistNameFallback = "Name not found"

type AppointmentBackend interface {
	CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error)
	ListAppointments(ctx context.Context, dentistID string) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	GetDentist(ctx context.Context, id string) (*model.Dentist, error)
}

type AppointmentRepository struct {
	backend AppointmentBackend
}

func NewAppointmentRepository(b AppointmentBackend) *AppointmentRepository {
	return &AppointmentRepository{backend: b}
}

// Create stores a and returns the identifier the store assigned.
func (r *AppointmentRepository) Create(ctx context.Context, a model.Appointment) (string, error) {
	a.ID = ""
	created, err := r.backend.CreateAppointment(ctx, a)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// ListByDentist makes no ordering promise.
func (r *AppointmentRepository) ListByDentist(ctx context.Context, dentistID string) ([]model.Appointment, error) {
	list, err := r.backend.ListAppointments(ctx, dentistID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Appointment{}
	}
	return list, nil
}

func (r *AppointmentRepository) DentistName(ctx context.Context, dentistID string) (string, error) {
	d, err := r.backend.GetDentist(ctx, dentistID)
	if errors.Is(err, store.ErrNotFound) {
		return DentistNameFallback, nil
	}
	if err != nil {
		return "", err
	}
	if d.Name == "" {
		return DentistNameFallback, nil
	}
	return d.Name, nil
}

// Update writes a if its version is still current. The returned appointment
// carries the new version and the server-owned email status.
func (r *AppointmentRepository) Update(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if a.ID == "" {
		return model.Appointment{}, fmt.Errorf("update appointment: missing id")
	}
	updated, err := r.backend.UpdateAppointment(ctx, a)
	if err != nil {
		return model.Appointment{}, err
	}
	return *updated, nil
}

// Delete leaves any mail already queued for the appointment in place.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	return r.backend.DeleteAppointment(ctx, id)
}
