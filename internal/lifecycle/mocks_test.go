package lifecycle_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dentalflow/internal/model"
)

type mockAppointments struct {
	mock.Mock
}

func (m *mockAppointments) Create(ctx context.Context, a model.Appointment) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}

func (m *mockAppointments) ListByDentist(ctx context.Context, dentistID string) ([]model.Appointment, error) {
	args := m.Called(ctx, dentistID)
	list, _ := args.Get(0).([]model.Appointment)
	return list, args.Error(1)
}

func (m *mockAppointments) DentistName(ctx context.Context, dentistID string) (string, error) {
	args := m.Called(ctx, dentistID)
	return args.String(0), args.Error(1)
}

func (m *mockAppointments) Update(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(model.Appointment), args.Error(1)
}

func (m *mockAppointments) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Enqueue(ctx context.Context, env model.MailEnvelope) (string, error) {
	args := m.Called(ctx, env)
	return args.String(0), args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (model.Principal, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *mockAccounts) Register(ctx context.Context, name, email, password string) (model.Principal, error) {
	args := m.Called(ctx, name, email, password)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *mockAccounts) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
