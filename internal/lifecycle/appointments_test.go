package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dentalflow/internal/lifecycle"
	"dentalflow/internal/model"
)

func ana() model.Appointment {
	return lifecycle.Form{
		PatientName: "Ana", PatientPhone: "11987654321", PatientEmail: "ana@x.com",
		Date: "10/05/2025", Time: "09:00", Procedure: "Cleaning",
	}.Appointment("D1", "Dr. Bia")
}

func TestCreateAppointmentSuccess(t *testing.T) {
	ctx := context.Background()
	in := ana()
	stored := in
	stored.ID = "A1"

	appts := &mockAppointments{}
	appts.On("Create", ctx, in).Return("A1", nil).Once()
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{stored}, nil).Once()

	mailer := &mockMailer{}
	mailer.On("Enqueue", mock.Anything, mock.MatchedBy(func(env model.MailEnvelope) bool {
		return env.To == "ana@x.com" && env.AppointmentID == "A1" && env.Subject == lifecycle.ConfirmationSubject
	})).Return("M1", nil).Once()

	c := lifecycle.NewAppointmentController(appts, mailer)
	got := c.CreateAppointment(ctx, in)
	c.WaitOutbound()

	require.Equal(t, lifecycle.PhaseSuccess, got.Phase)
	assert.Equal(t, "A1", got.Appointment.ID)
	assert.Equal(t, model.EmailPending, got.Appointment.EmailStatus)

	st := c.State()
	assert.Equal(t, got, st.Create)
	assert.Equal(t, []model.Appointment{stored}, st.Appointments)
	assert.False(t, st.Loading)
	assert.Equal(t, map[string]lifecycle.MailTask{
		"A1": {State: lifecycle.TaskQueued, AppointmentID: "A1", MailID: "M1"},
	}, st.Mail)

	appts.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestCreateAppointmentBlankEmailQueuesNothing(t *testing.T) {
	ctx := context.Background()
	in := ana()
	in.PatientEmail = "   "

	appts := &mockAppointments{}
	appts.On("Create", ctx, in).Return("A1", nil)
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{}, nil)
	mailer := &mockMailer{}

	c := lifecycle.NewAppointmentController(appts, mailer)
	got := c.CreateAppointment(ctx, in)
	c.WaitOutbound()

	assert.Equal(t, lifecycle.PhaseSuccess, got.Phase)
	assert.Equal(t, lifecycle.TaskNone, c.State().Mail["A1"].State)
	assert.Empty(t, c.State().Mail)
	mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestCreateAppointmentStoreFailure(t *testing.T) {
	ctx := context.Background()
	in := ana()

	appts := &mockAppointments{}
	appts.On("Create", ctx, in).Return("", errors.New("permission denied"))
	mailer := &mockMailer{}

	c := lifecycle.NewAppointmentController(appts, mailer)
	got := c.CreateAppointment(ctx, in)

	assert.Equal(t, lifecycle.CreateState{Phase: lifecycle.PhaseError, Message: "permission denied"}, got)
	appts.AssertNotCalled(t, "ListByDentist", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)

	c.ResetCreate()
	assert.Equal(t, lifecycle.PhaseIdle, c.State().Create.Phase)
}

func TestCreateAppointmentMailFailureDoesNotFailCreation(t *testing.T) {
	ctx := context.Background()
	in := ana()

	appts := &mockAppointments{}
	appts.On("Create", ctx, in).Return("A1", nil)
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{}, nil)
	mailer := &mockMailer{}
	mailer.On("Enqueue", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	c := lifecycle.NewAppointmentController(appts, mailer)
	got := c.CreateAppointment(ctx, in)
	c.WaitOutbound()

	assert.Equal(t, lifecycle.PhaseSuccess, got.Phase)
	mt := c.State().Mail["A1"]
	assert.Equal(t, lifecycle.TaskFailed, mt.State)
	assert.Equal(t, "quota exceeded", mt.Message)
}

func TestConfirmationOutcomesTrackedPerAppointment(t *testing.T) {
	ctx := context.Background()
	first := ana()
	second := ana()
	second.PatientName = "Bruno"
	second.PatientEmail = "bruno@x.com"

	appts := &mockAppointments{}
	appts.On("Create", ctx, first).Return("A1", nil).Once()
	appts.On("Create", ctx, second).Return("A2", nil).Once()
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{}, nil)

	release := make(chan time.Time)
	mailer := &mockMailer{}
	mailer.On("Enqueue", mock.Anything, mock.MatchedBy(func(env model.MailEnvelope) bool {
		return env.AppointmentID == "A1"
	})).WaitUntil(release).Return("M1", nil).Once()
	mailer.On("Enqueue", mock.Anything, mock.MatchedBy(func(env model.MailEnvelope) bool {
		return env.AppointmentID == "A2"
	})).Return("", errors.New("quota exceeded")).Once()

	c := lifecycle.NewAppointmentController(appts, mailer)
	require.Equal(t, lifecycle.PhaseSuccess, c.CreateAppointment(ctx, first).Phase)
	require.Equal(t, lifecycle.PhaseSuccess, c.CreateAppointment(ctx, second).Phase)

	require.Eventually(t, func() bool {
		return c.State().Mail["A2"].State == lifecycle.TaskFailed
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, lifecycle.TaskRunning, c.State().Mail["A1"].State)

	close(release)
	c.WaitOutbound()

	mail := c.State().Mail
	assert.Equal(t, lifecycle.MailTask{State: lifecycle.TaskQueued, AppointmentID: "A1", MailID: "M1"}, mail["A1"])
	assert.Equal(t, lifecycle.MailTask{State: lifecycle.TaskFailed, AppointmentID: "A2", Message: "quota exceeded"}, mail["A2"])
	mailer.AssertExpectations(t)
}

func TestCreateAppointmentReloadFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	in := ana()
	in.PatientEmail = ""

	appts := &mockAppointments{}
	appts.On("Create", ctx, in).Return("A1", nil)
	appts.On("ListByDentist", ctx, "D1").Return(nil, errors.New("offline"))

	c := lifecycle.NewAppointmentController(appts, &mockMailer{})
	got := c.CreateAppointment(ctx, in)

	assert.Equal(t, lifecycle.PhaseSuccess, got.Phase)
	assert.Empty(t, c.State().Appointments)
	assert.False(t, c.State().Loading)
}

func TestSubscribeSeesLoadingThenTerminal(t *testing.T) {
	ctx := context.Background()
	in := ana()
	in.PatientEmail = ""

	release := make(chan time.Time)
	appts := &mockAppointments{}
	appts.On("Create", ctx, in).WaitUntil(release).Return("A1", nil)
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{}, nil)

	c := lifecycle.NewAppointmentController(appts, &mockMailer{})
	updates, stop := c.Subscribe()
	defer stop()

	initial := <-updates
	assert.Equal(t, lifecycle.DentistNamePlaceholder, initial.DentistName)
	assert.Equal(t, lifecycle.PhaseIdle, initial.Create.Phase)

	done := make(chan lifecycle.CreateState, 1)
	go func() { done <- c.CreateAppointment(ctx, in) }()

	select {
	case s := <-updates:
		assert.Equal(t, lifecycle.PhaseLoading, s.Create.Phase)
	case <-time.After(2 * time.Second):
		t.Fatal("no loading snapshot")
	}
	close(release)
	final := <-done
	assert.Equal(t, lifecycle.PhaseSuccess, final.Phase)

	// the slot always holds the newest snapshot
	require.Eventually(t, func() bool {
		select {
		case s := <-updates:
			return s.Create.Phase == lifecycle.PhaseSuccess
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestLoadDentistName(t *testing.T) {
	ctx := context.Background()
	appts := &mockAppointments{}
	appts.On("DentistName", ctx, "D1").Return("Dr. Bia", nil).Once()
	appts.On("DentistName", ctx, "D2").Return("", errors.New("offline")).Once()

	c := lifecycle.NewAppointmentController(appts, &mockMailer{})
	assert.Equal(t, lifecycle.DentistNamePlaceholder, c.State().DentistName)

	require.NoError(t, c.LoadDentistName(ctx, "D1"))
	assert.Equal(t, "Dr. Bia", c.State().DentistName)

	assert.Error(t, c.LoadDentistName(ctx, "D2"))
	assert.Equal(t, "Dr. Bia", c.State().DentistName)
}

func TestUpdateAndDeleteReloadOnSuccessOnly(t *testing.T) {
	ctx := context.Background()
	a := ana()
	a.ID = "A1"
	a.Version = 2

	appts := &mockAppointments{}
	appts.On("Update", ctx, a).Return(a, nil).Once()
	appts.On("Delete", ctx, "A1").Return(nil).Once()
	appts.On("Delete", ctx, "A2").Return(errors.New("appointment not found")).Once()
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{a}, nil).Once()
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{}, nil).Once()

	c := lifecycle.NewAppointmentController(appts, &mockMailer{})

	require.NoError(t, c.UpdateAppointment(ctx, a))
	assert.Len(t, c.State().Appointments, 1)

	require.NoError(t, c.DeleteAppointment(ctx, "A1", "D1"))
	assert.Empty(t, c.State().Appointments)

	assert.EqualError(t, c.DeleteAppointment(ctx, "A2", "D1"), "appointment not found")
	appts.AssertNumberOfCalls(t, "ListByDentist", 2)
}

func TestStateSnapshotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := ana()
	appts := &mockAppointments{}
	appts.On("ListByDentist", ctx, "D1").Return([]model.Appointment{a}, nil)

	c := lifecycle.NewAppointmentController(appts, &mockMailer{})
	require.NoError(t, c.LoadAppointments(ctx, "D1"))

	snap := c.State()
	snap.Appointments[0].PatientName = "changed"
	snap.Mail["X"] = lifecycle.MailTask{State: lifecycle.TaskFailed}
	assert.Equal(t, "Ana", c.State().Appointments[0].PatientName)
	assert.Empty(t, c.State().Mail)
}
