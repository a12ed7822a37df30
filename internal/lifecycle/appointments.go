package lifecycle

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
)

// DentistNamePlaceholder is shown until the dentist's name has loaded.
const DentistNamePlaceholder = "Dr(a). ..."

type Appointments interface {
	Create(ctx context.Context, a model.Appointment) (string, error)
	ListByDentist(ctx context.Context, dentistID string) ([]model.Appointment, error)
	DentistName(ctx context.Context, dentistID string) (string, error)
	Update(ctx context.Context, a model.Appointment) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type Mailer interface {
	Enqueue(ctx context.Context, env model.MailEnvelope) (string, error)
}

// CreateState is the creation phase. Appointment is set on Success and
// Message on Error.
type CreateState struct {
	Phase       Phase
	Appointment model.Appointment
	Message     string
}

type TaskState int

const (
	TaskNone TaskState = iota
	TaskRunning
	TaskQueued
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskQueued:
		return "queued"
	case TaskFailed:
		return "failed"
	}
	return "none"
}

// MailTask is the outcome of one confirmation enqueue.
type MailTask struct {
	State         TaskState
	AppointmentID string
	MailID        string
	Message       string
}

type AppointmentState struct {
	Appointments []model.Appointment
	DentistName  string
	Loading      bool
	Create       CreateState
	// Mail holds one task per appointment id.
	Mail map[string]MailTask
}

func cloneAppointmentState(s AppointmentState) AppointmentState {
	s.Appointments = append([]model.Appointment(nil), s.Appointments...)
	mail := make(map[string]MailTask, len(s.Mail))
	for id, t := range s.Mail {
		mail[id] = t
	}
	s.Mail = mail
	return s
}

type AppointmentController struct {
	appts    Appointments
	mail     Mailer
	state    *observable[AppointmentState]
	outbound sync.WaitGroup
}

func NewAppointmentController(appts Appointments, mail Mailer) *AppointmentController {
	return &AppointmentController{
		appts: appts,
		mail:  mail,
		state: newObservable(AppointmentState{
			Appointments: []model.Appointment{},
			DentistName:  DentistNamePlaceholder,
			Mail:         map[string]MailTask{},
		}, cloneAppointmentState),
	}
}

func (c *AppointmentController) State() AppointmentState {
	return c.state.get()
}

// Subscribe returns a channel that always holds the latest snapshot, and a
// func to stop receiving.
func (c *AppointmentController) Subscribe() (<-chan AppointmentState, func()) {
	return c.state.subscribe()
}

// WaitOutbound blocks until every confirmation enqueue has finished.
func (c *AppointmentController) WaitOutbound() {
	c.outbound.Wait()
}

// CreateAppointment stores a, queues the confirmation mail when the patient
// has an email address, reloads the list and returns the terminal state.
func (c *AppointmentController) CreateAppointment(ctx context.Context, a model.Appointment) CreateState {
	c.state.update(func(s *AppointmentState) { s.Create = CreateState{Phase: PhaseLoading} })

	id, err := c.appts.Create(ctx, a)
	if err != nil {
		log.WithError(err).WithField("dentist_id", a.DentistID).Warn("create appointment failed")
		return c.state.update(func(s *AppointmentState) {
			s.Create = CreateState{Phase: PhaseError, Message: message(err, "Failed to create appointment")}
		}).Create
	}

	final := a
	final.ID = id
	if strings.TrimSpace(final.PatientEmail) != "" {
		c.sendConfirmation(ctx, final)
	}

	_ = c.LoadAppointments(ctx, final.DentistID)

	return c.state.update(func(s *AppointmentState) {
		s.Create = CreateState{Phase: PhaseSuccess, Appointment: final}
	}).Create
}

// sendConfirmation runs the enqueue in the background. Its outcome lands in
// State().Mail[a.ID] and never affects the creation phase.
func (c *AppointmentController) sendConfirmation(ctx context.Context, a model.Appointment) {
	env := ConfirmationMail(a)
	c.state.update(func(s *AppointmentState) {
		s.Mail[a.ID] = MailTask{State: TaskRunning, AppointmentID: a.ID}
	})

	ctx = context.WithoutCancel(ctx)
	c.outbound.Add(1)
	go func() {
		defer c.outbound.Done()
		entry := log.WithFields(log.Fields{"appointment_id": a.ID, "to": env.To})

		mailID, err := c.mail.Enqueue(ctx, env)
		if err != nil {
			entry.WithError(err).Error("confirmation mail not queued")
			c.state.update(func(s *AppointmentState) {
				s.Mail[a.ID] = MailTask{State: TaskFailed, AppointmentID: a.ID, Message: message(err, "Failed to queue email")}
			})
			return
		}
		entry.WithField("mail_id", mailID).Debug("confirmation mail queued")
		c.state.update(func(s *AppointmentState) {
			s.Mail[a.ID] = MailTask{State: TaskQueued, AppointmentID: a.ID, MailID: mailID}
		})
	}()
}

// LoadAppointments replaces the list. On failure the previous list is kept.
func (c *AppointmentController) LoadAppointments(ctx context.Context, dentistID string) error {
	c.state.update(func(s *AppointmentState) { s.Loading = true })

	list, err := c.appts.ListByDentist(ctx, dentistID)
	c.state.update(func(s *AppointmentState) {
		if err == nil {
			s.Appointments = list
		}
		s.Loading = false
	})
	if err != nil {
		log.WithError(err).WithField("dentist_id", dentistID).Warn("load appointments failed")
	}
	return err
}

func (c *AppointmentController) LoadDentistName(ctx context.Context, dentistID string) error {
	name, err := c.appts.DentistName(ctx, dentistID)
	if err != nil {
		log.WithError(err).WithField("dentist_id", dentistID).Warn("load dentist name failed")
		return err
	}
	c.state.update(func(s *AppointmentState) { s.DentistName = name })
	return nil
}

// UpdateAppointment writes a and reloads the list on success.
func (c *AppointmentController) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	if _, err := c.appts.Update(ctx, a); err != nil {
		log.WithError(err).WithField("appointment_id", a.ID).Warn("update appointment failed")
		return err
	}
	_ = c.LoadAppointments(ctx, a.DentistID)
	return nil
}

func (c *AppointmentController) DeleteAppointment(ctx context.Context, id, dentistID string) error {
	if err := c.appts.Delete(ctx, id); err != nil {
		log.WithError(err).WithField("appointment_id", id).Warn("delete appointment failed")
		return err
	}
	_ = c.LoadAppointments(ctx, dentistID)
	return nil
}

// ResetCreate returns the creation phase to Idle once the terminal state
// has been shown.
func (c *AppointmentController) ResetCreate() {
	c.state.update(func(s *AppointmentState) { s.Create = CreateState{Phase: PhaseIdle} })
}
