package trigger

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
	"dentalflow/internal/store"
)

type AppointmentMarker interface {
	LatestAppointmentByPatientEmail(ctx context.Context, email string) (*model.Appointment, error)
	SetEmailStatus(ctx context.Context, id string, st model.EmailStatus) error
}

// Reconciler copies a failed delivery onto the appointment the mail was for.
// The match is by recipient address only, newest appointment first.
type Reconciler struct {
	store AppointmentMarker
}

func NewReconciler(st AppointmentMarker) *Reconciler {
	return &Reconciler{store: st}
}

// OnMailUpdated reports whether an appointment was marked.
func (r *Reconciler) OnMailUpdated(ctx context.Context, env *model.MailEnvelope) (bool, error) {
	if env.Delivery.State != model.DeliveryError {
		return false, nil
	}

	a, err := r.store.LatestAppointmentByPatientEmail(ctx, env.To)
	if errors.Is(err, store.ErrNotFound) {
		log.WithFields(log.Fields{"mail_id": env.ID, "to": env.To}).Info("reconcile: no appointment for failed mail")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reconcile: find appointment: %w", err)
	}

	if err := r.store.SetEmailStatus(ctx, a.ID, model.EmailError); err != nil {
		return false, fmt.Errorf("reconcile: mark appointment %s: %w", a.ID, err)
	}
	log.WithFields(log.Fields{
		"mail_id":        env.ID,
		"appointment_id": a.ID,
		"error":          env.Delivery.Error,
	}).Warn("reconcile: appointment email marked as failed")
	return true, nil
}
