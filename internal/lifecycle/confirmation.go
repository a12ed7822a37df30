package lifecycle

import (
	"fmt"

	"dentalflow/internal/model"
)

const ConfirmationSubject = "Appointment Confirmation - DentalFlow"

func ConfirmationMail(a model.Appointment) model.MailEnvelope {
	return model.MailEnvelope{
		To:      a.PatientEmail,
		Subject: ConfirmationSubject,
		Text: fmt.Sprintf(
			"Hello, %s! Your appointment for the procedure '%s' was scheduled successfully for %s at %s. See you then!",
			a.PatientName, a.Procedure, a.Date, a.Time),
		AppointmentID: a.ID,
	}
}
