package rpc

import (
	"time"

	"dentalflow/internal/model"
)

type Empty struct{}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SessionResponse struct {
	Principal    model.Principal `json:"principal"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

type PutDentistRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type GetDentistRequest struct {
	ID string `json:"id" validate:"required"`
}

type DentistResponse struct {
	Dentist model.Dentist `json:"dentist"`
}

// AppointmentInput is the client-writable part of an appointment.
type AppointmentInput struct {
	ID           string            `json:"id,omitempty"`
	PatientName  string            `json:"patient_name"`
	PatientPhone string            `json:"patient_phone"`
	PatientEmail string            `json:"patient_email" validate:"omitempty,email"`
	EmailStatus  model.EmailStatus `json:"email_status,omitempty" validate:"omitempty,oneof=UNKNOWN PENDING SENT ERROR"`
	DentistID    string            `json:"dentist_id"`
	DentistName  string            `json:"dentist_name"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Procedure    string            `json:"procedure"`
	Status       string            `json:"status"`
	Notes        string            `json:"notes"`
	Version      int64             `json:"version,omitempty"`
}

func InputFrom(a model.Appointment) AppointmentInput {
	return AppointmentInput{
		ID:           a.ID,
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		PatientEmail: a.PatientEmail,
		EmailStatus:  a.EmailStatus,
		DentistID:    a.DentistID,
		DentistName:  a.DentistName,
		Date:         a.Date,
		Time:         a.Time,
		Procedure:    a.Procedure,
		Status:       a.Status,
		Notes:        a.Notes,
		Version:      a.Version,
	}
}

func (in AppointmentInput) Appointment() model.Appointment {
	return model.Appointment{
		ID:           in.ID,
		PatientName:  in.PatientName,
		PatientPhone: in.PatientPhone,
		PatientEmail: in.PatientEmail,
		EmailStatus:  in.EmailStatus,
		DentistID:    in.DentistID,
		DentistName:  in.DentistName,
		Date:         in.Date,
		Time:         in.Time,
		Procedure:    in.Procedure,
		Status:       in.Status,
		Notes:        in.Notes,
		Version:      in.Version,
	}
}

type CreateAppointmentRequest struct {
	Appointment AppointmentInput `json:"appointment"`
}

type UpdateAppointmentRequest struct {
	Appointment AppointmentInput `json:"appointment"`
}

type AppointmentResponse struct {
	Appointment model.Appointment `json:"appointment"`
}

type ListAppointmentsRequest struct {
	DentistID string `json:"dentist_id" validate:"required"`
}

type ListAppointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
}

type DeleteAppointmentRequest struct {
	ID string `json:"id" validate:"required"`
}

type EnqueueMailRequest struct {
	To            string `json:"to" validate:"required,email"`
	Subject       string `json:"subject" validate:"required"`
	Text          string `json:"text"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

type GetMailRequest struct {
	ID string `json:"id" validate:"required"`
}

type MailResponse struct {
	Mail model.MailEnvelope `json:"mail"`
}
