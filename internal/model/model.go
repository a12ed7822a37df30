package model

import "time"

type EmailStatus string

const (
	EmailUnknown EmailStatus = "UNKNOWN"
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailError   EmailStatus = "ERROR"
)

// conventional lifecycle statuses; the field itself is free text
const (
	StatusScheduled = "Scheduled"
	StatusConfirmed = "Confirmed"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

type Appointment struct {
	ID           string      `json:"id"`
	PatientName  string      `json:"patient_name"`
	PatientPhone string      `json:"patient_phone"`
	PatientEmail string      `json:"patient_email"`
	EmailStatus  EmailStatus `json:"email_status"`
	DentistID    string      `json:"dentist_id"`
	DentistName  string      `json:"dentist_name"`
	Date         string      `json:"date"` // dd/MM/yyyy
	Time         string      `json:"time"` // HH:mm
	Procedure    string      `json:"procedure"`
	Status       string      `json:"status"`
	Notes        string      `json:"notes"`
	CreatedBy    string      `json:"created_by"`
	Version      int64       `json:"version"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Dentist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Principal is the authenticated identity. Its ID doubles as the dentist ID.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DeliveryState string

const (
	DeliveryPending    DeliveryState = "PENDING"
	DeliveryProcessing DeliveryState = "PROCESSING"
	DeliverySuccess    DeliveryState = "SUCCESS"
	DeliveryError      DeliveryState = "ERROR"
)

// Delivery is written only by the mail dispatcher.
type Delivery struct {
	State     DeliveryState `json:"state"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

type MailEnvelope struct {
	ID            string    `json:"id"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Text          string    `json:"text"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	Delivery      Delivery  `json:"delivery"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
