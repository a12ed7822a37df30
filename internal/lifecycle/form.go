package lifecycle

import (
	"errors"
	"strconv"
	"unicode"

	"github.com/go-playground/validator/v10"

	"dentalflow/internal/model"
)

// Form is the create/edit screen input.
type Form struct {
	PatientName  string `validate:"required"`
	PatientPhone string `validate:"mindigits=10"`
	PatientEmail string `validate:"omitempty,email"`
	Date         string `validate:"required"`
	Time         string `validate:"required"`
	Procedure    string `validate:"required"`
	Notes        string
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mindigits", func(fl validator.FieldLevel) bool {
		min, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		n := 0
		for _, r := range fl.Field().String() {
			if unicode.IsDigit(r) {
				n++
			}
		}
		return n >= min
	})
	return v
}

// ValidateForm returns the names of the invalid fields, nil when the form
// can be submitted.
func ValidateForm(f Form) []string {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func (f Form) Valid() bool { return len(ValidateForm(f)) == 0 }

// Appointment builds a new scheduled appointment for dentistID with its
// confirmation email still pending.
func (f Form) Appointment(dentistID, dentistName string) model.Appointment {
	return model.Appointment{
		PatientName:  f.PatientName,
		PatientPhone: f.PatientPhone,
		PatientEmail: f.PatientEmail,
		EmailStatus:  model.EmailPending,
		DentistID:    dentistID,
		DentistName:  dentistName,
		Date:         f.Date,
		Time:         f.Time,
		Procedure:    f.Procedure,
		Status:       model.StatusScheduled,
		Notes:        f.Notes,
	}
}

// FormFrom loads an existing appointment into the edit form.
func FormFrom(a model.Appointment) Form {
	return Form{
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		PatientEmail: a.PatientEmail,
		Date:         a.Date,
		Time:         a.Time,
		Procedure:    a.Procedure,
		Notes:        a.Notes,
	}
}

// Apply copies the editable fields onto a, keeping id, version and the
// server-owned fields.
func (f Form) Apply(a model.Appointment) model.Appointment {
	a.PatientName = f.PatientName
	a.PatientPhone = f.PatientPhone
	a.PatientEmail = f.PatientEmail
	a.Date = f.Date
	a.Time = f.Time
	a.Procedure = f.Procedure
	a.Notes = f.Notes
	return a
}
