package handler

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dentalflow/internal/auth"
	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
)

type Store interface {
	PutDentist(ctx context.Context, d model.Dentist) error
	GetDentist(ctx context.Context, id string) (*model.Dentist, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	ListAppointmentsByDentist(ctx context.Context, dentistID string) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	CreateMail(ctx context.Context, m *model.MailEnvelope) error
	GetMail(ctx context.Context, id string) (*model.MailEnvelope, error)
}

type Identity interface {
	SignUp(ctx context.Context, email, password string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	SignOut(ctx context.Context, accountID string) error
}

type Handler struct {
	store    Store
	identity Identity
	validate *validator.Validate
}

var _ rpc.DentalFlowServer = (*Handler)(nil)

func New(st Store, id Identity) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in violations
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{store: st, identity: id, validate: v}
}

func sessionResponse(s *auth.Session) *rpc.SessionResponse {
	return &rpc.SessionResponse{
		Principal:    s.Principal,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UTC().Truncate(time.Second),
	}
}
