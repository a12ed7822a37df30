package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"dentalflow/internal/auth"
	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
)

// Remote is the client side of the DentalFlow service. It attaches the
// session's access token to every call and refreshes it once when the server
// rejects it.
type Remote struct {
	rpc      *rpc.Client
	sessions SessionStore

	mu      sync.Mutex
	session *Session
}

func New(cc grpc.ClientConnInterface, sessions SessionStore) (*Remote, error) {
	if sessions == nil {
		sessions = &MemorySessionStore{}
	}
	s, err := sessions.Load()
	if err != nil {
		return nil, err
	}
	return &Remote{rpc: rpc.NewClient(cc), sessions: sessions, session: s}, nil
}

// Dial opens a plaintext connection to target. The caller closes the
// returned connection.
func Dial(target string, sessions SessionStore) (*Remote, *grpc.ClientConn, error) {
	cc, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("client: dial %s: %w", target, err)
	}
	r, err := New(cc, sessions)
	if err != nil {
		cc.Close()
		return nil, nil, err
	}
	return r, cc, nil
}

func (r *Remote) Principal() (model.Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.Principal.ID == "" {
		return model.Principal{}, false
	}
	return r.session.Principal, true
}

func (r *Remote) setSession(resp *rpc.SessionResponse) error {
	s := &Session{
		Principal:    resp.Principal,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
	}
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
	return r.sessions.Save(s)
}

func (r *Remote) clearSession() error {
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()
	return r.sessions.Clear()
}

func (r *Remote) tokens() (access, refresh string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return "", ""
	}
	return r.session.AccessToken, r.session.RefreshToken
}

func (r *Remote) SignUp(ctx context.Context, email, password string) (model.Principal, error) {
	resp, err := r.rpc.SignUp(ctx, &rpc.SignUpRequest{Email: email, Password: password})
	if err != nil {
		return model.Principal{}, translate(err)
	}
	if err := r.setSession(resp); err != nil {
		return model.Principal{}, err
	}
	return resp.Principal, nil
}

func (r *Remote) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	resp, err := r.rpc.SignIn(ctx, &rpc.SignInRequest{Email: email, Password: password})
	if isUnauthenticated(err) {
		return model.Principal{}, &Error{Code: codes.Unauthenticated, Message: "invalid email or password", kind: auth.ErrInvalidCredentials}
	}
	if err != nil {
		return model.Principal{}, translate(err)
	}
	if err := r.setSession(resp); err != nil {
		return model.Principal{}, err
	}
	return resp.Principal, nil
}

// SignOut revokes the server-side refresh tokens and always clears the
// local session. A revocation failure is returned after the session is gone.
func (r *Remote) SignOut(ctx context.Context) error {
	var revokeErr error
	if access, _ := r.tokens(); access != "" {
		_, revokeErr = r.rpc.SignOut(withToken(ctx, access), &rpc.Empty{})
	}
	if err := r.clearSession(); err != nil {
		return err
	}
	if revokeErr != nil {
		log.WithError(revokeErr).Warn("client: server-side sign out failed")
		return translate(revokeErr)
	}
	return nil
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// authed runs call with the access token, refreshing and retrying once on
// Unauthenticated.
func (r *Remote) authed(ctx context.Context, call func(ctx context.Context) error) error {
	access, refresh := r.tokens()
	if access == "" {
		return ErrNotSignedIn
	}
	err := call(withToken(ctx, access))
	if !isUnauthenticated(err) || refresh == "" {
		return translate(err)
	}

	resp, rerr := r.rpc.Refresh(ctx, &rpc.RefreshRequest{RefreshToken: refresh})
	if rerr != nil {
		log.WithError(rerr).Info("client: session expired")
		if cerr := r.clearSession(); cerr != nil {
			log.WithError(cerr).Warn("client: clear session")
		}
		return translate(err)
	}
	if err := r.setSession(resp); err != nil {
		return err
	}
	return translate(call(withToken(ctx, resp.AccessToken)))
}

func (r *Remote) PutDentist(ctx context.Context, d model.Dentist) error {
	return r.authed(ctx, func(ctx context.Context) error {
		_, err := r.rpc.PutDentist(ctx, &rpc.PutDentistRequest{ID: d.ID, Name: d.Name})
		return err
	})
}

func (r *Remote) GetDentist(ctx context.Context, id string) (*model.Dentist, error) {
	var out *model.Dentist
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.GetDentist(ctx, &rpc.GetDentistRequest{ID: id})
		if err == nil {
			out = &resp.Dentist
		}
		return err
	})
	return out, err
}

func (r *Remote) CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.CreateAppointment(ctx, &rpc.CreateAppointmentRequest{Appointment: rpc.InputFrom(a)})
		if err == nil {
			out = &resp.Appointment
		}
		return err
	})
	return out, err
}

func (r *Remote) ListAppointments(ctx context.Context, dentistID string) ([]model.Appointment, error) {
	var out []model.Appointment
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.ListAppointments(ctx, &rpc.ListAppointmentsRequest{DentistID: dentistID})
		if err == nil {
			out = resp.Appointments
		}
		return err
	})
	return out, err
}

func (r *Remote) UpdateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.UpdateAppointment(ctx, &rpc.UpdateAppointmentRequest{Appointment: rpc.InputFrom(a)})
		if err == nil {
			out = &resp.Appointment
		}
		return err
	})
	return out, err
}

func (r *Remote) DeleteAppointment(ctx context.Context, id string) error {
	return r.authed(ctx, func(ctx context.Context) error {
		_, err := r.rpc.DeleteAppointment(ctx, &rpc.DeleteAppointmentRequest{ID: id})
		return err
	})
}

func (r *Remote) EnqueueMail(ctx context.Context, env model.MailEnvelope) (*model.MailEnvelope, error) {
	var out *model.MailEnvelope
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.EnqueueMail(ctx, &rpc.EnqueueMailRequest{
			To: env.To, Subject: env.Subject, Text: env.Text, AppointmentID: env.AppointmentID,
		})
		if err == nil {
			out = &resp.Mail
		}
		return err
	})
	return out, err
}

func (r *Remote) GetMail(ctx context.Context, id string) (*model.MailEnvelope, error) {
	var out *model.MailEnvelope
	err := r.authed(ctx, func(ctx context.Context) error {
		resp, err := r.rpc.GetMail(ctx, &rpc.GetMailRequest{ID: id})
		if err == nil {
			out = &resp.Mail
		}
		return err
	})
	return out, err
}

// IsSignedOut reports whether err means the user has to sign in again.
func IsSignedOut(err error) bool {
	return errors.Is(err, ErrNotSignedIn) || errors.Is(err, ErrUnauthenticated)
}
