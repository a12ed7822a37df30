package lifecycle

import (
	"context"

	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
)

type Accounts interface {
	Login(ctx context.Context, email, password string) (model.Principal, error)
	Register(ctx context.Context, name, email, password string) (model.Principal, error)
	Logout(ctx context.Context) error
}

// LoginState carries the dentist id on Success.
type LoginState struct {
	Phase     Phase
	DentistID string
	Message   string
}

type RegisterState struct {
	Phase   Phase
	Message string
}

type AuthState struct {
	Login    LoginState
	Register RegisterState
}

type AuthController struct {
	accounts Accounts
	state    *observable[AuthState]
}

func NewAuthController(accounts Accounts) *AuthController {
	return &AuthController{accounts: accounts, state: newObservable(AuthState{}, nil)}
}

func (c *AuthController) State() AuthState { return c.state.get() }

func (c *AuthController) Subscribe() (<-chan AuthState, func()) { return c.state.subscribe() }

func (c *AuthController) Login(ctx context.Context, email, password string) LoginState {
	c.state.update(func(s *AuthState) { s.Login = LoginState{Phase: PhaseLoading} })

	p, err := c.accounts.Login(ctx, email, password)
	var next LoginState
	switch {
	case err != nil:
		next = LoginState{Phase: PhaseError, Message: message(err, "Unknown error")}
	case p.ID == "":
		next = LoginState{Phase: PhaseError, Message: "User not found after login."}
	default:
		next = LoginState{Phase: PhaseSuccess, DentistID: p.ID}
	}
	return c.state.update(func(s *AuthState) { s.Login = next }).Login
}

func (c *AuthController) Register(ctx context.Context, name, email, password string) RegisterState {
	c.state.update(func(s *AuthState) { s.Register = RegisterState{Phase: PhaseLoading} })

	next := RegisterState{Phase: PhaseSuccess}
	if _, err := c.accounts.Register(ctx, name, email, password); err != nil {
		next = RegisterState{Phase: PhaseError, Message: message(err, "Registration failed")}
	}
	return c.state.update(func(s *AuthState) { s.Register = next }).Register
}

// Logout resets both phases. The local session is gone even when an error
// is returned.
func (c *AuthController) Logout(ctx context.Context) error {
	err := c.accounts.Logout(ctx)
	if err != nil {
		log.WithError(err).Warn("logout: server-side revocation failed")
	}
	c.state.update(func(s *AuthState) { *s = AuthState{} })
	return err
}

func (c *AuthController) ResetLogin() {
	c.state.update(func(s *AuthState) { s.Login = LoginState{} })
}

func (c *AuthController) ResetRegister() {
	c.state.update(func(s *AuthState) { s.Register = RegisterState{} })
}
