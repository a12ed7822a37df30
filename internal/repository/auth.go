package repository

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
)

type AuthBackend interface {
	SignUp(ctx context.Context, email, password string) (model.Principal, error)
	SignIn(ctx context.Context, email, password string) (model.Principal, error)
	SignOut(ctx context.Context) error
	Principal() (model.Principal, bool)
	PutDentist(ctx context.Context, d model.Dentist) error
}

type AuthRepository struct {
	backend AuthBackend
}

func NewAuthRepository(b AuthBackend) *AuthRepository {
	return &AuthRepository{backend: b}
}

func (r *AuthRepository) Login(ctx context.Context, email, password string) (model.Principal, error) {
	return r.backend.SignIn(ctx, email, password)
}

// Register creates the account and then the dentist profile keyed by the
// account id. The two writes are not atomic: when the profile write fails the
// account stays behind and the error names the profile step.
func (r *AuthRepository) Register(ctx context.Context, name, email, password string) (model.Principal, error) {
	p, err := r.backend.SignUp(ctx, email, password)
	if err != nil {
		return model.Principal{}, err
	}
	if err := r.backend.PutDentist(ctx, model.Dentist{ID: p.ID, Name: name}); err != nil {
		log.WithError(err).WithField("account_id", p.ID).Error("register: account created but profile write failed")
		return model.Principal{}, fmt.Errorf("save dentist profile: %w", err)
	}
	return p, nil
}

func (r *AuthRepository) CurrentPrincipal() (model.Principal, bool) {
	return r.backend.Principal()
}

func (r *AuthRepository) Logout(ctx context.Context) error {
	return r.backend.SignOut(ctx)
}
