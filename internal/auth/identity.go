package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
	"dentalflow/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

const RefreshTokenTTL = 30 * 24 * time.Hour

type AccountStore interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByEmail(ctx context.Context, email string) (*model.Account, error)
	AccountByID(ctx context.Context, id string) (*model.Account, error)
	CreateRefreshToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, accountID string) error
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Principal    model.Principal `json:"principal"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Provider is the identity service: accounts, access tokens and rotating
// refresh tokens.
type Provider struct {
	store  AccountStore
	secret string
	now    func() time.Time
}

func NewProvider(st AccountStore, secret string) *Provider {
	return &Provider{store: st, secret: secret, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	a := &model.Account{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	}
	if err := p.store.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.WithField("account_id", a.ID).Info("account created")
	return p.issue(ctx, a)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	a, err := p.store.AccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return p.issue(ctx, a)
}

// Refresh trades a refresh token for a new session. Presenting a revoked
// token revokes every token of the account.
func (p *Provider) Refresh(ctx context.Context, raw string) (*Session, error) {
	rt, err := p.store.RefreshTokenByHash(ctx, HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadToken
	}
	if err != nil {
		return nil, err
	}
	if rt.Revoked {
		log.WithField("account_id", rt.AccountID).Warn("refresh token reuse, revoking all")
		if err := p.store.RevokeAllRefreshTokens(ctx, rt.AccountID); err != nil {
			log.WithError(err).Error("revoke refresh tokens")
		}
		return nil, ErrBadToken
	}
	if p.now().After(rt.ExpiresAt) {
		return nil, ErrBadToken
	}

	a, err := p.store.AccountByID(ctx, rt.AccountID)
	if err != nil {
		return nil, err
	}
	access, err := MakeToken(a.ID, a.Email, p.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}
	newRaw, newHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("auth: refresh token: %w", err)
	}
	if err := p.store.RotateRefreshToken(ctx, rt.ID, uuid.New().String(), a.ID, newHash, p.now().Add(RefreshTokenTTL)); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrBadToken
		}
		return nil, err
	}
	return &Session{
		Principal:    model.Principal{ID: a.ID, Email: a.Email},
		AccessToken:  access,
		RefreshToken: newRaw,
		ExpiresAt:    p.now().Add(AccessTokenTTL),
	}, nil
}

func (p *Provider) SignOut(ctx context.Context, accountID string) error {
	return p.store.RevokeAllRefreshTokens(ctx, accountID)
}

func (p *Provider) issue(ctx context.Context, a *model.Account) (*Session, error) {
	access, err := MakeToken(a.ID, a.Email, p.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("auth: refresh token: %w", err)
	}
	if _, err := p.store.CreateRefreshToken(ctx, a.ID, hash, p.now().Add(RefreshTokenTTL)); err != nil {
		return nil, err
	}
	return &Session{
		Principal:    model.Principal{ID: a.ID, Email: a.Email},
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    p.now().Add(AccessTokenTTL),
	}, nil
}
