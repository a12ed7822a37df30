package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RefreshToken struct {
	ID         string
	AccountID  string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

func (s *Store) CreateRefreshToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		id, accountID, tokenHash, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("store: insert refresh token: %w", err)
	}
	return id, nil
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	rt := &RefreshToken{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, token_hash, expires_at, revoked, replaced_by, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&rt.ID, &rt.AccountID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.ReplacedBy, &rt.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return rt, nil
}

// RotateRefreshToken revokes oldID and links it to its replacement in one tx.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, replaced_by = $1 WHERE id = $2 AND revoked = false`,
		newID, oldID,
	)
	if err != nil {
		return fmt.Errorf("store: revoke refresh token: %w", err)
	}
	// lost a race with another rotation of the same token
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		newID, accountID, newHash, newExpiry,
	)
	if err != nil {
		return fmt.Errorf("store: insert refresh token: %w", err)
	}

	return tx.Commit(ctx)
}

// RevokeAllRefreshTokens runs on sign-out and on refresh token reuse.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE account_id = $1 AND revoked = false`,
		accountID,
	)
	return err
}
