package store

import (
	"context"
	"fmt"

	"dentalflow/internal/model"
)

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash) VALUES ($1,$2,$3)`,
		a.ID, a.Email, a.PasswordHash,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("store: insert account: %w", err)
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	a := &model.Account{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM accounts WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) AccountByID(ctx context.Context, id string) (*model.Account, error) {
	a := &model.Account{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}
