package store

import (
	"context"
	"fmt"

	"dentalflow/internal/model"
)

// PutDentist writes the profile keyed by the principal id. Profiles are
// written once; a second write reports ErrDuplicate.
func (s *Store) PutDentist(ctx context.Context, d model.Dentist) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO dentists (id, name) VALUES ($1,$2)
		 ON CONFLICT (id) DO NOTHING`,
		d.ID, d.Name,
	)
	if err != nil {
		return fmt.Errorf("store: put dentist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *Store) GetDentist(ctx context.Context, id string) (*model.Dentist, error) {
	d := &model.Dentist{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM dentists WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}
