package store

import (
	"context"

	"carestaff/internal/models"
)

type CareHomeStore struct {
	db DB
}

func NewCareHomeStore(db DB) *CareHomeStore {
	return &CareHomeStore{db: db}
}

func (s *CareHomeStore) Create(ctx context.Context, tx Execer, id, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO care_homes (id, name)
		VALUES ($1, $2)
	`, id, name)
	return err
}

func (s *CareHomeStore) GetByID(ctx context.Context, careHomeID string) (models.CareHome, error) {
	var home models.CareHome
	err := s.db.GetContext(ctx, &home, `
		SELECT id, name, created_at
		FROM care_homes
		WHERE id = $1
	`, careHomeID)
	return home, err
}

func (s *CareHomeStore) List(ctx context.Context) ([]models.CareHome, error) {
	var homes []models.CareHome
	err := s.db.SelectContext(ctx, &homes, `
		SELECT id, name, created_at
		FROM care_homes
		ORDER BY name
	`)
	return homes, err
}
