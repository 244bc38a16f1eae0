package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// ApplicationStore implements store.ApplicationStore using PostgreSQL.
type ApplicationStore struct {
	pool *pgxpool.Pool
}

func NewApplicationStore(pool *pgxpool.Pool) *ApplicationStore {
	return &ApplicationStore{pool: pool}
}

func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (name, description, vendor, homepage)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, app.Name, app.Description, app.Vendor, app.Homepage)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrApplicationAlreadyExists
		}
		return fmt.Errorf("failed to create application: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("application", app.Name).
		Msg("Created application")

	return nil
}

func (s *ApplicationStore) Get(ctx context.Context, name string) (*models.Application, error) {
	query := `
		SELECT name, description, vendor, homepage
		FROM applications
		WHERE name = $1
	`

	var app models.Application
	err := s.pool.QueryRow(ctx, query, name).Scan(&app.Name, &app.Description, &app.Vendor, &app.Homepage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", mapPostgresError(err))
	}

	return &app, nil
}

func (s *ApplicationStore) List(ctx context.Context) ([]*models.Application, error) {
	query := `
		SELECT name, description, vendor, homepage
		FROM applications
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.Name, &app.Description, &app.Vendor, &app.Homepage); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, &app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

func (s *ApplicationStore) Delete(ctx context.Context, name string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM applications WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrApplicationNotFound
	}

	log.Info().
		Str("application", name).
		Msg("Deleted application")

	return nil
}
