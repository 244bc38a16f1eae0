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

// AssignmentStore implements store.AssignmentStore using PostgreSQL.
type AssignmentStore struct {
	pool *pgxpool.Pool
}

func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

func (s *AssignmentStore) Upsert(ctx context.Context, assignment *models.AssignedApplications) error {
	query := `
		INSERT INTO tenant_applications (tenant_identifier, applications, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_identifier)
		DO UPDATE SET applications = EXCLUDED.applications, updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query, assignment.TenantIdentifier, assignment.Applications)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("tenant", assignment.TenantIdentifier).
		Strs("applications", assignment.Applications).
		Msg("Upserted tenant application assignment")

	return nil
}

func (s *AssignmentStore) Get(ctx context.Context, tenantIdentifier string) (*models.AssignedApplications, error) {
	query := `
		SELECT tenant_identifier, applications
		FROM tenant_applications
		WHERE tenant_identifier = $1
	`

	var assignment models.AssignedApplications
	err := s.pool.QueryRow(ctx, query, tenantIdentifier).Scan(&assignment.TenantIdentifier, &assignment.Applications)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", mapPostgresError(err))
	}

	return &assignment, nil
}

func (s *AssignmentStore) DeleteTenant(ctx context.Context, tenantIdentifier string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tenant_applications WHERE tenant_identifier = $1`, tenantIdentifier)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", mapPostgresError(err))
	}
	return nil
}

func (s *AssignmentStore) RemoveApplication(ctx context.Context, name string) error {
	query := `
		UPDATE tenant_applications
		SET applications = array_remove(applications, $1), updated_at = now()
		WHERE $1 = ANY(applications)
	`

	_, err := s.pool.Exec(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to remove application from assignments: %w", mapPostgresError(err))
	}
	return nil
}
