package cassandra

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// AssignmentStore implements store.AssignmentStore against the admin
// keyspace.
type AssignmentStore struct {
	session *gocql.Session
}

func NewAssignmentStore(session *gocql.Session) *AssignmentStore {
	return &AssignmentStore{session: session}
}

func (s *AssignmentStore) Upsert(ctx context.Context, assignment *models.AssignedApplications) error {
	err := s.session.Query(`
		INSERT INTO tenant_applications (tenant_identifier, applications)
		VALUES (?, ?)`,
		assignment.TenantIdentifier, assignment.Applications).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}

	log.Debug().
		Str("tenant", assignment.TenantIdentifier).
		Strs("applications", assignment.Applications).
		Msg("Upserted tenant application assignment")

	return nil
}

func (s *AssignmentStore) Get(ctx context.Context, tenantIdentifier string) (*models.AssignedApplications, error) {
	var assignment models.AssignedApplications
	err := s.session.Query(`
		SELECT tenant_identifier, applications
		FROM tenant_applications WHERE tenant_identifier = ?`, tenantIdentifier).
		WithContext(ctx).
		Scan(&assignment.TenantIdentifier, &assignment.Applications)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, store.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return &assignment, nil
}

func (s *AssignmentStore) DeleteTenant(ctx context.Context, tenantIdentifier string) error {
	err := s.session.Query(`DELETE FROM tenant_applications WHERE tenant_identifier = ?`, tenantIdentifier).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) RemoveApplication(ctx context.Context, name string) error {
	iter := s.session.Query(`SELECT tenant_identifier, applications FROM tenant_applications`).
		WithContext(ctx).
		Iter()

	var assignments []*models.AssignedApplications
	for {
		var assignment models.AssignedApplications
		if !iter.Scan(&assignment.TenantIdentifier, &assignment.Applications) {
			break
		}
		if slices.Contains(assignment.Applications, name) {
			assignments = append(assignments, &assignment)
		}
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("failed to scan assignments: %w", err)
	}

	for _, assignment := range assignments {
		assignment.Applications = slices.DeleteFunc(assignment.Applications, func(app string) bool {
			return app == name
		})
		if err := s.Upsert(ctx, assignment); err != nil {
			return err
		}
	}

	return nil
}
