package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// TenantStore implements store.TenantStore against the admin keyspace. It is
// the metadata half of the dual-backend tenant repository: name, description,
// keyspace connection info and the assigned identity manager live here.
type TenantStore struct {
	session *gocql.Session
}

func NewTenantStore(session *gocql.Session) *TenantStore {
	return &TenantStore{session: session}
}

func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	existing, err := s.Get(ctx, tenant.Identifier)
	if err != nil && !errors.Is(err, store.ErrTenantNotFound) {
		return err
	}
	if existing != nil {
		return store.ErrTenantAlreadyExists
	}

	info := tenant.CassandraConnectionInfo
	if info == nil {
		info = &models.CassandraConnectionInfo{}
	}

	err = s.session.Query(`
		INSERT INTO tenants (
			identifier, cluster_name, contact_points, keyspace_name,
			replication_type, replicas, name, description,
			identity_manager_application_name, identity_manager_application_uri
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.Identifier,
		info.ClusterName,
		info.ContactPoints,
		info.Keyspace,
		info.ReplicationType,
		info.Replicas,
		tenant.Name,
		tenant.Description,
		tenant.IdentityManagerApplicationName,
		tenant.IdentityManagerApplicationURI,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	log.Debug().
		Str("tenant", tenant.Identifier).
		Msg("Created tenant metadata")

	return nil
}

func (s *TenantStore) Get(ctx context.Context, identifier string) (*models.Tenant, error) {
	var (
		tenant models.Tenant
		info   models.CassandraConnectionInfo
	)

	err := s.session.Query(`
		SELECT identifier, cluster_name, contact_points, keyspace_name,
			replication_type, replicas, name, description,
			identity_manager_application_name, identity_manager_application_uri
		FROM tenants WHERE identifier = ?`, identifier).
		WithContext(ctx).
		Scan(
			&tenant.Identifier,
			&info.ClusterName,
			&info.ContactPoints,
			&info.Keyspace,
			&info.ReplicationType,
			&info.Replicas,
			&tenant.Name,
			&tenant.Description,
			&tenant.IdentityManagerApplicationName,
			&tenant.IdentityManagerApplicationURI,
		)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	tenant.CassandraConnectionInfo = &info
	return &tenant, nil
}

func (s *TenantStore) List(ctx context.Context) ([]*models.Tenant, error) {
	iter := s.session.Query(`
		SELECT identifier, cluster_name, contact_points, keyspace_name,
			replication_type, replicas, name, description,
			identity_manager_application_name, identity_manager_application_uri
		FROM tenants`).
		WithContext(ctx).
		Iter()

	var tenants []*models.Tenant
	for {
		var (
			tenant models.Tenant
			info   models.CassandraConnectionInfo
		)
		if !iter.Scan(
			&tenant.Identifier,
			&info.ClusterName,
			&info.ContactPoints,
			&info.Keyspace,
			&info.ReplicationType,
			&info.Replicas,
			&tenant.Name,
			&tenant.Description,
			&tenant.IdentityManagerApplicationName,
			&tenant.IdentityManagerApplicationURI,
		) {
			break
		}
		tenant.CassandraConnectionInfo = &info
		tenants = append(tenants, &tenant)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	return tenants, nil
}

func (s *TenantStore) SetIdentityManager(ctx context.Context, identifier, appName, uri string) error {
	// Read first so an update on a missing row surfaces as not-found instead
	// of Cassandra's silent upsert.
	if _, err := s.Get(ctx, identifier); err != nil {
		return err
	}

	err := s.session.Query(`
		UPDATE tenants SET
			identity_manager_application_name = ?,
			identity_manager_application_uri = ?
		WHERE identifier = ?`, appName, uri, identifier).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to set identity manager: %w", err)
	}

	return nil
}

func (s *TenantStore) Delete(ctx context.Context, identifier string) error {
	if _, err := s.Get(ctx, identifier); err != nil {
		return err
	}

	err := s.session.Query(`DELETE FROM tenants WHERE identifier = ?`, identifier).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	log.Info().
		Str("tenant", identifier).
		Msg("Deleted tenant metadata")

	return nil
}
