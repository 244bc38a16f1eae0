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

// TenantStore implements store.TenantStore using PostgreSQL. It is the
// relational half of the dual-backend tenant repository and carries the
// tenant's database connection info.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a new PostgreSQL-backed tenant store. It shares the
// connection pool with the other stores.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	dbInfo := tenant.DatabaseConnectionInfo
	if dbInfo == nil {
		dbInfo = &models.DatabaseConnectionInfo{}
	}

	query := `
		INSERT INTO tenants (
			identifier, name, description,
			driver_class, host, port, database_name, db_user, db_password
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		tenant.Identifier,
		tenant.Name,
		tenant.Description,
		dbInfo.DriverClass,
		dbInfo.Host,
		dbInfo.Port,
		dbInfo.DatabaseName,
		dbInfo.User,
		dbInfo.Password,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrTenantAlreadyExists
		}
		return fmt.Errorf("failed to create tenant: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("tenant", tenant.Identifier).
		Msg("Created tenant record")

	return nil
}

func (s *TenantStore) Get(ctx context.Context, identifier string) (*models.Tenant, error) {
	query := `
		SELECT identifier, name, description,
			driver_class, host, port, database_name, db_user, db_password,
			identity_manager_application_name, identity_manager_application_uri
		FROM tenants
		WHERE identifier = $1
	`

	tenant, err := scanTenant(s.pool.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", mapPostgresError(err))
	}

	return tenant, nil
}

func (s *TenantStore) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `
		SELECT identifier, name, description,
			driver_class, host, port, database_name, db_user, db_password,
			identity_manager_application_name, identity_manager_application_uri
		FROM tenants
		ORDER BY identifier
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}

	return tenants, nil
}

func (s *TenantStore) SetIdentityManager(ctx context.Context, identifier, appName, uri string) error {
	query := `
		UPDATE tenants SET
			identity_manager_application_name = $2,
			identity_manager_application_uri = $3
		WHERE identifier = $1
	`

	result, err := s.pool.Exec(ctx, query, identifier, appName, uri)
	if err != nil {
		return fmt.Errorf("failed to set identity manager: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	return nil
}

func (s *TenantStore) Delete(ctx context.Context, identifier string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE identifier = $1`, identifier)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	log.Info().
		Str("tenant", identifier).
		Msg("Deleted tenant record")

	return nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var (
		tenant models.Tenant
		dbInfo models.DatabaseConnectionInfo
		imName *string
		imURI  *string
	)

	err := row.Scan(
		&tenant.Identifier,
		&tenant.Name,
		&tenant.Description,
		&dbInfo.DriverClass,
		&dbInfo.Host,
		&dbInfo.Port,
		&dbInfo.DatabaseName,
		&dbInfo.User,
		&dbInfo.Password,
		&imName,
		&imURI,
	)
	if err != nil {
		return nil, err
	}

	if dbInfo.DatabaseName != "" {
		tenant.DatabaseConnectionInfo = &dbInfo
	}
	if imName != nil {
		tenant.IdentityManagerApplicationName = *imName
	}
	if imURI != nil {
		tenant.IdentityManagerApplicationURI = *imURI
	}

	return &tenant, nil
}
