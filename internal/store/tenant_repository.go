package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/provisioner/internal/models"
)

// TenantRepository fronts the two optional tenant store adapters. Which
// adapters are set is decided once at wiring time from the DataStoreOption;
// reads and deletes honor the same enablement as writes, so a
// Cassandra-only configuration never touches the relational adapter and
// vice versa.
//
// The Cassandra adapter is the source of tenant metadata (name, description,
// identity manager); the relational adapter carries the database connection
// info. With both enabled, reads merge the two views.
type TenantRepository struct {
	cassandra TenantStore
	rdbms     TenantStore
}

func NewTenantRepository(cassandra, rdbms TenantStore) *TenantRepository {
	return &TenantRepository{cassandra: cassandra, rdbms: rdbms}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if r.cassandra != nil {
		if err := r.cassandra.Create(ctx, tenant); err != nil {
			return err
		}
	}
	if r.rdbms != nil {
		if err := r.rdbms.Create(ctx, tenant); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantRepository) Get(ctx context.Context, identifier string) (*models.Tenant, error) {
	var merged *models.Tenant

	if r.cassandra != nil {
		tenant, err := r.cassandra.Get(ctx, identifier)
		if err != nil {
			return nil, err
		}
		merged = tenant
	}

	if r.rdbms != nil {
		tenant, err := r.rdbms.Get(ctx, identifier)
		if err != nil {
			if errors.Is(err, ErrTenantNotFound) && merged != nil {
				return merged, nil
			}
			return nil, err
		}
		if merged == nil {
			return tenant, nil
		}
		merged.DatabaseConnectionInfo = tenant.DatabaseConnectionInfo
	}

	if merged == nil {
		return nil, ErrTenantNotFound
	}
	return merged, nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	if r.cassandra != nil {
		tenants, err := r.cassandra.List(ctx)
		if err != nil {
			return nil, err
		}
		if r.rdbms != nil {
			for _, tenant := range tenants {
				fromDB, err := r.rdbms.Get(ctx, tenant.Identifier)
				if err != nil {
					if errors.Is(err, ErrTenantNotFound) {
						continue
					}
					return nil, err
				}
				tenant.DatabaseConnectionInfo = fromDB.DatabaseConnectionInfo
			}
		}
		return tenants, nil
	}
	if r.rdbms != nil {
		return r.rdbms.List(ctx)
	}
	return nil, nil
}

func (r *TenantRepository) SetIdentityManager(ctx context.Context, identifier, appName, uri string) error {
	if r.cassandra != nil {
		if err := r.cassandra.SetIdentityManager(ctx, identifier, appName, uri); err != nil {
			return err
		}
	}
	if r.rdbms != nil {
		if err := r.rdbms.SetIdentityManager(ctx, identifier, appName, uri); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantRepository) Delete(ctx context.Context, identifier string) error {
	if r.cassandra != nil {
		if err := r.cassandra.Delete(ctx, identifier); err != nil && !errors.Is(err, ErrTenantNotFound) {
			return err
		}
	}
	if r.rdbms != nil {
		if err := r.rdbms.Delete(ctx, identifier); err != nil && !errors.Is(err, ErrTenantNotFound) {
			return err
		}
	}
	return nil
}
