// Package provision creates and tears down the isolated datastores backing a
// tenant: a Cassandra keyspace, a relational database, or both, depending on
// which backends are enabled.
package provision

import (
	"context"

	"github.com/wolfeidau/provisioner/internal/models"
)

// Keyspaces is the keyspace side of tenant provisioning. Nil-able: a
// relational-only deployment carries no implementation.
type Keyspaces interface {
	Create(ctx context.Context, info *models.CassandraConnectionInfo) error
	Drop(ctx context.Context, info *models.CassandraConnectionInfo) error
}

// Databases is the relational side of tenant provisioning.
type Databases interface {
	Create(ctx context.Context, info *models.DatabaseConnectionInfo) error
	Drop(ctx context.Context, info *models.DatabaseConnectionInfo) error
}

// Provisioner fans tenant create/delete out to whichever datastore backends
// are enabled. There is no coordination between the two: a failure on the
// second backend leaves the first provisioned (best-effort, as with every
// other cross-system step in this service).
type Provisioner struct {
	keyspaces Keyspaces
	databases Databases
}

func New(keyspaces Keyspaces, databases Databases) *Provisioner {
	return &Provisioner{keyspaces: keyspaces, databases: databases}
}

func (p *Provisioner) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if p.keyspaces != nil && tenant.CassandraConnectionInfo != nil {
		if err := p.keyspaces.Create(ctx, tenant.CassandraConnectionInfo); err != nil {
			return err
		}
	}
	if p.databases != nil && tenant.DatabaseConnectionInfo != nil {
		if err := p.databases.Create(ctx, tenant.DatabaseConnectionInfo); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) DeleteTenant(ctx context.Context, tenant *models.Tenant) error {
	if p.keyspaces != nil && tenant.CassandraConnectionInfo != nil {
		if err := p.keyspaces.Drop(ctx, tenant.CassandraConnectionInfo); err != nil {
			return err
		}
	}
	if p.databases != nil && tenant.DatabaseConnectionInfo != nil {
		if err := p.databases.Drop(ctx, tenant.DatabaseConnectionInfo); err != nil {
			return err
		}
	}
	return nil
}
