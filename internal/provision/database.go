package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
)

// DatabaseProvisioner creates and drops the per-tenant relational database
// through the provisioner's admin connection.
type DatabaseProvisioner struct {
	pool *pgxpool.Pool
}

func NewDatabaseProvisioner(pool *pgxpool.Pool) *DatabaseProvisioner {
	return &DatabaseProvisioner{pool: pool}
}

// Create creates the tenant database. Database names pass through
// models.ValidateIdentifier before this runs, so direct interpolation is
// safe; CREATE DATABASE does not accept bind parameters anyway.
func (p *DatabaseProvisioner) Create(ctx context.Context, info *models.DatabaseConnectionInfo) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", info.DatabaseName))
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", info.DatabaseName, err)
	}

	log.Info().
		Str("database", info.DatabaseName).
		Msg("Created tenant database")

	return nil
}

// Drop removes the tenant database.
func (p *DatabaseProvisioner) Drop(ctx context.Context, info *models.DatabaseConnectionInfo) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("DROP DATABASE %s", info.DatabaseName))
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", info.DatabaseName, err)
	}

	log.Info().
		Str("database", info.DatabaseName).
		Msg("Dropped tenant database")

	return nil
}
