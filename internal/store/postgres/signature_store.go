package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// SignatureStore implements store.SignatureStore using PostgreSQL, keeping
// the whole signature set as one JSONB document per tenant.
type SignatureStore struct {
	pool *pgxpool.Pool
}

func NewSignatureStore(pool *pgxpool.Pool) *SignatureStore {
	return &SignatureStore{pool: pool}
}

func (s *SignatureStore) SaveIdentitySignature(ctx context.Context, tenantIdentifier string, set *models.ApplicationSignatureSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode signature set: %w", err)
	}

	query := `
		INSERT INTO tenant_signatures (tenant_identifier, signature_set, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_identifier) DO UPDATE SET
			signature_set = EXCLUDED.signature_set,
			updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, tenantIdentifier, raw); err != nil {
		return fmt.Errorf("failed to save identity signature: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("tenant", tenantIdentifier).
		Str("timestamp", set.Timestamp).
		Msg("Saved identity signature set")

	return nil
}

func (s *SignatureStore) GetIdentitySignature(ctx context.Context, tenantIdentifier string) (*models.ApplicationSignatureSet, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT signature_set FROM tenant_signatures WHERE tenant_identifier = $1`,
		tenantIdentifier).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSignatureNotFound
		}
		return nil, fmt.Errorf("failed to get identity signature: %w", mapPostgresError(err))
	}

	var set models.ApplicationSignatureSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("failed to decode signature set: %w", err)
	}

	return &set, nil
}

func (s *SignatureStore) DeleteTenant(ctx context.Context, tenantIdentifier string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM tenant_signatures WHERE tenant_identifier = $1`, tenantIdentifier); err != nil {
		return fmt.Errorf("failed to delete identity signature: %w", mapPostgresError(err))
	}
	return nil
}
