package cassandra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// SignatureStore implements store.SignatureStore against the admin keyspace,
// keeping the signature set as one JSON document per tenant.
type SignatureStore struct {
	session *gocql.Session
}

func NewSignatureStore(session *gocql.Session) *SignatureStore {
	return &SignatureStore{session: session}
}

func (s *SignatureStore) SaveIdentitySignature(ctx context.Context, tenantIdentifier string, set *models.ApplicationSignatureSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode signature set: %w", err)
	}

	err = s.session.Query(`
		INSERT INTO tenant_signatures (tenant_identifier, signature_set)
		VALUES (?, ?)`, tenantIdentifier, string(raw)).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to save identity signature: %w", err)
	}

	log.Debug().
		Str("tenant", tenantIdentifier).
		Str("timestamp", set.Timestamp).
		Msg("Saved identity signature set")

	return nil
}

func (s *SignatureStore) GetIdentitySignature(ctx context.Context, tenantIdentifier string) (*models.ApplicationSignatureSet, error) {
	var raw string
	err := s.session.Query(`
		SELECT signature_set FROM tenant_signatures WHERE tenant_identifier = ?`,
		tenantIdentifier).
		WithContext(ctx).
		Scan(&raw)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, store.ErrSignatureNotFound
		}
		return nil, fmt.Errorf("failed to get identity signature: %w", err)
	}

	var set models.ApplicationSignatureSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("failed to decode signature set: %w", err)
	}

	return &set, nil
}

func (s *SignatureStore) DeleteTenant(ctx context.Context, tenantIdentifier string) error {
	err := s.session.Query(`DELETE FROM tenant_signatures WHERE tenant_identifier = ?`, tenantIdentifier).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete identity signature: %w", err)
	}
	return nil
}
