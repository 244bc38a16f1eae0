package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
)

// KeyspaceProvisioner creates and drops tenant keyspaces. Each tenant may
// name its own contact points; when it doesn't, the provisioner's defaults
// apply.
type KeyspaceProvisioner struct {
	defaultContactPoints []string
	timeout              time.Duration
}

func NewKeyspaceProvisioner(defaultContactPoints []string, timeout time.Duration) *KeyspaceProvisioner {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &KeyspaceProvisioner{defaultContactPoints: defaultContactPoints, timeout: timeout}
}

func (p *KeyspaceProvisioner) session(info *models.CassandraConnectionInfo) (*gocql.Session, error) {
	contactPoints := info.ContactPoints
	if len(contactPoints) == 0 {
		contactPoints = p.defaultContactPoints
	}

	cluster := gocql.NewCluster(contactPoints...)
	cluster.Timeout = p.timeout
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tenant cluster: %w", err)
	}
	return session, nil
}

// Create builds the tenant keyspace with the requested replication strategy
// and seeds the command_source table every tenant service expects.
//
// Keyspace names pass through models.ValidateIdentifier before this runs, so
// direct interpolation into CQL is safe.
func (p *KeyspaceProvisioner) Create(ctx context.Context, info *models.CassandraConnectionInfo) error {
	replication, err := replicationStrategy(info.ReplicationType, info.Replicas)
	if err != nil {
		return err
	}

	session, err := p.session(info)
	if err != nil {
		return err
	}
	defer session.Close()

	err = session.Query(fmt.Sprintf("CREATE KEYSPACE %s WITH REPLICATION = %s", info.Keyspace, replication)).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", info.Keyspace, err)
	}

	err = session.Query(fmt.Sprintf(`CREATE TABLE %s.command_source (
			source text,
			bucket text,
			created_on timestamp,
			command text,
			processed boolean,
			failed boolean,
			failure_message text,
			PRIMARY KEY ((source, bucket), created_on)
		)`, info.Keyspace)).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create command_source table in %s: %w", info.Keyspace, err)
	}

	log.Info().
		Str("keyspace", info.Keyspace).
		Str("replication", replication).
		Msg("Created tenant keyspace")

	return nil
}

// Drop removes the tenant keyspace and everything in it.
func (p *KeyspaceProvisioner) Drop(ctx context.Context, info *models.CassandraConnectionInfo) error {
	session, err := p.session(info)
	if err != nil {
		return err
	}
	defer session.Close()

	err = session.Query(fmt.Sprintf("DROP KEYSPACE %s", info.Keyspace)).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to drop keyspace %s: %w", info.Keyspace, err)
	}

	log.Info().
		Str("keyspace", info.Keyspace).
		Msg("Dropped tenant keyspace")

	return nil
}
