// Package cassandra holds the Cassandra-backed store adapters. The
// provisioner keeps its own metadata in a small admin keyspace; tenant
// keyspaces are created and dropped by the provision package.
package cassandra

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
)

// Config holds the connection settings for the provisioner's admin keyspace.
type Config struct {
	ContactPoints []string
	ClusterName   string
	Keyspace      string
	Timeout       time.Duration
}

func (c *Config) ApplyDefaults() {
	if c.Keyspace == "" {
		c.Keyspace = "provisioner"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Connect bootstraps the admin keyspace and its tables, then returns a
// session bound to it.
func Connect(cfg *Config) (*gocql.Session, error) {
	cfg.ApplyDefaults()

	if len(cfg.ContactPoints) == 0 {
		return nil, fmt.Errorf("at least one cassandra contact point is required")
	}

	if err := bootstrap(cfg); err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(cfg.ContactPoints...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Timeout = cfg.Timeout
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	log.Info().
		Strs("contact_points", cfg.ContactPoints).
		Str("keyspace", cfg.Keyspace).
		Msg("Connected to cassandra")

	return session, nil
}

// bootstrap creates the admin keyspace and metadata tables if they are
// missing. The admin keyspace always uses SimpleStrategy with one replica;
// tenant keyspaces carry their own replication spec.
func bootstrap(cfg *Config) error {
	cluster := gocql.NewCluster(cfg.ContactPoints...)
	cluster.Timeout = cfg.Timeout
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to cassandra: %w", err)
	}
	defer session.Close()

	statements := []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
			WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1}`, cfg.Keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.tenants (
			identifier text PRIMARY KEY,
			cluster_name text,
			contact_points list<text>,
			keyspace_name text,
			replication_type text,
			replicas text,
			name text,
			description text,
			identity_manager_application_name text,
			identity_manager_application_uri text
		)`, cfg.Keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.applications (
			name text PRIMARY KEY,
			description text,
			vendor text,
			homepage text
		)`, cfg.Keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.tenant_applications (
			tenant_identifier text PRIMARY KEY,
			applications set<text>
		)`, cfg.Keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.tenant_signatures (
			tenant_identifier text PRIMARY KEY,
			signature_set text
		)`, cfg.Keyspace),
	}

	for _, stmt := range statements {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("failed to bootstrap admin keyspace: %w", err)
		}
	}

	return nil
}
