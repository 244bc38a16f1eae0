package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/provisioner/internal/client"
	"github.com/wolfeidau/provisioner/internal/events"
	"github.com/wolfeidau/provisioner/internal/logger"
	"github.com/wolfeidau/provisioner/internal/provision"
	"github.com/wolfeidau/provisioner/internal/security"
	"github.com/wolfeidau/provisioner/internal/server"
	"github.com/wolfeidau/provisioner/internal/service"
	"github.com/wolfeidau/provisioner/internal/store"
	cassandrastore "github.com/wolfeidau/provisioner/internal/store/cassandra"
	postgresstore "github.com/wolfeidau/provisioner/internal/store/postgres"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:2020" env:"PROVISIONER_LISTEN"`
	Domain string `help:"deployment domain used when deriving tenant admin credentials" default:"local" env:"PROVISIONER_DOMAIN"`

	// System key configuration
	SystemKeys string        `help:"path to the system keys file (YAML: timestamp + PEM private key)" required:"" env:"PROVISIONER_SYSTEM_KEYS"`
	TokenTTL   time.Duration `help:"TTL for minted system tokens" default:"2m" env:"PROVISIONER_TOKEN_TTL"`
	AckTimeout time.Duration `help:"how long to wait for each identity acknowledgment" default:"5s" env:"PROVISIONER_ACK_TIMEOUT"`

	// Datastore configuration
	Datastore string         `help:"tenant datastore backends (cassandra, rdbms or all)" default:"cassandra" env:"PROVISIONER_DATASTORE" enum:"cassandra,rdbms,all"`
	Cassandra CassandraFlags `embed:"" prefix:"cassandra-"`
	Postgres  PostgresFlags  `embed:"" prefix:"postgres-"`

	// Message bus configuration
	Kafka KafkaFlags `embed:"" prefix:"kafka-"`
}

type CassandraFlags struct {
	ContactPoints []string      `help:"Cassandra contact points" default:"127.0.0.1" env:"PROVISIONER_CASSANDRA_CONTACT_POINTS"`
	ClusterName   string        `help:"Cassandra cluster name recorded on tenants" default:"datacenter1" env:"PROVISIONER_CASSANDRA_CLUSTER_NAME"`
	Keyspace      string        `help:"admin keyspace holding provisioner metadata" default:"provisioner" env:"PROVISIONER_CASSANDRA_KEYSPACE"`
	Timeout       time.Duration `help:"Cassandra query timeout" default:"10s" env:"PROVISIONER_CASSANDRA_TIMEOUT"`
}

type PostgresFlags struct {
	ConnString      string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`
	MaxConns        int32  `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32  `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32  `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32  `help:"maximum connection idle time in seconds" default:"1800"`
	AutoMigrate     bool   `help:"run database migrations on startup" default:"true" env:"PROVISIONER_POSTGRES_AUTO_MIGRATE"`
}

type KafkaFlags struct {
	Brokers []string `help:"Kafka broker addresses for identity events" default:"127.0.0.1:9092" env:"PROVISIONER_KAFKA_BROKERS"`
	Topic   string   `help:"topic carrying identity acknowledgments" default:"identity-v1-events" env:"PROVISIONER_KAFKA_TOPIC"`
	GroupID string   `help:"consumer group id" default:"provisioner" env:"PROVISIONER_KAFKA_GROUP_ID"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting provisioner")

	option, err := store.ParseDataStoreOption(c.Datastore)
	if err != nil {
		return err
	}

	var (
		cassandraTenants store.TenantStore
		postgresTenants  store.TenantStore
		keyspaces        provision.Keyspaces
		databases        provision.Databases

		applications store.ApplicationStore
		assignments  store.AssignmentStore
		signatures   store.SignatureStore
	)

	if option.Enabled(store.DataStoreCassandra) {
		session, err := cassandrastore.Connect(&cassandrastore.Config{
			ContactPoints: c.Cassandra.ContactPoints,
			ClusterName:   c.Cassandra.ClusterName,
			Keyspace:      c.Cassandra.Keyspace,
			Timeout:       c.Cassandra.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to cassandra: %w", err)
		}
		defer session.Close()

		cassandraTenants = cassandrastore.NewTenantStore(session)
		keyspaces = provision.NewKeyspaceProvisioner(c.Cassandra.ContactPoints, c.Cassandra.Timeout)

		// With both backends live, cassandra is the metadata side.
		applications = cassandrastore.NewApplicationStore(session)
		assignments = cassandrastore.NewAssignmentStore(session)
		signatures = cassandrastore.NewSignatureStore(session)
	}

	if option.Enabled(store.DataStoreRDBMS) {
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.Postgres.ConnString,
			MaxConns:        c.Postgres.MaxConns,
			MinConns:        c.Postgres.MinConns,
			MaxConnLifetime: c.Postgres.MaxConnLifetime,
			MaxConnIdleTime: c.Postgres.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.Postgres.AutoMigrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		postgresTenants = postgresstore.NewTenantStore(pool)
		databases = provision.NewDatabaseProvisioner(pool)

		if applications == nil {
			applications = postgresstore.NewApplicationStore(pool)
			assignments = postgresstore.NewAssignmentStore(pool)
			signatures = postgresstore.NewSignatureStore(pool)
		}
	}

	tenants := store.NewTenantRepository(cassandraTenants, postgresTenants)

	keys, err := security.LoadSystemKeys(c.SystemKeys)
	if err != nil {
		return err
	}
	minter := security.NewMinter(security.NewTokenProvider(keys), c.TokenTTL)

	registry := events.NewRegistry()
	listener := events.NewListener(events.ListenerConfig{
		Brokers: c.Kafka.Brokers,
		Topic:   c.Kafka.Topic,
		GroupID: c.Kafka.GroupID,
	}, registry)

	caller := client.NewCaller(nil)
	identity := client.NewIdentity(caller, minter, registry, c.Domain)
	authorization := client.NewAuthorization(caller, minter)

	tenantService := service.NewTenants(tenants, applications, assignments, signatures,
		provision.New(keyspaces, databases), identity)
	applicationService := service.NewApplications(applications, assignments)
	orchestrator := service.NewOrchestrator(tenants, applications, assignments, signatures,
		identity, authorization,
		service.Grouper{
			Permittables: client.GroupPermittables,
			EndpointSets: client.CallEndpointSets,
		}, c.AckTimeout)

	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Identity event listener stopped")
		}
	}()
	go func() {
		if err := orchestrator.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Assignment worker stopped")
		}
	}()

	router := server.New(
		server.NewTenantHandler(tenantService, orchestrator),
		server.NewApplicationHandler(applicationService),
	).Router(log)

	httpServer := configureHTTPServer(c.Listen, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("datastore", string(option)).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
