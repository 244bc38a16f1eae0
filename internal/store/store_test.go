package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/provisioner/internal/models"
)

func TestParseDataStoreOption(t *testing.T) {
	t.Run("accepts known options case-insensitively", func(t *testing.T) {
		for input, want := range map[string]DataStoreOption{
			"cassandra": DataStoreCassandra,
			"RDBMS":     DataStoreRDBMS,
			"All":       DataStoreAll,
		} {
			got, err := ParseDataStoreOption(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown options", func(t *testing.T) {
		_, err := ParseDataStoreOption("mongodb")
		require.Error(t, err)
	})
}

func TestDataStoreOptionEnabled(t *testing.T) {
	assert.True(t, DataStoreCassandra.Enabled(DataStoreCassandra))
	assert.False(t, DataStoreCassandra.Enabled(DataStoreRDBMS))
	assert.False(t, DataStoreRDBMS.Enabled(DataStoreCassandra))
	assert.True(t, DataStoreRDBMS.Enabled(DataStoreRDBMS))

	assert.True(t, DataStoreAll.Enabled(DataStoreCassandra))
	assert.True(t, DataStoreAll.Enabled(DataStoreRDBMS))
	assert.True(t, DataStoreAll.Enabled(DataStoreAll))

	// ALL is enabled only under the ALL option itself.
	assert.False(t, DataStoreCassandra.Enabled(DataStoreAll))
	assert.False(t, DataStoreRDBMS.Enabled(DataStoreAll))
}

// recordingTenantStore tracks which operations ran, standing in for one
// backend of the repository.
type recordingTenantStore struct {
	tenants map[string]*models.Tenant
	calls   []string
}

func newRecordingTenantStore() *recordingTenantStore {
	return &recordingTenantStore{tenants: map[string]*models.Tenant{}}
}

func (s *recordingTenantStore) Create(_ context.Context, tenant *models.Tenant) error {
	s.calls = append(s.calls, "create")
	if _, ok := s.tenants[tenant.Identifier]; ok {
		return ErrTenantAlreadyExists
	}
	clone := *tenant
	s.tenants[tenant.Identifier] = &clone
	return nil
}

func (s *recordingTenantStore) Get(_ context.Context, identifier string) (*models.Tenant, error) {
	s.calls = append(s.calls, "get")
	tenant, ok := s.tenants[identifier]
	if !ok {
		return nil, ErrTenantNotFound
	}
	clone := *tenant
	return &clone, nil
}

func (s *recordingTenantStore) List(_ context.Context) ([]*models.Tenant, error) {
	s.calls = append(s.calls, "list")
	var tenants []*models.Tenant
	for _, tenant := range s.tenants {
		clone := *tenant
		tenants = append(tenants, &clone)
	}
	return tenants, nil
}

func (s *recordingTenantStore) SetIdentityManager(_ context.Context, identifier, appName, uri string) error {
	s.calls = append(s.calls, "set_identity_manager")
	tenant, ok := s.tenants[identifier]
	if !ok {
		return ErrTenantNotFound
	}
	tenant.IdentityManagerApplicationName = appName
	tenant.IdentityManagerApplicationURI = uri
	return nil
}

func (s *recordingTenantStore) Delete(_ context.Context, identifier string) error {
	s.calls = append(s.calls, "delete")
	if _, ok := s.tenants[identifier]; !ok {
		return ErrTenantNotFound
	}
	delete(s.tenants, identifier)
	return nil
}

func TestTenantRepositorySingleBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("cassandra only never touches the relational side", func(t *testing.T) {
		cassandra := newRecordingTenantStore()
		repo := NewTenantRepository(cassandra, nil)

		tenant := &models.Tenant{
			Identifier: "acme",
			Name:       "Acme",
			CassandraConnectionInfo: &models.CassandraConnectionInfo{
				Keyspace: "acme",
			},
		}

		require.NoError(t, repo.Create(ctx, tenant))

		got, err := repo.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)

		require.NoError(t, repo.Delete(ctx, "acme"))

		_, err = repo.Get(ctx, "acme")
		require.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("rdbms only", func(t *testing.T) {
		rdbms := newRecordingTenantStore()
		repo := NewTenantRepository(nil, rdbms)

		tenant := &models.Tenant{
			Identifier: "acme",
			Name:       "Acme",
			DatabaseConnectionInfo: &models.DatabaseConnectionInfo{
				DatabaseName: "acme",
			},
		}

		require.NoError(t, repo.Create(ctx, tenant))
		assert.Contains(t, rdbms.calls, "create")

		got, err := repo.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", got.DatabaseConnectionInfo.DatabaseName)
	})
}

func TestTenantRepositoryMergesBackends(t *testing.T) {
	ctx := context.Background()

	cassandra := newRecordingTenantStore()
	rdbms := newRecordingTenantStore()
	repo := NewTenantRepository(cassandra, rdbms)

	tenant := &models.Tenant{
		Identifier: "acme",
		Name:       "Acme",
		CassandraConnectionInfo: &models.CassandraConnectionInfo{
			Keyspace: "acme",
		},
		DatabaseConnectionInfo: &models.DatabaseConnectionInfo{
			DatabaseName: "acme",
		},
	}

	require.NoError(t, repo.Create(ctx, tenant))

	got, err := repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.CassandraConnectionInfo.Keyspace)
	require.NotNil(t, got.DatabaseConnectionInfo)
	assert.Equal(t, "acme", got.DatabaseConnectionInfo.DatabaseName)

	require.NoError(t, repo.SetIdentityManager(ctx, "acme", "identity", "http://identity:2021/v1"))

	got, err = repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "identity", got.IdentityManagerApplicationName)
}
