package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicationStrategy(t *testing.T) {
	t.Run("simple strategy", func(t *testing.T) {
		got, err := replicationStrategy("Simple", "3")
		require.NoError(t, err)
		assert.Equal(t, "{'class': 'SimpleStrategy', 'replication_factor': 3}", got)
	})

	t.Run("network topology strategy", func(t *testing.T) {
		got, err := replicationStrategy("Network", "dc1:3, dc2:2")
		require.NoError(t, err)
		assert.Equal(t, "{'class': 'NetworkTopologyStrategy', 'dc1': 3, 'dc2': 2}", got)
	})

	t.Run("malformed specs are rejected as invalid input", func(t *testing.T) {
		for _, tc := range []struct{ replicationType, replicas string }{
			{"Simple", "three"},
			{"Simple", "0"},
			{"Network", "dc1=3"},
			{"Network", "dc1:three"},
			{"Quorum", "3"},
		} {
			_, err := replicationStrategy(tc.replicationType, tc.replicas)
			assert.ErrorIs(t, err, ErrInvalidReplication, "%s/%s", tc.replicationType, tc.replicas)
		}
	})
}
