package provision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidReplication marks a malformed replication spec in a tenant's
// keyspace definition. It comes from the caller's input, not from the
// cluster, so services map it to a validation failure.
var ErrInvalidReplication = errors.New("invalid replication spec")

// replicationStrategy renders the CQL replication map for a tenant keyspace.
// Supported types are Simple and Network; anything else is a malformed
// replication spec.
func replicationStrategy(replicationType, replicas string) (string, error) {
	switch strings.ToLower(replicationType) {
	case "simple", "simplestrategy":
		count, err := strconv.Atoi(replicas)
		if err != nil || count < 1 {
			return "", fmt.Errorf("%w: invalid replica count %q", ErrInvalidReplication, replicas)
		}
		return fmt.Sprintf("{'class': 'SimpleStrategy', 'replication_factor': %d}", count), nil

	case "network", "networktopologystrategy":
		// Replicas holds a datacenter spec like "dc1:3,dc2:2".
		var parts []string
		for _, entry := range strings.Split(replicas, ",") {
			dc, count, ok := strings.Cut(strings.TrimSpace(entry), ":")
			if !ok {
				return "", fmt.Errorf("%w: invalid datacenter replica spec %q", ErrInvalidReplication, entry)
			}
			if _, err := strconv.Atoi(count); err != nil {
				return "", fmt.Errorf("%w: invalid replica count for datacenter %q", ErrInvalidReplication, dc)
			}
			parts = append(parts, fmt.Sprintf("'%s': %s", dc, count))
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("%w: network replication requires at least one datacenter spec", ErrInvalidReplication)
		}
		return fmt.Sprintf("{'class': 'NetworkTopologyStrategy', %s}", strings.Join(parts, ", ")), nil

	default:
		return "", fmt.Errorf("%w: unknown replication type %q", ErrInvalidReplication, replicationType)
	}
}
