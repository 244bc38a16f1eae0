package models

import (
	"fmt"
	"regexp"
)

// identifierPattern restricts tenant identifiers and application names to
// something that is safe to embed in keyspace names, database names and
// message bus headers.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// ValidateIdentifier checks an identifier against the restricted charset
// shared by tenants and keyspace/database names.
func ValidateIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("identifier %q must match %s", identifier, identifierPattern.String())
	}
	return nil
}

// CassandraConnectionInfo describes the keyspace backing a tenant.
type CassandraConnectionInfo struct {
	ClusterName     string   `json:"clusterName"`
	ContactPoints   []string `json:"contactPoints"`
	Keyspace        string   `json:"keyspace"`
	ReplicationType string   `json:"replicationType"`
	Replicas        string   `json:"replicas"`
}

// DatabaseConnectionInfo describes the relational database backing a tenant.
type DatabaseConnectionInfo struct {
	DriverClass  string `json:"driverClass"`
	Host         string `json:"host"`
	Port         string `json:"port"`
	DatabaseName string `json:"databaseName"`
	User         string `json:"user"`
	Password     string `json:"password"`
}

// Tenant is an isolated customer unit with its own keyspace and/or database
// and a set of assigned applications. The identity manager fields stay empty
// until an identity manager is assigned.
type Tenant struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description"`

	CassandraConnectionInfo *CassandraConnectionInfo `json:"cassandraConnectionInfo,omitempty"`
	DatabaseConnectionInfo  *DatabaseConnectionInfo  `json:"databaseConnectionInfo,omitempty"`

	IdentityManagerApplicationName string `json:"identityManagerApplicationName,omitempty"`
	IdentityManagerApplicationURI  string `json:"identityManagerApplicationUri,omitempty"`
}

// Validate checks the tenant definition before any datastore work happens.
func (t *Tenant) Validate() error {
	if err := ValidateIdentifier(t.Identifier); err != nil {
		return err
	}
	if t.Name == "" {
		return fmt.Errorf("tenant %q requires a name", t.Identifier)
	}
	if t.CassandraConnectionInfo != nil {
		if t.CassandraConnectionInfo.Keyspace == "" {
			return fmt.Errorf("tenant %q requires a keyspace name", t.Identifier)
		}
		if err := ValidateIdentifier(t.CassandraConnectionInfo.Keyspace); err != nil {
			return err
		}
	}
	if t.DatabaseConnectionInfo != nil {
		if t.DatabaseConnectionInfo.DatabaseName == "" {
			return fmt.Errorf("tenant %q requires a database name", t.Identifier)
		}
		if err := ValidateIdentifier(t.DatabaseConnectionInfo.DatabaseName); err != nil {
			return err
		}
	}
	return nil
}

// AssignedApplications is the desired set of applications wired into one
// tenant. Upserted whole on every assignment request.
type AssignedApplications struct {
	TenantIdentifier string   `json:"tenantIdentifier"`
	Applications     []string `json:"applications"`
}
