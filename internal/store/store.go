package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/provisioner/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrTenantNotFound           = errors.New("tenant not found")
	ErrTenantAlreadyExists      = errors.New("tenant already exists")
	ErrApplicationNotFound      = errors.New("application not found")
	ErrApplicationAlreadyExists = errors.New("application already exists")
	ErrAssignmentNotFound       = errors.New("assignment not found")
	ErrSignatureNotFound        = errors.New("identity signature set not found")
)

// TenantStore persists tenant metadata on one backend. The composite
// TenantRepository combines up to two of these.
type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	Get(ctx context.Context, identifier string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	SetIdentityManager(ctx context.Context, identifier, appName, uri string) error
	Delete(ctx context.Context, identifier string) error
}

// ApplicationStore persists registered applications.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	Get(ctx context.Context, name string) (*models.Application, error)
	List(ctx context.Context) ([]*models.Application, error)
	Delete(ctx context.Context, name string) error
}

// AssignmentStore persists the tenant -> applications assignment sets.
type AssignmentStore interface {
	Upsert(ctx context.Context, assignment *models.AssignedApplications) error
	Get(ctx context.Context, tenantIdentifier string) (*models.AssignedApplications, error)
	DeleteTenant(ctx context.Context, tenantIdentifier string) error
	// RemoveApplication removes the named application from every tenant's
	// assignment set. Used when an application is deregistered.
	RemoveApplication(ctx context.Context, name string) error
}

// SignatureStore persists each tenant's identity-manager signature set, the
// root of trust every later application onboarding run reads back.
type SignatureStore interface {
	SaveIdentitySignature(ctx context.Context, tenantIdentifier string, set *models.ApplicationSignatureSet) error
	GetIdentitySignature(ctx context.Context, tenantIdentifier string) (*models.ApplicationSignatureSet, error)
	DeleteTenant(ctx context.Context, tenantIdentifier string) error
}

// DataStoreOption selects which tenant datastore backends are live.
type DataStoreOption string

const (
	DataStoreCassandra DataStoreOption = "cassandra"
	DataStoreRDBMS     DataStoreOption = "rdbms"
	DataStoreAll       DataStoreOption = "all"
)

// ParseDataStoreOption parses the configured backend selector.
func ParseDataStoreOption(s string) (DataStoreOption, error) {
	switch DataStoreOption(strings.ToLower(s)) {
	case DataStoreCassandra:
		return DataStoreCassandra, nil
	case DataStoreRDBMS:
		return DataStoreRDBMS, nil
	case DataStoreAll:
		return DataStoreAll, nil
	default:
		return "", fmt.Errorf("unknown datastore option %q", s)
	}
}

// Enabled reports whether the given backend participates under this option.
// The ALL option enables both concrete backends; asking whether "all" is
// enabled only holds for the ALL option itself.
func (o DataStoreOption) Enabled(backend DataStoreOption) bool {
	if o == backend {
		return true
	}
	return o == DataStoreAll && backend != DataStoreAll
}
