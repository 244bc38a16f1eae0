// Package service implements the provisioner's operations: tenant and
// application lifecycle, identity manager assignment, and the asynchronous
// application onboarding run.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/client"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/provision"
	"github.com/wolfeidau/provisioner/internal/store"
)

// Datastores provisions and tears down the isolated datastores backing a
// tenant. Implemented by provision.Provisioner.
type Datastores interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, tenant *models.Tenant) error
}

// IdentityClient is the slice of the identity manager API the tenant service
// needs for identity manager assignment.
type IdentityClient interface {
	InitializeTenant(ctx context.Context, tenant, appName, uri string) (*client.InitializeResult, error)
}

// Tenants owns the tenant lifecycle: datastore provisioning on create,
// teardown and cascade on delete, and wiring in the identity manager.
type Tenants struct {
	tenants      store.TenantStore
	applications store.ApplicationStore
	assignments  store.AssignmentStore
	signatures   store.SignatureStore
	datastores   Datastores
	identity     IdentityClient
}

func NewTenants(
	tenants store.TenantStore,
	applications store.ApplicationStore,
	assignments store.AssignmentStore,
	signatures store.SignatureStore,
	datastores Datastores,
	identity IdentityClient,
) *Tenants {
	return &Tenants{
		tenants:      tenants,
		applications: applications,
		assignments:  assignments,
		signatures:   signatures,
		datastores:   datastores,
		identity:     identity,
	}
}

// Create records the tenant and provisions its datastores. The record is
// written first so duplicates fail before any datastore work happens; a
// provisioning failure after that leaves the record behind (best-effort, as
// with every cross-system step in this service).
func (s *Tenants) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return faults.BadRequest("invalid tenant definition: %v", err)
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrTenantAlreadyExists) {
			return faults.Conflict("tenant %s already exists", tenant.Identifier)
		}
		return faults.Internal(err, "failed to record tenant %s", tenant.Identifier)
	}

	if err := s.datastores.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, provision.ErrInvalidReplication) {
			return faults.BadRequest("invalid replication spec for tenant %s: %v", tenant.Identifier, err)
		}
		return faults.Internal(err, "failed to provision datastores for tenant %s", tenant.Identifier)
	}

	log.Info().
		Str("tenant", tenant.Identifier).
		Msg("Tenant created")

	return nil
}

func (s *Tenants) Find(ctx context.Context, identifier string) (*models.Tenant, error) {
	tenant, err := s.tenants.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, faults.NotFound("tenant %s not found", identifier)
		}
		return nil, faults.Internal(err, "failed to load tenant %s", identifier)
	}
	return tenant, nil
}

func (s *Tenants) FetchAll(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, faults.Internal(err, "failed to list tenants")
	}
	return tenants, nil
}

// Delete drops the tenant's datastores and removes its record along with its
// assignment set and stored identity signature.
func (s *Tenants) Delete(ctx context.Context, identifier string) error {
	tenant, err := s.Find(ctx, identifier)
	if err != nil {
		return err
	}

	if err := s.datastores.DeleteTenant(ctx, tenant); err != nil {
		return faults.Internal(err, "failed to drop datastores for tenant %s", identifier)
	}

	if err := s.assignments.DeleteTenant(ctx, identifier); err != nil && !errors.Is(err, store.ErrAssignmentNotFound) {
		return faults.Internal(err, "failed to remove assignments for tenant %s", identifier)
	}

	if err := s.signatures.DeleteTenant(ctx, identifier); err != nil {
		return faults.Internal(err, "failed to remove identity signature for tenant %s", identifier)
	}

	if err := s.tenants.Delete(ctx, identifier); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return faults.NotFound("tenant %s not found", identifier)
		}
		return faults.Internal(err, "failed to delete tenant %s", identifier)
	}

	log.Info().
		Str("tenant", identifier).
		Msg("Tenant deleted")

	return nil
}

// AssignIdentityManager wires the named application in as the tenant's
// identity manager, initializes it, and persists the returned signature set
// as the tenant's root of trust. The returned password is the one-time admin
// password, empty when the identity manager was already initialized.
func (s *Tenants) AssignIdentityManager(ctx context.Context, tenantIdentifier, appName string) (string, error) {
	if _, err := s.Find(ctx, tenantIdentifier); err != nil {
		return "", err
	}

	app, err := s.applications.Get(ctx, appName)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			return "", faults.NotFound("application %s not found", appName)
		}
		return "", faults.Internal(err, "failed to load application %s", appName)
	}

	if err := s.tenants.SetIdentityManager(ctx, tenantIdentifier, app.Name, app.Homepage); err != nil {
		return "", faults.Internal(err, "failed to record identity manager for tenant %s", tenantIdentifier)
	}

	result, err := s.identity.InitializeTenant(ctx, tenantIdentifier, app.Name, app.Homepage)
	if err != nil {
		return "", err
	}

	if err := s.signatures.SaveIdentitySignature(ctx, tenantIdentifier, &result.SignatureSet); err != nil {
		return "", faults.Internal(err, "failed to persist identity signature for tenant %s", tenantIdentifier)
	}

	log.Info().
		Str("tenant", tenantIdentifier).
		Str("identity_manager", app.Name).
		Msg("Identity manager assigned")

	return result.AdminPassword, nil
}
