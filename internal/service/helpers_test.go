package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/wolfeidau/provisioner/internal/client"
	"github.com/wolfeidau/provisioner/internal/events"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// fakeStores is an in-memory implementation of every store interface the
// services consume.
type fakeStores struct {
	tenants     map[string]*models.Tenant
	apps        map[string]*models.Application
	assignments map[string][]string
	signatures  map[string]*models.ApplicationSignatureSet
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		tenants:     map[string]*models.Tenant{},
		apps:        map[string]*models.Application{},
		assignments: map[string][]string{},
		signatures:  map[string]*models.ApplicationSignatureSet{},
	}
}

func (f *fakeStores) Create(_ context.Context, tenant *models.Tenant) error {
	if _, ok := f.tenants[tenant.Identifier]; ok {
		return store.ErrTenantAlreadyExists
	}
	clone := *tenant
	f.tenants[tenant.Identifier] = &clone
	return nil
}

func (f *fakeStores) Get(_ context.Context, identifier string) (*models.Tenant, error) {
	tenant, ok := f.tenants[identifier]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	clone := *tenant
	return &clone, nil
}

func (f *fakeStores) List(_ context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	for _, tenant := range f.tenants {
		clone := *tenant
		tenants = append(tenants, &clone)
	}
	return tenants, nil
}

func (f *fakeStores) SetIdentityManager(_ context.Context, identifier, appName, uri string) error {
	tenant, ok := f.tenants[identifier]
	if !ok {
		return store.ErrTenantNotFound
	}
	tenant.IdentityManagerApplicationName = appName
	tenant.IdentityManagerApplicationURI = uri
	return nil
}

func (f *fakeStores) Delete(_ context.Context, identifier string) error {
	if _, ok := f.tenants[identifier]; !ok {
		return store.ErrTenantNotFound
	}
	delete(f.tenants, identifier)
	return nil
}

// applicationStore view.

type fakeApplicationStore struct{ *fakeStores }

func (f fakeApplicationStore) Create(_ context.Context, app *models.Application) error {
	if _, ok := f.apps[app.Name]; ok {
		return store.ErrApplicationAlreadyExists
	}
	clone := *app
	f.apps[app.Name] = &clone
	return nil
}

func (f fakeApplicationStore) Get(_ context.Context, name string) (*models.Application, error) {
	app, ok := f.apps[name]
	if !ok {
		return nil, store.ErrApplicationNotFound
	}
	clone := *app
	return &clone, nil
}

func (f fakeApplicationStore) List(_ context.Context) ([]*models.Application, error) {
	var apps []*models.Application
	for _, app := range f.apps {
		clone := *app
		apps = append(apps, &clone)
	}
	return apps, nil
}

func (f fakeApplicationStore) Delete(_ context.Context, name string) error {
	if _, ok := f.apps[name]; !ok {
		return store.ErrApplicationNotFound
	}
	delete(f.apps, name)
	return nil
}

// assignmentStore view.

type fakeAssignmentStore struct{ *fakeStores }

func (f fakeAssignmentStore) Upsert(_ context.Context, assignment *models.AssignedApplications) error {
	f.assignments[assignment.TenantIdentifier] = slices.Clone(assignment.Applications)
	return nil
}

func (f fakeAssignmentStore) Get(_ context.Context, tenantIdentifier string) (*models.AssignedApplications, error) {
	apps, ok := f.assignments[tenantIdentifier]
	if !ok {
		return nil, store.ErrAssignmentNotFound
	}
	return &models.AssignedApplications{TenantIdentifier: tenantIdentifier, Applications: slices.Clone(apps)}, nil
}

func (f fakeAssignmentStore) DeleteTenant(_ context.Context, tenantIdentifier string) error {
	delete(f.assignments, tenantIdentifier)
	return nil
}

func (f fakeAssignmentStore) RemoveApplication(_ context.Context, name string) error {
	for tenant, apps := range f.assignments {
		f.assignments[tenant] = slices.DeleteFunc(apps, func(s string) bool { return s == name })
	}
	return nil
}

// signatureStore view.

type fakeSignatureStore struct{ *fakeStores }

func (f fakeSignatureStore) SaveIdentitySignature(_ context.Context, tenantIdentifier string, set *models.ApplicationSignatureSet) error {
	clone := *set
	f.signatures[tenantIdentifier] = &clone
	return nil
}

func (f fakeSignatureStore) GetIdentitySignature(_ context.Context, tenantIdentifier string) (*models.ApplicationSignatureSet, error) {
	set, ok := f.signatures[tenantIdentifier]
	if !ok {
		return nil, store.ErrSignatureNotFound
	}
	clone := *set
	return &clone, nil
}

func (f fakeSignatureStore) DeleteTenant(_ context.Context, tenantIdentifier string) error {
	delete(f.signatures, tenantIdentifier)
	return nil
}

// fakeOnboardingClients records every remote call in order, standing in for
// both the identity manager and the applications being onboarded.
type fakeOnboardingClients struct {
	registry *events.Registry
	calls    []string

	initialized        map[string]*client.InitializeResult
	signatureSetErrors map[string]error
	endpoints          map[string][]models.PermittableEndpoint
	permissions        map[string][]models.ApplicationPermission
}

func newFakeOnboardingClients() *fakeOnboardingClients {
	return &fakeOnboardingClients{
		registry:           events.NewRegistry(),
		initialized:        map[string]*client.InitializeResult{},
		signatureSetErrors: map[string]error{},
		endpoints:          map[string][]models.PermittableEndpoint{},
		permissions:        map[string][]models.ApplicationPermission{},
	}
}

func (f *fakeOnboardingClients) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// expectSignaled registers and immediately signals, so Wait returns true
// without blocking the test.
func (f *fakeOnboardingClients) expectSignaled(key events.Key) *events.Expectation {
	expectation := f.registry.Expect(key)
	f.registry.Signal(key)
	return expectation
}

func (f *fakeOnboardingClients) InitializeTenant(_ context.Context, tenant, appName, uri string) (*client.InitializeResult, error) {
	f.record("initialize-tenant %s %s", tenant, appName)
	if result, ok := f.initialized[tenant]; ok {
		return &client.InitializeResult{SignatureSet: result.SignatureSet}, nil
	}
	result := &client.InitializeResult{
		SignatureSet: models.ApplicationSignatureSet{
			Timestamp:                "2019-01-01T00_00_00",
			IdentityManagerSignature: models.Signature{PublicKeyMod: "identity", PublicKeyExp: "AQAB"},
		},
		AdminPassword: "hashed-password",
	}
	f.initialized[tenant] = result
	return result, nil
}

func (f *fakeOnboardingClients) CreateOrFindPermittableGroup(_ context.Context, tenant, imName, imURI string, group models.PermittableGroup) *events.Expectation {
	f.record("create-group %s", group.Identifier)
	return f.expectSignaled(events.Key{Tenant: tenant, Operation: events.OperationPermittableGroupCreated, Correlation: group.Identifier})
}

func (f *fakeOnboardingClients) PushApplicationSignature(_ context.Context, tenant, imName, imURI, appName string, set models.ApplicationSignatureSet) *events.Expectation {
	f.record("push-signature %s", appName)
	return f.expectSignaled(events.Key{Tenant: tenant, Operation: events.OperationApplicationSignatureSet, Correlation: appName + "/" + set.Timestamp})
}

func (f *fakeOnboardingClients) CreateOrFindApplicationPermission(_ context.Context, tenant, imName, imURI, appName string, permission models.Permission) {
	f.record("create-permission %s %s", appName, permission.PermittableGroupIdentifier)
}

func (f *fakeOnboardingClients) CreateOrFindCallEndpointSet(_ context.Context, tenant, imName, imURI, appName string, set models.CallEndpointSet) {
	f.record("create-endpoint-set %s %s", appName, set.Identifier)
}

func (f *fakeOnboardingClients) DiscoverPermittableEndpoints(_ context.Context, tenant, appURI string) []models.PermittableEndpoint {
	f.record("discover-endpoints %s", appURI)
	return f.endpoints[appURI]
}

func (f *fakeOnboardingClients) DiscoverRequiredPermissions(_ context.Context, tenant, appURI string) []models.ApplicationPermission {
	f.record("discover-permissions %s", appURI)
	return f.permissions[appURI]
}

func (f *fakeOnboardingClients) CreateSignatureSet(_ context.Context, tenant, appName, appURI, timestamp string, identitySignature models.Signature) (*models.ApplicationSignatureSet, error) {
	f.record("create-signature-set %s", appName)
	if err, ok := f.signatureSetErrors[appName]; ok {
		return nil, err
	}
	return &models.ApplicationSignatureSet{
		Timestamp:                timestamp,
		ApplicationSignature:     models.Signature{PublicKeyMod: appName, PublicKeyExp: "AQAB"},
		IdentityManagerSignature: identitySignature,
	}, nil
}

func (f *fakeOnboardingClients) InitializeResources(_ context.Context, tenant, appName, appURI string) error {
	f.record("initialize-resources %s", appName)
	return nil
}

var errRemote = errors.New("remote call failed")
