package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/events"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// DefaultAckTimeout bounds each wait for an identity acknowledgment. A
// timeout downgrades to a warning; the run proceeds optimistically.
const DefaultAckTimeout = 5 * time.Second

// OnboardingIdentityClient is the identity manager surface the onboarding run
// drives for each assigned application.
type OnboardingIdentityClient interface {
	CreateOrFindPermittableGroup(ctx context.Context, tenant, imName, imURI string, group models.PermittableGroup) *events.Expectation
	PushApplicationSignature(ctx context.Context, tenant, imName, imURI, appName string, signatureSet models.ApplicationSignatureSet) *events.Expectation
	CreateOrFindApplicationPermission(ctx context.Context, tenant, imName, imURI, appName string, permission models.Permission)
	CreateOrFindCallEndpointSet(ctx context.Context, tenant, imName, imURI, appName string, set models.CallEndpointSet)
}

// AuthorizationClient is the security surface of the applications being
// onboarded.
type AuthorizationClient interface {
	DiscoverPermittableEndpoints(ctx context.Context, tenant, appURI string) []models.PermittableEndpoint
	DiscoverRequiredPermissions(ctx context.Context, tenant, appURI string) []models.ApplicationPermission
	CreateSignatureSet(ctx context.Context, tenant, appName, appURI, timestamp string, identitySignature models.Signature) (*models.ApplicationSignatureSet, error)
	InitializeResources(ctx context.Context, tenant, appName, appURI string) error
}

// Grouper partitions discovered endpoints and permissions for registration.
// The client package provides the production implementations.
type Grouper struct {
	Permittables func([]models.PermittableEndpoint) []models.PermittableGroup
	EndpointSets func([]models.ApplicationPermission) []models.CallEndpointSet
}

type assignmentJob struct {
	runID            string
	tenantIdentifier string
	applications     []string
}

// Orchestrator runs application onboarding. Assignment requests validate and
// persist synchronously, then enqueue the onboarding run for the background
// worker; the caller is told "accepted" before any remote call happens.
type Orchestrator struct {
	tenants       store.TenantStore
	applications  store.ApplicationStore
	assignments   store.AssignmentStore
	signatures    store.SignatureStore
	identity      OnboardingIdentityClient
	authorization AuthorizationClient
	group         Grouper

	ackTimeout time.Duration
	queue      chan assignmentJob
}

func NewOrchestrator(
	tenants store.TenantStore,
	applications store.ApplicationStore,
	assignments store.AssignmentStore,
	signatures store.SignatureStore,
	identity OnboardingIdentityClient,
	authorization AuthorizationClient,
	group Grouper,
	ackTimeout time.Duration,
) *Orchestrator {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Orchestrator{
		tenants:       tenants,
		applications:  applications,
		assignments:   assignments,
		signatures:    signatures,
		identity:      identity,
		authorization: authorization,
		group:         group,
		ackTimeout:    ackTimeout,
		queue:         make(chan assignmentJob, 64),
	}
}

// AssignApplications validates and records the desired assignment set, then
// hands the onboarding run to the background worker. Validation failures are
// the only errors the caller ever sees; the run's outcome is observable only
// by re-querying assignment state.
func (o *Orchestrator) AssignApplications(ctx context.Context, tenantIdentifier string, applications []string) error {
	if _, err := o.tenants.Get(ctx, tenantIdentifier); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return faults.NotFound("tenant %s not found", tenantIdentifier)
		}
		return faults.Internal(err, "failed to load tenant %s", tenantIdentifier)
	}

	for _, name := range applications {
		if _, err := o.applications.Get(ctx, name); err != nil {
			if errors.Is(err, store.ErrApplicationNotFound) {
				return faults.BadRequest("application %s is not registered", name)
			}
			return faults.Internal(err, "failed to load application %s", name)
		}
	}

	err := o.assignments.Upsert(ctx, &models.AssignedApplications{
		TenantIdentifier: tenantIdentifier,
		Applications:     applications,
	})
	if err != nil {
		return faults.Internal(err, "failed to record assignments for tenant %s", tenantIdentifier)
	}

	// The assignment set is already persisted, so a full queue must not stall
	// the accepted response; the deferred run is recoverable by re-requesting
	// the assignment.
	runID := uuid.NewString()
	select {
	case o.queue <- assignmentJob{runID: runID, tenantIdentifier: tenantIdentifier, applications: applications}:
	default:
		log.Warn().
			Str("run_id", runID).
			Str("tenant", tenantIdentifier).
			Msg("Onboarding queue full, run deferred until the assignment is re-requested")
	}

	log.Info().
		Str("run_id", runID).
		Str("tenant", tenantIdentifier).
		Strs("applications", applications).
		Msg("Assignment accepted")

	return nil
}

// FetchAssigned returns the tenant's current assignment set, empty when
// nothing has been assigned yet.
func (o *Orchestrator) FetchAssigned(ctx context.Context, tenantIdentifier string) (*models.AssignedApplications, error) {
	if _, err := o.tenants.Get(ctx, tenantIdentifier); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, faults.NotFound("tenant %s not found", tenantIdentifier)
		}
		return nil, faults.Internal(err, "failed to load tenant %s", tenantIdentifier)
	}

	assignment, err := o.assignments.Get(ctx, tenantIdentifier)
	if err != nil {
		if errors.Is(err, store.ErrAssignmentNotFound) {
			return &models.AssignedApplications{TenantIdentifier: tenantIdentifier}, nil
		}
		return nil, faults.Internal(err, "failed to load assignments for tenant %s", tenantIdentifier)
	}
	return assignment, nil
}

// Run processes queued onboarding jobs sequentially until the context is
// canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-o.queue:
			o.onboard(ctx, job)
		}
	}
}

// onboard runs the onboarding steps for one assignment batch. Failures are
// isolated per application; nothing here reaches the original caller.
func (o *Orchestrator) onboard(ctx context.Context, job assignmentJob) {
	tenant, err := o.tenants.Get(ctx, job.tenantIdentifier)
	if err != nil {
		log.Error().Err(err).
			Str("run_id", job.runID).
			Str("tenant", job.tenantIdentifier).
			Msg("Onboarding aborted, tenant not loadable")
		return
	}

	if tenant.IdentityManagerApplicationName == "" {
		log.Warn().
			Str("tenant", tenant.Identifier).
			Msg("Onboarding skipped, no identity manager assigned yet")
		return
	}

	identitySet, err := o.signatures.GetIdentitySignature(ctx, tenant.Identifier)
	if err != nil {
		// Applications cannot be secured without the root of trust. Not an
		// error toward the original caller, who already received accepted.
		log.Warn().Err(err).
			Str("tenant", tenant.Identifier).
			Msg("Onboarding skipped, identity signature set not available")
		return
	}

	for _, appName := range job.applications {
		if appName == tenant.IdentityManagerApplicationName {
			continue
		}

		if err := o.onboardApplication(ctx, tenant, identitySet, appName); err != nil {
			log.Error().Err(err).
				Str("tenant", tenant.Identifier).
				Str("application", appName).
				Msg("Onboarding failed for application")
			continue
		}

		log.Info().
			Str("tenant", tenant.Identifier).
			Str("application", appName).
			Msg("Application onboarded")
	}
}

// onboardApplication runs the strictly ordered per-application steps. Later
// steps depend on artifacts of earlier ones, so an unexpected failure aborts
// the rest of this application's run.
func (o *Orchestrator) onboardApplication(ctx context.Context, tenant *models.Tenant, identitySet *models.ApplicationSignatureSet, appName string) error {
	app, err := o.applications.Get(ctx, appName)
	if err != nil {
		return err
	}

	imName := tenant.IdentityManagerApplicationName
	imURI := tenant.IdentityManagerApplicationURI

	// Register the application's permittable endpoints as groups.
	endpoints := o.authorization.DiscoverPermittableEndpoints(ctx, tenant.Identifier, app.Homepage)
	for _, group := range o.group.Permittables(endpoints) {
		expectation := o.identity.CreateOrFindPermittableGroup(ctx, tenant.Identifier, imName, imURI, group)
		if !expectation.Wait(o.ackTimeout) {
			log.Warn().
				Str("tenant", tenant.Identifier).
				Str("group", group.Identifier).
				Msg("No acknowledgment for permittable group, proceeding anyway")
		}
	}

	// Have the application mint its signature bound to the identity
	// manager's current key epoch.
	appSet, err := o.authorization.CreateSignatureSet(ctx, tenant.Identifier, appName, app.Homepage,
		identitySet.Timestamp, identitySet.IdentityManagerSignature)
	if err != nil {
		return err
	}

	permissions := o.authorization.DiscoverRequiredPermissions(ctx, tenant.Identifier, app.Homepage)

	expectation := o.identity.PushApplicationSignature(ctx, tenant.Identifier, imName, imURI, appName, *appSet)
	if !expectation.Wait(o.ackTimeout) {
		log.Warn().
			Str("tenant", tenant.Identifier).
			Str("application", appName).
			Msg("No acknowledgment for application signature, proceeding anyway")
	}

	for _, permission := range permissions {
		o.identity.CreateOrFindApplicationPermission(ctx, tenant.Identifier, imName, imURI, appName, permission.Permission)
	}
	for _, set := range o.group.EndpointSets(permissions) {
		o.identity.CreateOrFindCallEndpointSet(ctx, tenant.Identifier, imName, imURI, appName, set)
	}

	// Always last: by now the application's security material is registered,
	// so calls it makes back during initialization can be authorized.
	return o.authorization.InitializeResources(ctx, tenant.Identifier, appName, app.Homepage)
}
