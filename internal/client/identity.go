package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/events"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/security"
)

// Identity drives the identity manager's provisioning API. The create
// operations are idempotent toward the caller: an existing resource is read
// back and compared, never treated as a failure.
type Identity struct {
	caller   *Caller
	minter   *security.Minter
	registry *events.Registry
	domain   string
}

func NewIdentity(caller *Caller, minter *security.Minter, registry *events.Registry, domain string) *Identity {
	return &Identity{caller: caller, minter: minter, registry: registry, domain: domain}
}

// InitializeResult is what initializing the identity manager for a tenant
// yields: the tenant's root-of-trust signature set, and the hashed admin
// password on first initialization only.
type InitializeResult struct {
	SignatureSet  models.ApplicationSignatureSet
	AdminPassword string
}

// InitializeTenant initializes the identity manager instance for a tenant
// under a freshly minted system token. If the instance reports it is already
// initialized, the existing signature set is fetched and no password is
// returned; the original password is never regenerated.
func (c *Identity) InitializeTenant(ctx context.Context, tenant, appName, uri string) (*InitializeResult, error) {
	callCtx, err := c.minter.SystemCall(ctx, tenant, appName)
	if err != nil {
		return nil, faults.Internal(err, "failed to mint system token for tenant %s", tenant)
	}

	passwordHash := security.HashAdminPassword(tenant, c.domain)
	log.Debug().
		Str("tenant", tenant).
		Msg("Initial admin password is the documented constant; change it immediately after provisioning")

	// The hash is base64 and carries reserved characters, so it has to go
	// through query encoding.
	query := url.Values{"password": {passwordHash}}

	var signatureSet models.ApplicationSignatureSet
	err = c.caller.do(callCtx, http.MethodPost, joinURL(uri, "initialize")+"?"+query.Encode(), nil, &signatureSet)
	switch {
	case err == nil:
		log.Info().
			Str("tenant", tenant).
			Str("timestamp", signatureSet.Timestamp).
			Msg("Identity initialization succeeded")
		return &InitializeResult{SignatureSet: signatureSet, AdminPassword: passwordHash}, nil

	case errors.Is(err, ErrAlreadyExists):
		existing, err := c.GetLatestSignatureSet(callCtx, uri)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("tenant", tenant).
			Str("timestamp", existing.Timestamp).
			Msg("Identity already initialized, reusing existing signature set")
		return &InitializeResult{SignatureSet: *existing}, nil

	case errors.Is(err, ErrInvalidToken):
		log.Warn().Err(err).Msg("The identity instance didn't recognize the system token as valid")
		return nil, faults.Conflict(
			"the identity instance didn't recognize the system token as valid; " +
				"perhaps the system keys for the provisioner or the identity manager are misconfigured")

	default:
		return nil, faults.Internal(err, "identity initialization for tenant %s failed", tenant)
	}
}

// GetLatestSignatureSet fetches the identity manager's current signature set.
func (c *Identity) GetLatestSignatureSet(ctx context.Context, uri string) (*models.ApplicationSignatureSet, error) {
	var signatureSet models.ApplicationSignatureSet
	if err := c.caller.do(ctx, http.MethodGet, joinURL(uri, "signatures", "_latest"), nil, &signatureSet); err != nil {
		return nil, fmt.Errorf("failed to fetch latest signature set: %w", err)
	}
	return &signatureSet, nil
}

// CreateOrFindPermittableGroup registers one permittable group. The
// expectation for the creation acknowledgment is registered before the
// create call goes out so a fast acknowledgment cannot be missed; it is
// withdrawn whenever the call cannot produce one. The returned expectation
// is never nil and the caller decides how long to wait on it.
func (c *Identity) CreateOrFindPermittableGroup(ctx context.Context, tenant, imName, imURI string, group models.PermittableGroup) *events.Expectation {
	expectation := c.registry.ExpectPermittableGroupCreated(tenant, group.Identifier)

	callCtx, err := c.minter.SystemCall(ctx, tenant, imName)
	if err != nil {
		c.registry.Withdraw(expectation)
		log.Error().Err(err).Str("tenant", tenant).Msg("Failed to mint system token for group creation")
		return expectation
	}

	err = c.caller.do(callCtx, http.MethodPost, joinURL(imURI, "permittablegroups"), group, nil)
	switch {
	case err == nil:
		log.Info().
			Str("tenant", tenant).
			Str("group", group.Identifier).
			Msg("Permittable group creation requested")

	case errors.Is(err, ErrAlreadyExists):
		// No acknowledgment will ever come for a no-op create.
		c.registry.Withdraw(expectation)

		var existing models.PermittableGroup
		if err := c.caller.do(callCtx, http.MethodGet, joinURL(imURI, "permittablegroups", group.Identifier), nil, &existing); err != nil {
			log.Error().Err(err).Str("group", group.Identifier).Msg("Failed to fetch existing permittable group")
			return expectation
		}

		// Compare as sets; remote ordering is not meaningful.
		if !endpointSetsEqual(existing.Permittables, group.Permittables) {
			log.Warn().
				Str("tenant", tenant).
				Str("group", group.Identifier).
				Interface("needed", group.Permittables).
				Interface("existing", existing.Permittables).
				Msg("Permittable group already exists with different contents")
		}

	default:
		c.registry.Withdraw(expectation)
		log.Error().Err(err).
			Str("tenant", tenant).
			Str("group", group.Identifier).
			Msg("Creating permittable group failed")
	}

	return expectation
}

// PushApplicationSignature hands an application's signature set to the
// identity manager, returning the expectation for its acknowledgment.
func (c *Identity) PushApplicationSignature(ctx context.Context, tenant, imName, imURI, appName string, signatureSet models.ApplicationSignatureSet) *events.Expectation {
	expectation := c.registry.ExpectApplicationSignatureSet(tenant, appName, signatureSet.Timestamp)

	callCtx, err := c.minter.SystemCall(ctx, tenant, imName)
	if err != nil {
		c.registry.Withdraw(expectation)
		log.Error().Err(err).Str("tenant", tenant).Msg("Failed to mint system token for signature push")
		return expectation
	}

	err = c.caller.do(callCtx, http.MethodPut,
		joinURL(imURI, "applications", appName, "signatures", signatureSet.Timestamp),
		signatureSet.ApplicationSignature, nil)
	if err != nil {
		c.registry.Withdraw(expectation)
		log.Error().Err(err).
			Str("tenant", tenant).
			Str("application", appName).
			Msg("Pushing application signature failed")
	}

	return expectation
}

// CreateOrFindApplicationPermission registers one permission an application
// requires. No acknowledgment event exists for permissions; the call either
// lands or the existing permission is compared and logged.
func (c *Identity) CreateOrFindApplicationPermission(ctx context.Context, tenant, imName, imURI, appName string, permission models.Permission) {
	callCtx, err := c.minter.SystemCall(ctx, tenant, imName)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenant).Msg("Failed to mint system token for permission creation")
		return
	}

	err = c.caller.do(callCtx, http.MethodPost, joinURL(imURI, "applications", appName, "permissions"), permission, nil)
	switch {
	case err == nil:
		log.Info().
			Str("application", appName).
			Str("group", permission.PermittableGroupIdentifier).
			Msg("Application permission created")

	case errors.Is(err, ErrAlreadyExists):
		var existing models.Permission
		if err := c.caller.do(callCtx, http.MethodGet,
			joinURL(imURI, "applications", appName, "permissions", permission.PermittableGroupIdentifier), nil, &existing); err != nil {
			log.Error().Err(err).Str("group", permission.PermittableGroupIdentifier).Msg("Failed to fetch existing permission")
			return
		}
		if !operationSetsEqual(existing.AllowedOperations, permission.AllowedOperations) {
			log.Warn().
				Str("application", appName).
				Str("group", permission.PermittableGroupIdentifier).
				Msg("Permission already exists with different allowed operations")
		}

	default:
		log.Error().Err(err).
			Str("application", appName).
			Str("group", permission.PermittableGroupIdentifier).
			Msg("Creating permission failed")
	}
}

// CreateOrFindCallEndpointSet registers one call endpoint set, with the same
// create-or-compare idempotence as permissions.
func (c *Identity) CreateOrFindCallEndpointSet(ctx context.Context, tenant, imName, imURI, appName string, set models.CallEndpointSet) {
	callCtx, err := c.minter.SystemCall(ctx, tenant, imName)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenant).Msg("Failed to mint system token for call endpoint set creation")
		return
	}

	err = c.caller.do(callCtx, http.MethodPost, joinURL(imURI, "applications", appName, "callendpointsets"), set, nil)
	switch {
	case err == nil:
		log.Info().
			Str("application", appName).
			Str("set", set.Identifier).
			Msg("Call endpoint set created")

	case errors.Is(err, ErrAlreadyExists):
		var existing models.CallEndpointSet
		if err := c.caller.do(callCtx, http.MethodGet,
			joinURL(imURI, "applications", appName, "callendpointsets", set.Identifier), nil, &existing); err != nil {
			log.Error().Err(err).Str("set", set.Identifier).Msg("Failed to fetch existing call endpoint set")
			return
		}
		if !stringSetsEqual(existing.PermittableGroupIdentifiers, set.PermittableGroupIdentifiers) {
			log.Warn().
				Str("application", appName).
				Str("set", set.Identifier).
				Msg("Call endpoint set already exists with different contents")
		}

	default:
		log.Error().Err(err).
			Str("application", appName).
			Str("set", set.Identifier).
			Msg("Creating call endpoint set failed")
	}
}

func endpointSetsEqual(a, b []models.PermittableEndpoint) bool {
	if len(setOfEndpoints(a)) != len(setOfEndpoints(b)) {
		return false
	}
	setB := setOfEndpoints(b)
	for endpoint := range setOfEndpoints(a) {
		if _, ok := setB[endpoint]; !ok {
			return false
		}
	}
	return true
}

func setOfEndpoints(endpoints []models.PermittableEndpoint) map[models.PermittableEndpoint]struct{} {
	set := make(map[models.PermittableEndpoint]struct{}, len(endpoints))
	for _, endpoint := range endpoints {
		set[endpoint] = struct{}{}
	}
	return set
}

func operationSetsEqual(a, b []models.AllowedOperation) bool {
	setA := make(map[models.AllowedOperation]struct{}, len(a))
	for _, op := range a {
		setA[op] = struct{}{}
	}
	setB := make(map[models.AllowedOperation]struct{}, len(b))
	for _, op := range b {
		setB[op] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for op := range setA {
		if _, ok := setB[op]; !ok {
			return false
		}
	}
	return true
}

func stringSetsEqual(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for s := range setA {
		if _, ok := setB[s]; !ok {
			return false
		}
	}
	return true
}
