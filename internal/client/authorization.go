package client

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/security"
)

// Authorization drives the security surface every onboarded application
// exposes: anonymous discovery of its permittable endpoints and required
// permissions, plus the authenticated calls that hand it the identity
// manager's signature and kick off its resource initialization.
type Authorization struct {
	caller *Caller
	minter *security.Minter
}

func NewAuthorization(caller *Caller, minter *security.Minter) *Authorization {
	return &Authorization{caller: caller, minter: minter}
}

// DiscoverPermittableEndpoints asks an application which of its endpoints can
// be permitted to others. Discovery is anonymous and degrades to an empty
// list when the application does not expose the endpoint.
func (c *Authorization) DiscoverPermittableEndpoints(ctx context.Context, tenant, appURI string) []models.PermittableEndpoint {
	var endpoints []models.PermittableEndpoint
	err := c.caller.do(security.GuestCall(ctx, tenant), http.MethodGet, joinURL(appURI, "permittables"), nil, &endpoints)
	if err != nil {
		log.Info().Err(err).Str("uri", appURI).Msg("Application exposes no permittable endpoints")
		return nil
	}
	return endpoints
}

// DiscoverRequiredPermissions asks an application which permissions it needs
// to call other services. Same anonymous, degrade-to-empty contract as
// endpoint discovery.
func (c *Authorization) DiscoverRequiredPermissions(ctx context.Context, tenant, appURI string) []models.ApplicationPermission {
	var permissions []models.ApplicationPermission
	err := c.caller.do(security.GuestCall(ctx, tenant), http.MethodGet, joinURL(appURI, "permissionrequirements"), nil, &permissions)
	if err != nil {
		log.Info().Err(err).Str("uri", appURI).Msg("Application requires no permissions")
		return nil
	}
	return permissions
}

// CreateSignatureSet hands the identity manager's signature for one key
// timestamp to the application. The application mints its own signature bound
// to that key epoch and returns the combined set, which the saga later
// registers with the identity manager.
func (c *Authorization) CreateSignatureSet(ctx context.Context, tenant, appName, appURI, timestamp string, identitySignature models.Signature) (*models.ApplicationSignatureSet, error) {
	callCtx, err := c.minter.SystemCall(ctx, tenant, appName)
	if err != nil {
		return nil, faults.Internal(err, "failed to mint system token for %s", appName)
	}

	var signatureSet models.ApplicationSignatureSet
	err = c.caller.do(callCtx, http.MethodPost, joinURL(appURI, "signatures", timestamp), identitySignature, &signatureSet)
	if err != nil {
		return nil, faults.Internal(err, "failed to create signature set on %s", appName)
	}
	return &signatureSet, nil
}

// InitializeResources tells the application to set up its tenant-scoped
// resources. This is always the last step for an application; by then its
// permissions exist and it holds the identity signature, so the calls it
// makes back during initialization can be authorized.
func (c *Authorization) InitializeResources(ctx context.Context, tenant, appName, appURI string) error {
	callCtx, err := c.minter.SystemCall(ctx, tenant, appName)
	if err != nil {
		return faults.Internal(err, "failed to mint system token for %s", appName)
	}

	err = c.caller.do(callCtx, http.MethodPost, joinURL(appURI, "initialize"), nil, nil)
	if err != nil {
		return faults.Internal(err, "resource initialization of %s failed", appName)
	}
	return nil
}
