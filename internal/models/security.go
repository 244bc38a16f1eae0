package models

// Signature is the public half of an RSA key pair, transported as
// base64url-encoded big-endian integers.
type Signature struct {
	PublicKeyMod string `json:"publicKeyMod"`
	PublicKeyExp string `json:"publicKeyExp"`
}

// ApplicationSignatureSet binds an application's signature to the identity
// manager's signature for one key epoch. One exists per tenant for the
// identity manager itself and one per (tenant, application) pair once the
// application has been assigned.
type ApplicationSignatureSet struct {
	Timestamp                string    `json:"timestamp"`
	ApplicationSignature     Signature `json:"applicationSignature"`
	IdentityManagerSignature Signature `json:"identityManagerSignature"`
}

// PermittableEndpoint is one authorizable (path, method) unit declared by a
// target application, tagged with the group it belongs to.
type PermittableEndpoint struct {
	Path    string `json:"path"`
	Method  string `json:"method"`
	GroupID string `json:"groupId"`
}

// PermittableGroup is the unit registered with the identity manager: a named
// bundle of permittable endpoints.
type PermittableGroup struct {
	Identifier   string                `json:"identifier"`
	Permittables []PermittableEndpoint `json:"permittables"`
}

// AllowedOperation enumerates what a permission allows against a group.
type AllowedOperation string

const (
	OperationRead   AllowedOperation = "READ"
	OperationChange AllowedOperation = "CHANGE"
	OperationDelete AllowedOperation = "DELETE"
)

// AllOperations expands the ALL shorthand used by permission declarations.
func AllOperations() []AllowedOperation {
	return []AllowedOperation{OperationRead, OperationChange, OperationDelete}
}

// Permission grants a set of operations against one permittable group.
type Permission struct {
	PermittableGroupIdentifier string             `json:"permittableEndpointGroupIdentifier"`
	AllowedOperations          []AllowedOperation `json:"allowedOperations"`
}

// ApplicationPermission is one permission an application requires, tagged
// with the endpoint-set purpose it should be grouped under.
type ApplicationPermission struct {
	EndpointSetIdentifier string     `json:"endpointSetIdentifier"`
	Permission            Permission `json:"permission"`
}

// CallEndpointSet names the permittable groups one caller purpose spans.
type CallEndpointSet struct {
	Identifier                  string   `json:"identifier"`
	PermittableGroupIdentifiers []string `json:"permittableEndpointGroupIdentifiers"`
}
