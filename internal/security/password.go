package security

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

// AdminPassword is the initial password for a tenant's super user. It is a
// fixed constant rather than a fresh random value: when the provisioner runs
// behind a gateway, create requests can be replayed, and each replay would
// regenerate the password while only one copy is ever returned to the
// caller. Provisioning scripts must change it immediately after login.
const AdminPassword = "ChangeThisPassword"

const (
	hashIterations = 4096
	hashLength     = 32 // bytes
	saltPrefix     = "antony"
)

// HashAdminPassword derives the salted hash of the initial admin password
// for one tenant. The salt binds the hash to the tenant and the deployment
// domain so identical passwords never share hashes across tenants.
func HashAdminPassword(tenant, domain string) string {
	salt := []byte(base64.StdEncoding.EncodeToString([]byte(saltPrefix + tenant + domain)))
	encodedPassword := base64.StdEncoding.EncodeToString([]byte(AdminPassword))

	hash := pbkdf2.Key([]byte(encodedPassword), salt, hashIterations, hashLength, sha256.New)
	return base64.StdEncoding.EncodeToString(hash)
}
