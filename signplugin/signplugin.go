// Package signplugin implements the sign algorithms a DataKey's material
// belongs to: OpenPGP and the X.509 CA/intermediate/end-entity roles. A
// plugin never touches storage or encryption directly — it receives
// already-decrypted key material and returns freshly generated material
// or a signature, nothing else.
package signplugin

import (
	"context"
	"time"
)

// Attribute keys shared across every plugin: the key's bit length, the
// digest algorithm it signs with, and (where applicable) its
// expiration. x509.go and openpgp.go each add the attribute keys
// specific to their own role.
const (
	AttrKeyLength       = "key_length"
	AttrDigestAlgorithm = "digest_algorithm"
	AttrExpireAt        = "expire_at"
)

// Material is the key content a plugin produces when asked to generate
// a new key pair (or certificate, for the X.509 roles).
type Material struct {
	PrivateKey   []byte
	PublicKey    []byte
	Certificate  []byte
	Fingerprint  string
	SerialNumber string
}

// ParentMaterial carries an issuer's decrypted private key and
// certificate down to a child key generation call. Only the X.509
// intermediate and end-entity roles require one.
type ParentMaterial struct {
	Name        string
	PrivateKey  []byte
	Certificate []byte
}

// Key is a plugin's view of an existing, already-decrypted key: enough
// to sign content or export its public material.
type Key struct {
	Name        string
	Identity    string
	PrivateKey  []byte
	PublicKey   []byte
	Certificate []byte
	Attributes  map[string]string
	Parent      *ParentMaterial
}

// Plugin is the contract every sign algorithm implements. Implementations
// are stateless: GenerateKeys and Sign both take the material they need
// as arguments rather than holding it across calls.
type Plugin interface {
	GenerateKeys(ctx context.Context, attributes map[string]string, parent *ParentMaterial) (Material, error)
	Sign(ctx context.Context, key Key, content []byte, options map[string]string) ([]byte, error)
}

// RevokedCertificate is one entry in a certificate revocation list.
type RevokedCertificate struct {
	SerialNumber string
	RevokedAt    time.Time
}

// CRLIssuer is an optional capability of the X.509 CA and intermediate
// roles: only an issuing certificate can sign a CRL over the keys it
// chains to.
type CRLIssuer interface {
	GenerateCRL(ctx context.Context, key Key, revoked []RevokedCertificate, thisUpdate, nextUpdate time.Time) ([]byte, error)
}
