package signplugin

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"strconv"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Attribute keys specific to OpenPGP.GenerateKeys. AttrKeyLength,
// AttrDigestAlgorithm and AttrExpireAt are declared in signplugin.go
// and shared with the X.509 plugins.
const (
	AttrName       = "name"
	AttrEmail      = "email"
	AttrPassphrase = "passphrase"
)

// Sign option keys.
const (
	OptionDigestAlgorithm = "digest_algorithm"
	OptionPassphrase      = "passphrase"
	// OptionDetached selects an ASCII-armored standalone signature over
	// the raw binary signature packet. Either form is a detached
	// signature in the PGP sense — the signed content is never embedded.
	OptionDetached = "detached"
)

var pgpDigestAlgorithms = map[string]crypto.Hash{
	"none":     crypto.Hash(0),
	"md5":      crypto.MD5,
	"sha1":     crypto.SHA1,
	"sha2_224": crypto.SHA224,
	"sha2_256": crypto.SHA256,
	"sha2_384": crypto.SHA384,
	"sha2_512": crypto.SHA512,
	"sha3_224": crypto.SHA3_224,
	"sha3_256": crypto.SHA3_256,
	"sha3_384": crypto.SHA3_384,
	"sha3_512": crypto.SHA3_512,
}

func pgpDigestAlgorithm(name string) (crypto.Hash, error) {
	if name == "" {
		return crypto.SHA256, nil
	}
	h, ok := pgpDigestAlgorithms[name]
	if !ok {
		return 0, fmt.Errorf("signplugin: unsupported openpgp digest algorithm %q", name)
	}
	return h, nil
}

// OpenPGP generates and signs with OpenPGP (RFC 4880) key material.
type OpenPGP struct{}

func NewOpenPGP() *OpenPGP { return &OpenPGP{} }

func (o *OpenPGP) GenerateKeys(_ context.Context, attrs map[string]string, _ *ParentMaterial) (Material, error) {
	name := attrs[AttrName]
	email := attrs[AttrEmail]
	if name == "" || email == "" {
		return Material{}, fmt.Errorf("signplugin: openpgp requires %q and %q attributes", AttrName, AttrEmail)
	}
	bits := 2048
	if raw := attrs[AttrKeyLength]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Material{}, fmt.Errorf("signplugin: invalid openpgp key_length %q: %w", raw, err)
		}
		bits = parsed
	}
	digest, err := pgpDigestAlgorithm(attrs[AttrDigestAlgorithm])
	if err != nil {
		return Material{}, err
	}
	cfg := &packet.Config{
		DefaultHash: digest,
		Algorithm:   packet.PubKeyAlgoRSA,
		RSABits:     bits,
	}
	if raw := attrs[AttrExpireAt]; raw != "" {
		expireAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Material{}, fmt.Errorf("signplugin: invalid openpgp expire_at %q: %w", raw, err)
		}
		if lifetime := time.Until(expireAt); lifetime > 0 {
			cfg.KeyLifetimeSecs = uint32(lifetime.Seconds())
		}
	}

	entity, err := openpgp.NewEntity(name, "", email, cfg)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: generate openpgp entity: %w", err)
	}

	if passphrase := []byte(attrs[AttrPassphrase]); len(passphrase) > 0 {
		if err := entity.PrivateKey.Encrypt(passphrase); err != nil {
			return Material{}, fmt.Errorf("signplugin: encrypt openpgp private key: %w", err)
		}
		for _, subkey := range entity.Subkeys {
			if err := subkey.PrivateKey.Encrypt(passphrase); err != nil {
				return Material{}, fmt.Errorf("signplugin: encrypt openpgp subkey: %w", err)
			}
		}
	}

	privateArmored, err := armorPrivateKey(entity)
	if err != nil {
		return Material{}, err
	}
	publicArmored, err := armorPublicKey(entity)
	if err != nil {
		return Material{}, err
	}
	fingerprint := fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
	return Material{
		PrivateKey:   privateArmored,
		PublicKey:    publicArmored,
		Fingerprint:  fingerprint,
		SerialNumber: fingerprint,
	}, nil
}

func (o *OpenPGP) Sign(_ context.Context, key Key, content []byte, options map[string]string) ([]byte, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("signplugin: parse openpgp private key for %s: %w", key.Identity, err)
	}
	if len(entityList) == 0 {
		return nil, fmt.Errorf("signplugin: no openpgp entity found for %s", key.Identity)
	}
	entity := entityList[0]

	passphrase := []byte(options[OptionPassphrase])
	if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return nil, fmt.Errorf("signplugin: decrypt openpgp private key for %s: %w", key.Identity, err)
		}
	}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
				return nil, fmt.Errorf("signplugin: decrypt openpgp subkey for %s: %w", key.Identity, err)
			}
		}
	}

	digest, err := pgpDigestAlgorithm(options[OptionDigestAlgorithm])
	if err != nil {
		return nil, err
	}
	cfg := &packet.Config{DefaultHash: digest}

	var buf bytes.Buffer
	if options[OptionDetached] == "true" {
		if err := openpgp.ArmoredDetachSign(&buf, entity, bytes.NewReader(content), cfg); err != nil {
			return nil, fmt.Errorf("signplugin: armored openpgp sign for %s: %w", key.Identity, err)
		}
		return buf.Bytes(), nil
	}
	if err := openpgp.DetachSign(&buf, entity, bytes.NewReader(content), cfg); err != nil {
		return nil, fmt.Errorf("signplugin: openpgp sign for %s: %w", key.Identity, err)
	}
	return buf.Bytes(), nil
}

func armorPrivateKey(entity *openpgp.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		return nil, fmt.Errorf("signplugin: open openpgp private key armor writer: %w", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		return nil, fmt.Errorf("signplugin: serialize openpgp private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("signplugin: close openpgp private key armor: %w", err)
	}
	return buf.Bytes(), nil
}

func armorPublicKey(entity *openpgp.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, fmt.Errorf("signplugin: open openpgp public key armor writer: %w", err)
	}
	if err := entity.Serialize(w); err != nil {
		return nil, fmt.Errorf("signplugin: serialize openpgp public key: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("signplugin: close openpgp public key armor: %w", err)
	}
	return buf.Bytes(), nil
}
