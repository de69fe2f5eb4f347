// Package signbackend composes the envelope encryption engine with the
// sign plugins to implement datakey.SignBackend. It holds no state of
// its own: every call fetches what it needs from the DataKey it is
// given and the engine.
package signbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/keyforge-project/keyforge/datakey"
	"github.com/keyforge-project/keyforge/encryption"
	"github.com/keyforge-project/keyforge/signplugin"
)

// Backend dispatches DataKey operations to the signplugin registered
// for that key's type, decrypting and re-encrypting material through
// the encryption engine along the way.
type Backend struct {
	engine  *encryption.Engine
	plugins map[datakey.KeyType]signplugin.Plugin
}

// New wires a Backend with the default plugin for every key type.
func New(engine *encryption.Engine) *Backend {
	return &Backend{
		engine: engine,
		plugins: map[datakey.KeyType]signplugin.Plugin{
			datakey.KeyTypeOpenPGP: signplugin.NewOpenPGP(),
			datakey.KeyTypeX509CA:  signplugin.NewX509CA(),
			datakey.KeyTypeX509ICA: signplugin.NewX509ICA(),
			datakey.KeyTypeX509EE:  signplugin.NewX509EE(),
		},
	}
}

func (b *Backend) pluginFor(t datakey.KeyType) (signplugin.Plugin, error) {
	plugin, ok := b.plugins[t]
	if !ok {
		return nil, fmt.Errorf("signbackend: no plugin registered for key type %q", t)
	}
	return plugin, nil
}

// GenerateKeys asks the key's plugin to produce fresh material (chaining
// to a decrypted parent key's material for the X.509 ICA/EE roles) and
// fills key's material fields. The private key is stored encrypted; the
// public key and certificate are stored in the clear, matching what
// DataKey.ExportOne hands back.
func (b *Backend) GenerateKeys(ctx context.Context, key *datakey.DataKey) error {
	plugin, err := b.pluginFor(key.KeyType)
	if err != nil {
		return err
	}

	var parent *signplugin.ParentMaterial
	if key.ParentKey != nil {
		parentPrivate, err := b.engine.Decode(ctx, key.ParentKey.PrivateKey)
		if err != nil {
			return fmt.Errorf("signbackend: decode parent private key for %s: %w", key.Identity(), err)
		}
		parent = &signplugin.ParentMaterial{
			Name:        key.ParentKey.Name,
			PrivateKey:  parentPrivate,
			Certificate: key.ParentKey.Certificate,
		}
	}

	material, err := plugin.GenerateKeys(ctx, key.Attributes, parent)
	if err != nil {
		return fmt.Errorf("signbackend: generate keys for %s: %w", key.Identity(), err)
	}

	encodedPrivate, err := b.engine.Encode(material.PrivateKey)
	if err != nil {
		return fmt.Errorf("signbackend: encode private key for %s: %w", key.Identity(), err)
	}
	key.PrivateKey = encodedPrivate
	key.PublicKey = material.PublicKey
	key.Certificate = material.Certificate
	key.Fingerprint = material.Fingerprint
	if material.SerialNumber != "" {
		serial := material.SerialNumber
		key.SerialNumber = &serial
	}
	return nil
}

// DecodePublicKeys is a no-op today: DataKey.PublicKey and Certificate
// are never envelope-encrypted, only PrivateKey is. It exists to satisfy
// datakey.SignBackend and to give export a single seam if that changes.
func (b *Backend) DecodePublicKeys(_ context.Context, _ *datakey.DataKey) error {
	return nil
}

// Sign decrypts key's private key material and dispatches to its plugin.
func (b *Backend) Sign(ctx context.Context, key datakey.DataKey, content []byte, options map[string]string) ([]byte, error) {
	plugin, err := b.pluginFor(key.KeyType)
	if err != nil {
		return nil, err
	}
	privateKey, err := b.engine.Decode(ctx, key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("signbackend: decode private key for %s: %w", key.Identity(), err)
	}

	pluginKey := signplugin.Key{
		Name:        key.Name,
		Identity:    key.Identity(),
		PrivateKey:  privateKey,
		PublicKey:   key.PublicKey,
		Certificate: key.Certificate,
		Attributes:  key.Attributes,
	}
	if key.ParentKey != nil {
		pluginKey.Parent = &signplugin.ParentMaterial{
			Name:        key.ParentKey.Name,
			Certificate: key.ParentKey.Certificate,
		}
	}
	signature, err := plugin.Sign(ctx, pluginKey, content, options)
	if err != nil {
		return nil, fmt.Errorf("signbackend: sign with %s: %w", key.Identity(), err)
	}
	return signature, nil
}

// GenerateCRL decrypts the issuer key's private key and produces a CRL
// over revoked. It returns an error for key types that cannot issue one
// (OpenPGP, X.509 end-entity).
func (b *Backend) GenerateCRL(ctx context.Context, issuer datakey.DataKey, revoked []signplugin.RevokedCertificate, thisUpdate, nextUpdate time.Time) ([]byte, error) {
	plugin, err := b.pluginFor(issuer.KeyType)
	if err != nil {
		return nil, err
	}
	crlIssuer, ok := plugin.(signplugin.CRLIssuer)
	if !ok {
		return nil, fmt.Errorf("signbackend: key type %q cannot issue a CRL", issuer.KeyType)
	}
	privateKey, err := b.engine.Decode(ctx, issuer.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("signbackend: decode issuer private key for %s: %w", issuer.Identity(), err)
	}
	pluginKey := signplugin.Key{
		Name:        issuer.Name,
		Identity:    issuer.Identity(),
		PrivateKey:  privateKey,
		Certificate: issuer.Certificate,
	}
	content, err := crlIssuer.GenerateCRL(ctx, pluginKey, revoked, thisUpdate, nextUpdate)
	if err != nil {
		return nil, fmt.Errorf("signbackend: generate crl for %s: %w", issuer.Identity(), err)
	}
	return content, nil
}
