package signplugin

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openpgpAttrs() map[string]string {
	return map[string]string{
		AttrName:            "fake_name",
		AttrEmail:           "fake_email@example.com",
		AttrKeyLength:       "2048",
		AttrDigestAlgorithm: "sha2_256",
		AttrExpireAt:        time.Now().Add(365 * 24 * time.Hour).Format(time.RFC3339),
		AttrPassphrase:      "hunter2",
	}
}

func TestOpenPGPGenerateKeys(t *testing.T) {
	plugin := NewOpenPGP()
	material, err := plugin.GenerateKeys(context.Background(), openpgpAttrs(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(material.PrivateKey), "BEGIN PGP PRIVATE KEY BLOCK")
	assert.Contains(t, string(material.PublicKey), "BEGIN PGP PUBLIC KEY BLOCK")
	assert.NotEmpty(t, material.Fingerprint)
	assert.Equal(t, material.Fingerprint, material.SerialNumber)
}

func TestOpenPGPGenerateKeysMissingEmail(t *testing.T) {
	plugin := NewOpenPGP()
	attrs := openpgpAttrs()
	delete(attrs, AttrEmail)
	_, err := plugin.GenerateKeys(context.Background(), attrs, nil)
	assert.Error(t, err)
}

func TestOpenPGPSignDetachedArmored(t *testing.T) {
	plugin := NewOpenPGP()
	attrs := openpgpAttrs()
	delete(attrs, AttrPassphrase)
	material, err := plugin.GenerateKeys(context.Background(), attrs, nil)
	require.NoError(t, err)

	key := Key{
		Identity:   "test-key",
		PrivateKey: material.PrivateKey,
		PublicKey:  material.PublicKey,
	}
	content := []byte("hello world")
	signature, err := plugin.Sign(context.Background(), key, content, map[string]string{OptionDetached: "true"})
	require.NoError(t, err)
	assert.Contains(t, string(signature), "BEGIN PGP SIGNATURE")

	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(material.PublicKey))
	require.NoError(t, err)
	_, err = openpgp.CheckArmoredDetachedSignature(entityList, bytes.NewReader(content), bytes.NewReader(signature), nil)
	assert.NoError(t, err)
}

func TestOpenPGPSignWithPassphrase(t *testing.T) {
	plugin := NewOpenPGP()
	attrs := openpgpAttrs()
	material, err := plugin.GenerateKeys(context.Background(), attrs, nil)
	require.NoError(t, err)

	key := Key{Identity: "test-key", PrivateKey: material.PrivateKey}
	_, err = plugin.Sign(context.Background(), key, []byte("hello"), map[string]string{
		OptionPassphrase: attrs[AttrPassphrase],
		OptionDetached:   "true",
	})
	assert.NoError(t, err)

	_, err = plugin.Sign(context.Background(), key, []byte("hello"), map[string]string{OptionDetached: "true"})
	assert.Error(t, err, "signing without the passphrase should fail")
}

func TestOpenPGPDigestAlgorithmUnsupported(t *testing.T) {
	_, err := pgpDigestAlgorithm("md5")
	assert.Error(t, err)
}
