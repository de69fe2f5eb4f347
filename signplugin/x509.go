package signplugin

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"go.mozilla.org/pkcs7"
)

// Attribute keys specific to the CA, intermediate and end-entity
// roles. AttrKeyLength, AttrDigestAlgorithm and AttrExpireAt are
// declared in signplugin.go and shared with the OpenPGP plugin.
const (
	AttrCommonName         = "common_name"
	AttrOrganizationalUnit = "organizational_unit"
	AttrOrganization       = "organization"
	AttrLocality           = "locality"
	AttrProvinceName       = "province_name"
	AttrCountryName        = "country_name"
	AttrCreateAt           = "create_at"
)

// OptionSignType selects the detached signature container. All three
// forms are produced as a PKCS#7/CMS SignedData structure; Authenticode
// differs only in the SpcIndirectData digest its caller (the EFI file
// handler) hashes before handing content down to Sign.
const OptionSignType = "sign_type"

const (
	SignTypeCMS          = "cms"
	SignTypePKCS7        = "pkcs7"
	SignTypeAuthenticode = "authenticode"
)

// x509SignatureAlgorithms omits sha2_224: crypto/x509 has no
// SHA224WithRSA constant, so that digest cannot be honored for a
// certificate signature.
var x509SignatureAlgorithms = map[string]x509.SignatureAlgorithm{
	"md5":      x509.MD5WithRSA,
	"sha1":     x509.SHA1WithRSA,
	"sha2_256": x509.SHA256WithRSA,
	"sha2_384": x509.SHA384WithRSA,
	"sha2_512": x509.SHA512WithRSA,
}

func x509SubjectName(attrs map[string]string) pkix.Name {
	return pkix.Name{
		CommonName:         attrs[AttrCommonName],
		OrganizationalUnit: []string{attrs[AttrOrganizationalUnit]},
		Organization:       []string{attrs[AttrOrganization]},
		Locality:           []string{attrs[AttrLocality]},
		Province:           []string{attrs[AttrProvinceName]},
		Country:            []string{attrs[AttrCountryName]},
	}
}

func x509KeyBits(attrs map[string]string) (int, error) {
	raw := attrs[AttrKeyLength]
	if raw == "" {
		return 2048, nil
	}
	bits, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("signplugin: invalid x509 key_length %q: %w", raw, err)
	}
	return bits, nil
}

func x509SignatureAlgorithm(attrs map[string]string) (x509.SignatureAlgorithm, error) {
	name := attrs[AttrDigestAlgorithm]
	if name == "" {
		return x509.SHA256WithRSA, nil
	}
	alg, ok := x509SignatureAlgorithms[name]
	if !ok {
		return 0, fmt.Errorf("signplugin: unsupported x509 digest algorithm %q", name)
	}
	return alg, nil
}

func x509Validity(attrs map[string]string) (notBefore, notAfter time.Time, err error) {
	notBefore, err = parseX509AttrTime(attrs[AttrCreateAt])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("signplugin: invalid x509 create_at: %w", err)
	}
	notAfter, err = parseX509AttrTime(attrs[AttrExpireAt])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("signplugin: invalid x509 expire_at: %w", err)
	}
	return notBefore, notAfter, nil
}

func parseX509AttrTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func generateSerialNumber() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("signplugin: generate x509 serial number: %w", err)
	}
	return serial, nil
}

func fingerprintOf(der []byte) string {
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func subjectKeyID(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("signplugin: marshal x509 public key: %w", err)
	}
	sum := sha1.Sum(der)
	return sum[:], nil
}

func encodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func encodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("signplugin: marshal x509 public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func parsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signplugin: no PEM block in x509 private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("signplugin: parse x509 private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signplugin: x509 private key is not RSA")
	}
	return key, nil
}

func parseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signplugin: no PEM block in x509 certificate")
	}
	return x509.ParseCertificate(block.Bytes)
}

func validateSignType(options map[string]string) error {
	switch options[OptionSignType] {
	case "", SignTypeCMS, SignTypePKCS7, SignTypeAuthenticode:
		return nil
	default:
		return fmt.Errorf("signplugin: unsupported sign_type %q", options[OptionSignType])
	}
}

// signPKCS7 produces a detached PKCS#7/CMS signature over content using
// key's certificate and private key. Shared by all three X.509 roles.
func signPKCS7(key Key, content []byte, options map[string]string) ([]byte, error) {
	if err := validateSignType(options); err != nil {
		return nil, err
	}
	priv, err := parsePrivateKeyPEM(key.PrivateKey)
	if err != nil {
		return nil, err
	}
	cert, err := parseCertificatePEM(key.Certificate)
	if err != nil {
		return nil, err
	}
	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("signplugin: init pkcs7 signed data for %s: %w", key.Identity, err)
	}
	if key.Parent != nil {
		if parentCert, err := parseCertificatePEM(key.Parent.Certificate); err == nil {
			signedData.AddCertificate(parentCert)
		}
	}
	if err := signedData.AddSigner(cert, priv, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("signplugin: add pkcs7 signer for %s: %w", key.Identity, err)
	}
	signedData.Detach()
	der, err := signedData.Finish()
	if err != nil {
		return nil, fmt.Errorf("signplugin: finish pkcs7 signature for %s: %w", key.Identity, err)
	}
	return der, nil
}

func generateCRL(key Key, revoked []RevokedCertificate, thisUpdate, nextUpdate time.Time) ([]byte, error) {
	priv, err := parsePrivateKeyPEM(key.PrivateKey)
	if err != nil {
		return nil, err
	}
	cert, err := parseCertificatePEM(key.Certificate)
	if err != nil {
		return nil, err
	}
	entries := make([]x509.RevocationListEntry, 0, len(revoked))
	for _, r := range revoked {
		serial, ok := new(big.Int).SetString(r.SerialNumber, 16)
		if !ok {
			return nil, fmt.Errorf("signplugin: invalid revoked serial number %q", r.SerialNumber)
		}
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   serial,
			RevocationTime: r.RevokedAt,
		})
	}
	number, err := generateSerialNumber()
	if err != nil {
		return nil, err
	}
	template := &x509.RevocationList{
		Number:                    number,
		ThisUpdate:                thisUpdate,
		NextUpdate:                nextUpdate,
		RevokedCertificateEntries: entries,
	}
	der, err := x509.CreateRevocationList(rand.Reader, template, cert, priv)
	if err != nil {
		return nil, fmt.Errorf("signplugin: sign crl for %s: %w", key.Identity, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: der}), nil
}

// X509CA generates and signs with the root certificate authority's own
// self-signed material.
type X509CA struct{}

func NewX509CA() *X509CA { return &X509CA{} }

func (*X509CA) GenerateKeys(_ context.Context, attrs map[string]string, _ *ParentMaterial) (Material, error) {
	bits, err := x509KeyBits(attrs)
	if err != nil {
		return Material{}, err
	}
	sigAlg, err := x509SignatureAlgorithm(attrs)
	if err != nil {
		return Material{}, err
	}
	notBefore, notAfter, err := x509Validity(attrs)
	if err != nil {
		return Material{}, err
	}
	serial, err := generateSerialNumber()
	if err != nil {
		return Material{}, err
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: generate x509ca key: %w", err)
	}
	ski, err := subjectKeyID(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	subject := x509SubjectName(attrs)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		SignatureAlgorithm:    sigAlg,
		KeyUsage:              x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
		SubjectKeyId:          ski,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: self-sign x509ca certificate: %w", err)
	}
	publicPEM, err := encodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	return Material{
		PrivateKey:   encodePrivateKeyPEM(key),
		PublicKey:    publicPEM,
		Certificate:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Fingerprint:  fingerprintOf(der),
		SerialNumber: fmt.Sprintf("%X", serial),
	}, nil
}

func (*X509CA) Sign(_ context.Context, key Key, content []byte, options map[string]string) ([]byte, error) {
	return signPKCS7(key, content, options)
}

func (*X509CA) GenerateCRL(_ context.Context, key Key, revoked []RevokedCertificate, thisUpdate, nextUpdate time.Time) ([]byte, error) {
	return generateCRL(key, revoked, thisUpdate, nextUpdate)
}

// X509ICA generates and signs with an intermediate certificate chained
// to a parent CA; it is itself capable of issuing a CRL.
type X509ICA struct{}

func NewX509ICA() *X509ICA { return &X509ICA{} }

func (*X509ICA) GenerateKeys(_ context.Context, attrs map[string]string, parent *ParentMaterial) (Material, error) {
	if parent == nil {
		return Material{}, fmt.Errorf("signplugin: x509ica requires a parent CA key")
	}
	parentKey, err := parsePrivateKeyPEM(parent.PrivateKey)
	if err != nil {
		return Material{}, err
	}
	parentCert, err := parseCertificatePEM(parent.Certificate)
	if err != nil {
		return Material{}, err
	}
	bits, err := x509KeyBits(attrs)
	if err != nil {
		return Material{}, err
	}
	sigAlg, err := x509SignatureAlgorithm(attrs)
	if err != nil {
		return Material{}, err
	}
	notBefore, notAfter, err := x509Validity(attrs)
	if err != nil {
		return Material{}, err
	}
	serial, err := generateSerialNumber()
	if err != nil {
		return Material{}, err
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: generate x509ica key: %w", err)
	}
	ski, err := subjectKeyID(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               x509SubjectName(attrs),
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		SignatureAlgorithm:    sigAlg,
		KeyUsage:              x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
		SubjectKeyId:          ski,
		AuthorityKeyId:        parentCert.SubjectKeyId,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parentCert, &key.PublicKey, parentKey)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: sign x509ica certificate: %w", err)
	}
	publicPEM, err := encodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	return Material{
		PrivateKey:   encodePrivateKeyPEM(key),
		PublicKey:    publicPEM,
		Certificate:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Fingerprint:  fingerprintOf(der),
		SerialNumber: fmt.Sprintf("%X", serial),
	}, nil
}

func (*X509ICA) Sign(_ context.Context, key Key, content []byte, options map[string]string) ([]byte, error) {
	return signPKCS7(key, content, options)
}

func (*X509ICA) GenerateCRL(_ context.Context, key Key, revoked []RevokedCertificate, thisUpdate, nextUpdate time.Time) ([]byte, error) {
	return generateCRL(key, revoked, thisUpdate, nextUpdate)
}

// X509EE generates and signs with a leaf code-signing certificate
// chained to a parent CA or intermediate. It cannot issue a CRL.
type X509EE struct{}

func NewX509EE() *X509EE { return &X509EE{} }

func (*X509EE) GenerateKeys(_ context.Context, attrs map[string]string, parent *ParentMaterial) (Material, error) {
	if parent == nil {
		return Material{}, fmt.Errorf("signplugin: x509ee requires a parent CA/ICA key")
	}
	parentKey, err := parsePrivateKeyPEM(parent.PrivateKey)
	if err != nil {
		return Material{}, err
	}
	parentCert, err := parseCertificatePEM(parent.Certificate)
	if err != nil {
		return Material{}, err
	}
	bits, err := x509KeyBits(attrs)
	if err != nil {
		return Material{}, err
	}
	sigAlg, err := x509SignatureAlgorithm(attrs)
	if err != nil {
		return Material{}, err
	}
	notBefore, notAfter, err := x509Validity(attrs)
	if err != nil {
		return Material{}, err
	}
	serial, err := generateSerialNumber()
	if err != nil {
		return Material{}, err
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: generate x509ee key: %w", err)
	}
	ski, err := subjectKeyID(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	// KeyUsage is left unset: a code-signing leaf must carry no KeyUsage
	// extension at all for downstream verifiers such as sbverify to
	// accept it, so ExtKeyUsage alone governs what this certificate may
	// be used for.
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               x509SubjectName(attrs),
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		SignatureAlgorithm:    sigAlg,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
		IsCA:                  false,
		SubjectKeyId:          ski,
		AuthorityKeyId:        parentCert.SubjectKeyId,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parentCert, &key.PublicKey, parentKey)
	if err != nil {
		return Material{}, fmt.Errorf("signplugin: sign x509ee certificate: %w", err)
	}
	publicPEM, err := encodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return Material{}, err
	}
	return Material{
		PrivateKey:   encodePrivateKeyPEM(key),
		PublicKey:    publicPEM,
		Certificate:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Fingerprint:  fingerprintOf(der),
		SerialNumber: fmt.Sprintf("%X", serial),
	}, nil
}

func (*X509EE) Sign(_ context.Context, key Key, content []byte, options map[string]string) ([]byte, error) {
	return signPKCS7(key, content, options)
}
