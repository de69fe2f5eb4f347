// Package revocation holds the X.509-specific records produced once a
// pending revoke operation is promoted: a RevokedKey entry and the
// CA's regenerated CRL.
package revocation

import (
	"context"
	"fmt"
	"time"
)

// Reason is an RFC 5280 CRL revocation reason.
type Reason string

const (
	ReasonUnspecified          Reason = "unspecified"
	ReasonKeyCompromise        Reason = "key_compromise"
	ReasonCACompromise         Reason = "ca_compromise"
	ReasonAffiliationChanged   Reason = "affiliation_changed"
	ReasonSuperseded           Reason = "superseded"
	ReasonCessationOfOperation Reason = "cessation_of_operation"
	ReasonCertificateHold      Reason = "certificate_hold"
	ReasonPrivilegeWithdrawn   Reason = "privilege_withdrawn"
	ReasonAACompromise         Reason = "aa_compromise"
)

func ParseReason(s string) (Reason, error) {
	switch Reason(s) {
	case ReasonUnspecified, ReasonKeyCompromise, ReasonCACompromise, ReasonAffiliationChanged,
		ReasonSuperseded, ReasonCessationOfOperation, ReasonCertificateHold,
		ReasonPrivilegeWithdrawn, ReasonAACompromise:
		return Reason(s), nil
	default:
		return "", fmt.Errorf("revocation: unsupported reason %q", s)
	}
}

// RevokedKey records that a key was revoked under its issuing CA, for
// inclusion in that CA's next CRL.
type RevokedKey struct {
	ID           int32
	KeyID        int32
	CAID         int32
	Reason       Reason
	SerialNumber *string
	CreatedAt    time.Time
}

// X509CRL is a CA's current certificate revocation list, stored as
// DER bytes.
type X509CRL struct {
	ID        int32
	CAID      int32
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewCRL(caID int32, data []byte, createdAt, updatedAt time.Time) X509CRL {
	return X509CRL{CAID: caID, Data: data, CreatedAt: createdAt, UpdatedAt: updatedAt}
}

// Repository persists RevokedKey and X509CRL records.
type Repository interface {
	CreateRevokedKey(ctx context.Context, rk RevokedKey) (RevokedKey, error)
	ListRevokedKeys(ctx context.Context, caID int32) ([]RevokedKey, error)
	GetCRL(ctx context.Context, caID int32) (*X509CRL, error)
	UpsertCRL(ctx context.Context, crl X509CRL) (X509CRL, error)
}
