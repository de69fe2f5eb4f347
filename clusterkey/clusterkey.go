// Package clusterkey holds the entities one level below the envelope
// encryption engine: cluster keys are themselves encrypted at rest (by
// the KMS adapter), loaded once, decrypted into memory and cached as
// SecClusterKey for the lifetime of a process or until rotation.
package clusterkey

import (
	"context"
	"fmt"
	"time"

	"github.com/keyforge-project/keyforge/kms"
)

// Algorithm identifies the symmetric cipher a cluster key was generated
// for. keyforge only ships aes256-gcm-siv, but the field is carried
// through so a future cipher can coexist with keys wrapped under the
// old one during a migration.
const AlgorithmAES256GCMSIV = "aes256-gcm-siv"

// ClusterKey is the at-rest representation: Data is hex text already
// encrypted through the KMS adapter.
type ClusterKey struct {
	ID        int32
	Data      []byte
	Algorithm string
	Identity  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// New builds a ClusterKey whose Identity encodes the algorithm and
// creation date, and whose ExpiresAt is keepInDays out from now.
func New(data []byte, algorithm string, keepInDays int64) ClusterKey {
	now := time.Now().UTC()
	return ClusterKey{
		Data:      data,
		Algorithm: algorithm,
		Identity:  fmt.Sprintf("%s-%s", algorithm, now.Format("02-01-2006")),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(keepInDays) * 24 * time.Hour),
	}
}

func (c ClusterKey) String() string {
	return fmt.Sprintf("id: %d, data: ******, algorithm: %s", c.ID, c.Algorithm)
}

// SecClusterKey is the in-memory, KMS-decrypted form used to actually
// wrap and unwrap data keys. Its Data is raw key bytes, never logged or
// serialized — callers must not print it directly.
type SecClusterKey struct {
	ID       int32
	Data     []byte
	Algorithm string
	Identity string
}

func (s SecClusterKey) String() string {
	return fmt.Sprintf("id: %d, data: ******, algorithm: %s", s.ID, s.Algorithm)
}

// Load decrypts a ClusterKey's Data through the KMS adapter, producing
// the usable in-memory key.
func Load(ctx context.Context, ck ClusterKey, adapter kms.Adapter) (SecClusterKey, error) {
	plainHex, err := adapter.Decode(ctx, string(ck.Data))
	if err != nil {
		return SecClusterKey{}, fmt.Errorf("clusterkey: decode via kms: %w", err)
	}
	raw, err := DecodeHex(plainHex)
	if err != nil {
		return SecClusterKey{}, fmt.Errorf("clusterkey: decode hex: %w", err)
	}
	return SecClusterKey{
		ID:        ck.ID,
		Data:      raw,
		Algorithm: ck.Algorithm,
		Identity:  ck.Identity,
	}, nil
}

// Seal is the inverse of Load: it hex-encodes raw key bytes and passes
// them through the KMS adapter to produce the at-rest ClusterKey.Data.
func Seal(ctx context.Context, raw []byte, algorithm string, keepInDays int64, adapter kms.Adapter) (ClusterKey, error) {
	sealed, err := adapter.Encode(ctx, EncodeHex(raw))
	if err != nil {
		return ClusterKey{}, fmt.Errorf("clusterkey: encode via kms: %w", err)
	}
	ck := New([]byte(sealed), algorithm, keepInDays)
	return ck, nil
}

// Repository persists ClusterKey records. It never sees decrypted key
// material — that only exists in the SecClusterKey produced by Load.
type Repository interface {
	Create(ctx context.Context, ck ClusterKey) (ClusterKey, error)
	GetLatest(ctx context.Context, algorithm string) (*ClusterKey, error)
	GetByID(ctx context.Context, id int32) (ClusterKey, error)
	DeleteByID(ctx context.Context, id int32) error
}
