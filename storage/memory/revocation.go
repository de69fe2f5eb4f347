package memory

import (
	"context"
	"sync"

	"github.com/keyforge-project/keyforge/revocation"
)

// RevocationRepository implements revocation.Repository: a slice of
// RevokedKey rows plus one current X509CRL per CA.
type RevocationRepository struct {
	mu       sync.Mutex
	revoked  []revocation.RevokedKey
	nextRK   int32
	crls     map[int32]revocation.X509CRL
}

func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{crls: make(map[int32]revocation.X509CRL)}
}

func (r *RevocationRepository) CreateRevokedKey(_ context.Context, rk revocation.RevokedKey) (revocation.RevokedKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRK++
	rk.ID = r.nextRK
	r.revoked = append(r.revoked, rk)
	return rk, nil
}

func (r *RevocationRepository) ListRevokedKeys(_ context.Context, caID int32) ([]revocation.RevokedKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []revocation.RevokedKey
	for _, rk := range r.revoked {
		if rk.CAID == caID {
			out = append(out, rk)
		}
	}
	return out, nil
}

func (r *RevocationRepository) GetCRL(_ context.Context, caID int32) (*revocation.X509CRL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	crl, ok := r.crls[caID]
	if !ok {
		return nil, nil
	}
	cp := crl
	return &cp, nil
}

func (r *RevocationRepository) UpsertCRL(_ context.Context, crl revocation.X509CRL) (revocation.X509CRL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.crls[crl.CAID]; ok {
		crl.ID = existing.ID
	} else {
		crl.ID = int32(len(r.crls) + 1)
	}
	r.crls[crl.CAID] = crl
	return crl, nil
}
