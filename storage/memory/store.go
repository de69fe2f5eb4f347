// Package memory implements every repository interface the datakey,
// clusterkey, token, pendingop and revocation packages define, backed
// by plain Go maps behind a mutex. It exists for tests and for running
// the server without a Postgres instance; storage/postgres is the
// production-shaped counterpart.
package memory

import "context"

// Store aggregates one in-memory repository per entity. Each
// sub-repository also satisfies its package's Repository interface on
// its own, so callers can wire just the one they need.
type Store struct {
	ClusterKeys *ClusterKeyRepository
	DataKeys    *DataKeyRepository
	Tokens      *TokenRepository
	PendingOps  *PendingOpRepository
	Revocations *RevocationRepository
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		ClusterKeys: NewClusterKeyRepository(),
		DataKeys:    NewDataKeyRepository(),
		Tokens:      NewTokenRepository(),
		PendingOps:  NewPendingOpRepository(),
		Revocations: NewRevocationRepository(),
	}
}

// Ping always succeeds: there is no connection to check.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
