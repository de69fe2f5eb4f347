// Package postgres implements the datakey, clusterkey, token, pendingop
// and revocation repository interfaces over a pgxpool.Pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns the connection pool and one sub-store per entity.
type Store struct {
	pool        *pgxpool.Pool
	clusterKeys *ClusterKeyStore
	dataKeys    *DataKeyStore
	tokens      *TokenStore
	pendingOps  *PendingOpStore
	revocations *RevocationStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewStore opens a pool against cfg and verifies it with a ping before
// returning.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	return &Store{
		pool:        pool,
		clusterKeys: &ClusterKeyStore{db: pool},
		dataKeys:    &DataKeyStore{db: pool},
		tokens:      &TokenStore{db: pool},
		pendingOps:  &PendingOpStore{db: pool},
		revocations: &RevocationStore{db: pool},
	}, nil
}

// ClusterKeys returns the clusterkey.Repository implementation.
func (s *Store) ClusterKeys() *ClusterKeyStore { return s.clusterKeys }

// DataKeys returns the datakey.Repository implementation.
func (s *Store) DataKeys() *DataKeyStore { return s.dataKeys }

// Tokens returns the token.Repository implementation.
func (s *Store) Tokens() *TokenStore { return s.tokens }

// PendingOps returns the pendingop.Repository implementation.
func (s *Store) PendingOps() *PendingOpStore { return s.pendingOps }

// Revocations returns the revocation.Repository implementation.
func (s *Store) Revocations() *RevocationStore { return s.revocations }

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
