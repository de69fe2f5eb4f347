package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge-project/keyforge/clusterkey"
)

// ClusterKeyStore implements clusterkey.Repository.
type ClusterKeyStore struct {
	db *pgxpool.Pool
}

func (s *ClusterKeyStore) Create(ctx context.Context, ck clusterkey.ClusterKey) (clusterkey.ClusterKey, error) {
	query := `
		INSERT INTO cluster_keys (data, algorithm, identity, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, ck.Data, ck.Algorithm, ck.Identity, ck.CreatedAt, ck.ExpiresAt).Scan(&ck.ID)
	if err != nil {
		return clusterkey.ClusterKey{}, fmt.Errorf("postgres: create cluster key: %w", err)
	}
	return ck, nil
}

func (s *ClusterKeyStore) GetLatest(ctx context.Context, algorithm string) (*clusterkey.ClusterKey, error) {
	query := `
		SELECT id, data, algorithm, identity, created_at, expires_at
		FROM cluster_keys
		WHERE algorithm = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var ck clusterkey.ClusterKey
	err := s.db.QueryRow(ctx, query, algorithm).Scan(&ck.ID, &ck.Data, &ck.Algorithm, &ck.Identity, &ck.CreatedAt, &ck.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get latest cluster key: %w", err)
	}
	return &ck, nil
}

func (s *ClusterKeyStore) GetByID(ctx context.Context, id int32) (clusterkey.ClusterKey, error) {
	query := `
		SELECT id, data, algorithm, identity, created_at, expires_at
		FROM cluster_keys
		WHERE id = $1
	`
	var ck clusterkey.ClusterKey
	err := s.db.QueryRow(ctx, query, id).Scan(&ck.ID, &ck.Data, &ck.Algorithm, &ck.Identity, &ck.CreatedAt, &ck.ExpiresAt)
	if err == pgx.ErrNoRows {
		return clusterkey.ClusterKey{}, fmt.Errorf("postgres: cluster key %d not found", id)
	}
	if err != nil {
		return clusterkey.ClusterKey{}, fmt.Errorf("postgres: get cluster key: %w", err)
	}
	return ck, nil
}

func (s *ClusterKeyStore) DeleteByID(ctx context.Context, id int32) error {
	query := `DELETE FROM cluster_keys WHERE id = $1`
	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: delete cluster key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: cluster key %d not found", id)
	}
	return nil
}
