package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge-project/keyforge/revocation"
)

// RevocationStore implements revocation.Repository.
type RevocationStore struct {
	db *pgxpool.Pool
}

func (s *RevocationStore) CreateRevokedKey(ctx context.Context, rk revocation.RevokedKey) (revocation.RevokedKey, error) {
	query := `
		INSERT INTO revoked_keys (key_id, ca_id, reason, serial_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, rk.KeyID, rk.CAID, string(rk.Reason), rk.SerialNumber, rk.CreatedAt).Scan(&rk.ID)
	if err != nil {
		return revocation.RevokedKey{}, fmt.Errorf("postgres: create revoked key: %w", err)
	}
	return rk, nil
}

func (s *RevocationStore) ListRevokedKeys(ctx context.Context, caID int32) ([]revocation.RevokedKey, error) {
	query := `
		SELECT id, key_id, ca_id, reason, serial_number, created_at
		FROM revoked_keys
		WHERE ca_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query, caID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list revoked keys: %w", err)
	}
	defer rows.Close()

	var out []revocation.RevokedKey
	for rows.Next() {
		var rk revocation.RevokedKey
		var reasonStr string
		if err := rows.Scan(&rk.ID, &rk.KeyID, &rk.CAID, &reasonStr, &rk.SerialNumber, &rk.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan revoked key: %w", err)
		}
		rk.Reason, err = revocation.ParseReason(reasonStr)
		if err != nil {
			return nil, err
		}
		out = append(out, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate revoked keys: %w", err)
	}
	return out, nil
}

func (s *RevocationStore) GetCRL(ctx context.Context, caID int32) (*revocation.X509CRL, error) {
	query := `
		SELECT id, ca_id, data, created_at, updated_at
		FROM x509_crls
		WHERE ca_id = $1
	`
	var crl revocation.X509CRL
	err := s.db.QueryRow(ctx, query, caID).Scan(&crl.ID, &crl.CAID, &crl.Data, &crl.CreatedAt, &crl.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get crl: %w", err)
	}
	return &crl, nil
}

func (s *RevocationStore) UpsertCRL(ctx context.Context, crl revocation.X509CRL) (revocation.X509CRL, error) {
	query := `
		INSERT INTO x509_crls (ca_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ca_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, crl.CAID, crl.Data, crl.CreatedAt, crl.UpdatedAt).Scan(&crl.ID)
	if err != nil {
		return revocation.X509CRL{}, fmt.Errorf("postgres: upsert crl: %w", err)
	}
	return crl, nil
}
