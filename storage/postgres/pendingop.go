package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge-project/keyforge/pendingop"
)

// PendingOpStore implements pendingop.Repository.
type PendingOpStore struct {
	db *pgxpool.Pool
}

func (s *PendingOpStore) Create(ctx context.Context, op pendingop.PendingOperation) (pendingop.PendingOperation, error) {
	query := `
		INSERT INTO pending_operations (user_id, key_id, request_type, reason, user_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, op.UserID, op.KeyID, string(op.RequestType), op.Reason, op.UserEmail, op.CreatedAt).Scan(&op.ID)
	if err != nil {
		return pendingop.PendingOperation{}, fmt.Errorf("postgres: create pending operation: %w", err)
	}
	return op, nil
}

func (s *PendingOpStore) ListByKey(ctx context.Context, keyID int32, requestType pendingop.RequestType) ([]pendingop.PendingOperation, error) {
	query := `
		SELECT id, user_id, key_id, request_type, reason, user_email, created_at
		FROM pending_operations
		WHERE key_id = $1 AND request_type = $2
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query, keyID, string(requestType))
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending operations: %w", err)
	}
	defer rows.Close()

	var out []pendingop.PendingOperation
	for rows.Next() {
		var op pendingop.PendingOperation
		var requestTypeStr string
		if err := rows.Scan(&op.ID, &op.UserID, &op.KeyID, &requestTypeStr, &op.Reason, &op.UserEmail, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pending operation: %w", err)
		}
		op.RequestType, err = pendingop.ParseRequestType(requestTypeStr)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate pending operations: %w", err)
	}
	return out, nil
}

func (s *PendingOpStore) DeleteByKey(ctx context.Context, keyID int32, requestType pendingop.RequestType) error {
	query := `DELETE FROM pending_operations WHERE key_id = $1 AND request_type = $2`
	_, err := s.db.Exec(ctx, query, keyID, string(requestType))
	if err != nil {
		return fmt.Errorf("postgres: delete pending operations: %w", err)
	}
	return nil
}
