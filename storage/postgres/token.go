package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge-project/keyforge/token"
)

// TokenStore implements token.Repository.
type TokenStore struct {
	db *pgxpool.Pool
}

func (s *TokenStore) CreateToken(ctx context.Context, t token.Token) (token.Token, error) {
	query := `
		INSERT INTO tokens (user_id, description, hashed, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query, t.UserID, t.Description, t.Hashed, t.CreatedAt, t.ExpiresAt).Scan(&t.ID)
	if err != nil {
		return token.Token{}, fmt.Errorf("postgres: create token: %w", err)
	}
	return t, nil
}

func (s *TokenStore) GetTokenByHash(ctx context.Context, hashed string) (token.Token, error) {
	query := `
		SELECT id, user_id, description, hashed, created_at, expires_at
		FROM tokens
		WHERE hashed = $1
	`
	var t token.Token
	err := s.db.QueryRow(ctx, query, hashed).Scan(&t.ID, &t.UserID, &t.Description, &t.Hashed, &t.CreatedAt, &t.ExpiresAt)
	if err == pgx.ErrNoRows {
		return token.Token{}, fmt.Errorf("postgres: token not found")
	}
	if err != nil {
		return token.Token{}, fmt.Errorf("postgres: get token: %w", err)
	}
	return t, nil
}

func (s *TokenStore) DeleteToken(ctx context.Context, id int32) error {
	query := `DELETE FROM tokens WHERE id = $1`
	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: delete token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: token %d not found", id)
	}
	return nil
}

func (s *TokenStore) GetUserByID(ctx context.Context, id int32) (token.User, error) {
	query := `SELECT id, email FROM users WHERE id = $1`
	var u token.User
	err := s.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email)
	if err == pgx.ErrNoRows {
		return token.User{}, fmt.Errorf("postgres: user %d not found", id)
	}
	if err != nil {
		return token.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}

func (s *TokenStore) GetUserByEmail(ctx context.Context, email string) (token.User, error) {
	query := `SELECT id, email FROM users WHERE email = $1`
	var u token.User
	err := s.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email)
	if err == pgx.ErrNoRows {
		return token.User{}, fmt.Errorf("postgres: user %q not found", email)
	}
	if err != nil {
		return token.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}
