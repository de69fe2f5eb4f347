// Package token implements bearer-token authentication for the
// control plane: a caller presents the raw token once; keyforge stores
// and compares only its SHA-256 hash.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// ExpireInDays is how long a freshly issued token remains valid.
const ExpireInDays = 365

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const tokenLength = 40

// Token is the at-rest record: Hashed is the SHA-256 hex digest of the
// raw token value, which is shown to the caller exactly once at
// creation time and never stored.
type Token struct {
	ID          int32
	UserID      int32
	Description string
	Hashed      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (t Token) String() string {
	return fmt.Sprintf("id: %d, user_id: %d, expire_at: %s", t.ID, t.UserID, t.ExpiresAt)
}

// New builds a Token record around an already-hashed value.
func New(userID int32, description, hashed string) Token {
	now := time.Now().UTC()
	return Token{
		UserID:      userID,
		Description: description,
		Hashed:      hashed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ExpireInDays * 24 * time.Hour),
	}
}

// Expired reports whether t is past its expiry.
func (t Token) Expired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// GenerateRaw produces a fresh random bearer token value. The caller
// is shown this value exactly once; only Hash(value) is persisted.
func GenerateRaw() (string, error) {
	out := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("token: generate: %w", err)
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token value.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify compares a raw token's hash against a stored one in constant
// time.
func Verify(raw, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(raw)), []byte(storedHash)) == 1
}

// User is the control-plane principal a Token belongs to.
type User struct {
	ID    int32
	Email string
}

// Repository persists Token and User records.
type Repository interface {
	CreateToken(ctx context.Context, t Token) (Token, error)
	GetTokenByHash(ctx context.Context, hashed string) (Token, error)
	DeleteToken(ctx context.Context, id int32) error
	GetUserByID(ctx context.Context, id int32) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}
