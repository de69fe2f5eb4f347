// Package dataplane implements the signing-client facing RPCs: a
// unary key-attribute lookup and a streamed sign request. Both enforce
// that a private key name's token prefix matches a bearer token actually
// issued to that email before dispatching to the key service.
package dataplane

import (
	"context"
	"fmt"
	"strings"

	"github.com/keyforge-project/keyforge/token"
)

// TokenValidator checks that a raw bearer token was issued to email.
type TokenValidator interface {
	ValidateTokenAndEmail(ctx context.Context, email, rawToken string) (bool, error)
}

// Authenticator is the default TokenValidator, backed by a token
// repository.
type Authenticator struct {
	repo token.Repository
}

func NewAuthenticator(repo token.Repository) *Authenticator {
	return &Authenticator{repo: repo}
}

func (a *Authenticator) ValidateTokenAndEmail(ctx context.Context, email, rawToken string) (bool, error) {
	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	stored, err := a.repo.GetTokenByHash(ctx, token.Hash(rawToken))
	if err != nil {
		return false, nil
	}
	if stored.UserID != user.ID || stored.Expired() {
		return false, nil
	}
	return true, nil
}

// validateKeyTokenMatched enforces that a private key's name
// ("{email}:{key}") may only be used by a caller presenting a token
// issued to that email. Public key names (no ':') are exempt.
func validateKeyTokenMatched(ctx context.Context, validator TokenValidator, rawToken *string, name string) error {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) <= 1 {
		return nil
	}
	if rawToken == nil {
		return fmt.Errorf("dataplane: key %q requires a bearer token", name)
	}
	ok, err := validator.ValidateTokenAndEmail(ctx, parts[0], *rawToken)
	if err != nil {
		return fmt.Errorf("dataplane: validate token: %w", err)
	}
	if !ok {
		return fmt.Errorf("dataplane: user token and email unmatched")
	}
	return nil
}
