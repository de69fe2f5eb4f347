package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/keyforge-project/keyforge/token"
)

// TokenRepository implements token.Repository over two maps: tokens by
// ID and a fixed set of users seeded at construction (keyforge has no
// self-service user signup; users are provisioned out of band).
type TokenRepository struct {
	mu          sync.RWMutex
	tokens      map[int32]token.Token
	nextToken   int32
	users       map[int32]token.User
	usersByMail map[string]int32
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens:      make(map[int32]token.Token),
		users:       make(map[int32]token.User),
		usersByMail: make(map[string]int32),
	}
}

// SeedUser registers a User so tokens can be issued against it. Tests
// and local dev bootstrap call this directly.
func (r *TokenRepository) SeedUser(u token.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	r.usersByMail[u.Email] = u.ID
}

func (r *TokenRepository) CreateToken(_ context.Context, t token.Token) (token.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextToken++
	t.ID = r.nextToken
	r.tokens[t.ID] = t
	return t, nil
}

func (r *TokenRepository) GetTokenByHash(_ context.Context, hashed string) (token.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.Hashed == hashed {
			return t, nil
		}
	}
	return token.Token{}, fmt.Errorf("memory: token not found")
}

func (r *TokenRepository) DeleteToken(_ context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return fmt.Errorf("memory: token %d not found", id)
	}
	delete(r.tokens, id)
	return nil
}

func (r *TokenRepository) GetUserByID(_ context.Context, id int32) (token.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return token.User{}, fmt.Errorf("memory: user %d not found", id)
	}
	return u, nil
}

func (r *TokenRepository) GetUserByEmail(_ context.Context, email string) (token.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usersByMail[email]
	if !ok {
		return token.User{}, fmt.Errorf("memory: user %q not found", email)
	}
	return r.users[id], nil
}
