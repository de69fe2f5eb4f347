package dataplane

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/storage/memory"
	"github.com/keyforge-project/keyforge/token"
)

func TestValidateKeyTokenMatchedAllowsPublicKeys(t *testing.T) {
	repo := memory.NewTokenRepository()
	auth := NewAuthenticator(repo)
	err := validateKeyTokenMatched(context.Background(), auth, nil, "release-key")
	assert.NoError(t, err)
}

func TestValidateKeyTokenMatchedRequiresTokenForPrivateKeys(t *testing.T) {
	repo := memory.NewTokenRepository()
	auth := NewAuthenticator(repo)
	err := validateKeyTokenMatched(context.Background(), auth, nil, "owner@example.com:release-key")
	assert.Error(t, err)
}

func TestValidateKeyTokenMatchedSucceedsForOwner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	repo.SeedUser(token.User{ID: 1, Email: "owner@example.com"})

	raw, err := token.GenerateRaw()
	require.NoError(t, err)
	_, err = repo.CreateToken(ctx, token.New(1, "ci", token.Hash(raw)))
	require.NoError(t, err)

	auth := NewAuthenticator(repo)
	err = validateKeyTokenMatched(ctx, auth, &raw, "owner@example.com:release-key")
	assert.NoError(t, err)
}

func TestValidateKeyTokenMatchedRejectsWrongOwner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	repo.SeedUser(token.User{ID: 1, Email: "owner@example.com"})
	repo.SeedUser(token.User{ID: 2, Email: "other@example.com"})

	raw, err := token.GenerateRaw()
	require.NoError(t, err)
	_, err = repo.CreateToken(ctx, token.New(2, "ci", token.Hash(raw)))
	require.NoError(t, err)

	auth := NewAuthenticator(repo)
	err = validateKeyTokenMatched(ctx, auth, &raw, "owner@example.com:release-key")
	assert.Error(t, err)
}
