package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/clusterkey"
	"github.com/keyforge-project/keyforge/datakey"
	"github.com/keyforge-project/keyforge/pendingop"
	"github.com/keyforge-project/keyforge/revocation"
	"github.com/keyforge-project/keyforge/token"
)

func TestClusterKeyRepositoryCreateAndGetLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewClusterKeyRepository()

	older, err := repo.Create(ctx, clusterkey.ClusterKey{Algorithm: "aes256-gcm-siv", CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := repo.Create(ctx, clusterkey.ClusterKey{Algorithm: "aes256-gcm-siv", CreatedAt: time.Now()})
	require.NoError(t, err)

	latest, err := repo.GetLatest(ctx, "aes256-gcm-siv")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	got, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	require.NoError(t, repo.DeleteByID(ctx, older.ID))
	_, err = repo.GetByID(ctx, older.ID)
	assert.Error(t, err)
}

func TestDataKeyRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewDataKeyRepository()

	created, err := repo.Create(ctx, datakey.DataKey{Name: "team:release", KeyType: datakey.KeyTypeOpenPGP})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Create(ctx, datakey.DataKey{Name: "team:release"})
	assert.Error(t, err, "duplicate name should be rejected")

	byName, err := repo.GetByName(ctx, "team:release")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	require.NoError(t, repo.UpdateState(ctx, created.ID, datakey.StatePendingDelete, datakey.StateEnabled))
	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, datakey.StatePendingDelete, byID.KeyState)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.Error(t, err)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	repo.SeedUser(token.User{ID: 1, Email: "ci@example.com"})

	created, err := repo.CreateToken(ctx, token.New(1, "ci token", "hash-value"))
	require.NoError(t, err)

	byHash, err := repo.GetTokenByHash(ctx, "hash-value")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byHash.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "ci@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, byEmail.ID)

	require.NoError(t, repo.DeleteToken(ctx, created.ID))
	_, err = repo.GetTokenByHash(ctx, "hash-value")
	assert.Error(t, err)
}

func TestPendingOpRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPendingOpRepository()

	_, err := repo.Create(ctx, pendingop.NewDelete(1, 10, "a@example.com", nil))
	require.NoError(t, err)
	_, err = repo.Create(ctx, pendingop.NewDelete(1, 11, "b@example.com", nil))
	require.NoError(t, err)
	_, err = repo.Create(ctx, pendingop.NewRevoke(1, 10, "a@example.com", "compromised"))
	require.NoError(t, err)

	deletes, err := repo.ListByKey(ctx, 1, pendingop.RequestDelete)
	require.NoError(t, err)
	assert.Len(t, deletes, 2)
	assert.Equal(t, 2, pendingop.CountDistinctRequesters(deletes))

	require.NoError(t, repo.DeleteByKey(ctx, 1, pendingop.RequestDelete))
	deletes, err = repo.ListByKey(ctx, 1, pendingop.RequestDelete)
	require.NoError(t, err)
	assert.Empty(t, deletes)

	revokes, err := repo.ListByKey(ctx, 1, pendingop.RequestRevoke)
	require.NoError(t, err)
	assert.Len(t, revokes, 1)
}

func TestRevocationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRevocationRepository()

	serial := "ABC123"
	_, err := repo.CreateRevokedKey(ctx, revocation.RevokedKey{KeyID: 5, CAID: 1, Reason: revocation.ReasonKeyCompromise, SerialNumber: &serial})
	require.NoError(t, err)

	revoked, err := repo.ListRevokedKeys(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, revoked, 1)

	crl, err := repo.GetCRL(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, crl)

	now := time.Now()
	stored, err := repo.UpsertCRL(ctx, revocation.NewCRL(1, []byte("der-bytes"), now, now))
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	updated, err := repo.UpsertCRL(ctx, revocation.NewCRL(1, []byte("der-bytes-v2"), now, now.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, updated.ID, "upsert should keep the same row id")

	got, err := repo.GetCRL(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("der-bytes-v2"), got.Data)
}

func TestStorePingAndClose(t *testing.T) {
	store := NewStore()
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
}
