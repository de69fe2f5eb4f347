package datakey

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge-project/keyforge/internal/logger"
)

type serviceFakeRepo struct {
	mu   sync.Mutex
	keys map[int32]DataKey
	next int32
}

func newServiceFakeRepo() *serviceFakeRepo {
	return &serviceFakeRepo{keys: make(map[int32]DataKey)}
}

func (r *serviceFakeRepo) Create(_ context.Context, key DataKey) (DataKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	key.ID = r.next
	r.keys[key.ID] = key
	return key, nil
}

func (r *serviceFakeRepo) GetAll(_ context.Context) ([]DataKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DataKey, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	return out, nil
}

func (r *serviceFakeRepo) GetByID(_ context.Context, id int32) (DataKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return DataKey{}, assertError("not found")
	}
	return k, nil
}

func (r *serviceFakeRepo) GetByName(_ context.Context, name string) (DataKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Name == name {
			return k, nil
		}
	}
	return DataKey{}, assertError("not found")
}

func (r *serviceFakeRepo) DeleteByID(_ context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, id)
	return nil
}

func (r *serviceFakeRepo) UpdateState(_ context.Context, id int32, state, previousState KeyState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return assertError("not found")
	}
	k.KeyState = state
	k.PreviousState = previousState
	r.keys[id] = k
	return nil
}

type assertError string

func (e assertError) Error() string { return string(e) }

type serviceFakeBackend struct {
	generateCalls int
	signCalls     int
}

func (b *serviceFakeBackend) GenerateKeys(_ context.Context, key *DataKey) error {
	b.generateCalls++
	key.PrivateKey = []byte("encrypted-private")
	key.PublicKey = []byte("public")
	key.Fingerprint = "fingerprint"
	return nil
}

func (b *serviceFakeBackend) DecodePublicKeys(_ context.Context, _ *DataKey) error { return nil }

func (b *serviceFakeBackend) Sign(_ context.Context, _ DataKey, content []byte, _ map[string]string) ([]byte, error) {
	b.signCalls++
	return append([]byte("sig:"), content...), nil
}

func testServiceLogger() logger.Logger {
	return logger.NewLogger(testNoopWriter{}, logger.ErrorLevel)
}

type testNoopWriter struct{}

func (testNoopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestServiceCreateValidatesFullName(t *testing.T) {
	repo := newServiceFakeRepo()
	backend := &serviceFakeBackend{}
	svc := NewService(repo, backend, nil, nil, testServiceLogger())

	created, err := svc.Create(context.Background(), DataKey{
		Name:       "release-key",
		Visibility: VisibilityPrivate,
		KeyType:    KeyTypeOpenPGP,
	}, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com:release-key", created.Name)
	assert.Equal(t, StateDisabled, created.KeyState)
	assert.Equal(t, 1, backend.generateCalls)
}

func TestServiceEnableDisableTransitions(t *testing.T) {
	repo := newServiceFakeRepo()
	backend := &serviceFakeBackend{}
	svc := NewService(repo, backend, nil, nil, testServiceLogger())

	key, err := svc.Create(context.Background(), DataKey{
		Name:       "ci-key",
		Visibility: VisibilityPublic,
		KeyType:    KeyTypeOpenPGP,
	}, "owner@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Enable(context.Background(), key.ID))
	got, err := svc.GetOne(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, StateEnabled, got.KeyState)

	require.NoError(t, svc.Disable(context.Background(), key.ID))
	got, err = svc.GetOne(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, got.KeyState)
}

func TestServiceSignRejectsDisabledKey(t *testing.T) {
	repo := newServiceFakeRepo()
	backend := &serviceFakeBackend{}
	svc := NewService(repo, backend, nil, nil, testServiceLogger())

	key, err := svc.Create(context.Background(), DataKey{
		Name:       "ci-key",
		Visibility: VisibilityPublic,
		KeyType:    KeyTypeOpenPGP,
	}, "owner@example.com")
	require.NoError(t, err)

	_, err = svc.Sign(context.Background(), key.Name, []byte("payload"), nil)
	assert.Error(t, err, "a disabled key should not be usable for signing")

	require.NoError(t, svc.Enable(context.Background(), key.ID))
	signature, err := svc.Sign(context.Background(), key.Name, []byte("payload"), nil)
	require.NoError(t, err)
	assert.Equal(t, "sig:payload", string(signature))
	assert.Equal(t, 1, backend.signCalls)
}

func TestServiceAttributesUsesReadCache(t *testing.T) {
	repo := newServiceFakeRepo()
	backend := &serviceFakeBackend{}
	size := 10
	readCache := NewCache(&size, DefaultExpire)
	svc := NewService(repo, backend, readCache, nil, testServiceLogger())

	key, err := svc.Create(context.Background(), DataKey{
		Name:       "ci-key",
		Visibility: VisibilityPublic,
		KeyType:    KeyTypeOpenPGP,
		Attributes: map[string]string{"digest_algorithm": "sha2_256"},
	}, "owner@example.com")
	require.NoError(t, err)

	attrs, err := svc.Attributes(context.Background(), key.Name)
	require.NoError(t, err)
	assert.Equal(t, "sha2_256", attrs["digest_algorithm"])

	_, ok := readCache.GetRead(key.Name)
	assert.True(t, ok, "Attributes should populate the read cache on a miss")
}

func TestServiceExportOneDecodesPublicKeys(t *testing.T) {
	repo := newServiceFakeRepo()
	backend := &serviceFakeBackend{}
	svc := NewService(repo, backend, nil, nil, testServiceLogger())

	key, err := svc.Create(context.Background(), DataKey{
		Name:       "ci-key",
		Visibility: VisibilityPublic,
		KeyType:    KeyTypeOpenPGP,
	}, "owner@example.com")
	require.NoError(t, err)

	exported, err := svc.ExportOne(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, key.ID, exported.ID)
}
