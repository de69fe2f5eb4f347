package datakey

import "context"

// Repository persists DataKey records.
type Repository interface {
	Create(ctx context.Context, key DataKey) (DataKey, error)
	GetAll(ctx context.Context) ([]DataKey, error)
	GetByID(ctx context.Context, id int32) (DataKey, error)
	GetByName(ctx context.Context, name string) (DataKey, error)
	DeleteByID(ctx context.Context, id int32) error
	UpdateState(ctx context.Context, id int32, state, previousState KeyState) error
}

// SignBackend is the subset of the sign-backend contract the key
// service needs: generating material for a freshly created key,
// decoding its public material for export, and dispatching a sign
// request once the key has been fetched and cached.
type SignBackend interface {
	GenerateKeys(ctx context.Context, key *DataKey) error
	DecodePublicKeys(ctx context.Context, key *DataKey) error
	Sign(ctx context.Context, key DataKey, content []byte, options map[string]string) ([]byte, error)
}
