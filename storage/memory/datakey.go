package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/keyforge-project/keyforge/datakey"
)

// DataKeyRepository implements datakey.Repository over a map keyed by
// ID, with a secondary name index for GetByName.
type DataKeyRepository struct {
	mu   sync.RWMutex
	keys map[int32]datakey.DataKey
	next int32
}

func NewDataKeyRepository() *DataKeyRepository {
	return &DataKeyRepository{keys: make(map[int32]datakey.DataKey)}
}

func copyDataKey(k datakey.DataKey) datakey.DataKey {
	if k.Attributes != nil {
		attrs := make(map[string]string, len(k.Attributes))
		for key, v := range k.Attributes {
			attrs[key] = v
		}
		k.Attributes = attrs
	}
	if k.DeleteRequesters != nil {
		k.DeleteRequesters = append([]datakey.ApprovalRequester(nil), k.DeleteRequesters...)
	}
	if k.RevokeRequesters != nil {
		k.RevokeRequesters = append([]datakey.ApprovalRequester(nil), k.RevokeRequesters...)
	}
	return k
}

func (r *DataKeyRepository) Create(_ context.Context, key datakey.DataKey) (datakey.DataKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.keys {
		if existing.Name == key.Name {
			return datakey.DataKey{}, fmt.Errorf("memory: data key %q already exists", key.Name)
		}
	}
	r.next++
	key.ID = r.next
	r.keys[key.ID] = copyDataKey(key)
	return copyDataKey(key), nil
}

func (r *DataKeyRepository) GetAll(_ context.Context) ([]datakey.DataKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]datakey.DataKey, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, copyDataKey(k))
	}
	return out, nil
}

func (r *DataKeyRepository) GetByID(_ context.Context, id int32) (datakey.DataKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return datakey.DataKey{}, fmt.Errorf("memory: data key %d not found", id)
	}
	return copyDataKey(k), nil
}

func (r *DataKeyRepository) GetByName(_ context.Context, name string) (datakey.DataKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.keys {
		if k.Name == name {
			return copyDataKey(k), nil
		}
	}
	return datakey.DataKey{}, fmt.Errorf("memory: data key %q not found", name)
}

func (r *DataKeyRepository) DeleteByID(_ context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; !ok {
		return fmt.Errorf("memory: data key %d not found", id)
	}
	delete(r.keys, id)
	return nil
}

func (r *DataKeyRepository) UpdateState(_ context.Context, id int32, state, previousState datakey.KeyState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return fmt.Errorf("memory: data key %d not found", id)
	}
	k.KeyState = state
	k.PreviousState = previousState
	r.keys[id] = k
	return nil
}
