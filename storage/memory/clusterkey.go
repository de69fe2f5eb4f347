package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/keyforge-project/keyforge/clusterkey"
)

// ClusterKeyRepository implements clusterkey.Repository over a map
// keyed by ID.
type ClusterKeyRepository struct {
	mu   sync.RWMutex
	keys map[int32]clusterkey.ClusterKey
	next int32
}

func NewClusterKeyRepository() *ClusterKeyRepository {
	return &ClusterKeyRepository{keys: make(map[int32]clusterkey.ClusterKey)}
}

func (r *ClusterKeyRepository) Create(_ context.Context, ck clusterkey.ClusterKey) (clusterkey.ClusterKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ck.ID = r.next
	r.keys[ck.ID] = ck
	return ck, nil
}

func (r *ClusterKeyRepository) GetLatest(_ context.Context, algorithm string) (*clusterkey.ClusterKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *clusterkey.ClusterKey
	for id := range r.keys {
		ck := r.keys[id]
		if ck.Algorithm != algorithm {
			continue
		}
		if latest == nil || ck.CreatedAt.After(latest.CreatedAt) {
			cp := ck
			latest = &cp
		}
	}
	return latest, nil
}

func (r *ClusterKeyRepository) GetByID(_ context.Context, id int32) (clusterkey.ClusterKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ck, ok := r.keys[id]
	if !ok {
		return clusterkey.ClusterKey{}, fmt.Errorf("memory: cluster key %d not found", id)
	}
	return ck, nil
}

func (r *ClusterKeyRepository) DeleteByID(_ context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, id)
	return nil
}
