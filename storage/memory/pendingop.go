package memory

import (
	"context"
	"sync"

	"github.com/keyforge-project/keyforge/pendingop"
)

// PendingOpRepository implements pendingop.Repository over a slice of
// rows; key cardinality is small enough that a linear scan per call is
// fine.
type PendingOpRepository struct {
	mu   sync.Mutex
	rows []pendingop.PendingOperation
	next int32
}

func NewPendingOpRepository() *PendingOpRepository {
	return &PendingOpRepository{}
}

func (r *PendingOpRepository) Create(_ context.Context, op pendingop.PendingOperation) (pendingop.PendingOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	op.ID = r.next
	r.rows = append(r.rows, op)
	return op, nil
}

func (r *PendingOpRepository) ListByKey(_ context.Context, keyID int32, requestType pendingop.RequestType) ([]pendingop.PendingOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pendingop.PendingOperation
	for _, op := range r.rows {
		if op.KeyID == keyID && op.RequestType == requestType {
			out = append(out, op)
		}
	}
	return out, nil
}

func (r *PendingOpRepository) DeleteByKey(_ context.Context, keyID int32, requestType pendingop.RequestType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, op := range r.rows {
		if op.KeyID == keyID && op.RequestType == requestType {
			continue
		}
		kept = append(kept, op)
	}
	r.rows = kept
	return nil
}
