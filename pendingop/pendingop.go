// Package pendingop implements the two-phase approval bookkeeping
// behind a key's pending_delete / pending_revoke states: every
// request_delete or request_revoke call records one PendingOperation;
// the compactor (see Compactor) promotes the key once enough distinct
// requesters have asked for the same operation on the same key.
package pendingop

import (
	"context"
	"fmt"
	"time"
)

// RequestType identifies which two-phase operation a PendingOperation
// tracks.
type RequestType string

const (
	RequestDelete RequestType = "delete"
	RequestRevoke RequestType = "revoke"
)

func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestDelete, RequestRevoke:
		return RequestType(s), nil
	default:
		return "", fmt.Errorf("pendingop: unsupported request type %q", s)
	}
}

// PendingOperation is one requester's ask to delete or revoke a key.
// Multiple rows may exist for the same KeyID+RequestType — one per
// distinct requester — until the compactor promotes or a cancel_*
// action clears them.
type PendingOperation struct {
	ID          int32
	UserID      int32
	KeyID       int32
	RequestType RequestType
	Reason      *string
	UserEmail   string
	CreatedAt   time.Time
}

// NewDelete records a delete request. Reason is optional for deletes.
func NewDelete(keyID, userID int32, userEmail string, reason *string) PendingOperation {
	return PendingOperation{
		UserID:      userID,
		KeyID:       keyID,
		UserEmail:   userEmail,
		CreatedAt:   time.Now().UTC(),
		RequestType: RequestDelete,
		Reason:      reason,
	}
}

// NewRevoke records a revoke request. A reason is mandatory: it
// becomes the CRL revocation reason once the operation is promoted.
func NewRevoke(keyID, userID int32, userEmail, reason string) PendingOperation {
	return PendingOperation{
		UserID:      userID,
		KeyID:       keyID,
		UserEmail:   userEmail,
		CreatedAt:   time.Now().UTC(),
		RequestType: RequestRevoke,
		Reason:      &reason,
	}
}

// Repository persists PendingOperation rows.
type Repository interface {
	Create(ctx context.Context, op PendingOperation) (PendingOperation, error)
	ListByKey(ctx context.Context, keyID int32, requestType RequestType) ([]PendingOperation, error)
	DeleteByKey(ctx context.Context, keyID int32, requestType RequestType) error
}

// CountDistinctRequesters returns how many distinct (user_id, email)
// pairs have asked for requestType on keyID.
func CountDistinctRequesters(ops []PendingOperation) int {
	seen := make(map[int32]struct{}, len(ops))
	for _, op := range ops {
		seen[op.UserID] = struct{}{}
	}
	return len(seen)
}
