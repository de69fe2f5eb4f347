package datakey

import (
	"context"
	"time"

	"github.com/keyforge-project/keyforge/internal/logger"
	"github.com/keyforge-project/keyforge/pendingop"
)

// CompactorPolicy configures how many distinct requesters a pending
// delete or revoke needs before the compactor promotes it.
type CompactorPolicy struct {
	PrivateApprovals int
	PublicApprovals  int
}

// DefaultCompactorPolicy matches the approval policy keyforge ships:
// a private key's owner can act alone, but a public key (shared by
// many consumers) needs a second distinct approver.
var DefaultCompactorPolicy = CompactorPolicy{PrivateApprovals: 1, PublicApprovals: 2}

func (p CompactorPolicy) threshold(v Visibility) int {
	if v == VisibilityPrivate {
		return p.PrivateApprovals
	}
	return p.PublicApprovals
}

// Compactor periodically scans pending_delete/pending_revoke keys and
// promotes any whose distinct-requester count has reached its policy
// threshold.
type Compactor struct {
	keys     Repository
	ops      pendingop.Repository
	policy   CompactorPolicy
	log      logger.Logger
}

func NewCompactor(keys Repository, ops pendingop.Repository, policy CompactorPolicy, log logger.Logger) *Compactor {
	return &Compactor{keys: keys, ops: ops, policy: policy, log: log}
}

// Run drives the compactor's sweep loop until done is closed.
func (c *Compactor) Run(ctx context.Context, done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.Sweep(ctx); err != nil {
				c.log.Error("compactor sweep failed", logger.Error(err))
			}
		}
	}
}

// Sweep runs a single compaction pass over every key.
func (c *Compactor) Sweep(ctx context.Context) error {
	keys, err := c.keys.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		switch key.KeyState {
		case StatePendingDelete:
			if err := c.tryPromote(ctx, key, pendingop.RequestDelete); err != nil {
				c.log.Error("promote delete failed", logger.Int("key_id", int(key.ID)), logger.Error(err))
			}
		case StatePendingRevoke:
			if err := c.tryPromote(ctx, key, pendingop.RequestRevoke); err != nil {
				c.log.Error("promote revoke failed", logger.Int("key_id", int(key.ID)), logger.Error(err))
			}
		}
	}
	return nil
}

func (c *Compactor) tryPromote(ctx context.Context, key DataKey, requestType pendingop.RequestType) error {
	ops, err := c.ops.ListByKey(ctx, key.ID, requestType)
	if err != nil {
		return err
	}
	if pendingop.CountDistinctRequesters(ops) < c.policy.threshold(key.Visibility) {
		return nil
	}
	next, err := Promote(key.KeyState)
	if err != nil {
		return err
	}
	if err := c.keys.UpdateState(ctx, key.ID, next, key.PreviousState); err != nil {
		return err
	}
	if err := c.ops.DeleteByKey(ctx, key.ID, requestType); err != nil {
		return err
	}
	c.log.Info("key promoted", logger.Int("key_id", int(key.ID)), logger.String("state", string(next)))
	return nil
}
