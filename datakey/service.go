package datakey

import (
	"context"
	"fmt"

	"github.com/keyforge-project/keyforge/internal/logger"
)

// Service is the control-plane facade over DataKey CRUD, lifecycle
// transitions and signing. It caches reads and sign lookups separately
// (see Cache) so a compromised read token can't be replayed as a sign
// credential.
type Service struct {
	repo        Repository
	signBackend SignBackend
	readCache   *Cache
	signCache   *Cache
	log         logger.Logger
}

// NewService wires a Service. Pass nil cache sizes to disable caching
// for that path.
func NewService(repo Repository, signBackend SignBackend, readCache, signCache *Cache, log logger.Logger) *Service {
	return &Service{repo: repo, signBackend: signBackend, readCache: readCache, signCache: signCache, log: log}
}

// Create validates the name against visibility rules, asks the sign
// backend to generate key material, and persists the record.
func (s *Service) Create(ctx context.Context, key DataKey, ownerEmail string) (DataKey, error) {
	fullName, err := FullName(key.Name, ownerEmail, key.Visibility)
	if err != nil {
		return DataKey{}, err
	}
	key.Name = fullName
	if key.KeyState == "" {
		key.KeyState = StateDisabled
	}
	if err := s.signBackend.GenerateKeys(ctx, &key); err != nil {
		return DataKey{}, fmt.Errorf("datakey: generate keys: %w", err)
	}
	created, err := s.repo.Create(ctx, key)
	if err != nil {
		return DataKey{}, fmt.Errorf("datakey: create: %w", err)
	}
	return created, nil
}

func (s *Service) GetAll(ctx context.Context) ([]DataKey, error) { return s.repo.GetAll(ctx) }

func (s *Service) GetOne(ctx context.Context, id int32) (DataKey, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteOne(ctx context.Context, id int32) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("datakey: delete: %w", err)
	}
	return s.repo.DeleteByID(ctx, id)
}

// ExportOne returns a key with its public material decoded for
// display; private key material is never decoded for export.
func (s *Service) ExportOne(ctx context.Context, id int32) (DataKey, error) {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return DataKey{}, fmt.Errorf("datakey: export: %w", err)
	}
	if err := s.signBackend.DecodePublicKeys(ctx, &key); err != nil {
		return DataKey{}, fmt.Errorf("datakey: decode public keys: %w", err)
	}
	return key, nil
}

func (s *Service) Enable(ctx context.Context, id int32) error {
	return s.applyAction(ctx, id, ActionEnable)
}

func (s *Service) Disable(ctx context.Context, id int32) error {
	return s.applyAction(ctx, id, ActionDisable)
}

func (s *Service) applyAction(ctx context.Context, id int32, action KeyAction) error {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("datakey: %s: %w", action, err)
	}
	next, err := Transition(key.KeyState, action, key.PreviousState)
	if err != nil {
		return fmt.Errorf("datakey: %s: %w", action, err)
	}
	previous := key.PreviousState
	if next == StatePendingRevoke || next == StatePendingDelete {
		previous = key.KeyState
	}
	return s.repo.UpdateState(ctx, id, next, previous)
}

// Sign resolves idOrName through the sign cache (falling back to
// storage on a miss) and dispatches to the sign backend.
func (s *Service) Sign(ctx context.Context, idOrName string, content []byte, options map[string]string) ([]byte, error) {
	key, err := s.resolveForSign(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if key.KeyState != StateEnabled {
		return nil, fmt.Errorf("datakey: key %s is not enabled (state %q)", key.Identity(), key.KeyState)
	}
	return s.signBackend.Sign(ctx, key, content, options)
}

// Attributes resolves idOrName through the read cache (falling back to
// storage on a miss) and returns just its attributes, matching what
// the data plane's key-info lookup exposes to a signing client.
func (s *Service) Attributes(ctx context.Context, idOrName string) (map[string]string, error) {
	if s.readCache != nil {
		if key, ok := s.readCache.GetRead(idOrName); ok {
			return key.Attributes, nil
		}
	}
	key, err := s.repo.GetByName(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("datakey: resolve %q: %w", idOrName, err)
	}
	if s.readCache != nil {
		_ = s.readCache.UpdateRead(idOrName, key)
	}
	return key.Attributes, nil
}

func (s *Service) resolveForSign(ctx context.Context, idOrName string) (DataKey, error) {
	if s.signCache != nil {
		if key, ok := s.signCache.GetSign(idOrName); ok {
			return key, nil
		}
	}
	key, err := s.repo.GetByName(ctx, idOrName)
	if err != nil {
		return DataKey{}, fmt.Errorf("datakey: resolve %q: %w", idOrName, err)
	}
	if s.signCache != nil {
		_ = s.signCache.UpdateSign(idOrName, key)
	}
	return key, nil
}
