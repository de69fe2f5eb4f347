// Package encryption implements the envelope encryption engine: the
// component that owns the current cluster key, rotates it on schedule
// and uses it (or an older cached one, for decoding data encrypted
// before a rotation) to wrap and unwrap data key material.
//
// Wire format produced by Encode / consumed by Decode:
//
//	[cluster_id: 2 bytes BE][nonce: 12 bytes][ciphertext+tag]
//	|------ prefix -------|---------- cipher.Encrypt output --------|
package encryption

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keyforge-project/keyforge/cipher"
	"github.com/keyforge-project/keyforge/clusterkey"
	"github.com/keyforge-project/keyforge/internal/logger"
	"github.com/keyforge-project/keyforge/kms"
)

// ClusterIDLength is the size, in bytes, of the cluster key id prefix
// that Encode attaches to every ciphertext it produces.
const ClusterIDLength = 2

// DefaultRotateInDays is the minimum cluster-key rotation interval a
// deployment may configure.
const DefaultRotateInDays = 90

// Config configures an Engine.
type Config struct {
	RotateInDays int64
	Algorithm    string
	KeepInDays   int64
}

// Engine is the envelope encryption engine. One Engine is created per
// process and shared by every DataKey operation that needs to encrypt
// or decrypt key material.
type Engine struct {
	clusterRepo clusterkey.Repository
	kms         kms.Adapter
	cfg         Config
	log         logger.Logger

	mu              sync.RWMutex
	latest          clusterkey.SecClusterKey
	latestCreatedAt time.Time
	idCache         map[int32]clusterkey.SecClusterKey
	cacheMu         sync.RWMutex
}

// NewEngine validates cfg and constructs an Engine. It does not touch
// storage or the KMS adapter until Initialize is called.
func NewEngine(clusterRepo clusterkey.Repository, adapter kms.Adapter, cfg Config, log logger.Logger) (*Engine, error) {
	if cfg.RotateInDays < DefaultRotateInDays {
		return nil, fmt.Errorf("encryption: rotate_in_days must be >= %d, got %d", DefaultRotateInDays, cfg.RotateInDays)
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = clusterkey.AlgorithmAES256GCMSIV
	}
	if cfg.KeepInDays <= 0 {
		cfg.KeepInDays = cfg.RotateInDays * 4
	}
	log.Info("cluster key will be rotated", logger.Int("rotate_in_days", int(cfg.RotateInDays)))
	return &Engine{
		clusterRepo: clusterRepo,
		kms:         adapter,
		cfg:         cfg,
		log:         log,
		idCache:     make(map[int32]clusterkey.SecClusterKey),
	}, nil
}

// Initialize loads the latest cluster key for the engine's configured
// algorithm, generating one if none exists yet.
func (e *Engine) Initialize(ctx context.Context) error {
	latest, err := e.clusterRepo.GetLatest(ctx, e.cfg.Algorithm)
	if err != nil {
		return fmt.Errorf("encryption: get latest cluster key: %w", err)
	}
	if latest == nil {
		return e.generateNewKey(ctx)
	}
	sec, err := clusterkey.Load(ctx, *latest, e.kms)
	if err != nil {
		return fmt.Errorf("encryption: load cluster key: %w", err)
	}
	e.mu.Lock()
	e.latest = sec
	e.latestCreatedAt = latest.CreatedAt
	e.mu.Unlock()
	e.log.Info("cluster key is found or generated", logger.String("identity", sec.Identity))
	return nil
}

// RotateKey generates a fresh cluster key unless the current one was
// created less than 24 hours ago, in which case it is a no-op. It
// returns whether a rotation actually happened.
func (e *Engine) RotateKey(ctx context.Context) (bool, error) {
	e.mu.RLock()
	tooRecent := !e.latestCreatedAt.IsZero() && time.Now().UTC().Before(e.latestCreatedAt.Add(24*time.Hour))
	e.mu.RUnlock()

	if tooRecent {
		return false, nil
	}
	if err := e.generateNewKey(ctx); err != nil {
		return false, err
	}
	e.log.Info("cluster key is rotated")
	return true, nil
}

func (e *Engine) generateNewKey(ctx context.Context) error {
	raw, err := cipher.GenerateKey()
	if err != nil {
		return fmt.Errorf("encryption: generate key: %w", err)
	}
	ck, err := clusterkey.Seal(ctx, raw, e.cfg.Algorithm, e.cfg.KeepInDays, e.kms)
	if err != nil {
		return fmt.Errorf("encryption: seal new cluster key: %w", err)
	}
	created, err := e.clusterRepo.Create(ctx, ck)
	if err != nil {
		return fmt.Errorf("encryption: persist new cluster key: %w", err)
	}

	latest, err := e.clusterRepo.GetLatest(ctx, e.cfg.Algorithm)
	if err != nil {
		return fmt.Errorf("encryption: get latest after create: %w", err)
	}
	if latest == nil {
		latest = &created
	}
	sec, err := clusterkey.Load(ctx, *latest, e.kms)
	if err != nil {
		return fmt.Errorf("encryption: load new cluster key: %w", err)
	}

	e.mu.Lock()
	e.latest = sec
	e.latestCreatedAt = latest.CreatedAt
	e.mu.Unlock()

	e.cacheMu.Lock()
	e.idCache[sec.ID] = sec
	e.cacheMu.Unlock()
	return nil
}

// Encode wraps content under the current cluster key, prefixing the
// result with the 2-byte big-endian cluster key id.
func (e *Engine) Encode(content []byte) ([]byte, error) {
	e.mu.RLock()
	latest := e.latest
	e.mu.RUnlock()

	sealed, err := cipher.Encrypt(latest.Data, content)
	if err != nil {
		return nil, fmt.Errorf("encryption: encode: %w", err)
	}

	out := make([]byte, 0, ClusterIDLength+len(sealed))
	out = append(out, byte(latest.ID>>8), byte(latest.ID))
	out = append(out, sealed...)
	return out, nil
}

// Decode unwraps content produced by Encode, looking up whichever
// cluster key (current or historical) it was encrypted under.
func (e *Engine) Decode(ctx context.Context, content []byte) ([]byte, error) {
	if len(content) <= ClusterIDLength {
		return nil, fmt.Errorf("encryption: decode: content too short")
	}
	clusterID := int32(content[0])<<8 | int32(content[1])

	sec, err := e.clusterKeyByID(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	plain, err := cipher.Decrypt(sec.Data, content[ClusterIDLength:])
	if err != nil {
		return nil, fmt.Errorf("encryption: decode: %w", err)
	}
	return plain, nil
}

func (e *Engine) clusterKeyByID(ctx context.Context, id int32) (clusterkey.SecClusterKey, error) {
	e.cacheMu.RLock()
	if sec, ok := e.idCache[id]; ok {
		e.cacheMu.RUnlock()
		return sec, nil
	}
	e.cacheMu.RUnlock()

	ck, err := e.clusterRepo.GetByID(ctx, id)
	if err != nil {
		return clusterkey.SecClusterKey{}, fmt.Errorf("encryption: get cluster key %d: %w", id, err)
	}
	sec, err := clusterkey.Load(ctx, ck, e.kms)
	if err != nil {
		return clusterkey.SecClusterKey{}, fmt.Errorf("encryption: load cluster key %d: %w", id, err)
	}

	e.cacheMu.Lock()
	e.idCache[id] = sec
	e.cacheMu.Unlock()
	return sec, nil
}
