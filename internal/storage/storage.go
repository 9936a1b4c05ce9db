package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNotFound = errors.New("key not found")

const (
	KeyCurrentStage      = "current_stage"
	KeyError             = "error"
	KeySelectionMessage  = "selection_message"
	KeyWaitRoundMessage  = "wait_round_message"
	KeyRoundMessage      = "round_message"
	KeySelfBet           = "self_bet"
	KeyFirstRoundWinner  = "first_round_winner"
	KeySecondRoundWinner = "second_round_winner"
	KeyWinData           = "win_data"
	KeyCart              = "cart"
)

// AuctionKeys are the keys written by the event classifier. The cart is not one of them.
var AuctionKeys = []string{
	KeyCurrentStage,
	KeyError,
	KeySelectionMessage,
	KeyWaitRoundMessage,
	KeyRoundMessage,
	KeySelfBet,
	KeyFirstRoundWinner,
	KeySecondRoundWinner,
	KeyWinData,
}

const DefaultPrefix = "hobuy"

// Backend is a raw key/value store. Get returns ErrNotFound for missing keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store is best-effort JSON persistence. Failures are logged, never returned.
type Store interface {
	Get(key string, dst any) bool
	Set(key string, value any)
	Remove(key string)
	Clear()
}

// Managed scopes a Backend under "<prefix>_" and remembers every key it touched so
// Clear can remove them.
type Managed struct {
	backend Backend
	prefix  string
	timeout time.Duration
	log     *zap.Logger

	mu   sync.Mutex
	used map[string]struct{}
}

var _ Store = (*Managed)(nil)

type Option func(*Managed)

func WithTimeout(d time.Duration) Option {
	return func(m *Managed) { m.timeout = d }
}

// New builds a Managed store. Keys already present under the prefix are adopted, so
// Clear also removes what an earlier process left behind.
func New(backend Backend, prefix string, log *zap.Logger, opts ...Option) *Managed {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	m := &Managed{
		backend: backend,
		prefix:  prefix,
		timeout: 2 * time.Second,
		log:     log.Named("storage").With(zap.String("prefix", prefix)),
		used:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	ctx, cancel := m.ctx()
	defer cancel()
	keys, err := backend.Keys(ctx, prefix+"_")
	if err != nil {
		m.log.Warn("failed to list managed keys", zap.Error(err))
		return m
	}
	for _, k := range keys {
		m.used[k] = struct{}{}
	}
	return m
}

func (m *Managed) FullKey(key string) string {
	full := m.prefix + "_" + key
	m.mu.Lock()
	m.used[full] = struct{}{}
	m.mu.Unlock()
	return full
}

func (m *Managed) Get(key string, dst any) bool {
	ctx, cancel := m.ctx()
	defer cancel()

	raw, err := m.backend.Get(ctx, m.FullKey(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.log.Error("data parsing error", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (m *Managed) Set(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.log.Warn("failed to encode value", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := m.ctx()
	defer cancel()
	if err := m.backend.Set(ctx, m.FullKey(key), raw); err != nil {
		m.log.Warn("failed to save", zap.String("key", key), zap.Error(err))
	}
}

func (m *Managed) Remove(key string) {
	ctx, cancel := m.ctx()
	defer cancel()
	if err := m.backend.Delete(ctx, m.FullKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
		m.log.Warn("failed to remove", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes every managed key and forgets them.
func (m *Managed) Clear() {
	m.mu.Lock()
	keys := make([]string, 0, len(m.used))
	for k := range m.used {
		keys = append(keys, k)
	}
	clear(m.used)
	m.mu.Unlock()

	sort.Strings(keys)
	ctx, cancel := m.ctx()
	defer cancel()
	for _, k := range keys {
		if err := m.backend.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.Warn("failed to clear", zap.String("key", k), zap.Error(err))
		}
	}
}

// ManagedKeys returns the full keys currently tracked, sorted.
func (m *Managed) ManagedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.used))
	for k := range m.used {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Managed) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}
