package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/errors"
)

// DefaultKey is the key the collection is stored under unless configured.
const DefaultKey = "savedCards"

// Store persists a whole collection under one key.
type Store interface {
	// Read returns the persisted collection. Missing or corrupt content yields
	// an empty collection; only a failed read of the backing store errors.
	Read(ctx context.Context) (Collection, error)

	// Load is Read with read failures logged and mapped to empty. It never fails.
	Load(ctx context.Context) Collection

	// Save overwrites the persisted collection with a single write.
	Save(ctx context.Context, c Collection) error
}

// KeyValue is the synchronous string-keyed store the collection lives in.
// *db.KV satisfies it.
type KeyValue interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// KVStore stores the collection as one JSON array in a KeyValue.
type KVStore struct {
	kv     KeyValue
	key    string
	logger *zap.Logger
}

// NewKVStore creates a Store over kv. An empty key falls back to DefaultKey;
// a nil logger discards log output.
func NewKVStore(kv KeyValue, key string, logger *zap.Logger) *KVStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVStore{kv: kv, key: key, logger: logger}
}

// Key returns the storage key in use.
func (s *KVStore) Key() string {
	return s.key
}

// Read implements Store.
func (s *KVStore) Read(ctx context.Context) (Collection, error) {
	raw, found, err := s.kv.GetValue(ctx, s.key)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read %s: %w", s.key, err))
	}
	if !found || raw == "" {
		return Collection{}, nil
	}

	var c Collection
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		corrupt := errors.NewCorruptStore(s.key, err)
		s.logger.Warn("stored collection is unreadable, resetting to empty",
			zap.String("code", string(corrupt.Code)),
			zap.String("key", s.key),
			zap.Error(err))
		return Collection{}, nil
	}

	c, dropped := dedupe(c)
	if dropped > 0 {
		s.logger.Warn("dropped duplicate or id-less entries from stored collection",
			zap.String("key", s.key), zap.Int("dropped", dropped))
	}
	return c, nil
}

// Load implements Store.
func (s *KVStore) Load(ctx context.Context) Collection {
	c, err := s.Read(ctx)
	if err != nil {
		s.logger.Warn("collection read failed, using empty collection",
			zap.String("key", s.key), zap.Error(err))
		return Collection{}
	}
	return c
}

// Save implements Store.
func (s *KVStore) Save(ctx context.Context, c Collection) error {
	if c == nil {
		c = Collection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.NewInternal(err)
	}
	return s.kv.SetValue(ctx, s.key, string(data))
}

// MemoryKV is an in-process KeyValue for tests and ephemeral sessions.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// GetValue implements KeyValue.
func (m *MemoryKV) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// SetValue implements KeyValue.
func (m *MemoryKV) SetValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// NewMemoryStore returns a Store backed by a fresh MemoryKV.
func NewMemoryStore() *KVStore {
	return NewKVStore(NewMemoryKV(), DefaultKey, nil)
}
