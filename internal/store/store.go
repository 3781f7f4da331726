// Package store persists badge state snapshots under a fixed key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/portfolio-engine/internal/schemas"
	"github.com/jonathan/portfolio-engine/internal/types"
	schemafiles "github.com/jonathan/portfolio-engine/schemas"
)

// DefaultKey is the storage key for a single-visitor snapshot.
const DefaultKey = types.BadgeSnapshotVersion

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// CorruptSnapshotError reports a stored record that could not be decoded.
type CorruptSnapshotError struct {
	Key   string
	Cause error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("corrupt snapshot %q: %v", e.Key, e.Cause)
}

func (e *CorruptSnapshotError) Unwrap() error {
	return e.Cause
}

// Store is a last-writer-wins key/value store for badge snapshots.
type Store interface {
	Load(ctx context.Context, key string) (*types.BadgeSnapshot, error)
	Save(ctx context.Context, key string, snap *types.BadgeSnapshot) error
	Delete(ctx context.Context, key string) error
}

// Encode serializes a snapshot the way every backend stores it.
func Encode(snap *types.BadgeSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}
	out := *snap
	for _, list := range []*[]string{&out.Unlocked, &out.Dismissed} {
		if *list == nil {
			*list = []string{}
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode checks a stored payload against the snapshot schema and unmarshals it.
func Decode(key string, data []byte) (*types.BadgeSnapshot, error) {
	if err := schemas.Validate(schemafiles.BadgeSnapshot, data); err != nil {
		return nil, &CorruptSnapshotError{Key: key, Cause: err}
	}
	var snap types.BadgeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptSnapshotError{Key: key, Cause: err}
	}
	return &snap, nil
}

// MemoryStore keeps encoded snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string) (*types.BadgeSnapshot, error) {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(key, data)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, key string, snap *types.BadgeSnapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Put stores raw bytes under key, bypassing encoding.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Keys returns the number of stored snapshots.
func (m *MemoryStore) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
