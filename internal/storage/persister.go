// Package storage persists store snapshots. Every backend stores the same
// versioned JSON document; only the medium differs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/store"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Persister loads and saves the persisted subset of the store.
type Persister interface {
	Load(ctx context.Context) (*store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
	Close() error
}

// Encode renders snap in the on-disk format, stamping the current version.
func Encode(snap store.Snapshot) ([]byte, error) {
	snap.Version = store.SnapshotVersion
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses and version-checks a stored snapshot.
func Decode(b []byte) (*store.Snapshot, error) {
	var snap store.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Check(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Memory keeps the last saved snapshot in process. Nothing survives a restart.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	return Decode(m.data)
}

func (m *Memory) Save(_ context.Context, snap store.Snapshot) error {
	b, err := Encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
