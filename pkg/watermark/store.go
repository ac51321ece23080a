// Package watermark persists the per-trigger poll watermark: the sequence
// number of the most recently changed record already delivered.
//
// A missing watermark reads as 0, which the poller treats as "never polled".
// Stores are safe for concurrent use; the poller itself reads once and writes
// at most once per poll.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// ErrEmptyKey is returned for an empty watermark key.
var ErrEmptyKey = errors.New("watermark key is required")

// Store is a per-trigger key-value scratch space holding one sequence per key.
type Store interface {
	// Get returns the stored sequence, or 0 if none was stored.
	Get(ctx context.Context, key string) (int64, error)

	// Set stores the sequence for key.
	Set(ctx context.Context, key string, sequence int64) error
}

// keyEscaper percent-encodes the separators of a watermark key.
var keyEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "#", "%23")

// Key builds the watermark key of one trigger instance polling a table:
// team/database/table, plus #node when node is set. Separators inside a
// segment are percent-encoded, so distinct triggers never share a key.
func Key(table ninox.TableRef, node string) string {
	key := keyEscaper.Replace(table.Team) + "/" +
		keyEscaper.Replace(table.Database) + "/" +
		keyEscaper.Replace(table.Table)
	if node == "" {
		return key
	}
	return key + "#" + keyEscaper.Replace(node)
}

func validate(key string, sequence int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	if sequence < 0 {
		return fmt.Errorf("sequence must be >= 0 (got %d)", sequence)
	}
	return nil
}

// MemoryStore keeps watermarks in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]int64)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, sequence int64) error {
	if err := validate(key, sequence); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = sequence
	return nil
}
