// internal/store/kv.go
//
// Key-value persistence for high scores.
// The engine only needs Get/Set on a single key; these backends provide it:
//   - Memory:    map guarded by a RWMutex, lost on restart.
//   - SQLiteKV:  kv table in the service database (sqlite.go).
//   - RedisKV:   plain string keys (redis.go).
// Scoped prefixes keys so every player gets their own "highScore".

package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// KV is the persistence collaborator. Absent keys return ok=false, not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Memory is an in-process KV.
type Memory struct {
	mu   sync.RWMutex      // guards data
	data map[string]string // keyed by full key
}

// NewMemory constructs an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get looks up key.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type scoped struct {
	kv     KV
	prefix string
}

// Scoped returns a view of kv whose keys are prefixed with "<prefix>:".
func Scoped(kv KV, prefix string) KV {
	return &scoped{kv: kv, prefix: strings.TrimSuffix(prefix, ":") + ":"}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.kv.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.kv.Set(ctx, s.prefix+key, value)
}

// PlayerPrefix is the scope used for a player's keys, e.g. "player:abc".
func PlayerPrefix(kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}
