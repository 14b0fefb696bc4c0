// internal/store/memory.go
//
// In-memory registry of live game engines, one per player.
// Used by the HTTP and Telegram shells, which may receive concurrent requests
// for the same player while game.Engine itself is single-owner.
//
// Characteristics:
//   - Engines keyed by player ID in a map guarded by a RWMutex.
//   - Each entry carries its own mutex; With() holds it for the callback.
//   - Engines are built lazily by the factory on first use, outside the map lock.
//   - With() and Peek() both count as activity for Sweep().
//   - State is lost when the process restarts (high scores live in a KV).

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/numguess/internal/game"
)

// ErrNoSession is returned by Peek for unknown players.
var ErrNoSession = errors.New("no session")

// EngineFactory builds the engine for a player on first use.
type EngineFactory func(ctx context.Context, playerID string) (*game.Engine, error)

type entry struct {
	mu      sync.Mutex // serialises engine access
	eng     *game.Engine
	touched time.Time
}

// Sessions maps player IDs to engines.
type Sessions struct {
	mu      sync.RWMutex      // guards entries
	entries map[string]*entry // keyed by player ID
	factory EngineFactory
	now     func() time.Time
}

// NewSessions constructs an empty registry.
func NewSessions(factory EngineFactory) *Sessions {
	return &Sessions{
		entries: make(map[string]*entry),
		factory: factory,
		now:     time.Now,
	}
}

// With runs fn with exclusive access to the player's engine, creating it if needed.
func (s *Sessions) With(ctx context.Context, playerID string, fn func(e *game.Engine) error) error {
	en, err := s.getOrCreate(ctx, playerID)
	if err != nil {
		return err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	en.touched = s.now()
	return fn(en.eng)
}

// Peek is With for existing players only; it never builds an engine.
func (s *Sessions) Peek(playerID string, fn func(e *game.Engine) error) error {
	s.mu.RLock()
	en, ok := s.entries[playerID]
	s.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	en.touched = s.now()
	return fn(en.eng)
}

func (s *Sessions) getOrCreate(ctx context.Context, playerID string) (*entry, error) {
	s.mu.RLock()
	en, ok := s.entries[playerID]
	s.mu.RUnlock()
	if ok {
		return en, nil
	}

	// The factory may hit the KV backend, so it runs unlocked. A concurrent
	// first request for the same player can build a second engine; the one
	// registered first wins and the other is discarded.
	eng, err := s.factory(ctx, playerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if en, ok := s.entries[playerID]; ok {
		return en, nil
	}
	en = &entry{eng: eng, touched: s.now()}
	s.entries[playerID] = en
	return en, nil
}

// Drop forgets a player's engine.
func (s *Sessions) Drop(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, playerID)
}

// Has reports whether the player has a live engine.
func (s *Sessions) Has(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[playerID]
	return ok
}

// Len reports how many engines are live.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops engines untouched for longer than idle and returns how many went.
func (s *Sessions) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, en := range s.entries {
		if !en.mu.TryLock() {
			continue // in use
		}
		stale := en.touched.Before(cutoff)
		en.mu.Unlock()
		if stale {
			delete(s.entries, id)
			n++
		}
	}
	return n
}
