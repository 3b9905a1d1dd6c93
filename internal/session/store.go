// ABOUTME: Session store keyed by agent id; a new game replaces the previous state wholesale.
// ABOUTME: Guarded for readers outside the router loop (health and metrics).

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/pacman-gateway/internal/game"
)

// ErrNoActiveSession indicates a turn for an agent that never started a game.
var ErrNoActiveSession = errors.New("no active session")

// Store holds at most one State per agent id.
type Store struct {
	states map[game.AgentID]*State
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		states: make(map[game.AgentID]*State),
		logger: logger,
	}
}

// Start discards any existing state for p.AgentID and installs a fresh one.
func (s *Store) Start(p Params) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[p.AgentID]; exists {
		delete(s.states, p.AgentID)
		s.logger.Debug("discarded previous session", "agent_id", p.AgentID)
	}

	state := NewState(p)
	s.states[p.AgentID] = state
	return state
}

// Get returns the active state for id.
func (s *Store) Get(id game.AgentID) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %d", ErrNoActiveSession, id)
	}
	return state, nil
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
