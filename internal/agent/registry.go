// ABOUTME: Agent registry: behavior kind, team, live decision unit and game counter per id.
// ABOUTME: Owns decision-unit lifecycle; team lookups feed the team resolver.

package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
)

// ErrUnregisteredAgent indicates an operation that needs a team or kind for an unknown id.
var ErrUnregisteredAgent = errors.New("agent not registered")

// ErrUninitializedAgent indicates an operation that needs a live decision unit.
var ErrUninitializedAgent = errors.New("agent not initialized")

// Record is everything the registry knows about one agent.
type Record struct {
	Kind      behavior.Kind
	Team      game.Team
	Unit      behavior.Unit
	Iteration int
}

// Info is a read-only snapshot of a Record.
type Info struct {
	ID          game.AgentID  `json:"id"`
	Kind        behavior.Kind `json:"kind"`
	Team        game.Team     `json:"team"`
	Initialized bool          `json:"initialized"`
	Iteration   int           `json:"iteration"`
}

// Registry tracks every registered agent.
type Registry struct {
	records        map[game.AgentID]*Record
	catalog        behavior.Catalog
	firstIteration int
	mu             sync.RWMutex
	logger         *slog.Logger
}

// NewRegistry creates an empty Registry that builds units from catalog.
// New records start their game counter at firstIteration.
func NewRegistry(catalog behavior.Catalog, firstIteration int, logger *slog.Logger) *Registry {
	return &Registry{
		records:        make(map[game.AgentID]*Record),
		catalog:        catalog,
		firstIteration: firstIteration,
		logger:         logger,
	}
}

// Register records or overwrites the kind and team of id.
// An existing unit and counter are left untouched.
func (r *Registry) Register(id game.AgentID, kind behavior.Kind, team game.Team) error {
	if !r.catalog.Has(kind) {
		return fmt.Errorf("%w: %q", behavior.ErrUnknownKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		rec = &Record{Iteration: r.firstIteration}
		r.records[id] = rec
	}
	rec.Kind = kind
	rec.Team = team

	r.logger.Info("registered agent",
		"agent_id", id,
		"team", team,
		"kind", kind,
		"total_agents", len(r.records),
	)
	return nil
}

// Initialize discards any live unit for id and builds a fresh one seeded with its
// current allies and enemies.
func (r *Registry) Initialize(id game.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}

	teams := r.teamsLocked()
	allies, err := Allies(teams, id)
	if err != nil {
		return err
	}
	enemies, err := Enemies(teams, id)
	if err != nil {
		return err
	}

	rec.Unit = nil
	unit, err := r.catalog.New(rec.Kind, id, allies, enemies)
	if err != nil {
		return err
	}
	rec.Unit = unit

	r.logger.Info("initialized agent",
		"agent_id", id,
		"team", rec.Team,
		"allies", allies,
		"enemies", enemies,
	)
	return nil
}

// Team returns the team of id.
func (r *Registry) Team(id game.AgentID) (game.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return "", fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}
	return rec.Team, nil
}

// Allies resolves id's allies against the current team table.
func (r *Registry) Allies(id game.AgentID) ([]game.AgentID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Allies(r.teamsLocked(), id)
}

// Enemies resolves id's enemies against the current team table.
func (r *Registry) Enemies(id game.AgentID) ([]game.AgentID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Enemies(r.teamsLocked(), id)
}

// Unit returns the live decision unit of id.
func (r *Registry) Unit(id game.AgentID) (behavior.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unitLocked(id)
}

// BehaviorCount returns the unit's usage counter.
func (r *Registry) BehaviorCount(id game.AgentID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unit, err := r.unitLocked(id)
	if err != nil {
		return 0, err
	}
	return unit.BehaviorCount(), nil
}

// ResetBehaviorCount zeroes the unit's usage counter. The router calls it
// once the count has been delivered.
func (r *Registry) ResetBehaviorCount(id game.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	unit, err := r.unitLocked(id)
	if err != nil {
		return err
	}
	unit.ResetBehaviorCount()
	return nil
}

// Policy returns the unit's serialized policy.
func (r *Registry) Policy(id game.AgentID) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unit, err := r.unitLocked(id)
	if err != nil {
		return nil, err
	}
	return unit.Policy()
}

// SetPolicy loads a serialized policy into the unit.
func (r *Registry) SetPolicy(id game.AgentID, policy []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	unit, err := r.unitLocked(id)
	if err != nil {
		return err
	}
	return unit.SetPolicy(policy)
}

// Iteration returns the game counter of id.
func (r *Registry) Iteration(id game.AgentID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return 0, fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}
	return rec.Iteration, nil
}

// AdvanceIteration increments the game counter of id.
func (r *Registry) AdvanceIteration(id game.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}
	rec.Iteration++
	return nil
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// List returns a snapshot of all records sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]game.AgentID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	game.SortIDs(ids)

	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		rec := r.records[id]
		infos = append(infos, Info{
			ID:          id,
			Kind:        rec.Kind,
			Team:        rec.Team,
			Initialized: rec.Unit != nil,
			Iteration:   rec.Iteration,
		})
	}
	return infos
}

func (r *Registry) teamsLocked() map[game.AgentID]game.Team {
	teams := make(map[game.AgentID]game.Team, len(r.records))
	for id, rec := range r.records {
		teams[id] = rec.Team
	}
	return teams
}

func (r *Registry) unitLocked(id game.AgentID) (behavior.Unit, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}
	if rec.Unit == nil {
		return nil, fmt.Errorf("%w: agent %d", ErrUninitializedAgent, id)
	}
	return rec.Unit, nil
}
