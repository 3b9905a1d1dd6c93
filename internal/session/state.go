// ABOUTME: Per-agent world view for one game: walls, food, observed and predicted positions.
// ABOUTME: Implements behavior.View so decision units read it directly.

package session

import (
	"github.com/2389/pacman-gateway/internal/game"
)

// Params describes a new session.
type Params struct {
	AgentID   game.AgentID
	Width     int
	Height    int
	Allies    []game.AgentID
	Enemies   []game.AgentID
	Eater     bool
	Iteration int
}

// State is the authoritative world view of one agent during one game.
type State struct {
	agentID   game.AgentID
	width     int
	height    int
	walls     game.WallSet
	food      []game.Position
	positions map[game.AgentID]game.Position
	predicted map[game.AgentID]game.Position
	fragile   map[game.AgentID]bool
	eater     bool
	allies    []game.AgentID
	enemies   []game.AgentID
	iteration int
}

// NewState creates a fresh state with no walls, food or observations.
func NewState(p Params) *State {
	return &State{
		agentID:   p.AgentID,
		width:     p.Width,
		height:    p.Height,
		walls:     game.WallSet{},
		positions: make(map[game.AgentID]game.Position),
		predicted: make(map[game.AgentID]game.Position),
		fragile:   make(map[game.AgentID]bool),
		eater:     p.Eater,
		allies:    append([]game.AgentID(nil), p.Allies...),
		enemies:   append([]game.AgentID(nil), p.Enemies...),
		iteration: p.Iteration,
	}
}

// SetWalls replaces the wall set.
func (s *State) SetWalls(positions []game.Position) {
	s.walls = game.NewWallSet(positions)
}

// SetFoodPositions replaces the food list.
func (s *State) SetFoodPositions(positions []game.Position) {
	s.food = append([]game.Position(nil), positions...)
}

// ObserveAgentPosition records where id was seen this turn.
func (s *State) ObserveAgentPosition(id game.AgentID, pos game.Position) {
	s.positions[id] = pos
}

// ObserveFragileStatus records whether id is currently vulnerable.
func (s *State) ObserveFragileStatus(id game.AgentID, fragile bool) {
	s.fragile[id] = fragile
}

// PredictAgentAction moves id's baseline position by action and stores the result as
// its predicted position. The baseline is the last observation, or the last prediction
// when id has not been seen. Returns false when id has no known position.
func (s *State) PredictAgentAction(id game.AgentID, action game.Action) bool {
	base, ok := s.positions[id]
	if !ok {
		base, ok = s.predicted[id]
	}
	if !ok {
		return false
	}
	s.predicted[id] = s.Grid().Step(base, action)
	return true
}

// Tracked returns every id with an observed position, sorted ascending.
func (s *State) Tracked() []game.AgentID {
	ids := make([]game.AgentID, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	return game.SortIDs(ids)
}

// Predicted returns the predicted position of id.
func (s *State) Predicted(id game.AgentID) (game.Position, bool) {
	p, ok := s.predicted[id]
	return p, ok
}

// Walls returns the current wall positions in no particular order.
func (s *State) Walls() []game.Position {
	walls := make([]game.Position, 0, len(s.walls))
	for p := range s.walls {
		walls = append(walls, p)
	}
	return walls
}

func (s *State) AgentID() game.AgentID { return s.agentID }
func (s *State) Width() int            { return s.width }
func (s *State) Height() int           { return s.height }
func (s *State) Eater() bool           { return s.eater }
func (s *State) Iteration() int        { return s.iteration }

func (s *State) Allies() []game.AgentID  { return s.allies }
func (s *State) Enemies() []game.AgentID { return s.enemies }

// Food returns the current food positions.
func (s *State) Food() []game.Position { return s.food }

// Grid returns the map bounds and walls.
func (s *State) Grid() game.Grid {
	return game.Grid{Width: s.width, Height: s.height, Walls: s.walls}
}

// Position returns the last observed position of id.
func (s *State) Position(id game.AgentID) (game.Position, bool) {
	p, ok := s.positions[id]
	return p, ok
}

// IsFragile reports the last observed fragile flag of id.
func (s *State) IsFragile(id game.AgentID) bool {
	return s.fragile[id]
}
