// ABOUTME: Shared game vocabulary: agent ids, teams, grid positions and moves.
// ABOUTME: Used by the registry, session views, decision units and the wire codec.

package game

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAction indicates an action name outside the five legal moves.
var ErrUnknownAction = errors.New("unknown action")

// AgentID identifies one connected agent for the lifetime of the process.
type AgentID int

// Team labels the side an agent plays for.
type Team string

// Teams known to the default game variant.
const (
	TeamPacman Team = "pacman"
	TeamGhost  Team = "ghost"
)

// Position is a cell on the map. X grows eastwards, Y grows northwards.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Apply returns the position reached by taking action from p, ignoring walls.
func (p Position) Apply(action Action) Position {
	dx, dy := action.Vector()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// ManhattanDistance returns |dx|+|dy| between two cells.
func ManhattanDistance(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Action is a move an agent can take in one turn.
type Action string

const (
	North Action = "North"
	South Action = "South"
	East  Action = "East"
	West  Action = "West"
	Stop  Action = "Stop"
)

// Moves lists the four actions that change position, in a fixed order.
var Moves = []Action{North, South, East, West}

// ParseAction converts a wire name into an Action.
func ParseAction(name string) (Action, error) {
	switch a := Action(name); a {
	case North, South, East, West, Stop:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}

// Vector returns the (dx, dy) displacement of the action.
func (a Action) Vector() (int, int) {
	switch a {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// SortIDs sorts agent ids ascending in place and returns them.
func SortIDs(ids []AgentID) []AgentID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
