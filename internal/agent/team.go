// ABOUTME: Team resolution over the registry's team table.
// ABOUTME: Allies share the agent's team, enemies do not; the agent itself is in neither.

package agent

import (
	"fmt"

	"github.com/2389/pacman-gateway/internal/game"
)

// Allies returns every id in teams on id's team, excluding id, sorted ascending.
// Returns ErrUnregisteredAgent if id has no team.
func Allies(teams map[game.AgentID]game.Team, id game.AgentID) ([]game.AgentID, error) {
	return partition(teams, id, true)
}

// Enemies returns every id in teams on a different team from id, sorted ascending.
// Returns ErrUnregisteredAgent if id has no team.
func Enemies(teams map[game.AgentID]game.Team, id game.AgentID) ([]game.AgentID, error) {
	return partition(teams, id, false)
}

func partition(teams map[game.AgentID]game.Team, id game.AgentID, same bool) ([]game.AgentID, error) {
	own, ok := teams[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %d", ErrUnregisteredAgent, id)
	}

	ids := make([]game.AgentID, 0, len(teams))
	for other, team := range teams {
		if other == id {
			continue
		}
		if (team == own) == same {
			ids = append(ids, other)
		}
	}
	return game.SortIDs(ids), nil
}
