// ABOUTME: Tests for session state updates, prediction and wholesale replacement.
// ABOUTME: Covers overwrite semantics for walls and food and the tracked-agent set.

package session

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
)

var _ behavior.View = (*State)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestState_SetWallsAndFoodOverwrite(t *testing.T) {
	s := NewState(Params{AgentID: 1, Width: 10, Height: 5})

	s.SetWalls([]game.Position{{X: 1, Y: 1}, {X: 2, Y: 2}})
	s.SetFoodPositions([]game.Position{{X: 4, Y: 4}, {X: 5, Y: 4}})

	walls := []game.Position{{X: 0, Y: 3}}
	food := []game.Position{{X: 3, Y: 3}}
	s.SetWalls(walls)
	s.SetFoodPositions(food)

	assert.ElementsMatch(t, walls, s.Walls())
	assert.Equal(t, food, s.Food())
	assert.False(t, s.Grid().Walls.Has(game.Position{X: 1, Y: 1}))
}

func TestState_SetFoodCopiesInput(t *testing.T) {
	s := NewState(Params{AgentID: 1})
	food := []game.Position{{X: 1, Y: 1}}
	s.SetFoodPositions(food)

	food[0] = game.Position{X: 9, Y: 9}
	assert.Equal(t, []game.Position{{X: 1, Y: 1}}, s.Food())
}

func TestState_Observations(t *testing.T) {
	s := NewState(Params{AgentID: 1, Width: 10, Height: 5})

	s.ObserveAgentPosition(1, game.Position{X: 0, Y: 0})
	s.ObserveAgentPosition(3, game.Position{X: 4, Y: 2})
	s.ObserveFragileStatus(3, true)

	p, ok := s.Position(3)
	require.True(t, ok)
	assert.Equal(t, game.Position{X: 4, Y: 2}, p)
	assert.True(t, s.IsFragile(3))
	assert.False(t, s.IsFragile(1))
	assert.Equal(t, []game.AgentID{1, 3}, s.Tracked())
}

func TestState_PredictAgentAction(t *testing.T) {
	s := NewState(Params{AgentID: 1, Width: 10, Height: 5})
	s.SetWalls([]game.Position{{X: 1, Y: 0}})
	s.ObserveAgentPosition(1, game.Position{X: 0, Y: 0})
	s.ObserveAgentPosition(2, game.Position{X: 5, Y: 2})

	assert.True(t, s.PredictAgentAction(1, game.East))
	assert.True(t, s.PredictAgentAction(2, game.East))
	assert.False(t, s.PredictAgentAction(9, game.East), "unknown agents are skipped")

	p, ok := s.Predicted(1)
	require.True(t, ok)
	assert.Equal(t, game.Position{X: 0, Y: 0}, p, "wall blocks the predicted move")

	p, ok = s.Predicted(2)
	require.True(t, ok)
	assert.Equal(t, game.Position{X: 6, Y: 2}, p)
}

func TestStore_StartReplacesState(t *testing.T) {
	store := NewStore(testLogger())

	first := store.Start(Params{AgentID: 1, Width: 10, Height: 5, Iteration: 0})
	first.SetWalls([]game.Position{{X: 1, Y: 1}})
	first.SetFoodPositions([]game.Position{{X: 2, Y: 2}})
	first.ObserveAgentPosition(1, game.Position{X: 0, Y: 0})

	second := store.Start(Params{AgentID: 1, Width: 10, Height: 5, Iteration: 1})

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
	assert.Empty(t, got.Walls())
	assert.Empty(t, got.Food())
	assert.Empty(t, got.Tracked())
	assert.Equal(t, 0, first.Iteration())
	assert.Equal(t, 1, got.Iteration())
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetWithoutSession(t *testing.T) {
	store := NewStore(testLogger())

	_, err := store.Get(42)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
