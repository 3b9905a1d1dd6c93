// ABOUTME: Tests for the agent registry and team resolution.
// ABOUTME: Covers registration, unit lifecycle, counters and the ally/enemy partition.

package agent

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry() *Registry {
	return NewRegistry(behavior.DefaultCatalog(), 0, testLogger())
}

func TestTeams_PartitionProperty(t *testing.T) {
	teams := map[game.AgentID]game.Team{
		0: game.TeamPacman,
		1: game.TeamGhost,
		2: game.TeamGhost,
		3: game.TeamPacman,
		4: "spectator",
	}

	for id := range teams {
		allies, err := Allies(teams, id)
		require.NoError(t, err)
		enemies, err := Enemies(teams, id)
		require.NoError(t, err)

		seen := map[game.AgentID]int{id: 1}
		for _, a := range allies {
			seen[a]++
			assert.Equal(t, teams[id], teams[a])
		}
		for _, e := range enemies {
			seen[e]++
			assert.NotEqual(t, teams[id], teams[e])
		}

		assert.Len(t, seen, len(teams), "union covers every registered id")
		for other, n := range seen {
			assert.Equal(t, 1, n, "id %d appears in more than one set for agent %d", other, id)
		}
	}
}

func TestTeams_TwoOpposingAgents(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindRandom, "red"))
	require.NoError(t, r.Register(2, behavior.KindRandom, "blue"))

	enemies, err := r.Enemies(1)
	require.NoError(t, err)
	assert.Equal(t, []game.AgentID{2}, enemies)

	allies, err := r.Allies(1)
	require.NoError(t, err)
	assert.Empty(t, allies)
}

func TestTeams_UnregisteredAgent(t *testing.T) {
	_, err := Allies(map[game.AgentID]game.Team{}, 7)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)

	_, err = Enemies(map[game.AgentID]game.Team{1: "red"}, 7)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)
}

func TestRegistry_RegisterOverwritesKindAndTeam(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindRandom, game.TeamPacman))
	require.NoError(t, r.Initialize(1))
	require.NoError(t, r.AdvanceIteration(1))

	unit, err := r.Unit(1)
	require.NoError(t, err)

	require.NoError(t, r.Register(1, behavior.KindGreedy, game.TeamGhost))

	team, err := r.Team(1)
	require.NoError(t, err)
	assert.Equal(t, game.TeamGhost, team)

	same, err := r.Unit(1)
	require.NoError(t, err)
	assert.Same(t, unit, same, "registration leaves the live unit alone")

	iteration, err := r.Iteration(1)
	require.NoError(t, err)
	assert.Equal(t, 1, iteration, "registration leaves the counter alone")

	infos := r.List()
	require.Len(t, infos, 1)
	assert.Equal(t, behavior.KindGreedy, infos[0].Kind)
	assert.True(t, infos[0].Initialized)
}

func TestRegistry_RegisterUnknownKind(t *testing.T) {
	r := newTestRegistry()

	err := r.Register(1, "neural", game.TeamPacman)
	assert.ErrorIs(t, err, behavior.ErrUnknownKind)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_InitializeRequiresRegistration(t *testing.T) {
	r := newTestRegistry()

	err := r.Initialize(1)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)
}

func TestRegistry_InitializeReplacesUnit(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindRandom, game.TeamPacman))
	require.NoError(t, r.Initialize(1))

	first, err := r.Unit(1)
	require.NoError(t, err)
	first.ChooseAction(nil, game.Stop, 0, []game.Action{game.Stop}, false)

	require.NoError(t, r.AdvanceIteration(1))
	require.NoError(t, r.Initialize(1))

	second, err := r.Unit(1)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, second.BehaviorCount())

	iteration, err := r.Iteration(1)
	require.NoError(t, err)
	assert.Equal(t, 1, iteration, "initialization keeps the game counter")
}

func TestRegistry_BehaviorCountReadAndReset(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindRandom, game.TeamPacman))
	require.NoError(t, r.Initialize(1))

	unit, err := r.Unit(1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		unit.ChooseAction(nil, game.Stop, 0, []game.Action{game.Stop}, false)
	}

	count, err := r.BehaviorCount(1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = r.BehaviorCount(1)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "reading does not reset")

	require.NoError(t, r.ResetBehaviorCount(1))
	count, err = r.BehaviorCount(1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRegistry_UninitializedOperations(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindRandom, game.TeamPacman))

	_, err := r.BehaviorCount(1)
	assert.ErrorIs(t, err, ErrUninitializedAgent)
	assert.ErrorIs(t, r.ResetBehaviorCount(1), ErrUninitializedAgent)
	_, err = r.Policy(1)
	assert.ErrorIs(t, err, ErrUninitializedAgent)
	assert.ErrorIs(t, r.SetPolicy(1, []byte(`{}`)), ErrUninitializedAgent)
	_, err = r.Unit(1)
	assert.ErrorIs(t, err, ErrUninitializedAgent)

	_, err = r.Unit(99)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)
}

func TestRegistry_PolicyPassthrough(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(1, behavior.KindGreedy, game.TeamPacman))
	require.NoError(t, r.Initialize(1))

	require.NoError(t, r.SetPolicy(1, []byte(`{"epsilon":0.25,"seed":3}`)))
	policy, err := r.Policy(1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"epsilon":0.25,"seed":3}`, string(policy))
}

func TestRegistry_FirstIteration(t *testing.T) {
	r := NewRegistry(behavior.DefaultCatalog(), 1, testLogger())
	require.NoError(t, r.Register(1, behavior.KindRandom, game.TeamPacman))

	iteration, err := r.Iteration(1)
	require.NoError(t, err)
	assert.Equal(t, 1, iteration)

	assert.ErrorIs(t, r.AdvanceIteration(2), ErrUnregisteredAgent)
	_, err = r.Iteration(2)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)
}
