package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pacman-gateway/internal/agent"
	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
	"github.com/2389/pacman-gateway/internal/metrics"
	"github.com/2389/pacman-gateway/internal/router"
	"github.com/2389/pacman-gateway/internal/session"
	"github.com/2389/pacman-gateway/internal/transport"
)

func TestPlay_AgainstRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := transport.NewQueue(nil, logger)
	defer q.Close()

	r := router.New(
		agent.NewRegistry(behavior.DefaultCatalog(), 0, logger),
		session.NewStore(logger),
		q,
		game.TeamPacman,
		metrics.New(),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	summary, err := play(ctx, q, script{kind: "greedy", games: 2, turns: 5, width: 6, height: 4, seed: 3}, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, summary, "played 2 games")

	iteration, err := r.Registry().Iteration(pacmanID)
	require.NoError(t, err)
	assert.Equal(t, 2, iteration)
}

func TestPlay_UnknownKind(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := transport.NewQueue(nil, logger)
	defer q.Close()

	r := router.New(
		agent.NewRegistry(behavior.DefaultCatalog(), 0, logger),
		session.NewStore(logger),
		q,
		game.TeamPacman,
		metrics.New(),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	_, err := play(ctx, q, script{kind: "neural", games: 1, turns: 1, width: 3, height: 3}, io.Discard)
	assert.ErrorContains(t, err, "unknown_behavior")
}

func TestWorld_LegalAndApply(t *testing.T) {
	w := &world{
		grid:      game.Grid{Width: 3, Height: 3},
		food:      []game.Position{{X: 1, Y: 0}},
		positions: map[game.AgentID]game.Position{pacmanID: {X: 0, Y: 0}},
		last:      map[game.AgentID]game.Action{},
	}

	assert.ElementsMatch(t, []string{"Stop", "North", "East"}, w.legal(pacmanID))
	assert.Equal(t, 10.0, w.apply(pacmanID, game.East))
	assert.Empty(t, w.food)
	assert.Equal(t, -1.0, w.apply(pacmanID, game.East))
}
