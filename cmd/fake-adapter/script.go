// ABOUTME: Game script for the fake adapter: one pacman and one ghost on an open grid.
// ABOUTME: Moves agents by the actions the gateway returns and removes eaten food.

package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/google/uuid"

	"github.com/2389/pacman-gateway/internal/game"
	"github.com/2389/pacman-gateway/internal/message"
	"github.com/2389/pacman-gateway/internal/transport"
)

const (
	pacmanID game.AgentID = 0
	ghostID  game.AgentID = 1
)

type script struct {
	kind          string
	games         int
	turns         int
	width, height int
	seed          int64
}

// world is the adapter's own copy of the game.
type world struct {
	grid      game.Grid
	food      []game.Position
	positions map[game.AgentID]game.Position
	last      map[game.AgentID]game.Action
}

func newWorld(s script, rng *rand.Rand) *world {
	w := &world{
		grid: game.Grid{Width: s.width, Height: s.height},
		positions: map[game.AgentID]game.Position{
			pacmanID: {X: 0, Y: 0},
			ghostID:  {X: s.width - 1, Y: s.height - 1},
		},
		last: map[game.AgentID]game.Action{},
	}
	for i := 0; i < 3; i++ {
		w.food = append(w.food, game.Position{X: rng.Intn(s.width), Y: rng.Intn(s.height)})
	}
	return w
}

func (w *world) legal(id game.AgentID) []string {
	from := w.positions[id]
	legal := []string{string(game.Stop)}
	for _, a := range game.Moves {
		if w.grid.Step(from, a) != from {
			legal = append(legal, string(a))
		}
	}
	return legal
}

// apply moves id and returns the reward the move earned.
func (w *world) apply(id game.AgentID, a game.Action) float64 {
	next := w.grid.Step(w.positions[id], a)
	w.positions[id] = next
	w.last[id] = a

	if id != pacmanID {
		return -1
	}
	for i, f := range w.food {
		if f == next {
			w.food = append(w.food[:i], w.food[i+1:]...)
			return 10
		}
	}
	return -1
}

func exchange(ctx context.Context, ex transport.Exchanger, env message.Envelope, want message.Type) (message.Envelope, error) {
	env.RequestID = uuid.NewString()
	reply, err := ex.Exchange(ctx, env)
	if err != nil {
		return reply, err
	}
	if reply.Type != want {
		return reply, fmt.Errorf("%s for agent %d: got %s (%s: %s)", env.Type, env.AgentID, reply.Type, reply.Code, reply.Error)
	}
	return reply, nil
}

// play registers both agents and runs s.games games, logging each turn to
// log. It returns a one-line summary.
func play(ctx context.Context, ex transport.Exchanger, s script, log io.Writer) (string, error) {
	teams := map[game.AgentID]game.Team{pacmanID: game.TeamPacman, ghostID: game.TeamGhost}
	ids := []game.AgentID{pacmanID, ghostID}

	for _, id := range ids {
		if _, err := exchange(ctx, ex, message.Envelope{
			Type:       message.TypeRegister,
			AgentID:    id,
			AgentClass: s.kind,
			AgentTeam:  string(teams[id]),
		}, message.TypeAck); err != nil {
			return "", err
		}
	}
	for _, id := range ids {
		if _, err := exchange(ctx, ex, message.Envelope{Type: message.TypeInit, AgentID: id}, message.TypeAck); err != nil {
			return "", err
		}
	}

	rng := rand.New(rand.NewSource(s.seed))
	eaten := 0
	totalTurns := 0

	for g := 0; g < s.games; g++ {
		w := newWorld(s, rng)
		for _, id := range ids {
			if _, err := exchange(ctx, ex, message.Envelope{
				Type:      message.TypeStart,
				AgentID:   id,
				MapWidth:  s.width,
				MapHeight: s.height,
			}, message.TypeAck); err != nil {
				return "", err
			}
		}

		rewards := map[game.AgentID]float64{}
		for turn := 0; turn < s.turns && len(w.food) > 0; turn++ {
			for _, id := range ids {
				last, ok := w.last[id]
				if !ok {
					last = game.Stop
				}
				positions := make(map[game.AgentID]game.Position, len(w.positions))
				for k, v := range w.positions {
					positions[k] = v
				}

				reply, err := exchange(ctx, ex, message.Envelope{
					Type:           message.TypeState,
					AgentID:        id,
					FoodPositions:  append([]game.Position(nil), w.food...),
					AgentPositions: positions,
					FragileAgents:  map[game.AgentID]bool{ghostID: false},
					ExecutedAction: string(last),
					Reward:         rewards[id],
					LegalActions:   w.legal(id),
				}, message.TypeAction)
				if err != nil {
					return "", err
				}

				action, err := game.ParseAction(reply.Action)
				if err != nil {
					return "", fmt.Errorf("agent %d: %w", id, err)
				}
				before := len(w.food)
				rewards[id] = w.apply(id, action)
				eaten += before - len(w.food)
				totalTurns++

				fmt.Fprintf(log, "game %d turn %d agent %d: %s -> %s\n", g, turn, id, action, w.positions[id])
			}
		}
	}

	counts := make([]int, 0, len(ids))
	for _, id := range ids {
		reply, err := exchange(ctx, ex, message.Envelope{Type: message.TypeRequestBehaviorCount, AgentID: id}, message.TypeBehaviorCount)
		if err != nil {
			return "", err
		}
		n := 0
		if reply.Count != nil {
			n = *reply.Count
		}
		counts = append(counts, n)
	}

	return fmt.Sprintf("played %d games, %d turns, %d food eaten, behavior counts %v", s.games, totalTurns, eaten, counts), nil
}
