// ABOUTME: Session start and turn coordination for one agent.
// ABOUTME: A turn refreshes the world view, asks the decision unit, then predicts every tracked agent.

package router

import (
	"log/slog"
	"time"

	"github.com/2389/pacman-gateway/internal/message"
	"github.com/2389/pacman-gateway/internal/session"
)

// startSession replaces the agent's session with a fresh one. The session
// takes the registry's current iteration; the caller advances it after replying.
func (r *Router) startSession(req *message.Start, logger *slog.Logger) (message.Envelope, error) {
	id := req.Agent()

	team, err := r.registry.Team(id)
	if err != nil {
		return message.Envelope{}, err
	}
	allies, err := r.registry.Allies(id)
	if err != nil {
		return message.Envelope{}, err
	}
	enemies, err := r.registry.Enemies(id)
	if err != nil {
		return message.Envelope{}, err
	}
	iteration, err := r.registry.Iteration(id)
	if err != nil {
		return message.Envelope{}, err
	}

	state := r.sessions.Start(session.Params{
		AgentID:   id,
		Width:     req.Width,
		Height:    req.Height,
		Allies:    allies,
		Enemies:   enemies,
		Eater:     team == r.eaterTeam,
		Iteration: iteration,
	})

	logger.Info("started session",
		"width", state.Width(),
		"height", state.Height(),
		"iteration", state.Iteration(),
		"eater", state.Eater(),
	)
	return message.Ack(id), nil
}

// takeTurn asks the agent's decision unit for an action. Nothing is mutated
// unless the agent has both a live unit and an active session.
func (r *Router) takeTurn(req *message.Turn, logger *slog.Logger) (message.Envelope, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveTurn(time.Since(start)) }()

	id := req.Agent()

	unit, err := r.registry.Unit(id)
	if err != nil {
		return message.Envelope{}, err
	}
	state, err := r.sessions.Get(id)
	if err != nil {
		return message.Envelope{}, err
	}

	state.SetWalls(req.Walls)
	state.SetFoodPositions(req.Food)
	for other, pos := range req.Positions {
		state.ObserveAgentPosition(other, pos)
	}
	for other, fragile := range req.Fragile {
		state.ObserveFragileStatus(other, fragile)
	}

	action := unit.ChooseAction(state, req.LastAction, req.Reward, req.Legal, req.TestMode)

	for _, tracked := range state.Tracked() {
		state.PredictAgentAction(tracked, action)
	}

	logger.Debug("took turn",
		"action", action,
		"legal", req.Legal,
		"reward", req.Reward,
		"test_mode", req.TestMode,
	)
	return message.ActionReply(id, action), nil
}
