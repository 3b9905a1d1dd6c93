// ABOUTME: Control loop that receives envelopes, dispatches them and sends one reply each.
// ABOUTME: Maps domain errors to ERROR reply codes and records router metrics.

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/pacman-gateway/internal/agent"
	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
	"github.com/2389/pacman-gateway/internal/message"
	"github.com/2389/pacman-gateway/internal/metrics"
	"github.com/2389/pacman-gateway/internal/session"
	"github.com/2389/pacman-gateway/internal/transport"
)

// Router owns the agent registry and session store and serves one endpoint.
type Router struct {
	registry  *agent.Registry
	sessions  *session.Store
	endpoint  transport.Endpoint
	eaterTeam game.Team
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a router. eaterTeam is the team whose agents consume food.
func New(
	registry *agent.Registry,
	sessions *session.Store,
	endpoint transport.Endpoint,
	eaterTeam game.Team,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		registry:  registry,
		sessions:  sessions,
		endpoint:  endpoint,
		eaterTeam: eaterTeam,
		metrics:   m,
		logger:    logger,
	}
}

// Registry returns the agent registry.
func (r *Router) Registry() *agent.Registry {
	return r.registry
}

// Sessions returns the session store.
func (r *Router) Sessions() *session.Store {
	return r.sessions
}

// Run serves requests until ctx is cancelled or the endpoint closes, which
// both return nil. Any other transport failure is returned.
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("router started", "eater_team", r.eaterTeam)

	for {
		req, err := r.endpoint.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				r.logger.Info("router stopped")
				return nil
			}
			return fmt.Errorf("receiving request: %w", err)
		}

		reply, afterSend := r.dispatch(req)

		if err := r.endpoint.Send(ctx, reply); err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				r.logger.Info("router stopped")
				return nil
			}
			return fmt.Errorf("sending %s reply: %w", reply.Type, err)
		}

		if afterSend != nil {
			afterSend()
		}
	}
}

// Handle dispatches one envelope and returns its reply, running any
// post-reply step immediately.
func (r *Router) Handle(env message.Envelope) message.Envelope {
	reply, afterSend := r.dispatch(env)
	if afterSend != nil {
		afterSend()
	}
	return reply
}

// dispatch runs the operation for env. The returned func, if any, must run
// after the reply has been delivered.
func (r *Router) dispatch(env message.Envelope) (message.Envelope, func()) {
	requestID := env.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := r.logger.With(
		"request_id", requestID,
		"agent_id", env.AgentID,
		"type", env.Type,
	)

	req, err := message.Decode(env)
	if err != nil {
		label := string(env.Type)
		if errors.Is(err, message.ErrUnknownMessageType) {
			label = "unknown"
		}
		r.metrics.ObserveMessage(label)
		return r.fail(logger, env, err), nil
	}
	r.metrics.ObserveMessage(string(req.Type()))

	var (
		reply     message.Envelope
		afterSend func()
	)
	id := req.Agent()

	switch req := req.(type) {
	case *message.Turn:
		reply, err = r.takeTurn(req, logger)
	case *message.Init:
		err = r.registry.Initialize(id)
		reply = message.Ack(id)
	case *message.Start:
		reply, err = r.startSession(req, logger)
		afterSend = func() { r.advanceIteration(id, logger) }
	case *message.Register:
		err = r.registry.Register(id, req.Kind, req.Team)
		reply = message.Ack(id)
	case *message.RequestBehaviorCount:
		var count int
		count, err = r.registry.BehaviorCount(id)
		reply = message.BehaviorCountReply(id, count)
		afterSend = func() { r.resetBehaviorCount(id, logger) }
	case *message.RequestPolicy:
		var policy []byte
		policy, err = r.registry.Policy(id)
		reply = message.PolicyReply(id, policy)
	case *message.SetPolicy:
		err = r.registry.SetPolicy(id, req.Policy)
		reply = message.Ack(id)
	default:
		err = fmt.Errorf("%w: %T", message.ErrUnknownMessageType, req)
	}

	if err != nil {
		return r.fail(logger, env, err), nil
	}

	r.metrics.SetRegistered(r.registry.Len())
	r.metrics.SetSessions(r.sessions.Len())

	reply.RequestID = env.RequestID
	logger.Debug("handled request", "reply", reply.Type)
	return reply, afterSend
}

func (r *Router) advanceIteration(id game.AgentID, logger *slog.Logger) {
	if err := r.registry.AdvanceIteration(id); err != nil {
		logger.Error("failed to advance iteration", "error", err)
	}
}

func (r *Router) resetBehaviorCount(id game.AgentID, logger *slog.Logger) {
	if err := r.registry.ResetBehaviorCount(id); err != nil {
		logger.Error("failed to reset behavior count", "error", err)
	}
}

// fail builds the ERROR reply for err.
func (r *Router) fail(logger *slog.Logger, env message.Envelope, err error) message.Envelope {
	code := errorCode(err)
	r.metrics.ObserveError(code)

	if code == message.CodeInternal {
		logger.Error("request failed", "code", code, "error", err)
	} else {
		logger.Warn("request rejected", "code", code, "error", err)
	}

	reply := message.ErrorReply(env.AgentID, code, err)
	reply.RequestID = env.RequestID
	return reply
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, message.ErrUnknownMessageType):
		return message.CodeUnknownMessageType
	case errors.Is(err, message.ErrInvalidMessage), errors.Is(err, behavior.ErrInvalidPolicy):
		return message.CodeInvalidMessage
	case errors.Is(err, agent.ErrUnregisteredAgent):
		return message.CodeUnregisteredAgent
	case errors.Is(err, agent.ErrUninitializedAgent):
		return message.CodeUninitialized
	case errors.Is(err, session.ErrNoActiveSession):
		return message.CodeNoActiveSession
	case errors.Is(err, behavior.ErrUnknownKind):
		return message.CodeUnknownBehavior
	default:
		return message.CodeInternal
	}
}
