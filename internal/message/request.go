// ABOUTME: Closed set of request variants and the decoder from wire envelopes.
// ABOUTME: Unknown type tags and malformed payloads are rejected here, before dispatch.

package message

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
)

// ErrUnknownMessageType indicates a type tag outside the request set.
var ErrUnknownMessageType = errors.New("unknown message type")

// ErrInvalidMessage indicates a recognized request with a malformed payload.
var ErrInvalidMessage = errors.New("invalid message")

var validate = validator.New()

// Request is one of Turn, Init, Start, Register, RequestBehaviorCount,
// RequestPolicy or SetPolicy.
type Request interface {
	Agent() game.AgentID
	Type() Type
	isRequest()
}

// Header is embedded in every request.
type Header struct {
	AgentID game.AgentID `validate:"gte=0"`
}

func (h Header) Agent() game.AgentID { return h.AgentID }
func (Header) isRequest()            {}

// Turn asks the agent's decision unit for its next action (STATE).
type Turn struct {
	Header
	Walls      []game.Position
	Food       []game.Position
	Positions  map[game.AgentID]game.Position
	Fragile    map[game.AgentID]bool
	LastAction game.Action
	Reward     float64
	Legal      []game.Action
	TestMode   bool
}

// Init builds a fresh decision unit for the agent.
type Init struct {
	Header
}

// Start begins a new game for the agent.
type Start struct {
	Header
	Width  int `validate:"gt=0"`
	Height int `validate:"gt=0"`
}

// Register declares the agent's decision-unit kind and team.
type Register struct {
	Header
	Kind behavior.Kind `validate:"required"`
	Team game.Team     `validate:"required"`
}

// RequestBehaviorCount reads and resets the unit's usage counter.
type RequestBehaviorCount struct {
	Header
}

// RequestPolicy reads the unit's serialized policy.
type RequestPolicy struct {
	Header
}

// SetPolicy loads a serialized policy into the unit (POLICY).
type SetPolicy struct {
	Header
	Policy []byte `validate:"required"`
}

func (*Turn) Type() Type                 { return TypeState }
func (*Init) Type() Type                 { return TypeInit }
func (*Start) Type() Type                { return TypeStart }
func (*Register) Type() Type             { return TypeRegister }
func (*RequestBehaviorCount) Type() Type { return TypeRequestBehaviorCount }
func (*RequestPolicy) Type() Type        { return TypeRequestPolicy }
func (*SetPolicy) Type() Type            { return TypePolicy }

// Decode converts a wire envelope into its request variant.
func Decode(env Envelope) (Request, error) {
	h := Header{AgentID: env.AgentID}

	var req Request
	switch env.Type {
	case TypeState:
		turn, err := decodeTurn(h, env)
		if err != nil {
			return nil, err
		}
		req = turn
	case TypeInit:
		req = &Init{Header: h}
	case TypeStart:
		req = &Start{Header: h, Width: env.MapWidth, Height: env.MapHeight}
	case TypeRegister:
		req = &Register{Header: h, Kind: behavior.Kind(env.AgentClass), Team: game.Team(env.AgentTeam)}
	case TypeRequestBehaviorCount:
		req = &RequestBehaviorCount{Header: h}
	case TypeRequestPolicy:
		req = &RequestPolicy{Header: h}
	case TypePolicy:
		req = &SetPolicy{Header: h, Policy: []byte(env.Policy)}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, env.Type, err)
	}
	return req, nil
}

func decodeTurn(h Header, env Envelope) (*Turn, error) {
	turn := &Turn{
		Header:     h,
		Walls:      env.WallPositions,
		Food:       env.FoodPositions,
		Positions:  env.AgentPositions,
		Fragile:    env.FragileAgents,
		LastAction: game.Stop,
		Reward:     env.Reward,
		TestMode:   env.TestMode,
	}

	if env.ExecutedAction != "" {
		a, err := game.ParseAction(env.ExecutedAction)
		if err != nil {
			return nil, fmt.Errorf("%w: executed_action: %v", ErrInvalidMessage, err)
		}
		turn.LastAction = a
	}

	turn.Legal = make([]game.Action, 0, len(env.LegalActions))
	for _, name := range env.LegalActions {
		a, err := game.ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("%w: legal_actions: %v", ErrInvalidMessage, err)
		}
		turn.Legal = append(turn.Legal, a)
	}
	return turn, nil
}
