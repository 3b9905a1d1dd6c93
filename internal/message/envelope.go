// ABOUTME: Wire envelope shared by every transport and the reply constructors.
// ABOUTME: One flat JSON object per message; payload fields depend on the type tag.

package message

import (
	"encoding/json"

	"github.com/2389/pacman-gateway/internal/game"
)

// Type is the message type tag.
type Type string

// Request types.
const (
	TypeState                Type = "STATE"
	TypeInit                 Type = "INIT"
	TypeStart                Type = "START"
	TypeRegister             Type = "REGISTER"
	TypeRequestBehaviorCount Type = "REQUEST_BEHAVIOR_COUNT"
	TypeRequestPolicy        Type = "REQUEST_POLICY"
	TypePolicy               Type = "POLICY"
)

// Reply types. POLICY is shared with the request that sets a policy.
const (
	TypeAck           Type = "ACK"
	TypeAction        Type = "ACTION"
	TypeBehaviorCount Type = "BEHAVIOR_COUNT"
	TypeError         Type = "ERROR"
)

// Error codes carried in ERROR replies.
const (
	CodeUnknownMessageType = "unknown_message_type"
	CodeUnregisteredAgent  = "unregistered_agent"
	CodeUninitialized      = "uninitialized_agent"
	CodeNoActiveSession    = "no_active_session"
	CodeUnknownBehavior    = "unknown_behavior"
	CodeInvalidMessage     = "invalid_message"
	CodeInternal           = "internal"
)

// Envelope is the JSON object carried by every transport.
type Envelope struct {
	Type      Type         `json:"type"`
	AgentID   game.AgentID `json:"agent_id"`
	RequestID string       `json:"request_id,omitempty"`

	// STATE
	WallPositions  []game.Position                `json:"wall_positions,omitempty"`
	FoodPositions  []game.Position                `json:"food_positions,omitempty"`
	AgentPositions map[game.AgentID]game.Position `json:"agent_positions,omitempty"`
	FragileAgents  map[game.AgentID]bool          `json:"fragile_agents,omitempty"`
	ExecutedAction string                         `json:"executed_action,omitempty"`
	Reward         float64                        `json:"reward,omitempty"`
	LegalActions   []string                       `json:"legal_actions,omitempty"`
	TestMode       bool                           `json:"test_mode,omitempty"`

	// REGISTER
	AgentClass string `json:"agent_class,omitempty"`
	AgentTeam  string `json:"agent_team,omitempty"`

	// START
	MapWidth  int `json:"map_width,omitempty"`
	MapHeight int `json:"map_height,omitempty"`

	// POLICY, in both directions
	Policy json.RawMessage `json:"policy,omitempty"`

	// Replies
	Count  *int   `json:"count,omitempty"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Ack acknowledges a request that produces no data.
func Ack(id game.AgentID) Envelope {
	return Envelope{Type: TypeAck, AgentID: id}
}

// ActionReply carries the action chosen for a turn.
func ActionReply(id game.AgentID, action game.Action) Envelope {
	return Envelope{Type: TypeAction, AgentID: id, Action: string(action)}
}

// BehaviorCountReply carries a decision unit's usage counter.
func BehaviorCountReply(id game.AgentID, count int) Envelope {
	return Envelope{Type: TypeBehaviorCount, AgentID: id, Count: &count}
}

// PolicyReply carries a decision unit's serialized policy.
func PolicyReply(id game.AgentID, policy []byte) Envelope {
	return Envelope{Type: TypePolicy, AgentID: id, Policy: json.RawMessage(policy)}
}

// ErrorReply reports a failed request. code is a stable machine-readable kind.
func ErrorReply(id game.AgentID, code string, err error) Envelope {
	return Envelope{Type: TypeError, AgentID: id, Code: code, Error: err.Error()}
}
