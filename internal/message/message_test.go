// ABOUTME: Tests for envelope decoding into request variants.
// ABOUTME: Covers every request type, unknown tags, validation failures and JSON shape.

package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pacman-gateway/internal/behavior"
	"github.com/2389/pacman-gateway/internal/game"
)

func TestDecode_AllRequestTypes(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want Request
	}{
		{
			name: "init",
			env:  Envelope{Type: TypeInit, AgentID: 1},
			want: &Init{Header: Header{AgentID: 1}},
		},
		{
			name: "start",
			env:  Envelope{Type: TypeStart, AgentID: 1, MapWidth: 10, MapHeight: 5},
			want: &Start{Header: Header{AgentID: 1}, Width: 10, Height: 5},
		},
		{
			name: "register",
			env:  Envelope{Type: TypeRegister, AgentID: 2, AgentClass: "greedy", AgentTeam: "ghost"},
			want: &Register{Header: Header{AgentID: 2}, Kind: behavior.KindGreedy, Team: game.TeamGhost},
		},
		{
			name: "behavior count",
			env:  Envelope{Type: TypeRequestBehaviorCount, AgentID: 3},
			want: &RequestBehaviorCount{Header: Header{AgentID: 3}},
		},
		{
			name: "request policy",
			env:  Envelope{Type: TypeRequestPolicy, AgentID: 3},
			want: &RequestPolicy{Header: Header{AgentID: 3}},
		},
		{
			name: "set policy",
			env:  Envelope{Type: TypePolicy, AgentID: 3, Policy: json.RawMessage(`{"seed":1}`)},
			want: &SetPolicy{Header: Header{AgentID: 3}, Policy: []byte(`{"seed":1}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.env.Type, got.Type())
			assert.Equal(t, tt.env.AgentID, got.Agent())
		})
	}
}

func TestDecode_Turn(t *testing.T) {
	env := Envelope{
		Type:           TypeState,
		AgentID:        1,
		WallPositions:  []game.Position{{X: 0, Y: 1}},
		FoodPositions:  []game.Position{{X: 3, Y: 3}},
		AgentPositions: map[game.AgentID]game.Position{1: {X: 0, Y: 0}},
		FragileAgents:  map[game.AgentID]bool{2: true},
		ExecutedAction: "North",
		Reward:         -1,
		LegalActions:   []string{"North", "Stop"},
		TestMode:       true,
	}

	req, err := Decode(env)
	require.NoError(t, err)

	turn, ok := req.(*Turn)
	require.True(t, ok)
	assert.Equal(t, game.North, turn.LastAction)
	assert.Equal(t, []game.Action{game.North, game.Stop}, turn.Legal)
	assert.Equal(t, env.FoodPositions, turn.Food)
	assert.Equal(t, env.WallPositions, turn.Walls)
	assert.Equal(t, -1.0, turn.Reward)
	assert.True(t, turn.TestMode)
	assert.True(t, turn.Fragile[2])
}

func TestDecode_TurnDefaultsLastActionToStop(t *testing.T) {
	req, err := Decode(Envelope{Type: TypeState, AgentID: 1})
	require.NoError(t, err)
	assert.Equal(t, game.Stop, req.(*Turn).LastAction)
	assert.Empty(t, req.(*Turn).Legal)
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode(Envelope{Type: "HELLO", AgentID: 1})
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestDecode_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"zero width", Envelope{Type: TypeStart, AgentID: 1, MapWidth: 0, MapHeight: 5}},
		{"negative agent", Envelope{Type: TypeInit, AgentID: -1}},
		{"missing team", Envelope{Type: TypeRegister, AgentID: 1, AgentClass: "random"}},
		{"missing policy", Envelope{Type: TypePolicy, AgentID: 1}},
		{"bad legal action", Envelope{Type: TypeState, AgentID: 1, LegalActions: []string{"Jump"}}},
		{"bad executed action", Envelope{Type: TypeState, AgentID: 1, ExecutedAction: "Jump"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.env)
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	data, err := json.Marshal(BehaviorCountReply(4, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"BEHAVIOR_COUNT","agent_id":4,"count":0}`, string(data))

	data, err = json.Marshal(ActionReply(1, game.North))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ACTION","agent_id":1,"action":"North"}`, string(data))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "STATE",
		"agent_id": 1,
		"agent_positions": {"1": {"x": 0, "y": 0}},
		"legal_actions": ["North", "Stop"]
	}`), &env))
	assert.Equal(t, game.Position{X: 0, Y: 0}, env.AgentPositions[1])
}
