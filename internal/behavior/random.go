// ABOUTME: Random decision unit: uniform choice among legal actions.
// ABOUTME: Its policy is the generator seed so runs can be replayed.

package behavior

import (
	"encoding/json"
	"math/rand"

	"github.com/2389/pacman-gateway/internal/game"
)

// randomPolicy is the serialized form of a Random unit.
type randomPolicy struct {
	Seed *int64 `json:"seed" validate:"required"`
}

// Random picks uniformly among the legal actions.
type Random struct {
	counter
	id   game.AgentID
	seed int64
	rng  *rand.Rand
}

// NewRandom builds a Random unit seeded from the agent id.
func NewRandom(id game.AgentID, _, _ []game.AgentID) Unit {
	seed := int64(id) + 1
	return &Random{
		id:   id,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (r *Random) ChooseAction(_ View, _ game.Action, _ float64, legal []game.Action, _ bool) game.Action {
	r.tick()
	if len(legal) == 0 {
		return game.Stop
	}
	return legal[r.rng.Intn(len(legal))]
}

func (r *Random) Policy() ([]byte, error) {
	seed := r.seed
	return json.Marshal(randomPolicy{Seed: &seed})
}

func (r *Random) SetPolicy(policy []byte) error {
	var p randomPolicy
	if err := decodePolicy(policy, &p); err != nil {
		return err
	}
	r.seed = *p.Seed
	r.rng = rand.New(rand.NewSource(r.seed))
	return nil
}
