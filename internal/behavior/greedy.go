// ABOUTME: Greedy decision unit: eaters path to the nearest food, others chase or flee.
// ABOUTME: Epsilon-greedy exploration outside test mode; epsilon and seed form the policy.

package behavior

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/2389/pacman-gateway/internal/game"
)

// DefaultEpsilon is the exploration rate of a fresh Greedy unit.
const DefaultEpsilon = 0.1

type greedyPolicy struct {
	Epsilon *float64 `json:"epsilon" validate:"required"`
	Seed    *int64   `json:"seed" validate:"required"`
}

// Greedy follows shortest paths toward its current goal.
type Greedy struct {
	counter
	id      game.AgentID
	allies  []game.AgentID
	enemies []game.AgentID
	epsilon float64
	seed    int64
	rng     *rand.Rand
}

// NewGreedy builds a Greedy unit with the default exploration rate.
func NewGreedy(id game.AgentID, allies, enemies []game.AgentID) Unit {
	seed := int64(id) + 1
	return &Greedy{
		id:      id,
		allies:  allies,
		enemies: enemies,
		epsilon: DefaultEpsilon,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (g *Greedy) ChooseAction(view View, _ game.Action, _ float64, legal []game.Action, testMode bool) game.Action {
	g.tick()
	if len(legal) == 0 {
		return game.Stop
	}
	if !testMode && g.rng.Float64() < g.epsilon {
		return legal[g.rng.Intn(len(legal))]
	}

	self, ok := view.Position(view.AgentID())
	if !ok {
		return legal[g.rng.Intn(len(legal))]
	}

	var choice game.Action
	var found bool
	switch {
	case view.Eater():
		choice, found = g.towardFood(view, self)
	case view.IsFragile(view.AgentID()):
		choice, found = g.flee(view, self, legal)
	default:
		choice, found = g.chase(view, self)
	}

	if found && contains(legal, choice) {
		return choice
	}
	return legal[g.rng.Intn(len(legal))]
}

func (g *Greedy) towardFood(view View, self game.Position) (game.Action, bool) {
	food := make(map[game.Position]bool, len(view.Food()))
	for _, f := range view.Food() {
		food[f] = true
	}
	if len(food) == 0 {
		return game.Stop, false
	}
	return view.Grid().FirstStep(self, func(p game.Position) bool { return food[p] })
}

func (g *Greedy) chase(view View, self game.Position) (game.Action, bool) {
	target, ok := nearest(view, self, view.Enemies())
	if !ok {
		return game.Stop, false
	}
	return view.Grid().FirstStep(self, func(p game.Position) bool { return p == target })
}

func (g *Greedy) flee(view View, self game.Position, legal []game.Action) (game.Action, bool) {
	threat, ok := nearest(view, self, view.Enemies())
	if !ok {
		return game.Stop, false
	}
	grid := view.Grid()
	best, bestDist := game.Stop, -1
	for _, a := range legal {
		d := game.ManhattanDistance(grid.Step(self, a), threat)
		if d > bestDist {
			best, bestDist = a, d
		}
	}
	return best, bestDist >= 0
}

// nearest returns the closest known position among ids.
func nearest(view View, from game.Position, ids []game.AgentID) (game.Position, bool) {
	var best game.Position
	bestDist := -1
	for _, id := range ids {
		p, ok := view.Position(id)
		if !ok {
			continue
		}
		if d := game.ManhattanDistance(from, p); bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist >= 0
}

func (g *Greedy) Policy() ([]byte, error) {
	epsilon, seed := g.epsilon, g.seed
	return json.Marshal(greedyPolicy{Epsilon: &epsilon, Seed: &seed})
}

func (g *Greedy) SetPolicy(policy []byte) error {
	var p greedyPolicy
	if err := decodePolicy(policy, &p); err != nil {
		return err
	}
	if *p.Epsilon < 0 || *p.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon %v outside [0,1]", ErrInvalidPolicy, *p.Epsilon)
	}
	g.epsilon = *p.Epsilon
	g.seed = *p.Seed
	g.rng = rand.New(rand.NewSource(g.seed))
	return nil
}
