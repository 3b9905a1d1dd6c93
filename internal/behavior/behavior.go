// ABOUTME: Decision unit contract and the closed catalog of unit kinds.
// ABOUTME: Kinds are selected locally by tag; nothing executable crosses the wire.

package behavior

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/2389/pacman-gateway/internal/game"
)

// ErrUnknownKind indicates a kind tag that is not in the catalog.
var ErrUnknownKind = errors.New("unknown behavior kind")

// ErrInvalidPolicy indicates a policy blob the unit cannot load.
var ErrInvalidPolicy = errors.New("invalid policy")

var validate = validator.New()

// decodePolicy loads a JSON policy object into p, which must point to a
// struct. Unknown fields, null and missing required fields are rejected.
func decodePolicy(data []byte, p any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}

// Kind is the stable tag clients use to pick a decision unit.
type Kind string

// Kinds shipped with the gateway.
const (
	KindRandom Kind = "random"
	KindGreedy Kind = "greedy"
)

// View is the per-agent world state a unit decides on.
type View interface {
	AgentID() game.AgentID
	Grid() game.Grid
	Food() []game.Position
	Position(id game.AgentID) (game.Position, bool)
	IsFragile(id game.AgentID) bool
	Eater() bool
	Allies() []game.AgentID
	Enemies() []game.AgentID
	Iteration() int
}

// Unit is a live decision unit bound to one agent id.
type Unit interface {
	// ChooseAction returns one of legal, or game.Stop when legal is empty.
	ChooseAction(view View, lastAction game.Action, lastReward float64, legal []game.Action, testMode bool) game.Action

	// BehaviorCount returns how many decisions were made since the last reset.
	BehaviorCount() int
	ResetBehaviorCount()

	// Policy returns a serialized snapshot of the unit's parameters.
	Policy() ([]byte, error)
	SetPolicy(policy []byte) error
}

// Factory builds a fresh unit seeded with the agent's id and its team view.
type Factory func(id game.AgentID, allies, enemies []game.AgentID) Unit

// Catalog maps kind tags to factories.
type Catalog map[Kind]Factory

// DefaultCatalog returns the kinds shipped with the gateway.
func DefaultCatalog() Catalog {
	return Catalog{
		KindRandom: NewRandom,
		KindGreedy: NewGreedy,
	}
}

// Has reports whether kind is known.
func (c Catalog) Has(kind Kind) bool {
	_, ok := c[kind]
	return ok
}

// New builds a unit of the given kind.
func (c Catalog) New(kind Kind, id game.AgentID, allies, enemies []game.AgentID) (Unit, error) {
	factory, ok := c[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(id, allies, enemies), nil
}

// Kinds lists the catalog's tags in sorted order.
func (c Catalog) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// counter is the usage counter shared by the built-in units.
type counter struct {
	count int
}

func (c *counter) BehaviorCount() int  { return c.count }
func (c *counter) ResetBehaviorCount() { c.count = 0 }
func (c *counter) tick()               { c.count++ }

func contains(actions []game.Action, a game.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
