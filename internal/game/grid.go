// ABOUTME: Grid helpers for walls, bounds checks and breadth-first path search.
// ABOUTME: Shared by session prediction and the greedy decision unit.

package game

// WallSet is the set of blocked cells on a map.
type WallSet map[Position]struct{}

// NewWallSet builds a WallSet from a list of positions.
func NewWallSet(positions []Position) WallSet {
	walls := make(WallSet, len(positions))
	for _, p := range positions {
		walls[p] = struct{}{}
	}
	return walls
}

// Has reports whether p is a wall.
func (w WallSet) Has(p Position) bool {
	_, ok := w[p]
	return ok
}

// Grid is a bounded map with walls.
type Grid struct {
	Width  int
	Height int
	Walls  WallSet
}

// InBounds reports whether p lies on the map. A grid with no size set is unbounded.
func (g Grid) InBounds(p Position) bool {
	if g.Width <= 0 || g.Height <= 0 {
		return true
	}
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Height
}

// Open reports whether an agent may stand on p.
func (g Grid) Open(p Position) bool {
	return g.InBounds(p) && !g.Walls.Has(p)
}

// Step applies action from p. Blocked moves leave the agent in place.
func (g Grid) Step(p Position, action Action) Position {
	next := p.Apply(action)
	if !g.Open(next) {
		return p
	}
	return next
}

// maxSearchCells bounds how many cells one FirstStep call may visit, whatever
// the map size.
const maxSearchCells = 1 << 16

// FirstStep runs a breadth-first search from start and returns the first move of a
// shortest path to any cell for which goal returns true. ok is false when no goal is
// reachable or start itself is a goal.
func (g Grid) FirstStep(start Position, goal func(Position) bool) (Action, bool) {
	if goal(start) {
		return Stop, false
	}

	type node struct {
		pos   Position
		first Action
	}

	limit := maxSearchCells
	if g.Width > 0 && g.Height > 0 && g.Width <= maxSearchCells/g.Height {
		limit = g.Width * g.Height
	}
	visited := map[Position]bool{start: true}
	queue := make([]node, 0, 16)
	for _, move := range Moves {
		next := start.Apply(move)
		if g.Open(next) && !visited[next] {
			visited[next] = true
			queue = append(queue, node{pos: next, first: move})
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if goal(cur.pos) {
			return cur.first, true
		}
		if len(visited) > limit {
			break
		}
		for _, move := range Moves {
			next := cur.pos.Apply(move)
			if g.Open(next) && !visited[next] {
				visited[next] = true
				queue = append(queue, node{pos: next, first: cur.first})
			}
		}
	}
	return Stop, false
}
